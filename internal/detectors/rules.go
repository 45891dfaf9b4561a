package detectors

import (
	"regexp"

	"github.com/phpguard/phpguard/internal/types"
)

// TokenMatch tells the token scan how a rule shows up in the token stream.
type TokenMatch int

const (
	// NoToken rules are only found by the pattern scan.
	NoToken TokenMatch = iota
	// Construct rules match a dedicated language-construct token (eval).
	Construct
	// Call rules match an identifier followed by "(".
	Call
)

// Rule is one row of the indicator table. What and Next are the pattern-scan
// texts; the token scan uses its own fixed wording.
type Rule struct {
	ID       string
	Severity types.Severity
	Pattern  *regexp.Regexp
	What     string
	Next     string
	Token    TokenMatch
}

const (
	nextOSCommand = "Runs OS commands. Confirm no user input reaches it; review for webshell patterns."
	nextSpawn     = "Spawns processes. Confirm no user input reaches it; review for webshell patterns."

	constructWhat = "eval() language construct"
	constructNext = "Never run untrusted code; prefer parsing only."
	callNext      = "Confirm no user input reaches this call; review for webshell patterns."
)

func callPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*\(`)
}

// rules is ordered; the pattern scan walks it top to bottom.
var rules = []Rule{
	{ID: "eval", Severity: types.SevHigh, Pattern: callPattern("eval"), What: "eval() call", Next: "Do not execute user-controlled strings; remove or replace with safer logic.", Token: Construct},
	{ID: "assert", Severity: types.SevHigh, Pattern: callPattern("assert"), What: "assert() call", Next: "In some contexts this can execute code; avoid with untrusted input.", Token: Call},
	{ID: "system", Severity: types.SevHigh, Pattern: callPattern("system"), What: "system() call", Next: nextOSCommand, Token: Call},
	{ID: "exec", Severity: types.SevHigh, Pattern: callPattern("exec"), What: "exec() call", Next: nextOSCommand, Token: Call},
	{ID: "shell_exec", Severity: types.SevHigh, Pattern: callPattern("shell_exec"), What: "shell_exec() call", Next: nextOSCommand, Token: Call},
	{ID: "passthru", Severity: types.SevHigh, Pattern: callPattern("passthru"), What: "passthru() call", Next: nextOSCommand, Token: Call},
	{ID: "proc_open", Severity: types.SevHigh, Pattern: callPattern("proc_open"), What: "proc_open() call", Next: nextSpawn, Token: Call},
	{ID: "popen", Severity: types.SevHigh, Pattern: callPattern("popen"), What: "popen() call", Next: nextSpawn, Token: Call},
	{ID: "create_function", Severity: types.SevMed, Pattern: callPattern("create_function"), What: "create_function() call", Next: "Deprecated and risky. Prefer closures.", Token: Call},
	{ID: "preg_replace_e", Severity: types.SevMed, Pattern: regexp.MustCompile(`(?i)preg_replace\s*\(\s*[^,]*/e["']?\s*,`), What: "preg_replace() with /e", Next: "Historically dangerous. Remove /e; use preg_replace_callback.", Token: NoToken},
}

var (
	constructRule *Rule
	callRules     = map[string]*Rule{}
)

func init() {
	for i := range rules {
		r := &rules[i]
		switch r.Token {
		case Construct:
			constructRule = r
		case Call:
			callRules[r.ID] = r
		}
	}
}

// Rules returns a copy of the indicator table in scan order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// IDs returns the indicator names in table order.
func IDs() []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
