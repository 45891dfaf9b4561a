package detectors

import (
	"errors"
	"strings"

	"github.com/phpguard/phpguard/internal/phplex"
	"github.com/phpguard/phpguard/internal/textpos"
	"github.com/phpguard/phpguard/internal/types"
)

// Tokenizer produces the token stream for the token scan. A nil Tokenizer,
// or one that returns an error, leaves only the pattern scan.
type Tokenizer func(src string) ([]phplex.Token, error)

// Detect runs both strategies over text with the built-in lexer and merges
// the results.
func Detect(text string) []types.Indicator {
	return DetectWith(phplex.Tokenize, text)
}

// DetectWith is Detect with an explicit tokenizer.
func DetectWith(tokenize Tokenizer, text string) []types.Indicator {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []types.Indicator
	if tokenize != nil {
		// an unterminated token still leaves a usable prefix of the stream
		if toks, err := tokenize(text); err == nil || errors.Is(err, phplex.ErrUnterminated) {
			out = append(out, TokenScan(toks)...)
		}
	}
	out = append(out, PatternScan(text)...)
	return Merge(out)
}

// TokenScan flags the eval construct and watch-list identifiers that are
// followed by "(" once whitespace and comments are skipped.
func TokenScan(toks []phplex.Token) []types.Indicator {
	var out []types.Indicator
	for i, t := range toks {
		switch t.Kind {
		case phplex.Eval:
			if constructRule == nil {
				continue
			}
			out = append(out, types.Indicator{
				Severity: constructRule.Severity,
				Name:     constructRule.ID,
				Line:     max(1, t.Line),
				Excerpt:  strings.TrimSpace(t.Text),
				What:     constructWhat,
				Next:     constructNext,
			})
		case phplex.Ident:
			// qualified names such as \system or Foo\popen are not plain
			// identifiers and are left to the pattern scan
			name := strings.ToLower(t.Text)
			r, ok := callRules[name]
			if !ok || !followedByParen(toks, i+1) {
				continue
			}
			out = append(out, types.Indicator{
				Severity: r.Severity,
				Name:     name,
				Line:     max(1, t.Line),
				Excerpt:  name + "(",
				What:     name + "() call",
				Next:     callNext,
			})
		}
	}
	return out
}

func followedByParen(toks []phplex.Token, j int) bool {
	for j < len(toks) && toks[j].Kind.Skippable() {
		j++
	}
	return j < len(toks) && toks[j].Kind == phplex.Punct && toks[j].Text == "("
}

// PatternScan applies every rule pattern to the whole text. It does not know
// about comments or strings, so it reports occurrences there too.
func PatternScan(text string) []types.Indicator {
	idx := textpos.NewIndex(text)
	var out []types.Indicator
	for _, r := range rules {
		if r.Pattern == nil {
			continue
		}
		for _, m := range r.Pattern.FindAllStringIndex(text, -1) {
			line := idx.Line(m[0])
			out = append(out, types.Indicator{
				Severity: r.Severity,
				Name:     r.ID,
				Line:     line,
				Excerpt:  idx.Excerpt(line),
				What:     r.What,
				Next:     r.Next,
			})
		}
	}
	return out
}

// Merge collapses indicators sharing (lowercase name, line). The first
// occurrence wins; later ones only contribute What/Next text not already
// present (case-insensitive). Order is first-seen.
func Merge(in []types.Indicator) []types.Indicator {
	if len(in) == 0 {
		return nil
	}
	type key struct {
		name string
		line int
	}
	pos := make(map[key]int, len(in))
	out := make([]types.Indicator, 0, len(in))
	for _, ind := range in {
		k := key{strings.ToLower(ind.Name), ind.Line}
		i, seen := pos[k]
		if !seen {
			pos[k] = len(out)
			out = append(out, ind)
			continue
		}
		if !containsFold(out[i].What, ind.What) {
			out[i].What += " / " + ind.What
		}
		if !containsFold(out[i].Next, ind.Next) {
			out[i].Next += " " + ind.Next
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
