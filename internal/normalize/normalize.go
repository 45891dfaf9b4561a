// Package normalize turns raw syntax-checker output into a stable, single-line
// message with no server paths in it.
package normalize

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// an absolute path must start the text or follow a non-path character
	absPHPPath    = regexp.MustCompile(`(?:^|[^\w./-])(?:/[^\s:]+)+\.php\b`)
	errorPrefix   = regexp.MustCompile(`(?i)^\s*(?:PHP\s+)?(?:Parse|Fatal)\s+error:\s*`)
	hspace        = regexp.MustCompile(`[\t ]+`)
	errorsParsing = regexp.MustCompile(`(?i)Errors parsing [^\r\n]+`)
	inPathOnLine  = regexp.MustCompile(`(?i)^(PHP (?:Parse|Fatal) error:[^\n]*?) in .* on line ([0-9]+)\s*$`)
	anySpace      = regexp.MustCompile(`\s+`)
)

const canonicalPrefix = "PHP Parse error: "

// Normalize is the first stage: it scrubs paths, canonicalizes the error
// prefix and squeezes horizontal whitespace. unitPath may be empty.
func Normalize(raw, unitPath string) string {
	if raw == "" {
		return ""
	}
	out := strings.ReplaceAll(raw, "\r\n", "\n")

	base := "file.php"
	if unitPath != "" {
		base = baseName(unitPath)
		out = strings.ReplaceAll(out, unitPath, base)
	}
	out = absPHPPath.ReplaceAllStringFunc(out, func(m string) string {
		return m[:strings.IndexByte(m, '/')] + base
	})
	out = errorPrefix.ReplaceAllLiteralString(out, canonicalPrefix)
	out = hspace.ReplaceAllLiteralString(out, " ")
	return strings.TrimSpace(out)
}

// Clean is the second stage. It expects Normalize output.
func Clean(msg string) string {
	out := errorsParsing.ReplaceAllLiteralString(msg, "")
	out = inPathOnLine.ReplaceAllString(out, "$1 on line $2")
	out = anySpace.ReplaceAllLiteralString(out, " ")
	return strings.TrimSpace(out)
}

// Message runs both stages in order.
func Message(raw, unitPath string) string {
	return Clean(Normalize(raw, unitPath))
}

// baseName accepts both separators since labels are slash-separated while
// oracle temp paths are OS-native.
func baseName(p string) string {
	b := path.Base(filepath.ToSlash(p))
	if b == "." || b == "/" {
		return "file.php"
	}
	return b
}
