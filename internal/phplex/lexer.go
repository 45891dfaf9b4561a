package phplex

import (
	"errors"
	"strings"
)

// Kind classifies a token.
type Kind int

const (
	InlineHTML Kind = iota
	OpenTag
	CloseTag
	Whitespace
	Comment
	DocComment
	Eval
	Ident
	Variable
	String
	Number
	Punct
)

var kindNames = [...]string{
	InlineHTML: "T_INLINE_HTML",
	OpenTag:    "T_OPEN_TAG",
	CloseTag:   "T_CLOSE_TAG",
	Whitespace: "T_WHITESPACE",
	Comment:    "T_COMMENT",
	DocComment: "T_DOC_COMMENT",
	Eval:       "T_EVAL",
	Ident:      "T_STRING",
	Variable:   "T_VARIABLE",
	String:     "T_CONSTANT_ENCAPSED_STRING",
	Number:     "T_LNUMBER",
	Punct:      "PUNCT",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Skippable reports whether the token carries no syntax (whitespace or comments).
func (k Kind) Skippable() bool {
	return k == Whitespace || k == Comment || k == DocComment
}

// Token is one lexical element. Line is 1-based and refers to the first byte.
type Token struct {
	Kind   Kind
	Text   string
	Line   int
	Offset int
}

// ErrUnterminated is returned alongside the partial token stream when a
// comment, string or heredoc runs to the end of input.
var ErrUnterminated = errors.New("unterminated token")

type lexer struct {
	src    string
	pos    int
	line   int
	toks   []Token
	inPHP  bool
	broken bool
}

// Tokenize splits PHP source into tokens. Text outside <?php ... ?> is
// reported as InlineHTML. The returned slice is usable even when err is
// ErrUnterminated.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1}
	for lx.pos < len(lx.src) {
		if lx.inPHP {
			lx.lexPHP()
		} else {
			lx.lexHTML()
		}
	}
	if lx.broken {
		return lx.toks, ErrUnterminated
	}
	return lx.toks, nil
}

func (lx *lexer) emit(k Kind, end int) {
	text := lx.src[lx.pos:end]
	lx.toks = append(lx.toks, Token{Kind: k, Text: text, Line: lx.line, Offset: lx.pos})
	lx.line += countBreaks(text)
	lx.pos = end
}

func countBreaks(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			n++
		}
	}
	return n
}

// openTagAt returns the length of an open tag starting at i, or 0.
func openTagAt(s string, i int) int {
	if !strings.HasPrefix(s[i:], "<?") {
		return 0
	}
	rest := s[i+2:]
	if len(rest) >= 3 && strings.EqualFold(rest[:3], "php") {
		if len(rest) == 3 {
			return 5
		}
		switch rest[3] {
		case ' ', '\t':
			return 6
		case '\n':
			return 6
		case '\r':
			if len(rest) > 4 && rest[4] == '\n' {
				return 7
			}
			return 6
		}
	}
	if strings.HasPrefix(rest, "=") {
		return 3
	}
	return 2
}

func (lx *lexer) lexHTML() {
	for i := lx.pos; i < len(lx.src); i++ {
		if n := openTagAt(lx.src, i); n > 0 {
			if i > lx.pos {
				lx.emit(InlineHTML, i)
			}
			lx.emit(OpenTag, i+n)
			lx.inPHP = true
			return
		}
	}
	lx.emit(InlineHTML, len(lx.src))
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func (lx *lexer) lexPHP() {
	s, i := lx.src, lx.pos
	c := s[i]
	switch {
	case isSpace(c):
		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		lx.emit(Whitespace, j)
	case strings.HasPrefix(s[i:], "?>"):
		j := i + 2
		if j < len(s) && s[j] == '\n' {
			j++
		} else if strings.HasPrefix(s[j:], "\r\n") {
			j += 2
		}
		lx.emit(CloseTag, j)
		lx.inPHP = false
	case strings.HasPrefix(s[i:], "#["):
		lx.emit(Punct, i+2)
	case c == '#' || strings.HasPrefix(s[i:], "//"):
		lx.emit(Comment, lineCommentEnd(s, i))
	case strings.HasPrefix(s[i:], "/*"):
		kind := Comment
		if strings.HasPrefix(s[i:], "/**") && i+3 < len(s) && isSpace(s[i+3]) {
			kind = DocComment
		}
		end := strings.Index(s[i+2:], "*/")
		if end < 0 {
			lx.broken = true
			lx.emit(kind, len(s))
			return
		}
		lx.emit(kind, i+2+end+2)
	case c == '\'' || c == '"' || c == '`':
		lx.emit(String, lx.quotedEnd(i, c))
	case strings.HasPrefix(s[i:], "<<<"):
		if end, ok := lx.heredocEnd(i); ok {
			lx.emit(String, end)
			return
		}
		lx.emit(Punct, i+1)
	case c == '$' && i+1 < len(s) && isIdentStart(s[i+1]):
		j := i + 1
		for j < len(s) && isIdentChar(s[j]) {
			j++
		}
		lx.emit(Variable, j)
	case isIdentStart(c) || (c == '\\' && i+1 < len(s) && isIdentStart(s[i+1])):
		j := i + 1
		for j < len(s) && (isIdentChar(s[j]) || (s[j] == '\\' && j+1 < len(s) && isIdentStart(s[j+1]))) {
			j++
		}
		if strings.EqualFold(s[i:j], "eval") {
			lx.emit(Eval, j)
			return
		}
		lx.emit(Ident, j)
	case c >= '0' && c <= '9':
		j := i + 1
		for j < len(s) && (isIdentChar(s[j]) || s[j] == '.') {
			j++
		}
		lx.emit(Number, j)
	default:
		lx.emit(Punct, i+1)
	}
}

// lineCommentEnd finds the end of a // or # comment: the line break (kept in
// the comment) or a closing tag (not kept).
func lineCommentEnd(s string, i int) int {
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\n':
			return j + 1
		case '\r':
			if j+1 < len(s) && s[j+1] == '\n' {
				return j + 2
			}
			return j + 1
		case '?':
			if j+1 < len(s) && s[j+1] == '>' {
				return j
			}
		}
	}
	return len(s)
}

func (lx *lexer) quotedEnd(i int, q byte) int {
	s := lx.src
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	lx.broken = true
	return len(s)
}

// heredocEnd recognizes <<<ID, <<<"ID" and <<<'ID' bodies, including the
// indented closing markers allowed since PHP 7.3.
func (lx *lexer) heredocEnd(i int) (int, bool) {
	s := lx.src
	j := i + 3
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	var quote byte
	if j < len(s) && (s[j] == '\'' || s[j] == '"') {
		quote = s[j]
		j++
	}
	start := j
	for j < len(s) && isIdentChar(s[j]) {
		j++
	}
	if j == start || !isIdentStart(s[start]) {
		return 0, false
	}
	label := s[start:j]
	if quote != 0 {
		if j >= len(s) || s[j] != quote {
			return 0, false
		}
		j++
	}
	switch {
	case strings.HasPrefix(s[j:], "\r\n"):
		j += 2
	case j < len(s) && (s[j] == '\n' || s[j] == '\r'):
		j++
	default:
		return 0, false
	}
	// scan line by line for the closing label
	for j <= len(s) {
		k := j
		for k < len(s) && (s[k] == ' ' || s[k] == '\t') {
			k++
		}
		if strings.HasPrefix(s[k:], label) {
			after := k + len(label)
			if after >= len(s) || !isIdentChar(s[after]) {
				return after, true
			}
		}
		nl := strings.IndexAny(s[j:], "\r\n")
		if nl < 0 {
			break
		}
		j += nl + 1
		if s[j-1] == '\r' && j < len(s) && s[j] == '\n' {
			j++
		}
	}
	lx.broken = true
	return len(s), true
}
