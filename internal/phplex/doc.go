// Package phplex is a small PHP lexer. It recognizes just enough of the
// language to tell code from comments, strings and inline HTML, and to
// distinguish the eval construct from ordinary identifiers. It never
// evaluates or parses beyond the token level.
package phplex
