package detectors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/phpguard/phpguard/internal/phplex"
	"github.com/phpguard/phpguard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(in []types.Indicator) []string {
	var out []string
	for _, i := range in {
		out = append(out, fmt.Sprintf("%s@%d", i.Name, i.Line))
	}
	return out
}

func TestDetect_EvalMergedOnce(t *testing.T) {
	got := Detect("<?php eval($x);")
	require.Len(t, got, 1)
	ind := got[0]
	assert.Equal(t, "eval", ind.Name)
	assert.Equal(t, types.SevHigh, ind.Severity)
	assert.Equal(t, 1, ind.Line)
	assert.Equal(t, "eval() language construct / eval() call", ind.What)
	assert.Equal(t, constructNext+" "+rules[0].Next, ind.Next)
	// the token result comes first, so its excerpt wins
	assert.Equal(t, "eval", ind.Excerpt)
}

func TestDetect_CommentOnlyPatternHit(t *testing.T) {
	src := "<?php // eval(1);"
	toks, err := phplex.Tokenize(src)
	require.NoError(t, err)
	assert.Empty(t, TokenScan(toks))

	got := Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "eval", got[0].Name)
	assert.Equal(t, "eval() call", got[0].What)
	assert.Equal(t, "<?php // eval(1);", got[0].Excerpt)
}

func TestDetect_StringLiteralWithoutCall(t *testing.T) {
	assert.Empty(t, Detect("<?php $x = 'create_function';"))
	assert.Empty(t, Detect("$x = 'create_function';"))
}

func TestDetect_Empty(t *testing.T) {
	assert.Nil(t, Detect(""))
	assert.Nil(t, Detect(" \n\t"))
}

func TestTokenScan_WatchList(t *testing.T) {
	src := "<?php\n" +
		"SYSTEM /* why */ ('id');\n" +
		"$f = 'exec';\n" +
		"create_function('$a', 'return 1;');\n" +
		"\\shell_exec('ls');\n" +
		"Foo\\popen('x');\n" +
		"$obj->assert ;\n"
	toks, err := phplex.Tokenize(src)
	require.NoError(t, err)
	got := TokenScan(toks)
	require.Equal(t, []string{"system@2", "create_function@4"}, names(got))

	assert.Equal(t, types.SevHigh, got[0].Severity)
	assert.Equal(t, "system(", got[0].Excerpt)
	assert.Equal(t, "system() call", got[0].What)
	assert.Equal(t, callNext, got[0].Next)
	assert.Equal(t, types.SevMed, got[1].Severity)
}

func TestDetect_UnterminatedKeepsTokenScan(t *testing.T) {
	src := "<?php eval($x); $s = \"oops"
	toks, err := phplex.Tokenize(src)
	require.ErrorIs(t, err, phplex.ErrUnterminated)
	require.NotEmpty(t, toks)

	got := Detect(src)
	require.Len(t, got, 1)
	assert.Equal(t, "eval() language construct / eval() call", got[0].What)
	assert.Equal(t, "eval", got[0].Excerpt)

	got = Detect("<?php\nsystem('id');\n/* never closed")
	require.Len(t, got, 1)
	assert.Equal(t, "system(", got[0].Excerpt)
	assert.Equal(t, callNext+" "+nextOSCommand, got[0].Next)
}

func TestDetect_QualifiedCallPatternOnly(t *testing.T) {
	got := Detect("<?php\n\\system('id');")
	require.Len(t, got, 1)
	assert.Equal(t, "system", got[0].Name)
	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, "system() call", got[0].What)
	assert.Equal(t, nextOSCommand, got[0].Next)
}

func TestPatternScan_Rules(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"eval", "<?php\n\n  eval ($a);", []string{"eval@3"}},
		{"case insensitive", "<?php PassThru('x');", []string{"passthru@1"}},
		{"word boundary", "<?php my_system('x'); execute();", nil},
		{"preg_replace e", "<?php\npreg_replace('/x/e', $r, $s);", []string{"preg_replace_e@2"}},
		{"preg_replace plain", "<?php\npreg_replace('/x/i', $r, $s);", nil},
		{"crlf and cr", "<?php\r\n\rpopen('x');", []string{"popen@3"}},
		{"table order", "<?php exec(1); assert(2);", []string{"assert@1", "exec@1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(PatternScan(tt.src)))
		})
	}
}

func TestPatternScan_Excerpt(t *testing.T) {
	got := PatternScan("<?php\n    proc_open($cmd, $d, $p);   \n")
	require.Len(t, got, 1)
	assert.Equal(t, "proc_open($cmd, $d, $p);", got[0].Excerpt)
	assert.Equal(t, "Spawns processes. Confirm no user input reaches it; review for webshell patterns.", got[0].Next)
}

func TestMerge(t *testing.T) {
	in := []types.Indicator{
		{Name: "exec", Line: 2, What: "exec() call", Next: "A."},
		{Name: "system", Line: 2, What: "system() call", Next: "B."},
		{Name: "EXEC", Line: 2, What: "EXEC() CALL", Next: "c."},
		{Name: "exec", Line: 2, What: "other", Next: "a."},
		{Name: "exec", Line: 3, What: "exec() call", Next: "A."},
	}
	got := Merge(in)
	require.Equal(t, []string{"exec@2", "system@2", "exec@3"}, names(got))
	assert.Equal(t, "exec() call / other", got[0].What)
	assert.Equal(t, "A. c.", got[0].Next)
	assert.Nil(t, Merge(nil))
}

func TestDetect_NoDuplicateKeys(t *testing.T) {
	srcs := []string{
		"<?php eval($a); eval($b);\nsystem('a'); system('b');",
		"<?php\n// exec(1)\nexec(2); /* exec(3) */ shell_exec(4);",
		"<?php\npreg_replace('/a/e', 'b', $c); create_function('', ''); assert($x);",
		strings.Repeat("<?php popen('x', 'r');\n", 5),
	}
	for _, src := range srcs {
		seen := map[string]bool{}
		for _, ind := range Detect(src) {
			k := fmt.Sprintf("%s|%d", strings.ToLower(ind.Name), ind.Line)
			assert.False(t, seen[k], "duplicate %s in %q", k, src)
			seen[k] = true
		}
	}
}

func TestDetectWith_TokenizerFailure(t *testing.T) {
	broken := func(string) ([]phplex.Token, error) { return nil, errors.New("no lexer") }
	got := DetectWith(broken, "<?php eval($x);")
	require.Len(t, got, 1)
	assert.Equal(t, "eval() call", got[0].What)

	got = DetectWith(nil, "<?php system('x');")
	require.Len(t, got, 1)
	assert.Equal(t, "system", got[0].Name)
}

func TestRules_Table(t *testing.T) {
	assert.Equal(t, []string{"eval", "assert", "system", "exec", "shell_exec", "passthru", "proc_open", "popen", "create_function", "preg_replace_e"}, IDs())
	r := Rules()
	r[0].ID = "changed"
	assert.Equal(t, "eval", Rules()[0].ID)
	assert.Len(t, callRules, 8)
	require.NotNil(t, constructRule)
	assert.Equal(t, "eval", constructRule.ID)
}
