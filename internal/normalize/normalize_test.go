package normalize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path string
		want string
	}{
		{
			name: "parse error with unit path",
			raw:  "Parse error: syntax error, unexpected token \";\" in /var/www/html/wp-content/plugins/foo/bar.php on line 12",
			path: "/var/www/html/wp-content/plugins/foo/bar.php",
			want: "PHP Parse error: syntax error, unexpected token \";\" on line 12",
		},
		{
			name: "php -l output",
			raw:  "PHP Parse error:  syntax error, unexpected end of file in /tmp/phpguard-81/unit.php on line 3\r\nErrors parsing /tmp/phpguard-81/unit.php\r\n",
			path: "src/Admin/page.php",
			want: "PHP Parse error: syntax error, unexpected end of file on line 3",
		},
		{
			name: "fatal error prefix",
			raw:  "  fatal \t error:   Cannot redeclare f()",
			path: "",
			want: "PHP Parse error: Cannot redeclare f()",
		},
		{
			name: "embedded second path",
			raw:  "Parse error: include of /opt/site/lib/other.php failed",
			path: "lib/main.php",
			want: "PHP Parse error: include of main.php failed",
		},
		{
			name: "relative path left alone",
			raw:  "syntax error near lib/x.php",
			path: "",
			want: "syntax error near lib/x.php",
		},
		{name: "empty", raw: "", path: "a.php", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.raw, tt.path))
		})
	}
}

func TestNormalize_NoPathKnown(t *testing.T) {
	got := Normalize("Parse error: x in /srv/a/b.php on line 2", "")
	assert.Equal(t, "PHP Parse error: x in file.php on line 2", got)
	assert.Equal(t, "PHP Parse error: x on line 2", Clean(got))
}

func TestNormalize_KeepsLineBreaks(t *testing.T) {
	got := Normalize("Parse error: a\r\n\tb", "")
	assert.Equal(t, "PHP Parse error: a\n b", got)
	assert.Equal(t, "PHP Parse error: a b", Clean(got))
}

func TestStagesIdempotent(t *testing.T) {
	inputs := []string{
		"Parse error: syntax error, unexpected token \";\" in /var/www/a/b.php on line 12",
		"PHP Fatal error:  Uncaught Error in /x/y.php:4\nStack trace:\n#0 {main}",
		"Errors parsing /tmp/z.php",
		"plain message",
		"   ",
	}
	for _, in := range inputs {
		n := Normalize(in, "/var/www/a/b.php")
		assert.Equal(t, n, Normalize(n, "/var/www/a/b.php"), in)
		c := Clean(n)
		assert.Equal(t, c, Clean(c), in)
	}
}

func TestMessage_NoAbsolutePaths(t *testing.T) {
	abs := regexp.MustCompile(`(^|\s)/[^\s]+\.php`)
	inputs := []string{
		"PHP Parse error: bad in /home/u/site/wp-content/plugins/p/p.php on line 1",
		"Fatal error: require(): Failed opening '/usr/share/php/a.php' (include_path='.') in /srv/b.php on line 9",
		"warning from /a.php and /b/c.php",
	}
	for _, in := range inputs {
		assert.NotRegexp(t, abs, Message(in, "p/p.php"), in)
	}
}
