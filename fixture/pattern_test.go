package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern(t *testing.T) {
	cases := []struct {
		pattern string
		line    string
		match   bool
	}{
		{"ok*", "oka", true},
		{"ok*", "xok", false},
		{"?k", "ok", true},
		{"error:[0-9]*", "error:9", true},
		{"error:[0-9]*", "error:a", false},
		{"error:[!0-9]", "error:a", true},
		{"error:[!0-9]", "error:5", false},
		{"[a-c0-2_]x", "bx", true},
		{"[a-c0-2_]x", "_x", true},
		{"[a-c0-2_]x", "dx", false},
		{"[!a-c0-2]x", "dx", true},
		{"[!a-c0-2]x", "1x", false},
		{"[]]", "]", true},
		{"[!]]", "a", true},
		{"[!]]", "]", false},
		{"[-a]", "-", true},
		{"[a-]", "-", true},
		{"[!-]", "-", false},
		{"[!]", "[!]", true},
		{"[!x]", "!", true},
		{"[\\]", "\\", true},
		{"[z-a]", "m", false},
		{"[!z-a]", "m", true},

		// unclosed brackets, braces and backslashes are literal
		{"[MSG:INFO: Homing*", "[MSG:INFO: Homing X]", true},
		{"[MSG:INFO: Homing*", "MSG:INFO: Homing X]", false},
		{"{a,b}", "{a,b}", true},
		{"{a,b}", "a", false},
		{"a\\*", "a\\xyz", true},

		// fnmatch reads this as a single character class
		{"[MSG:?]", "M", true},
		{"[MSG:?]", "[MSG:x]", false},

		{"*/littlefs/*", "[MSG:INFO: Wrote /littlefs/config.yaml]", true},
	}

	for _, tc := range cases {
		g, err := compilePattern(tc.pattern)
		require.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.match, g.Match(tc.line), "%s ~ %s", tc.pattern, tc.line)
	}
}

func TestCompilePattern_TooLarge(t *testing.T) {
	_, err := compilePattern("[\x01-\U0010FFFF_]")
	assert.Error(t, err)

	// a lone range needs no expansion
	g, err := compilePattern("[\x01-\U0010FFFF]")
	require.NoError(t, err)
	assert.True(t, g.Match("é"))
}
