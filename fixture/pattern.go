package fixture

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// maxClassRunes bounds the expansion of a character class that mixes
// ranges and single characters.
const maxClassRunes = 4096

// never matches nothing; it stands in for a pattern with an empty class.
type never struct{}

func (never) Match(string) bool { return false }

// compilePattern compiles a shell-style pattern using fnmatch rules: `*`
// matches any run of characters (including `/`), `?` matches one, and
// `[seq]` / `[!seq]` match one character in or out of seq. A `[` with no
// closing `]` is literal, as are braces and backslashes.
func compilePattern(pattern string) (glob.Glob, error) {
	p := []rune(pattern)
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		switch r := p[i]; r {
		case '*', '?':
			b.WriteRune(r)
		case '[':
			end := classEnd(p, i)
			if end < 0 {
				writeLiteral(&b, r)
				continue
			}
			cls, ok, err := translateClass(p[i+1 : end])
			if err != nil {
				return nil, err
			}
			if !ok {
				return never{}, nil
			}
			b.WriteString(cls)
			i = end
		default:
			writeLiteral(&b, r)
		}
	}
	return glob.Compile(b.String())
}

// classEnd returns the index of the `]` closing the class opened at i, or -1.
// A `]` directly after `[` or `[!` belongs to the class.
func classEnd(p []rune, i int) int {
	j := i + 1
	if j < len(p) && p[j] == '!' {
		j++
	}
	if j < len(p) && p[j] == ']' {
		j++
	}
	for j < len(p) && p[j] != ']' {
		j++
	}
	if j >= len(p) {
		return -1
	}
	return j
}

func writeLiteral(b *strings.Builder, r rune) {
	switch r {
	case '*', '?', '[', ']', '{', '}', '\\':
		b.WriteByte('\\')
	}
	b.WriteRune(r)
}

type span struct{ lo, hi rune }

// translateClass rewrites the body of an fnmatch class into glob syntax.
// The glob library takes either one range or a list of characters, so mixed
// classes are expanded into a list. ok is false for a class that can never
// match.
func translateClass(body []rune) (cls string, ok bool, err error) {
	neg := len(body) > 0 && body[0] == '!'
	if neg {
		body = body[1:]
	}

	var spans []span
	for i := 0; i < len(body); i++ {
		if i+2 < len(body) && body[i+1] == '-' {
			// reversed ranges are empty
			if body[i] <= body[i+2] {
				spans = append(spans, span{body[i], body[i+2]})
			}
			i += 2
			continue
		}
		spans = append(spans, span{body[i], body[i]})
	}

	not := ""
	if neg {
		not = "!"
	}

	switch {
	case len(spans) == 0 && neg:
		return "?", true, nil
	case len(spans) == 0:
		return "", false, nil
	case len(spans) == 1 && spans[0].lo != spans[0].hi && spans[0].lo != 0 && (neg || spans[0].lo != '!'):
		return "[" + not + string(spans[0].lo) + "-" + string(spans[0].hi) + "]", true, nil
	}

	var total int
	for _, s := range spans {
		total += int(s.hi-s.lo) + 1
		if total > maxClassRunes {
			return "", false, fmt.Errorf("character class too large")
		}
	}
	set := make(map[rune]struct{}, total)
	for _, s := range spans {
		for r := s.lo; r <= s.hi; r++ {
			set[r] = struct{}{}
		}
	}

	if len(set) == 1 && !neg {
		var b strings.Builder
		for r := range set {
			writeLiteral(&b, r)
		}
		return b.String(), true, nil
	}

	runes := make([]rune, 0, len(set))
	for r := range set {
		runes = append(runes, r)
	}
	slices.Sort(runes)

	// A leading `-` would not be read as a range, and a leading `!` would
	// negate the list.
	var b strings.Builder
	b.WriteString("[" + not)
	if _, ok := set['-']; ok {
		b.WriteByte('-')
	}
	for _, r := range runes {
		switch r {
		case '-', '!':
			continue
		case ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if _, ok := set['!']; ok {
		b.WriteByte('!')
	}
	b.WriteByte(']')
	return b.String(), true, nil
}
