package fixture

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Kind identifies the operator of an Op.
type Kind byte

const (
	KindIgnore Kind = iota
	KindSend
	KindTransfer
	KindExpect
	KindExpectOptional
	KindUntil
	KindAnyOf
)

var operators = map[string]Kind{
	"ignore": KindIgnore,
	"->":     KindSend,
	"=>":     KindTransfer,
	"<-":     KindExpect,
	"<~":     KindExpectOptional,
	"<...":   KindUntil,
	"<|":     KindAnyOf,
}

func (k Kind) String() string {
	switch k {
	case KindIgnore:
		return "ignore"
	case KindSend:
		return "->"
	case KindTransfer:
		return "=>"
	case KindExpect:
		return "<-"
	case KindExpectOptional:
		return "<~"
	case KindUntil:
		return "<..."
	case KindAnyOf:
		return "<|"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// multiLine reports whether consecutive lines of this kind merge into one Op.
func (k Kind) multiLine() bool { return k == KindAnyOf }

// Op is a single parsed fixture instruction.
type Op struct {
	Kind Kind

	// Data holds the payload. Only KindAnyOf carries more than one entry,
	// in the order the lines appeared.
	Data []string

	// Glob is set for KindUntil patterns written as `<... * pattern`.
	Glob    bool
	matcher glob.Glob

	// Local and Remote are set for KindTransfer. Local is resolved
	// relative to the fixture's directory.
	Local  string
	Remote string

	Path string
	Line int
}

// Text returns the first payload entry.
func (op *Op) Text() string {
	if len(op.Data) == 0 {
		return ""
	}
	return op.Data[0]
}

// Location returns "path:line" of the Op's first source line.
func (op *Op) Location() string {
	return fmt.Sprintf("%s:%d", op.Path, op.Line)
}

func (op Op) String() string {
	switch op.Kind {
	case KindTransfer:
		return op.Kind.String() + " " + op.Local + " " + op.Remote
	case KindAnyOf:
		return op.Kind.String() + " [" + strings.Join(op.Data, " | ") + "]"
	case KindUntil:
		if op.Glob {
			return op.Kind.String() + " * " + op.Text()
		}
	}
	return op.Kind.String() + " " + op.Text()
}

// compile prepares the matcher of a glob KindUntil Op.
func (op *Op) compile() error {
	if !op.Glob || op.matcher != nil {
		return nil
	}
	g, err := compilePattern(op.Text())
	if err != nil {
		return fmt.Errorf("invalid pattern '%s': %w", op.Text(), err)
	}
	op.matcher = g
	return nil
}

// matches reports whether line satisfies a KindUntil Op. Glob Ops must
// be compiled first.
func (op *Op) matches(line string) bool {
	if op.Glob {
		return op.matcher.Match(line)
	}
	return line == op.Text()
}
