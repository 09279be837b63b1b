package fixture

import (
	"fmt"
	"strings"
)

// ParseError is returned when a fixture file can't be loaded.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// MatchError is returned when a line from the controller disagrees with
// the fixture.
type MatchError struct {
	Expected []string
	Actual   string
}

func (e *MatchError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("expected %q, got %q", e.Expected[0], e.Actual)
	}
	q := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		q[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("expected one of [%s], got %q", strings.Join(q, ", "), e.Actual)
}

// OpError records the fixture location of a failed Op.
type OpError struct {
	Op  *Op
	Err error
}

func (e *OpError) Error() string {
	return e.Op.Location() + ": " + e.Op.Kind.String() + ": " + e.Err.Error()
}
func (e *OpError) Unwrap() error { return e.Err }
