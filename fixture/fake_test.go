package fixture

import (
	"time"

	"github.com/mastercactapus/grbltest/machine"
	"github.com/mastercactapus/grbltest/machine/grbl"
)

// scripted is a Controller that replays a fixed list of lines.
type scripted struct {
	lines   []string
	line    string
	hasLine bool
	sent    []string
	raw     [][]byte

	// err is returned once lines run out; defaults to grbl.ErrTimeout.
	err error
}

var _ machine.Controller = &scripted{}

func (s *scripted) SendLine(line string) error {
	s.sent = append(s.sent, line)
	return nil
}

func (s *scripted) CurrentLine() (string, error) { return s.WaitLine(time.Second) }

func (s *scripted) WaitLine(time.Duration) (string, error) {
	if s.hasLine {
		return s.line, nil
	}
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", grbl.ErrTimeout
	}
	s.line, s.hasLine = s.lines[0], true
	s.lines = s.lines[1:]
	return s.line, nil
}

func (s *scripted) ClearLine() { s.line, s.hasLine = "", false }

func (s *scripted) NextLine() (string, error) {
	s.ClearLine()
	return s.CurrentLine()
}

func (s *scripted) Getc(time.Duration) (byte, error) { return 0, grbl.ErrTimeout }

func (s *scripted) Putc(p []byte) error {
	s.raw = append(s.raw, p)
	return nil
}

// remaining returns the buffered line (if any) followed by unread lines.
func (s *scripted) remaining() []string {
	var res []string
	if s.hasLine {
		res = append(res, s.line)
	}
	return append(res, s.lines...)
}
