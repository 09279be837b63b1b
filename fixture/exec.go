package fixture

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/grbltest/machine"
	"github.com/mastercactapus/grbltest/machine/grbl"
)

// DefaultMountPrefix is stripped from remote paths before querying hashes.
const DefaultMountPrefix = "/littlefs"

// Options configure how Ops execute.
type Options struct {
	Log zerolog.Logger

	// MountPrefix is removed from transfer destinations in hash queries.
	MountPrefix string

	// ReadyTimeout bounds the wait for the controller to accept a transfer.
	ReadyTimeout time.Duration

	// UntilTimeout bounds `<...` ops. Zero waits forever.
	UntilTimeout time.Duration
}

// Execute runs op against c. A nil error means the Op passed.
func (op *Op) Execute(c machine.Controller, opt Options) error {
	log := opt.Log.With().Str("op", op.Kind.String()).Int("line", op.Line).Logger()

	switch op.Kind {
	case KindIgnore:
		log.Info().Msg(op.Text())
		return nil
	case KindSend:
		log.Info().Msg(op.Text())
		return c.SendLine(op.Text())
	case KindExpect:
		return op.expect(c, log)
	case KindExpectOptional:
		return op.expectOptional(c, log)
	case KindUntil:
		return op.until(c, opt.UntilTimeout, log)
	case KindAnyOf:
		return op.anyOf(c, log)
	case KindTransfer:
		return op.transfer(c, opt, log)
	}

	return fmt.Errorf("unknown op kind %s", op.Kind)
}

func (op *Op) expect(c machine.Controller, log zerolog.Logger) error {
	line, err := c.CurrentLine()
	if err != nil {
		return err
	}
	if line != op.Text() {
		return &MatchError{Expected: op.Data, Actual: line}
	}
	log.Info().Msg(line)
	c.ClearLine()
	return nil
}

func (op *Op) expectOptional(c machine.Controller, log zerolog.Logger) error {
	line, err := c.CurrentLine()
	if errors.Is(err, grbl.ErrTimeout) {
		log.Debug().Str("expected", op.Text()).Msg("no line")
		return nil
	}
	if err != nil {
		return err
	}
	if line != op.Text() {
		log.Debug().Str("expected", op.Text()).Msg("skipped")
		return nil
	}
	log.Info().Msg(line)
	c.ClearLine()
	return nil
}

func (op *Op) until(c machine.Controller, timeout time.Duration, log zerolog.Logger) error {
	err := op.compile()
	if err != nil {
		return err
	}

	var end time.Time
	if timeout > 0 {
		end = time.Now().Add(timeout)
	}
	for {
		var wait time.Duration
		if !end.IsZero() {
			wait = time.Until(end)
			if wait <= 0 {
				return fmt.Errorf("no line matched %q: %w", op.Text(), grbl.ErrTimeout)
			}
		}
		line, err := c.WaitLine(wait)
		if err != nil {
			return err
		}
		ok := op.matches(line)
		log.Info().Bool("match", ok).Msg(line)
		c.ClearLine()
		if ok {
			return nil
		}
	}
}

func (op *Op) anyOf(c machine.Controller, log zerolog.Logger) error {
	line, err := c.CurrentLine()
	if err != nil {
		return err
	}
	for _, s := range op.Data {
		if s == line {
			log.Info().Msg(line)
			c.ClearLine()
			return nil
		}
	}
	return &MatchError{Expected: op.Data, Actual: line}
}
