package fixture

import (
	"errors"

	"github.com/mastercactapus/grbltest/machine"
	"github.com/mastercactapus/grbltest/machine/grbl"
)

// State is the state of a Runner.
type State byte

const (
	Ready State = iota
	Running
	Passed
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	}
	return "Unknown"
}

// ErrRunnerUsed is returned if a Runner is run more than once.
var ErrRunnerUsed = errors.New("runner already used")

// Result is the outcome of running a fixture.
type Result struct {
	Path  string
	State State

	// Op is the failing Op, if any.
	Op  *Op
	Err error
}

// Fatal reports whether the failure came from the byte channel itself,
// meaning no further fixtures can run on the same session.
func (r Result) Fatal() bool {
	var te *grbl.TransportError
	return errors.As(r.Err, &te)
}

// Runner executes the Ops of a single fixture in order, stopping at the
// first failure.
type Runner struct {
	c     machine.Controller
	opt   Options
	state State
}

// NewRunner creates a Runner that executes against c.
func NewRunner(c machine.Controller, opt Options) *Runner {
	return &Runner{c: c, opt: opt}
}

// State returns the current state of the Runner.
func (r *Runner) State() State { return r.state }

// Run executes every Op in f.
func (r *Runner) Run(f *File) Result {
	res := Result{Path: f.Path}
	if r.state != Ready {
		res.State = Failed
		res.Err = ErrRunnerUsed
		return res
	}

	r.state = Running
	log := r.opt.Log.With().Str("file", f.Path).Logger()
	opt := r.opt
	opt.Log = log

	for i := range f.Ops {
		op := &f.Ops[i]
		err := op.Execute(r.c, opt)
		if err != nil {
			r.state = Failed
			res.State = Failed
			res.Op = op
			res.Err = &OpError{Op: op, Err: err}
			log.Error().Err(err).Int("line", op.Line).Str("op", op.Kind.String()).Msg("fixture failed")
			return res
		}
	}

	r.state = Passed
	res.State = Passed
	log.Info().Msg("fixture passed")
	return res
}
