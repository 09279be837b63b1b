package grbl

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mastercactapus/grbltest/machine"
)

// DefaultTimeout is the per-line read timeout used when Session.Timeout is unset.
const DefaultTimeout = 2 * time.Second

type timeoutError struct{}

func (timeoutError) Error() string { return "timeout waiting for controller" }
func (timeoutError) Timeout() bool { return true }

// ErrTimeout is returned when no line or byte arrives from the controller in time.
var ErrTimeout error = timeoutError{}

// TransportError wraps a failure of the underlying byte channel.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type chunk struct {
	data []byte
	err  error
}

// Session represents a direct, turn-taking connection to a Grbl controller.
//
// A Session is not safe for concurrent use; the single current-line slot
// belongs to whoever is executing against it.
type Session struct {
	rw io.ReadWriter

	// Timeout bounds CurrentLine and NextLine.
	Timeout time.Duration
	Log     zerolog.Logger

	data    chan chunk
	closeCh chan struct{}
	once    sync.Once
	wMx     sync.Mutex

	pending []byte
	err     error

	line    string
	hasLine bool
}

var _ machine.Controller = &Session{}

// NewSession creates a new Session using the provided ReadWriter for data.
func NewSession(rw io.ReadWriter) *Session {
	s := &Session{
		rw:      rw,
		Timeout: DefaultTimeout,
		Log:     zerolog.Nop(),
		data:    make(chan chunk, 16),
		closeCh: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Close will abort any in-progress reads and close the
// underlying ReadWriter, if it implements io.Closer.
func (s *Session) Close() error {
	s.once.Do(func() { close(s.closeCh) })
	if closer, ok := s.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Session) readLoop() {
	for {
		buf := make([]byte, 256)
		n, err := s.rw.Read(buf)
		if n > 0 {
			select {
			case s.data <- chunk{data: buf[:n]}:
			case <-s.closeCh:
				return
			}
		}
		if err != nil {
			select {
			case s.data <- chunk{err: err}:
			case <-s.closeCh:
			}
			return
		}
	}
}

func deadline(d time.Duration) (<-chan time.Time, func() bool) {
	if d <= 0 {
		return nil, func() bool { return false }
	}
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// fill waits for more data from the device. A nil timeout waits forever.
func (s *Session) fill(timeout <-chan time.Time) error {
	if s.err != nil {
		return s.err
	}
	select {
	case <-s.closeCh:
		return &TransportError{Err: io.ErrClosedPipe}
	case c := <-s.data:
		if c.err != nil {
			s.err = &TransportError{Err: c.err}
			return s.err
		}
		s.pending = append(s.pending, c.data...)
		return nil
	case <-timeout:
		return ErrTimeout
	}
}

func (s *Session) readLine(d time.Duration) (string, error) {
	timeout, stop := deadline(d)
	defer stop()
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(s.pending[:i])
			s.pending = s.pending[i+1:]
			return strings.TrimSpace(line), nil
		}
		err := s.fill(timeout)
		if err != nil {
			return "", err
		}
	}
}

func (s *Session) write(p []byte) error {
	select {
	case <-s.closeCh:
		return &TransportError{Err: io.ErrClosedPipe}
	default:
	}
	s.wMx.Lock()
	_, err := s.rw.Write(p)
	s.wMx.Unlock()
	if err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// SendLine writes line followed by a newline.
func (s *Session) SendLine(line string) error {
	s.Log.Debug().Str("dir", "->").Msg(line)
	return s.write([]byte(line + "\n"))
}

// CurrentLine returns the buffered line, reading one from the device
// if none is buffered. The line stays buffered until ClearLine.
func (s *Session) CurrentLine() (string, error) {
	return s.WaitLine(s.Timeout)
}

// WaitLine is CurrentLine with an explicit timeout; zero waits forever.
func (s *Session) WaitLine(timeout time.Duration) (string, error) {
	if s.hasLine {
		return s.line, nil
	}
	line, err := s.readLine(timeout)
	if err != nil {
		return "", err
	}
	s.Log.Debug().Str("dir", "<-").Msg(line)
	s.line, s.hasLine = line, true
	return line, nil
}

// ClearLine consumes the buffered line, if any.
func (s *Session) ClearLine() {
	s.line, s.hasLine = "", false
}

// NextLine discards the buffered line and reads a new one.
func (s *Session) NextLine() (string, error) {
	s.ClearLine()
	return s.CurrentLine()
}

// Getc reads a single raw byte, bypassing line buffering.
func (s *Session) Getc(timeout time.Duration) (byte, error) {
	t, stop := deadline(timeout)
	defer stop()
	for len(s.pending) == 0 {
		err := s.fill(t)
		if err != nil {
			return 0, err
		}
	}
	b := s.pending[0]
	s.pending = s.pending[1:]
	return b, nil
}

// Putc writes raw bytes directly to the device.
func (s *Session) Putc(p []byte) error {
	return s.write(p)
}

// SoftReset sends a ctrl-x and waits for the startup banner.
func (s *Session) SoftReset(banner string) error {
	err := s.write([]byte{0x18})
	if err != nil {
		return err
	}
	s.ClearLine()
	for {
		line, err := s.CurrentLine()
		if err != nil {
			return err
		}
		s.ClearLine()
		if strings.HasPrefix(line, banner) {
			return nil
		}
	}
}

// Drain discards all input until the device has been quiet for the
// provided duration.
func (s *Session) Drain(quiet time.Duration) error {
	if quiet <= 0 {
		quiet = 100 * time.Millisecond
	}
	s.ClearLine()
	s.pending = nil
	for {
		t, stop := deadline(quiet)
		err := s.fill(t)
		stop()
		s.pending = nil
		if errors.Is(err, ErrTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
