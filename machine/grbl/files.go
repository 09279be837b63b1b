package grbl

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mastercactapus/grbltest/machine"
	"github.com/mastercactapus/grbltest/xmodem"
)

const (
	// ReadySentinel is sent by the controller when it is ready to receive
	// an XModem transfer.
	ReadySentinel = 'C'

	// DefaultReadyTimeout bounds the wait for ReadySentinel.
	DefaultReadyTimeout = 2 * time.Second
)

// FileHash queries the SHA-256 of a file on the controller.
//
// An empty result means the file does not exist.
func FileHash(c machine.Controller, path string) (string, error) {
	err := c.SendLine("$File/ShowHash=" + path)
	if err != nil {
		return "", err
	}

	var data strings.Builder
	for {
		line, err := c.NextLine()
		if err != nil {
			return "", err
		}
		switch {
		case line == "":
			continue
		case line == "ok":
			c.ClearLine()
			return parseFileHash(data.String())
		case strings.HasPrefix(line, "error:"):
			c.ClearLine()
			return "", &ProtocolError{Msg: "controller returned error", Raw: line}
		}
		frag, ok := parseJSONFragment(line)
		if !ok {
			c.ClearLine()
			return "", &ProtocolError{Msg: "invalid hash response", Raw: line}
		}
		data.WriteString(frag)
	}
}

// SendFile uploads the contents of r to path on the controller via XModem
// and returns the byte count reported by the controller.
func SendFile(c machine.Controller, path string, r io.Reader, readyTimeout time.Duration) (int64, error) {
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	err := c.SendLine("$XModem/Receive=" + path)
	if err != nil {
		return 0, err
	}

	end := time.Now().Add(readyTimeout)
	for {
		wait := time.Until(end)
		if wait <= 0 {
			return 0, fmt.Errorf("waiting for XModem start: %w", ErrTimeout)
		}
		b, err := c.Getc(wait)
		if errors.Is(err, ErrTimeout) {
			return 0, fmt.Errorf("waiting for XModem start: %w", err)
		}
		if err != nil {
			return 0, err
		}
		if b == ReadySentinel {
			break
		}
	}

	_, err = xmodem.Send(c.Getc, c.Putc, r)
	if err != nil {
		return 0, err
	}

	line, err := c.NextLine()
	if err != nil {
		return 0, err
	}
	c.ClearLine()

	n, name, err := ParseReceived(line)
	if err != nil {
		return 0, err
	}
	if name != path {
		return n, &ProtocolError{Msg: "transfer acknowledged for wrong file (expected " + path + ")", Raw: line}
	}
	return n, nil
}
