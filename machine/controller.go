package machine

import "time"

// A Controller represents a line-oriented session with a CNC controller.
//
// It holds at most one unconsumed "current" line. CurrentLine peeks at it
// (reading from the device if the slot is empty) and ClearLine consumes it.
type Controller interface {
	SendLine(line string) error

	CurrentLine() (string, error)
	// WaitLine is CurrentLine with an explicit bound on how long to wait
	// for a line. A zero timeout waits forever.
	WaitLine(timeout time.Duration) (string, error)
	ClearLine()
	NextLine() (string, error)

	// Getc and Putc expose the raw byte channel for binary transfers.
	Getc(timeout time.Duration) (byte, error)
	Putc(p []byte) error
}
