// Package xmodem implements the sending side of the XModem file transfer
// protocol (128-byte blocks, CRC-16 or additive checksum).
package xmodem

import (
	"errors"
	"io"
	"time"
)

const (
	soh = 0x01
	eot = 0x04
	ack = 0x06
	nak = 0x15
	can = 0x18
	crc = 'C'
	pad = 0x1a
)

// BlockSize is the payload size of a single packet.
const BlockSize = 128

var (
	ErrCanceled = errors.New("xmodem: canceled by receiver")
	ErrRetries  = errors.New("xmodem: too many retries")
)

// GetcFunc reads a single byte, waiting at most timeout. Timeouts must be
// reported with an error implementing `Timeout() bool`.
type GetcFunc func(timeout time.Duration) (byte, error)

// PutcFunc writes raw bytes.
type PutcFunc func(p []byte) error

// Sender transmits a stream using XModem.
type Sender struct {
	Getc GetcFunc
	Putc PutcFunc

	// Retries is the number of attempts for the start handshake and
	// for each packet. Defaults to 16.
	Retries int

	// Timeout is the wait for each receiver response. Defaults to 10s.
	Timeout time.Duration
}

// Send transmits r with a default Sender and returns the number of
// payload bytes sent.
func Send(getc GetcFunc, putc PutcFunc, r io.Reader) (int64, error) {
	s := &Sender{Getc: getc, Putc: putc}
	return s.Send(r)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func (s *Sender) retries() int {
	if s.Retries <= 0 {
		return 16
	}
	return s.Retries
}

func (s *Sender) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second
	}
	return s.Timeout
}

// Send transmits r and returns the number of payload bytes sent.
func (s *Sender) Send(r io.Reader) (int64, error) {
	useCRC, err := s.start()
	if err != nil {
		return 0, err
	}

	var n int64
	seq := byte(1)
	buf := make([]byte, BlockSize)
	for {
		m, err := io.ReadFull(r, buf)
		if err == io.EOF {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			s.cancel()
			return n, err
		}
		for i := m; i < BlockSize; i++ {
			buf[i] = pad
		}
		err = s.sendBlock(seq, buf, useCRC)
		if err != nil {
			return n, err
		}
		n += int64(m)
		seq++
		if m < BlockSize {
			break
		}
	}

	return n, s.finish()
}

// start waits for the receiver to request a transfer mode.
func (s *Sender) start() (useCRC bool, err error) {
	for i := 0; i < s.retries(); i++ {
		c, err := s.Getc(s.timeout())
		if isTimeout(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		switch c {
		case crc:
			return true, nil
		case nak:
			return false, nil
		case can:
			if s.canceled() {
				return false, ErrCanceled
			}
		}
	}
	s.cancel()
	return false, ErrRetries
}

func (s *Sender) sendBlock(seq byte, data []byte, useCRC bool) error {
	pkt := make([]byte, 0, BlockSize+5)
	pkt = append(pkt, soh, seq, 0xff-seq)
	pkt = append(pkt, data...)
	if useCRC {
		sum := crc16(data)
		pkt = append(pkt, byte(sum>>8), byte(sum))
	} else {
		pkt = append(pkt, checksum(data))
	}

	for i := 0; i < s.retries(); i++ {
		err := s.Putc(pkt)
		if err != nil {
			return err
		}
		c, err := s.Getc(s.timeout())
		if isTimeout(err) {
			continue
		}
		if err != nil {
			return err
		}
		switch c {
		case ack:
			return nil
		case can:
			if s.canceled() {
				return ErrCanceled
			}
		}
	}
	s.cancel()
	return ErrRetries
}

func (s *Sender) finish() error {
	for i := 0; i < s.retries(); i++ {
		err := s.Putc([]byte{eot})
		if err != nil {
			return err
		}
		c, err := s.Getc(s.timeout())
		if isTimeout(err) {
			continue
		}
		if err != nil {
			return err
		}
		if c == ack {
			return nil
		}
	}
	return ErrRetries
}

// canceled reports whether a CAN is followed by a second one.
func (s *Sender) canceled() bool {
	c, err := s.Getc(time.Second)
	return err == nil && c == can
}

func (s *Sender) cancel() {
	s.Putc([]byte{can, can, can})
}

func checksum(data []byte) (sum byte) {
	for _, b := range data {
		sum += b
	}
	return sum
}

// crc16 is CRC-16/XMODEM (poly 0x1021, init 0).
func crc16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if sum&0x8000 != 0 {
				sum = sum<<1 ^ 0x1021
			} else {
				sum <<= 1
			}
		}
	}
	return sum
}
