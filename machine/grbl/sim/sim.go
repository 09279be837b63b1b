// Package sim provides an in-memory controller that speaks enough of the
// FluidNC line protocol to exercise fixtures without hardware.
package sim

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"sync"
)

const (
	soh = 0x01
	eot = 0x04
	ack = 0x06
	nak = 0x15
	can = 0x18
)

// Banner is printed after a soft reset.
const Banner = "Grbl 3.8 [FluidNC v3.8.0 (sim) '$' for help]"

// Device is a simulated controller. It implements io.ReadWriteCloser from
// the host's point of view.
type Device struct {
	// Replies maps a received line to the lines sent back. Lines without
	// an entry are answered with "ok". A nil entry sends nothing.
	Replies map[string][]string

	// Files holds the controller's file system, keyed by full path.
	Files map[string][]byte

	// MountPrefix is tried when a hash query path is not found as-is.
	MountPrefix string

	// Algorithm overrides the reported hash algorithm.
	Algorithm string

	// NoReady suppresses the transfer ready byte.
	NoReady bool

	// AckPath replaces the file name reported after a transfer.
	AckPath string

	mx       sync.Mutex
	out      chan []byte
	buf      []byte
	closed   bool
	closeCh  chan struct{}
	lineBuf  []byte
	received []string
	rx       *receiver
}

// New creates a Device with an empty file system.
func New() *Device {
	return &Device{
		Replies:     make(map[string][]string),
		Files:       make(map[string][]byte),
		MountPrefix: "/littlefs",
		out:         make(chan []byte, 4096),
		closeCh:     make(chan struct{}),
	}
}

// Received returns every line the device has received so far.
func (d *Device) Received() []string {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]string(nil), d.received...)
}

// Send queues raw output from the device.
func (d *Device) Send(p []byte) {
	d.out <- append([]byte(nil), p...)
}

// SendLine queues a line of output from the device.
func (d *Device) SendLine(line string) {
	d.Send([]byte(line + "\n"))
}

// Read implements io.Reader; it blocks until output is available.
func (d *Device) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		select {
		case data := <-d.out:
			d.buf = data
		case <-d.closeCh:
			return 0, io.EOF
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

// Close disconnects the device; pending and future reads return io.EOF.
func (d *Device) Close() error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if !d.closed {
		d.closed = true
		close(d.closeCh)
	}
	return nil
}

// Write implements io.Writer, processing input as the controller would.
func (d *Device) Write(p []byte) (int, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}

	for i, b := range p {
		if d.rx != nil {
			d.rx.feed(d, p[i:i+1])
			continue
		}
		switch b {
		case can:
			d.lineBuf = d.lineBuf[:0]
			d.SendLine("")
			d.SendLine(Banner)
		case '\n':
			line := strings.TrimSpace(string(d.lineBuf))
			d.lineBuf = d.lineBuf[:0]
			d.handle(line)
		default:
			d.lineBuf = append(d.lineBuf, b)
		}
	}
	return len(p), nil
}

func (d *Device) lookup(path string) ([]byte, bool) {
	if data, ok := d.Files[path]; ok {
		return data, true
	}
	data, ok := d.Files[d.MountPrefix+path]
	return data, ok
}

func (d *Device) handle(line string) {
	d.received = append(d.received, line)

	if lines, ok := d.Replies[line]; ok {
		for _, l := range lines {
			d.SendLine(l)
		}
		return
	}

	switch {
	case strings.HasPrefix(line, "$File/ShowHash="):
		path := strings.TrimPrefix(line, "$File/ShowHash=")
		var hash string
		if data, ok := d.lookup(path); ok {
			sum := sha256.Sum256(data)
			hash = strings.ToUpper(hex.EncodeToString(sum[:]))
		}
		alg := d.Algorithm
		if alg == "" {
			alg = "SHA2-256"
		}
		d.SendLine(`[JSON:{"signature":{"algorithm":"` + alg + `",]`)
		d.SendLine(`[JSON:"value":"` + hash + `"},"path":"` + path + `"}]`)
		d.SendLine("ok")
	case strings.HasPrefix(line, "$XModem/Receive="):
		path := strings.TrimPrefix(line, "$XModem/Receive=")
		d.rx = &receiver{path: path, seq: 1}
		if !d.NoReady {
			// one for the ready check, one for the sender's handshake
			d.Send([]byte("CC"))
		}
	default:
		d.SendLine("ok")
	}
}

type receiver struct {
	path string
	seq  byte
	buf  []byte
	data bytes.Buffer
}

func (r *receiver) feed(d *Device, p []byte) {
	r.buf = append(r.buf, p...)
	switch r.buf[0] {
	case eot:
		data := bytes.TrimRight(r.data.Bytes(), "\x1a")
		d.Files[r.path] = append([]byte(nil), data...)
		d.rx = nil
		d.Send([]byte{ack})
		name := r.path
		if d.AckPath != "" {
			name = d.AckPath
		}
		d.SendLine("[MSG:INFO: Received " + strconv.Itoa(len(data)) + " bytes to file " + name + "]")
		d.SendLine("ok")
	case can:
		d.rx = nil
		d.Send([]byte{ack})
	case soh:
		if len(r.buf) < 133 {
			return
		}
		pkt := r.buf[:133]
		r.buf = r.buf[133:]
		if pkt[1] != 0xff-pkt[2] || !validCRC(pkt[3:133]) {
			d.Send([]byte{nak})
			return
		}
		if pkt[1] == r.seq {
			r.data.Write(pkt[3:131])
			r.seq++
		}
		d.Send([]byte{ack})
	default:
		r.buf = r.buf[:0]
		d.Send([]byte{nak})
	}
}

// validCRC checks a data block followed by its big-endian CRC-16/XMODEM.
func validCRC(p []byte) bool {
	var sum uint16
	for _, b := range p[:len(p)-2] {
		sum ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if sum&0x8000 != 0 {
				sum = sum<<1 ^ 0x1021
			} else {
				sum <<= 1
			}
		}
	}
	return sum == uint16(p[len(p)-2])<<8|uint16(p[len(p)-1])
}
