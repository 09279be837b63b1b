package transport

import (
	"fmt"

	"github.com/tarm/serial"
)

// OpenSerial opens a serial device. Reads block until data is available.
func OpenSerial(name string, baud int) (*serial.Port, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return p, nil
}
