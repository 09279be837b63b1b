// Package transport opens the byte channel to a controller.
package transport

import (
	"io"
	"strings"
)

// Open connects to port. Ports starting with ws:// or wss:// are dialed as
// websockets, anything else is opened as a serial device at baud.
func Open(port string, baud int) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(port, "ws://") || strings.HasPrefix(port, "wss://") {
		ws, err := DialWebSocket(port)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
	p, err := OpenSerial(port, baud)
	if err != nil {
		return nil, err
	}
	return p, nil
}
