package transport

import (
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// WebSocket adapts a controller's websocket console to an io.ReadWriteCloser.
//
// Binary frames carry console data; text frames are controller housekeeping
// (client IDs, pings) and are dropped.
type WebSocket struct {
	ws  *websocket.Conn
	buf []byte
}

var _ io.ReadWriteCloser = &WebSocket{}

// DialWebSocket connects to url.
func DialWebSocket(url string) (*WebSocket, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	return NewWebSocket(ws), nil
}

// NewWebSocket wraps an established connection.
func NewWebSocket(ws *websocket.Conn) *WebSocket {
	return &WebSocket{ws: ws}
}

func (w *WebSocket) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		typ, data, err := w.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (w *WebSocket) Write(p []byte) (int, error) {
	err := w.ws.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocket) Close() error {
	return w.ws.Close()
}
