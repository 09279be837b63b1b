package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocket(t *testing.T) {
	var up websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := up.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte("CURRENT_ID:0"))
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			ws.WriteMessage(websocket.TextMessage, []byte("PING:60000:60000"))
			ws.WriteMessage(websocket.BinaryMessage, []byte(strings.ToUpper(string(data))))
		}
	}))
	defer srv.Close()

	conn, err := Open("ws"+strings.TrimPrefix(srv.URL, "http"), 0)
	require.NoError(t, err)
	defer conn.Close()

	n, err := conn.Write([]byte("ok\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 2)
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(buf[:n]))

	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "\n", string(buf[:n]))
}
