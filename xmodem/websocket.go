package xmodem

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket
// connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketChannel runs a transfer over a WebSocket carrying binary
// messages, as used by network-attached serial bridges.
type WebSocketChannel struct {
	*StreamChannel
	conn *websocket.Conn
}

// NewWebSocketChannel wraps an established WebSocket connection in a
// Channel. Only binary messages carry transfer bytes; other message types
// are skipped.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	stream := &wsStream{conn: conn}
	return &WebSocketChannel{
		StreamChannel: NewStreamChannel(stream, stream),
		conn:          conn,
	}
}

// DialWebSocket connects to a WebSocket URL (ws:// or wss://) and wraps the
// connection in a Channel.
func DialWebSocket(url string) (*WebSocketChannel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWebSocketChannel(conn), nil
}

// Close closes the WebSocket connection, stopping the read pump.
func (c *WebSocketChannel) Close() error {
	return c.conn.Close()
}

// wsStream presents a WebSocket connection as a byte stream. Reads return
// the contents of successive binary messages; each Write becomes one binary
// message.
type wsStream struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *wsStream) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// Serve buffered message bytes first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset += n
		return n, nil
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
