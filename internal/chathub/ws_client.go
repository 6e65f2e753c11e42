package chathub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roomchat/backend/internal/config"
	"roomchat/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = config.MaxFrameSize
)

// WebSocketClient adapts a gorilla connection to Transport. All writes go
// through the write pump; reads happen on the caller's goroutine.
type WebSocketClient struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

// NewWebSocketClient configures conn and starts its write pump.
func NewWebSocketClient(conn *websocket.Conn, logger *slog.Logger) *WebSocketClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &WebSocketClient{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, config.SendBufferSize),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump()
	return c
}

// Send encodes event and queues it without blocking.
func (c *WebSocketClient) Send(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops accepting frames. Queued frames are still written, followed by
// a normal closure frame.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// Done is closed once the underlying connection has been torn down.
func (c *WebSocketClient) Done() <-chan struct{} { return c.done }

func (c *WebSocketClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// ReadMessage returns the next text frame. Binary frames are reported as
// ErrMalformedInput and the connection stays usable.
func (c *WebSocketClient) ReadMessage() ([]byte, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err == nil {
		if messageType != websocket.TextMessage {
			return nil, fmt.Errorf("%w: binary frame", ErrMalformedInput)
		}
		return data, nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil, ErrPeerClosed
	}
	var closeErr *websocket.CloseError
	if c.isClosed() && !errors.As(err, &closeErr) {
		return nil, ErrClientClosed
	}
	return nil, err
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				c.conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}
