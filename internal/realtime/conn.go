package realtime

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/tictactoe-go/internal/model"
	"github.com/mcoot/tictactoe-go/internal/realtime/wire"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Largest inbound message accepted
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Conn is one authenticated WebSocket connection
type Conn struct {
	id          model.ConnectionID
	userID      model.UserID
	ws          *websocket.Conn
	codec       wire.Codec
	connectedAt time.Time
	logger      *slog.Logger

	send chan []byte
	done chan struct{}

	// ready is set once the connected ack is queued; events skip the
	// connection until then
	ready atomic.Bool

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

func newConn(id model.ConnectionID, userID model.UserID, ws *websocket.Conn, codec wire.Codec, now time.Time, logger *slog.Logger) *Conn {
	return &Conn{
		id:          id,
		userID:      userID,
		ws:          ws,
		codec:       codec,
		connectedAt: now,
		logger: logger.With(
			slog.String("connection_id", string(id)),
			slog.String("user_id", string(userID)),
		),
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection id
func (c *Conn) ID() model.ConnectionID {
	return c.id
}

// Send encodes env and queues it. A connection whose buffer is full is
// closed rather than silently skipping the message.
func (c *Conn) Send(env Envelope) bool {
	data, err := c.codec.Marshal(env)
	if err != nil {
		c.logger.Error("failed to encode message",
			slog.String("type", env.Type),
			slog.String("error", err.Error()),
		)
		return false
	}
	return c.sendFrame(data)
}

func (c *Conn) sendFrame(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("closing connection - send buffer full")
		c.closeWith(websocket.CloseTryAgainLater, "send buffer full")
		return false
	}
}

// Close asks the write loop to send a close frame and shut the socket
func (c *Conn) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

func (c *Conn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

func (c *Conn) frameType() int {
	if c.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// writePump is the only writer of data frames on the socket
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(c.frameType(), data); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-c.done:
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// readPump feeds inbound frames to handle until the socket fails or closes
func (c *Conn) readPump(handle func(c *Conn, data []byte)) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}
		handle(c, data)
	}
}
