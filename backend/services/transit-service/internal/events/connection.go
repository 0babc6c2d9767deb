package events

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit   = 4096
	pongTimeout = 60 * time.Second
	sendBuffer  = 64
)

// Subscription narrows which events a client receives. Zero values match everything.
type Subscription struct {
	CardID    int64
	StationID int64
}

// Matches reports whether ev passes the filter.
func (s Subscription) Matches(ev TripEvent) bool {
	if s.CardID != 0 && ev.CardID != s.CardID {
		return false
	}
	if s.StationID != 0 && !ev.Touches(s.StationID) {
		return false
	}
	return true
}

// Connection is one live feed websocket client.
type Connection struct {
	id           string
	ws           *websocket.Conn
	filter       Subscription
	send         chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger
	onClose      func(id string)
}

func newConnection(id string, ws *websocket.Conn, filter Subscription, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Connection {
	return &Connection{
		id:           id,
		ws:           ws,
		filter:       filter,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		onClose:      onClose,
	}
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Start runs the write pump in the background and blocks in the read pump.
func (c *Connection) Start(ctx context.Context, pingInterval time.Duration) {
	go c.writePump(ctx, pingInterval)
	c.readPump(ctx)
}

// readPump only drains control frames; subscribers never send data.
func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("feed client disconnected", zap.String("client_id", c.id), zap.Error(err))
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context, pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver enqueues msg without blocking. Slow clients lose messages rather than stall
// the broadcaster.
func (c *Connection) deliver(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping trip event, client buffer full", zap.String("client_id", c.id))
		return false
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c.id)
	}
}
