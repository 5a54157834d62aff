package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltworks/tourneyd/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16384
	sendBuffer     = 256
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection wraps one WebSocket with the usual read/write pumps: all
// writes funnel through a bounded send channel serviced by a single
// writer goroutine, and the reader enforces pong deadlines. Incoming
// envelopes are handed to the session's handler on the read goroutine.
type Connection struct {
	conn   *websocket.Conn
	send   chan *protocol.Message
	logger *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	handle  func(*protocol.Message)
	onClose func()
}

// NewConnection wraps an upgraded socket. handle receives every parsed
// envelope; onClose fires once when either pump exits.
func NewConnection(conn *websocket.Conn, logger *log.Logger, handle func(*protocol.Message), onClose func()) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		send:    make(chan *protocol.Message, sendBuffer),
		logger:  logger.WithPrefix("conn").With("remote", conn.RemoteAddr().String()),
		ctx:     ctx,
		cancel:  cancel,
		handle:  handle,
		onClose: onClose,
	}
}

// Start launches the pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
}

// Send queues an envelope for delivery. A full buffer means the client
// has stopped reading; the connection is dropped rather than blocking a
// table goroutine.
func (c *Connection) Send(msg *protocol.Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("send buffer full, dropping connection")
		c.Close()
		return ErrConnectionClosed
	}
}

// SendError queues a protocol error envelope, ignoring delivery failure.
func (c *Connection) SendError(code, message string) {
	msg, err := protocol.NewMessage(protocol.TypeError, protocol.Error{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("read error", "err", err)
			}
			return
		}
		msg, err := protocol.Parse(frame)
		if err != nil {
			c.SendError(protocol.ErrCodeBadMessage, err.Error())
			continue
		}
		if c.handle != nil {
			c.handle(msg)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("write error", "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
