package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltworks/tourneyd/protocol"
)

const (
	writeWait     = 10 * time.Second
	pingInterval  = 54 * time.Second
	reconnectWait = 2 * time.Second
)

// ErrTournamentComplete is returned by Run when the tournament finishes.
var ErrTournamentComplete = errors.New("tournament complete")

// Config configures a Client.
type Config struct {
	// URL is the server address; http/https schemes are converted to
	// ws/wss and the bot endpoint path is appended.
	URL string

	// Name registers the bot. The server issues a player ID and token on
	// the first registration; reconnects reuse them.
	Name string

	// MaxReconnects bounds consecutive failed redials. Zero means 10.
	MaxReconnects int

	Logger *log.Logger
}

// Client maintains a registered WebSocket session and dispatches server
// messages to the agent. It reconnects and re-registers on connection
// loss until the context ends or the tournament completes.
type Client struct {
	cfg    Config
	agent  Agent
	logger *log.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	playerID string
	token    string
	seat     int
	tableID  string
}

// NewClient creates a client for the agent.
func NewClient(cfg Config, agent Agent) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("server URL is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("bot name is required")
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Client{
		cfg:    cfg,
		agent:  agent,
		logger: cfg.Logger.WithPrefix("sdk").With("bot", cfg.Name),
	}, nil
}

// PlayerID returns the server-assigned identity, empty before the first
// registration.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Seat returns the bot's current seat number.
func (c *Client) Seat() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

// TableID returns the bot's current table, empty before seating.
func (c *Client) TableID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tableID
}

// Run connects and plays until the context ends, the tournament
// completes, or reconnection gives up.
func (c *Client) Run(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	failures := 0
	for {
		err := c.session(ctx, endpoint)
		switch {
		case errors.Is(err, ErrTournamentComplete):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			failures++
			if failures > c.cfg.MaxReconnects {
				return fmt.Errorf("giving up after %d reconnect attempts: %w", failures-1, err)
			}
			c.logger.Warn("connection lost, reconnecting", "attempt", failures, "err", err)
			select {
			case <-time.After(reconnectWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			failures = 0
		}
	}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// session runs one connection: dial, register, then dispatch messages
// until the connection drops.
func (c *Client) session(ctx context.Context, endpoint string) error {
	dialCtx, cancel := context.WithTimeout(ctx, writeWait)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	reg := protocol.Register{PlayerName: c.cfg.Name}
	if c.playerID != "" {
		// Reclaim the existing seat.
		reg = protocol.Register{PlayerID: c.playerID, Token: c.token}
	}
	c.mu.Unlock()

	if err := c.send(protocol.TypeRegister, reg); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := protocol.Parse(frame)
		if err != nil {
			c.logger.Warn("bad frame from server", "err", err)
			continue
		}
		if err := c.handle(msg); err != nil {
			return err
		}
	}
}

// keepalive pings the server and force-closes the socket when the
// context ends, unblocking the read loop.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Writes share the client mutex with send.
			c.mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-done:
			return
		}
	}
}

func (c *Client) handle(msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeRegisterAck:
		var ack protocol.RegisterAck
		if err := msg.Decode(&ack); err != nil {
			return err
		}
		c.mu.Lock()
		c.playerID = ack.PlayerID
		if ack.Token != "" {
			c.token = ack.Token
		}
		c.seat = ack.Seat
		c.tableID = ack.TableID
		c.mu.Unlock()
		c.logger.Info("registered", "playerId", ack.PlayerID, "resumed", ack.Resumed)

	case protocol.TypeActionRequest:
		var req protocol.ActionRequest
		if err := msg.Decode(&req); err != nil {
			return err
		}
		resp := c.agent.ActOn(req)
		resp.TableID, resp.HandID, resp.Seq = req.TableID, req.HandID, req.Seq
		return c.send(protocol.TypeActionResponse, resp)

	case protocol.TypeHoleCards:
		var hc protocol.HoleCards
		if err := msg.Decode(&hc); err != nil {
			return err
		}
		c.mu.Lock()
		c.tableID = hc.TableID
		c.mu.Unlock()
		if obs, ok := c.agent.(CardsObserver); ok {
			obs.ObserveHoleCards(hc)
		}

	case protocol.TypeStateUpdate:
		if obs, ok := c.agent.(StateObserver); ok {
			var st protocol.TableState
			if err := msg.Decode(&st); err != nil {
				return err
			}
			obs.ObserveState(st)
		}

	case protocol.TypeHandResult:
		if obs, ok := c.agent.(ResultObserver); ok {
			var res protocol.HandResult
			if err := msg.Decode(&res); err != nil {
				return err
			}
			obs.ObserveResult(res)
		}

	case protocol.TypeTournamentUpdate:
		var u protocol.TournamentUpdate
		if err := msg.Decode(&u); err != nil {
			return err
		}
		if obs, ok := c.agent.(TournamentObserver); ok {
			obs.ObserveTournament(u)
		}
		if u.Status == "complete" {
			c.logger.Info("tournament complete", "remaining", u.Remaining)
			return ErrTournamentComplete
		}

	case protocol.TypeError:
		var e protocol.Error
		if err := msg.Decode(&e); err != nil {
			return err
		}
		switch e.Code {
		case protocol.ErrCodeAuthFailed, protocol.ErrCodeTooManyErrors:
			return fmt.Errorf("server rejected session: %s (%s)", e.Message, e.Code)
		default:
			// Action rejections are advisory; the next prompt or the
			// timeout default resolves the hand either way.
			c.logger.Warn("server error", "code", e.Code, "message", e.Message)
		}
	}
	return nil
}

func (c *Client) send(t protocol.MessageType, payload any) error {
	msg, err := protocol.NewMessage(t, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
