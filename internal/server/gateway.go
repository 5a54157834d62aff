package server

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/internal/tourney"
	"github.com/feltworks/tourneyd/protocol"
)

// maxStrikes is how many malformed messages a session survives.
const maxStrikes = 3

// Gateway bridges WebSocket sessions to the tournament director. It is
// the director's Broadcaster and an event sink: game events fan out to
// spectators as state updates without blocking table goroutines.
type Gateway struct {
	director  *tourney.Director
	validator TokenValidator
	logger    *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
	viewers  map[*Connection]struct{}

	events chan game.Event
}

// NewGateway creates the session registry for a director.
func NewGateway(director *tourney.Director, validator TokenValidator, logger *log.Logger) *Gateway {
	if validator == nil {
		validator = NoopValidator{}
	}
	g := &Gateway{
		director:  director,
		validator: validator,
		logger:    logger.WithPrefix("gateway"),
		sessions:  make(map[string]*session),
		viewers:   make(map[*Connection]struct{}),
		events:    make(chan game.Event, 1024),
	}
	director.SetBroadcaster(g)
	return g
}

// Publish implements game.EventSink. Events queue to a fan-out
// goroutine; a full queue drops spectator traffic rather than stalling
// a hand.
func (g *Gateway) Publish(ev game.Event) {
	select {
	case g.events <- ev:
	default:
	}
}

// Run fans queued game events out to sessions and viewers until the
// context ends.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-g.events:
			g.dispatch(ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gateway) dispatch(ev game.Event) {
	switch ev.Kind {
	case game.EventHoleCards:
		msg, err := protocol.NewMessage(protocol.TypeHoleCards, protocol.HoleCards{
			TableID: ev.TableID,
			HandID:  ev.HandID,
			Seat:    ev.Seat,
			Cards:   wireCards(ev.Cards),
		})
		if err != nil {
			return
		}
		g.sendTo(ev.PlayerID, msg)

	case game.EventHandSettled:
		if ev.Result == nil {
			return
		}
		msg, err := protocol.NewMessage(protocol.TypeHandResult, wireHandResult(ev.Result))
		if err != nil {
			return
		}
		g.broadcast(msg)
		g.broadcastState(ev.TableID)

	case game.EventAction, game.EventCardsDealt, game.EventHandStarted:
		g.broadcastState(ev.TableID)
	}
}

// broadcastState publishes the table's public snapshot. The snapshot is
// taken here, off the table goroutine, so it may trail the event that
// triggered it; spectators always converge on the latest state.
func (g *Gateway) broadcastState(tableID string) {
	st, ok := g.director.TableSnapshot(tableID)
	if !ok {
		return
	}
	msg, err := protocol.NewMessage(protocol.TypeStateUpdate, wireTableState(st))
	if err != nil {
		return
	}
	g.broadcast(msg)
}

// TournamentUpdate implements tourney.Broadcaster.
func (g *Gateway) TournamentUpdate(u tourney.Update) {
	msg, err := protocol.NewMessage(protocol.TypeTournamentUpdate, wireTournamentUpdate(u))
	if err != nil {
		return
	}
	g.broadcast(msg)
}

func (g *Gateway) broadcast(msg *protocol.Message) {
	g.mu.Lock()
	conns := make([]*Connection, 0, len(g.sessions)+len(g.viewers))
	for _, s := range g.sessions {
		conns = append(conns, s.conn)
	}
	for c := range g.viewers {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		_ = c.Send(msg)
	}
}

func (g *Gateway) sendTo(playerID string, msg *protocol.Message) {
	g.mu.Lock()
	s, ok := g.sessions[playerID]
	g.mu.Unlock()
	if ok {
		_ = s.conn.Send(msg)
	}
}

// HandleBot wires an upgraded bot socket into a session.
func (g *Gateway) HandleBot(conn *Connection) {
	s := &session{gw: g, conn: conn}
	conn.handle = s.handle
	conn.onClose = s.closed
	conn.Start()
}

// HandleViewer registers a read-only spectator socket.
func (g *Gateway) HandleViewer(conn *Connection) {
	g.mu.Lock()
	g.viewers[conn] = struct{}{}
	g.mu.Unlock()
	conn.handle = nil
	conn.onClose = func() {
		g.mu.Lock()
		delete(g.viewers, conn)
		g.mu.Unlock()
	}
	conn.Start()
}

// session is one bot's authenticated connection. It implements
// game.Prompter: action requests flow straight to the socket.
type session struct {
	gw   *Gateway
	conn *Connection

	mu       sync.Mutex
	playerID string
	strikes  int
}

// PromptAction implements game.Prompter on the table goroutine; Send
// never blocks.
func (s *session) PromptAction(req game.ActionRequest) {
	msg, err := protocol.NewMessage(protocol.TypeActionRequest, wireActionRequest(req))
	if err != nil {
		return
	}
	_ = s.conn.Send(msg)
}

func (s *session) handle(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeRegister:
		s.handleRegister(msg)
	case protocol.TypeActionResponse:
		s.handleActionResponse(msg)
	default:
		s.strike(protoErr(protocol.ErrCodeBadMessage, "unknown message type %s", msg.Type))
	}
}

func (s *session) handleRegister(msg *protocol.Message) {
	var reg protocol.Register
	if err := msg.Decode(&reg); err != nil {
		s.strike(protoErr(protocol.ErrCodeBadMessage, "%s", err))
		return
	}

	// Reconnects present the entrant token issued at registration.
	if reg.PlayerID != "" && reg.Token != "" {
		e, ok := s.gw.director.Authenticate(reg.PlayerID, reg.Token)
		if !ok {
			s.conn.SendError(protocol.ErrCodeAuthFailed, "unknown player or bad token")
			return
		}
		s.adopt(e, true)
		return
	}

	if reg.PlayerName == "" {
		s.strike(protoErr(protocol.ErrCodeBadMessage, "register without playerName"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := s.gw.validator.ValidateToken(ctx, reg.PlayerName, reg.Token); err != nil {
		s.gw.logger.Warn("registration rejected", "player", reg.PlayerName, "err", err)
		s.conn.SendError(protocol.ErrCodeAuthFailed, err.Error())
		return
	}
	e, err := s.gw.director.Register(reg.PlayerName, reg.PlayerName)
	if err != nil {
		s.conn.SendError(protocol.ErrCodeAuthFailed, err.Error())
		return
	}
	s.adopt(e, false)
}

// adopt binds the session to the entrant, displacing any previous
// session for the same player.
func (s *session) adopt(e *tourney.Entrant, resumed bool) {
	s.mu.Lock()
	s.playerID = e.ID
	s.mu.Unlock()

	s.gw.mu.Lock()
	if prev, ok := s.gw.sessions[e.ID]; ok && prev != s {
		prev.conn.Close()
	}
	s.gw.sessions[e.ID] = s
	s.gw.mu.Unlock()

	if err := s.gw.director.AttachPrompter(e.ID, s); err != nil {
		s.gw.logger.Error("attaching prompter", "player", e.ID, "err", err)
	}

	ack := protocol.RegisterAck{
		PlayerID: e.ID,
		TableID:  e.TableID,
		Seat:     e.Player.Seat,
		Resumed:  resumed,
	}
	if !resumed {
		ack.Token = e.Token
	}
	msg, err := protocol.NewMessage(protocol.TypeRegisterAck, ack)
	if err != nil {
		return
	}
	_ = s.conn.Send(msg)
	s.gw.logger.Info("session registered", "player", e.ID, "resumed", resumed)
}

func (s *session) handleActionResponse(msg *protocol.Message) {
	s.mu.Lock()
	playerID := s.playerID
	s.mu.Unlock()
	if playerID == "" {
		s.strike(protoErr(protocol.ErrCodeBadMessage, "action before register"))
		return
	}

	var resp protocol.ActionResponse
	if err := msg.Decode(&resp); err != nil {
		s.strike(protoErr(protocol.ErrCodeBadMessage, "%s", err))
		return
	}
	kind, ok := game.ParseActionKind(resp.Kind)
	if !ok {
		s.strike(protoErr(protocol.ErrCodeBadMessage, "unknown action kind %s", resp.Kind))
		return
	}

	err := s.gw.director.SubmitAction(playerID, resp.Seq, game.Action{Kind: kind, Amount: resp.Amount})
	if err == nil {
		return
	}
	// Validation rejections go back with the rule code so the bot can
	// correct and resubmit before its deadline. They are not strikes.
	var verr *game.ValidationError
	if errors.As(err, &verr) {
		s.conn.SendError(string(verr.Code), verr.Error())
		return
	}
	s.conn.SendError(protocol.ErrCodeOutOfTurn, err.Error())
}

// strike counts a protocol error; three drops the session.
func (s *session) strike(perr *ProtocolError) {
	s.mu.Lock()
	s.strikes++
	n := s.strikes
	s.mu.Unlock()

	s.gw.logger.Warn("protocol error", "player", s.playerID, "strikes", n, "err", perr)
	if n >= maxStrikes {
		s.conn.SendError(protocol.ErrCodeTooManyErrors, "too many protocol errors")
		s.conn.Close()
		return
	}
	s.conn.SendError(perr.Code, perr.Detail)
}

// closed detaches the session; the player keeps their seat and times out
// until they reconnect.
func (s *session) closed() {
	s.mu.Lock()
	playerID := s.playerID
	s.mu.Unlock()
	if playerID == "" {
		return
	}

	s.gw.mu.Lock()
	if cur, ok := s.gw.sessions[playerID]; ok && cur == s {
		delete(s.gw.sessions, playerID)
	}
	s.gw.mu.Unlock()

	s.gw.director.DetachPrompter(playerID)
	s.gw.logger.Info("session closed", "player", playerID)
}
