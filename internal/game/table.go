package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltworks/tourneyd/internal/gameid"
	"github.com/feltworks/tourneyd/poker"
)

// ActionRequest asks one player for a decision. HoleCards is private to
// the addressed player; State is the public table snapshot.
type ActionRequest struct {
	TableID   string
	HandID    string
	Seq       int
	Seat      int
	PlayerID  string
	HoleCards []poker.Card
	Legal     []LegalAction
	MinRaise  int
	MaxRaise  int
	Deadline  time.Time
	Timeout   time.Duration
	State     TableState
}

// Prompter delivers action requests to a player's session. PromptAction
// must not block; responses come back through Table.SubmitAction.
type Prompter interface {
	PromptAction(req ActionRequest)
}

// TableHost coordinates a table with the tournament director.
// BetweenHands is called before every deal: the host applies pending
// seating and blind-level changes, blocks while the table cannot play
// (paused, or waiting for opponents), and returns false to stop the
// table for good. HandFinished is called after every settled hand, on
// the table's goroutine, so eliminations and rebalancing for this table
// happen atomically with settlement.
type TableHost interface {
	BetweenHands(ctx context.Context, t *Table) bool
	HandFinished(t *Table, res *Result)
}

// SeatState is one seat in a public table snapshot.
type SeatState struct {
	Seat       int    `json:"seat"`
	PlayerID   string `json:"playerId,omitempty"`
	Name       string `json:"name,omitempty"`
	Chips      int    `json:"chips"`
	Bet        int    `json:"bet"`
	Folded     bool   `json:"folded,omitempty"`
	AllIn      bool   `json:"allIn,omitempty"`
	SittingOut bool   `json:"sittingOut,omitempty"`
	Empty      bool   `json:"empty,omitempty"`
}

// PotState is one pot in a public table snapshot, eligibility by seat.
type PotState struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// TableState is the public snapshot consumed by spectators and embedded
// in action requests. It never contains hole cards.
type TableState struct {
	TableID    string     `json:"tableId"`
	HandID     string     `json:"handId,omitempty"`
	Phase      string     `json:"phase"`
	Board      []string   `json:"board,omitempty"`
	Button     int        `json:"button"`
	ToAct      int        `json:"toAct"`
	CurrentBet int        `json:"currentBet"`
	MinRaise   int        `json:"minRaise"`
	Pots       []PotState `json:"pots,omitempty"`
	Seats      []SeatState `json:"seats"`
	Level      BlindLevel `json:"level"`
}

// TableConfig configures a table manager.
type TableConfig struct {
	ID            string
	Capacity      int
	Level         BlindLevel
	ActionTimeout time.Duration
	SitOutAfter   int
	Clock         quartz.Clock
	Logger        *log.Logger
	Events        EventSink
	Rand          *rand.Rand
	Host          TableHost
}

type pendingPrompt struct {
	playerID string
	seq      int
}

type submission struct {
	seq    int
	action Action
	reply  chan error
}

// Table owns one table's seats and lifecycle: it runs hands
// back-to-back on its own goroutine, collects actions from player
// sessions with a deadline, substitutes the deterministic default on
// expiry, and reports to the tournament host between hands.
type Table struct {
	id            string
	capacity      int
	actionTimeout time.Duration
	sitOutAfter   int
	clock         quartz.Clock
	logger        *log.Logger
	events        EventSink
	rng           *rand.Rand
	host          TableHost

	mu        sync.Mutex
	seats     []*Player
	prompters map[string]Prompter
	button    int
	level     BlindLevel
	hand      *Hand
	pending   *pendingPrompt
	seq       int

	submissions chan submission
}

// NewTable creates an empty table.
func NewTable(cfg TableConfig) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Table{
		id:            cfg.ID,
		capacity:      cfg.Capacity,
		actionTimeout: cfg.ActionTimeout,
		sitOutAfter:   cfg.SitOutAfter,
		clock:         clock,
		logger:        logger.WithPrefix("table").With("table", cfg.ID),
		events:        cfg.Events,
		rng:           cfg.Rand,
		host:          cfg.Host,
		seats:         make([]*Player, cfg.Capacity),
		prompters:     make(map[string]Prompter),
		button:        -1,
		level:         cfg.Level,
		submissions:   make(chan submission, 16),
	}
}

// ID returns the table identifier.
func (t *Table) ID() string { return t.id }

// Capacity returns the number of seats.
func (t *Table) Capacity() int { return t.capacity }

// SeatPlayer places the player in the lowest free seat. Arrivals are
// safe mid-hand: the running hand holds its own player list, and the
// newcomer is dealt in from the next hand.
func (t *Table) SeatPlayer(p *Player, prompter Prompter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for seat, occupant := range t.seats {
		if occupant == nil {
			p.Seat = seat
			t.seats[seat] = p
			if prompter != nil {
				t.prompters[p.ID] = prompter
			}
			t.logger.Debug("seated player", "player", p.ID, "seat", seat, "chips", p.Chips)
			return nil
		}
	}
	return ErrTableFull
}

// RemovePlayer vacates the player's seat and returns the player. It must
// only be called between hands for players dealt into the current hand;
// the director guarantees this by removing players only from tables at a
// hand boundary.
func (t *Table) RemovePlayer(playerID string) (*Player, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for seat, p := range t.seats {
		if p != nil && p.ID == playerID {
			t.seats[seat] = nil
			delete(t.prompters, playerID)
			return p, nil
		}
	}
	return nil, ErrNoSeat
}

// SetPrompter attaches (or replaces) the session delivering action
// requests for a seated player. A reconnecting player comes back from
// sit-out with a fresh timeout budget.
func (t *Table) SetPrompter(playerID string, prompter Prompter) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.playerLocked(playerID)
	if p == nil {
		return ErrNoSeat
	}
	if prompter == nil {
		delete(t.prompters, playerID)
		return nil
	}
	t.prompters[playerID] = prompter
	p.SittingOut = false
	p.Timeouts = 0
	return nil
}

// SetSittingOut toggles the player's sit-out state.
func (t *Table) SetSittingOut(playerID string, sitting bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.playerLocked(playerID)
	if p == nil {
		return ErrNoSeat
	}
	p.SittingOut = sitting
	if !sitting {
		p.Timeouts = 0
	}
	return nil
}

// SetLevel applies a blind level; it takes effect at the next deal.
func (t *Table) SetLevel(level BlindLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.level = level
}

// Level returns the blind level in force.
func (t *Table) Level() BlindLevel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Players returns the seated players in seat order.
func (t *Table) Players() []*Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playersLocked()
}

func (t *Table) playersLocked() []*Player {
	players := make([]*Player, 0, t.capacity)
	for _, p := range t.seats {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

func (t *Table) playerLocked(playerID string) *Player {
	for _, p := range t.seats {
		if p != nil && p.ID == playerID {
			return p
		}
	}
	return nil
}

// PlayerCount returns the number of occupied seats.
func (t *Table) PlayerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.playersLocked())
}

// FundedCount returns the number of seated players with chips.
func (t *Table) FundedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, p := range t.seats {
		if p != nil && p.Funded() {
			n++
		}
	}
	return n
}

// HandActive reports whether a hand is in progress.
func (t *Table) HandActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand != nil
}

// Run drives hands back-to-back until the host stops the table or the
// context is canceled. An invariant violation aborts the affected hand
// with stacks reverted and is returned so the director surfaces it.
func (t *Table) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !t.host.BetweenHands(ctx, t) {
			t.logger.Debug("table stopped")
			return nil
		}
		if err := t.StartHand(ctx); err != nil {
			if errors.Is(err, ErrNotEnoughPlayers) {
				continue
			}
			return err
		}
	}
}

// StartHand deals and plays a single hand to completion, then reports
// the result to the host.
func (t *Table) StartHand(ctx context.Context) error {
	t.mu.Lock()
	if t.hand != nil {
		t.mu.Unlock()
		return ErrHandInProgress
	}
	players := make([]*Player, 0, t.capacity)
	for _, p := range t.seats {
		if p != nil && p.Funded() {
			players = append(players, p)
		}
	}
	if len(players) < 2 {
		t.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	buttonIdx := t.advanceButtonLocked(players)
	handID := gameid.Generate()

	hand, err := NewHand(HandConfig{
		ID:      handID,
		TableID: t.id,
		Players: players,
		Button:  buttonIdx,
		Level:   t.level,
		Rand:    t.rng,
		Events:  t.events,
		Now:     func() time.Time { return t.clock.Now() },
	})
	t.hand = hand
	t.mu.Unlock()
	if err != nil {
		t.finishHand(hand)
		return err
	}

	t.logger.Debug("hand started", "hand", handID, "players", len(players), "button", buttonIdx)
	if err := t.playHand(ctx, hand); err != nil {
		t.finishHand(hand)
		return err
	}
	t.finishHand(hand)
	return nil
}

func (t *Table) finishHand(h *Hand) {
	t.mu.Lock()
	t.hand = nil
	var res *Result
	if h != nil {
		res = h.Result()
	}
	t.mu.Unlock()
	if res != nil && !res.Aborted {
		t.host.HandFinished(t, res)
	}
}

// advanceButtonLocked rotates the button to the next funded seat and
// returns its index within players (which are in seat order).
func (t *Table) advanceButtonLocked(players []*Player) int {
	next := 0
	for i, p := range players {
		if p.Seat > t.button {
			next = i
			break
		}
	}
	t.button = players[next].Seat
	return next
}

func (t *Table) playHand(ctx context.Context, h *Hand) error {
	for {
		t.mu.Lock()
		if h.Settled() {
			t.mu.Unlock()
			return nil
		}
		idx := h.ActiveIndex()
		if idx < 0 {
			t.mu.Unlock()
			return fmt.Errorf("hand %s stalled with no active player", h.ID())
		}
		p := h.Players()[idx]
		if p.SittingOut {
			// Sitting-out players check or fold in turn without a prompt.
			err := h.ApplyDefault(idx)
			t.mu.Unlock()
			if err != nil {
				return err
			}
			continue
		}
		req, seq := t.buildRequestLocked(h, idx)
		prompter := t.prompters[p.ID]
		t.pending = &pendingPrompt{playerID: p.ID, seq: seq}
		t.mu.Unlock()

		if prompter != nil {
			prompter.PromptAction(req)
		}
		if err := t.awaitAction(ctx, h, idx, seq, req.Timeout); err != nil {
			return err
		}
	}
}

func (t *Table) buildRequestLocked(h *Hand, idx int) (ActionRequest, int) {
	t.seq++
	p := h.Players()[idx]
	legal := h.LegalActionsFor(idx)
	minRaise, maxRaise := 0, 0
	for _, la := range legal {
		if la.Kind == Bet || la.Kind == Raise {
			minRaise, maxRaise = la.Min, la.Max
		}
	}
	timeout := t.actionTimeout + p.TimeBank
	return ActionRequest{
		TableID:   t.id,
		HandID:    h.ID(),
		Seq:       t.seq,
		Seat:      p.Seat,
		PlayerID:  p.ID,
		HoleCards: p.HoleCards.Cards(),
		Legal:     legal,
		MinRaise:  minRaise,
		MaxRaise:  maxRaise,
		Deadline:  t.clock.Now().Add(timeout),
		Timeout:   timeout,
		State:     t.snapshotLocked(),
	}, t.seq
}

// awaitAction waits for the prompted player's decision. Rejected actions
// leave the window open for a corrected resubmission; on deadline the
// deterministic default (check if legal, else fold) is substituted and a
// late response can no longer apply.
func (t *Table) awaitAction(ctx context.Context, h *Hand, idx, seq int, timeout time.Duration) error {
	p := h.Players()[idx]
	start := t.clock.Now()
	timer := t.clock.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case sub := <-t.submissions:
			if sub.seq != seq {
				sub.reply <- ErrNoActionPending
				continue
			}
			t.mu.Lock()
			err := h.Apply(idx, sub.action)
			if err == nil {
				t.clearPendingLocked()
				elapsed := t.clock.Now().Sub(start)
				if over := elapsed - t.actionTimeout; over > 0 {
					p.TimeBank = max(0, p.TimeBank-over)
				}
				p.Timeouts = 0
			}
			t.mu.Unlock()
			sub.reply <- err

			var verr *ValidationError
			if err == nil {
				return nil
			}
			if errors.As(err, &verr) {
				continue // player may resubmit before the deadline
			}
			return err

		case <-timer.C:
			t.mu.Lock()
			t.clearPendingLocked()
			p.TimeBank = 0
			p.Timeouts++
			satOut := false
			if t.sitOutAfter > 0 && p.Timeouts >= t.sitOutAfter && !p.SittingOut {
				p.SittingOut = true
				satOut = true
			}
			err := h.ApplyDefault(idx)
			t.mu.Unlock()
			t.logger.Debug("action timeout", "player", p.ID, "hand", h.ID(), "consecutive", p.Timeouts)
			if satOut {
				t.publish(Event{
					Kind: EventPlayerSatOut, TableID: t.id, HandID: h.ID(),
					At: t.clock.Now(), Seat: p.Seat, PlayerID: p.ID,
				})
			}
			return err

		case <-ctx.Done():
			t.mu.Lock()
			t.clearPendingLocked()
			t.mu.Unlock()
			return ctx.Err()
		}
	}
}

// clearPendingLocked closes the action window and rejects anything still
// queued, so a late response after a substituted default is never
// double-applied.
func (t *Table) clearPendingLocked() {
	t.pending = nil
	for {
		select {
		case sub := <-t.submissions:
			sub.reply <- ErrNoActionPending
		default:
			return
		}
	}
}

func (t *Table) publish(ev Event) {
	if t.events != nil {
		t.events.Publish(ev)
	}
}

// SubmitAction delivers a player's response to the open action window
// and returns the validator's verdict. The seq must echo the request
// being answered: out-of-turn, late and stale submissions are rejected,
// never queued, so a retransmitted frame cannot land in a later window.
func (t *Table) SubmitAction(playerID string, seq int, a Action) error {
	t.mu.Lock()
	if t.pending == nil || t.pending.playerID != playerID {
		seat := -1
		if p := t.playerLocked(playerID); p != nil {
			seat = p.Seat
		}
		t.mu.Unlock()
		return reject(RejectOutOfTurn, seat, a.Kind, a.Amount, "no action pending for player %s", playerID)
	}
	if seq != t.pending.seq {
		seat := -1
		if p := t.playerLocked(playerID); p != nil {
			seat = p.Seat
		}
		pendingSeq := t.pending.seq
		t.mu.Unlock()
		return reject(RejectOutOfTurn, seat, a.Kind, a.Amount, "sequence %d does not match the open request %d", seq, pendingSeq)
	}
	sub := submission{seq: seq, action: a, reply: make(chan error, 1)}
	select {
	case t.submissions <- sub:
	default:
		t.mu.Unlock()
		return reject(RejectOutOfTurn, -1, a.Kind, a.Amount, "submission backlog full")
	}
	t.mu.Unlock()
	return <-sub.reply
}

// Snapshot returns the public table state for spectators.
func (t *Table) Snapshot() TableState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() TableState {
	st := TableState{
		TableID: t.id,
		Phase:   "idle",
		Button:  t.button,
		ToAct:   -1,
		Level:   t.level,
		Seats:   make([]SeatState, t.capacity),
	}
	for seat, p := range t.seats {
		if p == nil {
			st.Seats[seat] = SeatState{Seat: seat, Empty: true}
			continue
		}
		st.Seats[seat] = SeatState{
			Seat: seat, PlayerID: p.ID, Name: p.Name,
			Chips: p.Chips, Bet: p.Bet,
			Folded: p.Folded, AllIn: p.AllIn, SittingOut: p.SittingOut,
		}
	}
	h := t.hand
	if h == nil {
		return st
	}
	st.HandID = h.ID()
	st.Phase = h.Phase().String()
	for _, c := range h.Board().Cards() {
		st.Board = append(st.Board, c.String())
	}
	if !h.Settled() {
		st.CurrentBet = h.CurrentBet()
		st.MinRaise = h.MinRaise()
	}
	if idx := h.ActiveIndex(); idx >= 0 {
		st.ToAct = h.Players()[idx].Seat
	}
	for _, pot := range h.Pots() {
		ps := PotState{Amount: pot.Amount}
		for _, idx := range pot.Eligible {
			ps.Eligible = append(ps.Eligible, h.Players()[idx].Seat)
		}
		st.Pots = append(st.Pots, ps)
	}
	return st
}
