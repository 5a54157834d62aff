package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/feltworks/tourneyd/poker"
)

// Phase is a hand state machine state.
type Phase uint8

const (
	PhaseDealing Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseDealing:
		return "dealing"
	case PhasePreflop:
		return "preflop"
	case PhaseFlop:
		return "flop"
	case PhaseTurn:
		return "turn"
	case PhaseRiver:
		return "river"
	case PhaseShowdown:
		return "showdown"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// phaseTransitions is the explicit allowed-transition table. Every
// betting phase can exit straight to Settled when all but one player has
// folded or when the hand is aborted.
var phaseTransitions = map[Phase][]Phase{
	PhaseDealing:  {PhasePreflop},
	PhasePreflop:  {PhaseFlop, PhaseSettled},
	PhaseFlop:     {PhaseTurn, PhaseSettled},
	PhaseTurn:     {PhaseRiver, PhaseSettled},
	PhaseRiver:    {PhaseShowdown, PhaseSettled},
	PhaseShowdown: {PhaseSettled},
}

// BlindLevel is one step of a tournament blind schedule.
type BlindLevel struct {
	Small    int           `json:"small"`
	Big      int           `json:"big"`
	Ante     int           `json:"ante"`
	Duration time.Duration `json:"duration"`
}

// HandConfig configures a single hand.
type HandConfig struct {
	ID      string
	TableID string

	// Players are the dealt-in players in seat order; all must be funded.
	Players []*Player
	// Button is an index into Players.
	Button int
	Level  BlindLevel

	// Deck overrides the shuffled deck, for deterministic tests. When
	// nil a new deck is shuffled from Rand.
	Deck *poker.Deck
	Rand *rand.Rand

	Events EventSink
	Now    func() time.Time
}

// Hand drives one hand of play at one table through
// Dealing → Preflop → Flop → Turn → River → Showdown → Settled.
// It is not safe for concurrent use; the owning table serializes access.
type Hand struct {
	id      string
	tableID string
	players []*Player
	button  int
	level   BlindLevel

	phase  Phase
	board  poker.Hand
	deck   *poker.Deck
	bets   *bettingState
	active int

	startStacks []int
	startTotal  int

	seq    int
	events EventSink
	now    func() time.Time

	result *Result
}

// PotResult is a settled pot with its winners, keyed by table seat.
type PotResult struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
	Winners  []int `json:"winners"`
}

// Result summarizes a settled hand. All maps are keyed by table seat.
type Result struct {
	HandID      string
	TableID     string
	Board       []poker.Card
	Pots        []PotResult
	Payouts     map[int]int
	StartStacks map[int]int
	FinalStacks map[int]int
	Revealed    map[int]poker.Hand
	FoldWin     bool
	Aborted     bool
}

// NewHand deals a new hand: shuffles, posts antes then blinds (short
// stacks post all-in for less), deals two hole cards one at a time
// around, and opens preflop betting. Heads-up the button posts the small
// blind and acts first preflop. If blinds leave no betting decisions the
// board is run out immediately.
func NewHand(cfg HandConfig) (*Hand, error) {
	if len(cfg.Players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if cfg.Button < 0 || cfg.Button >= len(cfg.Players) {
		return nil, fmt.Errorf("button index %d out of range", cfg.Button)
	}
	if cfg.Level.Big <= 0 {
		return nil, fmt.Errorf("blind level has no big blind")
	}
	for _, p := range cfg.Players {
		if !p.Funded() {
			return nil, ErrNotEnoughPlayers
		}
	}

	deck := cfg.Deck
	if deck == nil {
		deck = poker.NewDeck(cfg.Rand)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	h := &Hand{
		id:      cfg.ID,
		tableID: cfg.TableID,
		players: cfg.Players,
		button:  cfg.Button,
		level:   cfg.Level,
		phase:   PhaseDealing,
		deck:    deck,
		active:  -1,
		events:  cfg.Events,
		now:     now,
	}

	n := len(h.players)
	seats := make([]SeatInfo, n)
	h.startStacks = make([]int, n)
	for i, p := range h.players {
		p.resetForHand()
		h.startStacks[i] = p.Chips
		h.startTotal += p.Chips
		seats[i] = SeatInfo{Seat: p.Seat, PlayerID: p.ID, Name: p.Name, Chips: p.Chips}
	}
	level := h.level
	h.emit(Event{Kind: EventHandStarted, Seats: seats, Button: h.players[h.button].Seat, Level: &level})

	// Two cards each, one at a time, starting left of the button.
	for round := 0; round < 2; round++ {
		for i := 1; i <= n; i++ {
			p := h.players[(h.button+i)%n]
			p.HoleCards = p.HoleCards.Add(h.deck.DealOne())
		}
	}
	for _, p := range h.players {
		h.emit(Event{Kind: EventHoleCards, Seat: p.Seat, PlayerID: p.ID, Cards: p.HoleCards.Cards()})
	}

	if h.level.Ante > 0 {
		for i := 1; i <= n; i++ {
			p := h.players[(h.button+i)%n]
			paid := p.pay(h.level.Ante, false)
			h.emit(Event{Kind: EventAction, Seat: p.Seat, PlayerID: p.ID, Action: "post_ante", Amount: paid})
		}
	}

	sb := (h.button + 1) % n
	if n == 2 {
		sb = h.button
	}
	bb := (sb + 1) % n
	sbPlayer, bbPlayer := h.players[sb], h.players[bb]
	paid := sbPlayer.pay(h.level.Small, true)
	h.emit(Event{Kind: EventAction, Seat: sbPlayer.Seat, PlayerID: sbPlayer.ID, Action: "post_small_blind", Amount: paid})
	paid = bbPlayer.pay(h.level.Big, true)
	h.emit(Event{Kind: EventAction, Seat: bbPlayer.Seat, PlayerID: bbPlayer.ID, Action: "post_big_blind", Amount: paid})

	h.bets = newBettingState(n, h.level.Big, bb)
	h.bets.currentBet = h.level.Big
	h.bets.bbOption = true

	h.transition(PhasePreflop)
	if h.bettingPossible() {
		h.active = h.nextToAct(bb + 1)
	} else if err := h.advanceStreet(); err != nil {
		return h, err
	}
	return h, nil
}

// bettingPossible reports whether any betting decision remains on the
// current street. With a single player able to act, betting only matters
// while they face an unmatched bet (a preflop all-in blind, typically).
func (h *Hand) bettingPossible() bool {
	switch h.canActCount() {
	case 0:
		return false
	case 1:
		idx := h.nextToAct(0)
		return h.players[idx].Bet != h.bets.currentBet
	default:
		return true
	}
}

// advanceStreet closes the current betting round and deals the next
// street, running the board out to showdown when no further decisions
// are possible.
func (h *Hand) advanceStreet() error {
	for _, p := range h.players {
		p.Bet = 0
	}
	h.bets.resetStreet()
	h.active = -1

	switch h.phase {
	case PhasePreflop:
		h.transition(PhaseFlop)
		h.dealBoard(3)
	case PhaseFlop:
		h.transition(PhaseTurn)
		h.dealBoard(1)
	case PhaseTurn:
		h.transition(PhaseRiver)
		h.dealBoard(1)
	case PhaseRiver:
		h.transition(PhaseShowdown)
		return h.settle()
	default:
		return nil
	}

	if !h.bettingPossible() {
		return h.advanceStreet()
	}
	h.active = h.nextToAct(h.button + 1)
	return nil
}

func (h *Hand) dealBoard(n int) {
	cards := h.deck.Deal(n)
	for _, c := range cards {
		h.board = h.board.Add(c)
	}
	h.emit(Event{Kind: EventCardsDealt, Seat: -1, Cards: cards})
}

// settle distributes the pots and verifies chip conservation: the sum of
// stacks after settlement must equal the sum before the hand. A mismatch
// reverts every stack to its pre-hand value and aborts the hand.
func (h *Hand) settle() error {
	h.active = -1

	if idx, refund := ReturnUncalled(h.players); refund > 0 {
		p := h.players[idx]
		h.emit(Event{Kind: EventUncalledReturn, Seat: p.Seat, PlayerID: p.ID, Action: "uncalled_return", Amount: refund})
	}

	pots := BuildPots(h.players)
	payouts, winners, err := AwardPots(pots, h.players, h.board, h.button)
	if err != nil {
		return h.abort(err.Error())
	}
	for idx, amount := range payouts {
		h.players[idx].Chips += amount
	}

	total := 0
	for _, p := range h.players {
		total += p.Chips
	}
	if total != h.startTotal {
		return h.abort("stack sum mismatch after settlement")
	}

	foldWin := h.phase != PhaseShowdown
	res := &Result{
		HandID:      h.id,
		TableID:     h.tableID,
		Board:       h.board.Cards(),
		Pots:        make([]PotResult, len(pots)),
		Payouts:     make(map[int]int, len(payouts)),
		StartStacks: make(map[int]int, len(h.players)),
		FinalStacks: make(map[int]int, len(h.players)),
		Revealed:    make(map[int]poker.Hand),
		FoldWin:     foldWin,
	}
	for pi, pot := range pots {
		pr := PotResult{Amount: pot.Amount}
		for _, idx := range pot.Eligible {
			pr.Eligible = append(pr.Eligible, h.players[idx].Seat)
		}
		for _, idx := range winners[pi] {
			pr.Winners = append(pr.Winners, h.players[idx].Seat)
		}
		res.Pots[pi] = pr
	}
	for idx, amount := range payouts {
		res.Payouts[h.players[idx].Seat] = amount
	}
	for i, p := range h.players {
		res.StartStacks[p.Seat] = h.startStacks[i]
		res.FinalStacks[p.Seat] = p.Chips
		if !foldWin && p.InHand() {
			res.Revealed[p.Seat] = p.HoleCards
		}
	}
	h.result = res
	h.transition(PhaseSettled)
	h.emit(Event{Kind: EventHandSettled, Seat: -1, Result: res})
	return nil
}

// abort reverts all stacks to their pre-hand values and terminates the
// hand with an InvariantViolation. The error is surfaced to the caller;
// play must not continue on corrupted state.
func (h *Hand) abort(detail string) error {
	actual := 0
	for _, p := range h.players {
		actual += p.Chips
	}
	for i, p := range h.players {
		p.Chips = h.startStacks[i]
		p.Bet = 0
		p.TotalBet = 0
		p.AllIn = false
	}
	h.result = &Result{HandID: h.id, TableID: h.tableID, Aborted: true}
	h.phase = PhaseSettled
	h.active = -1
	return &InvariantViolation{HandID: h.id, Expected: h.startTotal, Actual: actual, Detail: detail}
}

func (h *Hand) transition(to Phase) {
	for _, allowed := range phaseTransitions[h.phase] {
		if allowed == to {
			h.phase = to
			return
		}
	}
	panic(fmt.Sprintf("illegal hand phase transition %s -> %s", h.phase, to))
}

func (h *Hand) emit(ev Event) {
	h.seq++
	if h.events == nil {
		return
	}
	ev.TableID = h.tableID
	ev.HandID = h.id
	ev.Seq = h.seq
	ev.At = h.now()
	ev.Phase = h.phase
	h.events.Publish(ev)
}

func (h *Hand) emitAction(p *Player, action string, amount int, auto bool) {
	h.emit(Event{Kind: EventAction, Seat: p.Seat, PlayerID: p.ID, Action: action, Amount: amount, Auto: auto})
}

// ID returns the hand identifier.
func (h *Hand) ID() string { return h.id }

// Phase returns the current state machine phase.
func (h *Hand) Phase() Phase { return h.phase }

// Board returns the community cards dealt so far.
func (h *Hand) Board() poker.Hand { return h.board }

// Players returns the dealt-in players in seat order.
func (h *Hand) Players() []*Player { return h.players }

// Button returns the dealer button as an index into Players.
func (h *Hand) Button() int { return h.button }

// ActiveIndex returns the index of the player due to act, or -1.
func (h *Hand) ActiveIndex() int { return h.active }

// CurrentBet returns the highest street commitment so far.
func (h *Hand) CurrentBet() int { return h.bets.currentBet }

// MinRaise returns the current minimum raise increment.
func (h *Hand) MinRaise() int { return h.bets.minRaise }

// Pots returns the live pot view including this street's commitments.
func (h *Hand) Pots() []Pot { return BuildPots(h.players) }

// Settled reports whether the hand has reached its terminal phase.
func (h *Hand) Settled() bool { return h.phase == PhaseSettled }

// Result returns the hand outcome once settled, nil before.
func (h *Hand) Result() *Result { return h.result }

// IndexOf returns the hand index of the given player, or -1.
func (h *Hand) IndexOf(playerID string) int {
	for i, p := range h.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
