package game

// ActionKind enumerates the player action verbs.
type ActionKind uint8

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (k ActionKind) String() string {
	switch k {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Bet:
		return "bet"
	case Raise:
		return "raise"
	case AllIn:
		return "allin"
	default:
		return "unknown"
	}
}

// ParseActionKind maps the wire vocabulary back to an ActionKind.
func ParseActionKind(s string) (ActionKind, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "bet":
		return Bet, true
	case "raise":
		return Raise, true
	case "allin", "all-in", "all_in":
		return AllIn, true
	default:
		return Fold, false
	}
}

// Action is a proposed player action. For Bet and Raise the amount is the
// player's total street commitment ("raise to"), not the increment. Fold,
// Check, Call and AllIn ignore the amount.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

// LegalAction is a permitted action kind with its permitted amount range.
type LegalAction struct {
	Kind ActionKind `json:"kind"`
	Min  int        `json:"min,omitempty"`
	Max  int        `json:"max,omitempty"`
}

// bettingState tracks one street of betting. acted records who has acted
// since the last full raise; raiseBarred marks players facing a short
// all-in raise who may no longer re-raise (a short all-in does not reopen
// betting for players who already acted).
type bettingState struct {
	currentBet    int
	minRaise      int
	bigBlind      int
	lastAggressor int
	acted         []bool
	raiseBarred   []bool
	bbIndex       int
	bbOption      bool
}

func newBettingState(n, bigBlind, bbIndex int) *bettingState {
	return &bettingState{
		minRaise:      bigBlind,
		bigBlind:      bigBlind,
		lastAggressor: -1,
		acted:         make([]bool, n),
		raiseBarred:   make([]bool, n),
		bbIndex:       bbIndex,
	}
}

func (b *bettingState) resetStreet() {
	b.currentBet = 0
	b.minRaise = b.bigBlind
	b.lastAggressor = -1
	b.bbOption = false
	for i := range b.acted {
		b.acted[i] = false
		b.raiseBarred[i] = false
	}
}

// LegalActions returns the permitted actions for the player whose turn it
// is, or nil when no betting round is open.
func (h *Hand) LegalActions() []LegalAction {
	if h.active < 0 {
		return nil
	}
	return h.LegalActionsFor(h.active)
}

// LegalActionsFor computes the legal action set for the given hand index
// as if it were that player's turn. Fold is always available; check only
// with no outstanding bet; call only with a deficit, capped at the stack;
// bet only when no bet stands; raise must reach the minimum raise unless
// it is the player's whole stack; all-in is available whenever the player
// has chips behind.
func (h *Hand) LegalActionsFor(idx int) []LegalAction {
	if h.phase < PhasePreflop || h.phase > PhaseRiver {
		return nil
	}
	p := h.players[idx]
	if !p.CanAct() {
		return nil
	}

	b := h.bets
	toCall := b.currentBet - p.Bet
	allIn := p.Bet + p.Chips

	legal := []LegalAction{{Kind: Fold}}
	if toCall <= 0 {
		legal = append(legal, LegalAction{Kind: Check})
	} else {
		call := min(toCall, p.Chips)
		legal = append(legal, LegalAction{Kind: Call, Min: call, Max: call})
	}
	if b.currentBet == 0 {
		legal = append(legal, LegalAction{Kind: Bet, Min: min(b.bigBlind, allIn), Max: allIn})
	} else if !b.raiseBarred[idx] && allIn > b.currentBet {
		legal = append(legal, LegalAction{Kind: Raise, Min: min(b.currentBet+b.minRaise, allIn), Max: allIn})
	}
	legal = append(legal, LegalAction{Kind: AllIn, Min: allIn, Max: allIn})
	return legal
}

// Apply validates the action for the given hand index and, if accepted,
// mutates the hand: the stack is debited, the turn advances, and the
// street or hand closes when complete. Rejections are *ValidationError
// and leave the hand untouched.
func (h *Hand) Apply(idx int, a Action) error {
	return h.apply(idx, a, false)
}

// ApplyDefault substitutes the deterministic default action for the
// given index: check when legal, otherwise fold. Used for expired
// deadlines and sitting-out players; the resulting event is flagged as
// substituted so audits can distinguish it.
func (h *Hand) ApplyDefault(idx int) error {
	a := Action{Kind: Fold}
	for _, la := range h.LegalActionsFor(idx) {
		if la.Kind == Check {
			a.Kind = Check
			break
		}
	}
	return h.apply(idx, a, true)
}

func (h *Hand) apply(idx int, a Action, auto bool) error {
	if h.phase < PhasePreflop || h.phase > PhaseRiver {
		return reject(RejectRoundClosed, h.seatOf(idx), a.Kind, a.Amount, "no betting round open")
	}
	if idx != h.active {
		return reject(RejectOutOfTurn, h.seatOf(idx), a.Kind, a.Amount,
			"not seat %d's turn", h.seatOf(idx))
	}

	p := h.players[idx]
	la, ok := findLegal(h.LegalActionsFor(idx), a.Kind)
	if !ok {
		return reject(RejectIllegalKind, p.Seat, a.Kind, a.Amount,
			"%s is not a legal action", a.Kind)
	}

	b := h.bets
	paid := 0
	switch a.Kind {
	case Fold:
		p.Folded = true

	case Check:
		// Nothing moves.

	case Call:
		paid = p.pay(b.currentBet-p.Bet, true)

	case Bet, Raise:
		if a.Amount < la.Min {
			return reject(RejectBelowMinimum, p.Seat, a.Kind, a.Amount,
				"minimum is %d", la.Min)
		}
		if a.Amount > la.Max {
			return reject(RejectOverStack, p.Seat, a.Kind, a.Amount,
				"maximum is %d", la.Max)
		}
		paid = h.applyRaiseTo(idx, a.Amount)

	case AllIn:
		if to := p.Bet + p.Chips; to > b.currentBet {
			paid = h.applyRaiseTo(idx, to)
		} else {
			paid = p.pay(p.Chips, true)
		}
	}

	b.acted[idx] = true
	if idx == b.bbIndex {
		b.bbOption = false
	}
	h.emitAction(p, a.Kind.String(), paid, auto)
	return h.advanceTurn()
}

// applyRaiseTo moves the player's street commitment to the given total.
// A full raise (at least the minimum increment) resets the acted flags
// and reopens betting; a short all-in raise bars players who have already
// acted from re-raising while still letting them call the extra amount.
func (h *Hand) applyRaiseTo(idx, to int) int {
	p := h.players[idx]
	b := h.bets
	inc := to - b.currentBet
	full := inc >= b.minRaise

	paid := p.pay(to-p.Bet, true)
	for i := range b.acted {
		if i == idx {
			continue
		}
		if full {
			b.raiseBarred[i] = false
		} else if b.acted[i] {
			b.raiseBarred[i] = true
		}
		b.acted[i] = false
	}
	if full {
		b.minRaise = inc
	}
	b.currentBet = to
	b.lastAggressor = idx
	return paid
}

func (h *Hand) advanceTurn() error {
	if h.inHandCount() == 1 {
		h.active = -1
		return h.settle()
	}
	if !h.roundClosed() {
		if next := h.nextToAct(h.active + 1); next != -1 {
			h.active = next
			return nil
		}
	}
	return h.advanceStreet()
}

// roundClosed reports whether every player still able to act has matched
// the current bet and acted since the last full raise, with the big
// blind's preflop option honored.
func (h *Hand) roundClosed() bool {
	b := h.bets
	for i, p := range h.players {
		if !p.CanAct() {
			continue
		}
		if p.Bet != b.currentBet || !b.acted[i] {
			return false
		}
	}
	if h.phase == PhasePreflop && b.bbOption && h.players[b.bbIndex].CanAct() {
		return false
	}
	return true
}

// nextToAct returns the next hand index able to act starting at from,
// wrapping around the table, or -1 when nobody can.
func (h *Hand) nextToAct(from int) int {
	n := len(h.players)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if h.players[idx].CanAct() {
			return idx
		}
	}
	return -1
}

func (h *Hand) inHandCount() int {
	n := 0
	for _, p := range h.players {
		if p.InHand() {
			n++
		}
	}
	return n
}

func (h *Hand) canActCount() int {
	n := 0
	for _, p := range h.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (h *Hand) seatOf(idx int) int {
	if idx < 0 || idx >= len(h.players) {
		return -1
	}
	return h.players[idx].Seat
}

func findLegal(legal []LegalAction, kind ActionKind) (LegalAction, bool) {
	for _, la := range legal {
		if la.Kind == kind {
			return la, true
		}
	}
	return LegalAction{}, false
}
