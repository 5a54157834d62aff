package game

import (
	"time"

	"github.com/feltworks/tourneyd/poker"
)

// Player is a seat occupant. The stack and sit-out state persist across
// hands; the remaining fields are per-hand and reset when a new hand is
// dealt. Stacks are mutated only by hand settlement and blind posting,
// always on the owning table's goroutine.
type Player struct {
	ID   string
	Name string
	Seat int

	Chips      int
	HoleCards  poker.Hand
	Folded     bool
	AllIn      bool
	SittingOut bool

	// Bet is the current street commitment; TotalBet is the whole-hand
	// commitment including antes. Antes never count toward street
	// matching, so they bypass Bet.
	Bet      int
	TotalBet int

	// TimeBank is the extra decision time left beyond the per-action
	// timeout. Timeouts counts consecutive expired prompts and drives
	// the sit-out threshold.
	TimeBank time.Duration
	Timeouts int
}

// InHand reports whether the player was dealt in and has not folded.
func (p *Player) InHand() bool {
	return p.HoleCards != 0 && !p.Folded
}

// CanAct reports whether the player still has decisions in the current hand.
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn
}

// Funded reports whether the player has chips to play the next hand.
func (p *Player) Funded() bool {
	return p.Chips > 0
}

func (p *Player) resetForHand() {
	p.HoleCards = 0
	p.Folded = false
	p.AllIn = false
	p.Bet = 0
	p.TotalBet = 0
}

// pay moves up to amount chips from the stack into the hand, marking the
// player all-in when the stack empties. It returns the amount moved.
func (p *Player) pay(amount int, street bool) int {
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.TotalBet += amount
	if street {
		p.Bet += amount
	}
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount
}
