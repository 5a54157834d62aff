package poker

import (
	"math/rand/v2"
)

// Deck is a standard 52-card deck. Cards are dealt from the front; Reset
// reshuffles the full deck. A nil rng falls back to the global source, so
// tests that need determinism must inject a seeded *rand.Rand.
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a shuffled deck using the provided random source.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			d.cards[i] = MakeCard(r, s)
			i++
		}
	}
	d.Shuffle()
	return d
}

// NewStackedDeck creates an unshuffled deck that deals the given cards
// in order, followed by the rest of the standard deck in a fixed order.
// Used by hand replay and deterministic tests.
func NewStackedDeck(front ...Card) *Deck {
	d := &Deck{}
	seen := NewHand(front...)
	copy(d.cards[:], front)
	i := len(front)
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			c := MakeCard(r, s)
			if !seen.Contains(c) {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}

// Shuffle reshuffles the full deck using Fisher-Yates.
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the next n cards, or nil if the deck is short.
func (d *Deck) Deal(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// DealOne removes and returns the next card, or 0 when exhausted.
func (d *Deck) DealOne() Card {
	if d.next >= len(d.cards) {
		return 0
	}
	c := d.cards[d.next]
	d.next++
	return c
}

// Reset reshuffles the deck for a new hand.
func (d *Deck) Reset() {
	d.Shuffle()
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
