package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Rank is a card rank from Two (0) through Ace (12).
type Rank uint8

const (
	Two Rank = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankChars = "23456789TJQKA"

func (r Rank) String() string {
	if r > Ace {
		return "?"
	}
	return string(rankChars[r])
}

// Suit is one of the four card suits.
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

const suitChars = "cdhs"

func (s Suit) String() string {
	if s > Spades {
		return "?"
	}
	return string(suitChars[s])
}

// Card is a single playing card represented as a uint64 with exactly one
// bit set: bit suit*13+rank. The representation lets a Hand be a plain
// bitset and makes suit/rank extraction a couple of bit operations.
type Card uint64

// MakeCard builds a card from a rank and suit.
func MakeCard(r Rank, s Suit) Card {
	return Card(1) << (uint(s)*13 + uint(r))
}

func (c Card) bit() uint {
	return uint(bits.TrailingZeros64(uint64(c)))
}

// Rank returns the card's rank.
func (c Card) Rank() Rank {
	return Rank(c.bit() % 13)
}

// Suit returns the card's suit.
func (c Card) Suit() Suit {
	return Suit(c.bit() / 13)
}

// String renders the card in the usual two-character form, e.g. "As", "Td".
func (c Card) String() string {
	if c == 0 || bits.OnesCount64(uint64(c)) != 1 || c.bit() >= 52 {
		return "??"
	}
	return c.Rank().String() + c.Suit().String()
}

// ParseCard parses a two-character card like "As" or "kh" (case-insensitive).
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q: must be 2 characters", s)
	}
	rank := strings.IndexByte(rankChars, upperByte(s[0]))
	if rank < 0 {
		return 0, fmt.Errorf("invalid card %q: unknown rank %q", s, s[0])
	}
	suit := strings.IndexByte(suitChars, lowerByte(s[1]))
	if suit < 0 {
		return 0, fmt.Errorf("invalid card %q: unknown suit %q", s, s[1])
	}
	return MakeCard(Rank(rank), Suit(suit)), nil
}

// ParseCards parses concatenated or space-separated cards, e.g. "AsKh" or "As Kh".
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string %q: odd length", s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards parses cards and panics on error. For tests and examples.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

// Hand is a set of cards as a 52-bit bitset.
type Hand uint64

// NewHand builds a hand from the given cards.
func NewHand(cards ...Card) Hand {
	var h Hand
	for _, c := range cards {
		h |= Hand(c)
	}
	return h
}

// Add returns the hand with c added.
func (h Hand) Add(c Card) Hand {
	return h | Hand(c)
}

// Contains reports whether the hand contains c.
func (h Hand) Contains(c Card) bool {
	return h&Hand(c) != 0
}

// Count returns the number of cards in the hand.
func (h Hand) Count() int {
	return bits.OnesCount64(uint64(h))
}

// Cards returns the hand's cards in ascending bit order.
func (h Hand) Cards() []Card {
	cards := make([]Card, 0, h.Count())
	rest := uint64(h)
	for rest != 0 {
		low := rest & -rest
		cards = append(cards, Card(low))
		rest &^= low
	}
	return cards
}

// SuitMask returns the 13-bit rank mask of the hand's cards in the given suit.
func (h Hand) SuitMask(s Suit) uint16 {
	return uint16(uint64(h)>>(uint(s)*13)) & 0x1fff
}

// RankMask returns the 13-bit mask of ranks present in any suit.
func (h Hand) RankMask() uint16 {
	var mask uint16
	for s := Clubs; s <= Spades; s++ {
		mask |= h.SuitMask(s)
	}
	return mask
}

// String renders the hand's cards separated by spaces.
func (h Hand) String() string {
	cards := h.Cards()
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
