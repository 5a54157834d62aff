package poker

import (
	"fmt"
	"math/bits"
)

// HandType enumerates hand categories from weakest to strongest.
type HandType uint8

const (
	HighCard HandType = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (t HandType) String() string {
	switch t {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank is a total-ordered hand strength: greater values beat lesser
// ones, equal values are tied. The category sits in the high bits with up
// to five tie-break ranks below it, four bits each, most significant
// first, so integer comparison agrees with poker hand comparison.
type HandRank uint32

// Type returns the hand category encoded in the rank.
func (hr HandRank) Type() HandType {
	return HandType(hr >> 20)
}

func (hr HandRank) String() string {
	return hr.Type().String()
}

// Compare returns 1 if a beats b, -1 if b beats a, and 0 on a tie.
func Compare(a, b HandRank) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func pack(t HandType, ranks ...Rank) HandRank {
	hr := HandRank(t) << 20
	shift := 16
	for _, r := range ranks {
		hr |= HandRank(r) << shift
		shift -= 4
	}
	return hr
}

// Evaluate returns the strength of the best 5-card hand available in h.
// It accepts exactly 5, 6, or 7 cards and returns an error otherwise.
func Evaluate(h Hand) (HandRank, error) {
	n := h.Count()
	if n < 5 || n > 7 {
		return 0, fmt.Errorf("evaluate: need 5-7 cards, got %d", n)
	}
	return evaluate(h), nil
}

// MustEvaluate is Evaluate for inputs known to be well-formed; it panics
// on a malformed hand.
func MustEvaluate(h Hand) HandRank {
	hr, err := Evaluate(h)
	if err != nil {
		panic(err)
	}
	return hr
}

func evaluate(h Hand) HandRank {
	var suitMasks [4]uint16
	var rankMask uint16
	for s := Clubs; s <= Spades; s++ {
		suitMasks[s] = h.SuitMask(s)
		rankMask |= suitMasks[s]
	}

	// At most one suit can hold five of seven cards, and a seven-card hand
	// with a flush cannot also contain a full house or quads, so a flush
	// check settles the category immediately.
	for _, sm := range suitMasks {
		if bits.OnesCount16(sm) >= 5 {
			if high, ok := straightHigh(sm); ok {
				return pack(StraightFlush, high)
			}
			return pack(Flush, topRanks(sm, 5)...)
		}
	}

	s0, s1, s2, s3 := suitMasks[0], suitMasks[1], suitMasks[2], suitMasks[3]
	quads := s0 & s1 & s2 & s3
	tripsOrBetter := (s0 & s1 & s2) | (s0 & s1 & s3) | (s0 & s2 & s3) | (s1 & s2 & s3)
	trips := tripsOrBetter &^ quads
	pairs := ((s0 & s1) | (s0 & s2) | (s0 & s3) | (s1 & s2) | (s1 & s3) | (s2 & s3)) &^ tripsOrBetter

	if quads != 0 {
		quad := topRank(quads)
		kicker := topRank(rankMask &^ rankBit(quad))
		return pack(FourOfAKind, quad, kicker)
	}

	if trips != 0 {
		trip := topRank(trips)
		// Two sets of trips make a full house using the lower set as the pair.
		if under := (trips &^ rankBit(trip)) | pairs; under != 0 {
			return pack(FullHouse, trip, topRank(under))
		}
	}

	if high, ok := straightHigh(rankMask); ok {
		return pack(Straight, high)
	}

	if trips != 0 {
		trip := topRank(trips)
		kickers := topRanks(rankMask&^rankBit(trip), 2)
		return pack(ThreeOfAKind, trip, kickers[0], kickers[1])
	}

	switch bits.OnesCount16(pairs) {
	case 0:
		return pack(HighCard, topRanks(rankMask, 5)...)
	case 1:
		pair := topRank(pairs)
		kickers := topRanks(rankMask&^rankBit(pair), 3)
		return pack(Pair, pair, kickers[0], kickers[1], kickers[2])
	default:
		// Three pairs are possible with seven cards; the lowest pair rank
		// competes with the remaining cards for the kicker slot.
		high := topRank(pairs)
		low := topRank(pairs &^ rankBit(high))
		kicker := topRank(rankMask &^ (rankBit(high) | rankBit(low)))
		return pack(TwoPair, high, low, kicker)
	}
}

// straightHigh returns the high rank of the best straight in the rank
// mask. The wheel (A-2-3-4-5) counts as a five-high straight.
func straightHigh(mask uint16) (Rank, bool) {
	mask &= 0x1fff
	// Consecutive runs found with a single bitwise cascade.
	seq := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4)
	if seq != 0 {
		return Rank(bits.Len16(seq)-1) + 4, true
	}
	const wheel = 0x100f // A + 2-3-4-5
	if mask&wheel == wheel {
		return Five, true
	}
	return 0, false
}

func rankBit(r Rank) uint16 {
	return 1 << r
}

func topRank(mask uint16) Rank {
	return Rank(bits.Len16(mask) - 1)
}

// topRanks returns the n highest ranks present in the mask, descending.
func topRanks(mask uint16, n int) []Rank {
	ranks := make([]Rank, 0, n)
	for len(ranks) < n && mask != 0 {
		r := topRank(mask)
		ranks = append(ranks, r)
		mask &^= rankBit(r)
	}
	return ranks
}
