package game

import (
	"fmt"
	"sort"

	"github.com/feltworks/tourneyd/poker"
)

// Pot is a main or side pot. Eligible holds hand indexes of the
// non-folded players who contributed past the previous boundary; Cap is
// the per-player total contribution that closes the pot. Side pots are
// ordered by the all-in amount that created them, lowest first.
type Pot struct {
	Amount   int
	Eligible []int
	Cap      int
}

// BuildPots layers the players' whole-hand contributions into a main pot
// and side pots. A boundary forms at each distinct all-in contribution
// level; chips committed by folded players stay in whichever pots their
// contribution reached. The function reads but does not mutate players,
// so it doubles as the live pot view during a street.
func BuildPots(players []*Player) []Pot {
	boundaries := allInBoundaries(players)

	maxTotal := 0
	for _, p := range players {
		maxTotal = max(maxTotal, p.TotalBet)
	}
	if len(boundaries) == 0 || boundaries[len(boundaries)-1] < maxTotal {
		boundaries = append(boundaries, maxTotal)
	}

	var pots []Pot
	prev := 0
	for _, cap := range boundaries {
		pot := Pot{Cap: cap}
		for idx, p := range players {
			contrib := min(p.TotalBet, cap) - prev
			if contrib > 0 {
				pot.Amount += contrib
			}
			if !p.Folded && p.TotalBet > prev {
				pot.Eligible = append(pot.Eligible, idx)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = cap
	}
	return pots
}

func allInBoundaries(players []*Player) []int {
	seen := make(map[int]bool)
	var bounds []int
	for _, p := range players {
		if p.AllIn && !p.Folded && p.TotalBet > 0 && !seen[p.TotalBet] {
			seen[p.TotalBet] = true
			bounds = append(bounds, p.TotalBet)
		}
	}
	sort.Ints(bounds)
	return bounds
}

// ReturnUncalled refunds the uncalled portion of the highest total bet
// (the amount above the second-highest) to the bettor's stack. It returns
// the hand index refunded and the amount, or (-1, 0) when nothing was
// uncalled.
func ReturnUncalled(players []*Player) (int, int) {
	top, second, topIdx := 0, 0, -1
	unique := false
	for idx, p := range players {
		switch {
		case p.TotalBet > top:
			second = top
			top = p.TotalBet
			topIdx = idx
			unique = true
		case p.TotalBet == top:
			unique = false
		case p.TotalBet > second:
			second = p.TotalBet
		}
	}
	if !unique || topIdx < 0 || top == second {
		return -1, 0
	}

	p := players[topIdx]
	refund := top - second
	p.TotalBet -= refund
	p.Chips += refund
	if p.AllIn && p.Chips > 0 {
		p.AllIn = false
	}
	return topIdx, refund
}

// AwardPots evaluates each pot's remaining contenders against the board
// and returns the payout per hand index plus the winning indexes per pot.
// Tied best hands split equally; odd chips from the split go one each to
// winners in clockwise seat order starting from the first seat after the
// button, so distribution is deterministic under replay. The sum of all
// payouts always equals the sum of the pot amounts.
func AwardPots(pots []Pot, players []*Player, board poker.Hand, button int) (map[int]int, [][]int, error) {
	payouts := make(map[int]int)
	winnersPerPot := make([][]int, len(pots))

	for pi, pot := range pots {
		var contenders []int
		for _, idx := range pot.Eligible {
			if !players[idx].Folded {
				contenders = append(contenders, idx)
			}
		}
		if len(contenders) == 0 {
			return nil, nil, fmt.Errorf("pot %d of %d has no contenders", pi, pot.Amount)
		}

		winners := contenders
		if len(contenders) > 1 {
			best := poker.HandRank(0)
			winners = nil
			for _, idx := range contenders {
				hr, err := poker.Evaluate(players[idx].HoleCards | board)
				if err != nil {
					return nil, nil, fmt.Errorf("evaluating seat %d: %w", players[idx].Seat, err)
				}
				switch poker.Compare(hr, best) {
				case 1:
					best = hr
					winners = []int{idx}
				case 0:
					winners = append(winners, idx)
				}
			}
		}

		n := len(players)
		sort.Slice(winners, func(i, j int) bool {
			return (winners[i]-button-1+2*n)%n < (winners[j]-button-1+2*n)%n
		})

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for i, idx := range winners {
			payouts[idx] += share
			if i < remainder {
				payouts[idx]++
			}
		}
		winnersPerPot[pi] = winners
	}
	return payouts, winnersPerPot, nil
}
