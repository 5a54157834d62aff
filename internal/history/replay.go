package history

import (
	"fmt"
	"sort"
)

// Replay recomputes each seat's final stack from the record's starting
// stacks and action list: every post and bet debits the actor, the
// uncalled refund and the payouts credit them. The result is what the
// recorded hand claims to have happened, derived independently of the
// engine's own settlement.
func Replay(rec *HandRecord) (map[int]int, error) {
	stacks := make(map[int]int, len(rec.Seats))
	for _, s := range rec.Seats {
		stacks[s.Seat] = s.StartingStack
	}

	for _, a := range rec.Actions {
		if a.Amount == 0 {
			continue
		}
		if _, ok := stacks[a.Seat]; !ok {
			return nil, fmt.Errorf("hand %s: action %d references unknown seat %d", rec.HandID, a.Seq, a.Seat)
		}
		switch a.Kind {
		case "uncalled_return":
			stacks[a.Seat] += a.Amount
		default:
			stacks[a.Seat] -= a.Amount
			if stacks[a.Seat] < 0 {
				return nil, fmt.Errorf("hand %s: seat %d overspends at action %d (%s %d)",
					rec.HandID, a.Seat, a.Seq, a.Kind, a.Amount)
			}
		}
	}

	for seat, amount := range rec.Payouts {
		if _, ok := stacks[seat]; !ok {
			return nil, fmt.Errorf("hand %s: payout to unknown seat %d", rec.HandID, seat)
		}
		stacks[seat] += amount
	}
	return stacks, nil
}

// Verify replays the record and compares against the recorded final
// stacks and total chip count.
func Verify(rec *HandRecord) error {
	if rec.Aborted {
		return nil
	}
	replayed, err := Replay(rec)
	if err != nil {
		return err
	}

	startTotal, finalTotal := 0, 0
	for _, s := range rec.Seats {
		startTotal += s.StartingStack
	}
	for _, chips := range rec.FinalStacks {
		finalTotal += chips
	}
	if startTotal != finalTotal {
		return fmt.Errorf("hand %s: recorded stacks hold %d chips, started with %d",
			rec.HandID, finalTotal, startTotal)
	}

	seats := make([]int, 0, len(replayed))
	for seat := range replayed {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		recorded, ok := rec.FinalStacks[seat]
		if !ok {
			return fmt.Errorf("hand %s: no recorded final stack for seat %d", rec.HandID, seat)
		}
		if recorded != replayed[seat] {
			return fmt.Errorf("hand %s: seat %d replays to %d chips, record says %d",
				rec.HandID, seat, replayed[seat], recorded)
		}
	}
	return nil
}
