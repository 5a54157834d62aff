package tourney

import "sort"

// Move relocates Count players from one table to another.
type Move struct {
	From  string
	To    string
	Count int
}

// planMoves computes the table moves that rebalance populations. Tables
// whose players all fit in the other tables' free seats are broken,
// smallest first; the survivors are then evened out until the spread
// between the fullest and emptiest table is within the threshold. The
// plan is deterministic: ties break on table ID. Only the moves leaving
// a table that is between hands are safe to execute, so callers filter
// by From.
func planMoves(counts map[string]int, capacity, spread int) []Move {
	if len(counts) < 2 {
		return nil
	}
	if spread < 1 {
		spread = 1
	}
	pop := make(map[string]int, len(counts))
	ids := make([]string, 0, len(counts))
	for id, n := range counts {
		pop[id] = n
		ids = append(ids, id)
	}
	sort.Strings(ids)

	moved := make(map[[2]string]int)
	transfer := func(from, to string) {
		pop[from]--
		pop[to]++
		moved[[2]string{from, to}]++
	}

	// Break tables while some table's players fit elsewhere.
	for len(ids) > 1 {
		from, ok := breakCandidate(ids, pop, capacity)
		if !ok {
			break
		}
		for pop[from] > 0 {
			transfer(from, emptiest(ids, pop, from))
		}
		ids = remove(ids, from)
	}

	// Even out the survivors.
	for {
		lo, hi := emptiest(ids, pop, ""), fullest(ids, pop)
		if pop[hi]-pop[lo] <= spread {
			break
		}
		transfer(hi, lo)
	}

	var moves []Move
	for _, from := range sortedKeys(moved) {
		moves = append(moves, Move{From: from[0], To: from[1], Count: moved[from]})
	}
	return moves
}

// breakCandidate returns the least-populated table whose players all fit
// in the remaining tables' free seats.
func breakCandidate(ids []string, pop map[string]int, capacity int) (string, bool) {
	from, ok := "", false
	for _, id := range ids {
		if !ok || pop[id] < pop[from] {
			from, ok = id, true
		}
	}
	if !ok {
		return "", false
	}
	free := 0
	for _, id := range ids {
		if id != from {
			free += capacity - pop[id]
		}
	}
	return from, pop[from] <= free
}

func emptiest(ids []string, pop map[string]int, skip string) string {
	best := ""
	for _, id := range ids {
		if id == skip {
			continue
		}
		if best == "" || pop[id] < pop[best] {
			best = id
		}
	}
	return best
}

func fullest(ids []string, pop map[string]int) string {
	best := ""
	for _, id := range ids {
		if best == "" || pop[id] > pop[best] {
			best = id
		}
	}
	return best
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[[2]string]int) [][2]string {
	keys := make([][2]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}
