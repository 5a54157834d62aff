package tourney

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanMovesBalanced(t *testing.T) {
	moves := planMoves(map[string]int{"t1": 5, "t2": 5, "t3": 4}, 9, 1)
	assert.Empty(t, moves, "spread of one needs no moves")
}

func TestPlanMovesEvensOut(t *testing.T) {
	moves := planMoves(map[string]int{"t1": 2, "t2": 9}, 9, 1)
	assert.Equal(t, []Move{{From: "t2", To: "t1", Count: 3}}, moves)
}

func TestPlanMovesWiderSpread(t *testing.T) {
	counts := map[string]int{"t1": 5, "t2": 7}
	assert.Empty(t, planMoves(counts, 9, 2), "deviation of two is tolerated")
	assert.Equal(t, []Move{{From: "t2", To: "t1", Count: 1}}, planMoves(counts, 9, 1))
}

func TestPlanMovesBreaksTable(t *testing.T) {
	// Three players fit in the other tables' free seats: the smallest
	// table breaks and its players top up the emptier survivors.
	moves := planMoves(map[string]int{"t1": 7, "t2": 6, "t3": 3}, 9, 1)

	total := 0
	for _, m := range moves {
		assert.Equal(t, "t3", m.From, "only the smallest table breaks")
		total += m.Count
	}
	assert.Equal(t, 3, total, "every player leaves the broken table")
}

func TestPlanMovesFormsFinalTable(t *testing.T) {
	moves := planMoves(map[string]int{"t1": 3, "t2": 4}, 9, 1)
	assert.Equal(t, []Move{{From: "t1", To: "t2", Count: 3}}, moves)
}

func TestPlanMovesNoBreakWithoutRoom(t *testing.T) {
	moves := planMoves(map[string]int{"t1": 4, "t2": 9, "t3": 9}, 9, 1)
	// t1's four players do not fit in zero free seats; even out instead.
	for _, m := range moves {
		assert.NotEqual(t, "t1", m.From)
	}
	assert.NotEmpty(t, moves)
}

func TestPlanMovesSingleTable(t *testing.T) {
	assert.Empty(t, planMoves(map[string]int{"t1": 6}, 9, 1))
	assert.Empty(t, planMoves(nil, 9, 1))
}

func TestPlanMovesDeterministic(t *testing.T) {
	counts := map[string]int{"t1": 8, "t2": 3, "t3": 5, "t4": 2}
	first := planMoves(counts, 9, 1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, planMoves(counts, 9, 1))
	}
}

func TestPlanMovesCascadingBreaks(t *testing.T) {
	// Both small tables fit elsewhere once the first break lands.
	moves := planMoves(map[string]int{"t1": 9, "t2": 2, "t3": 2}, 9, 1)

	pop := map[string]int{"t1": 9, "t2": 2, "t3": 2}
	for _, m := range moves {
		pop[m.From] -= m.Count
		pop[m.To] += m.Count
	}
	live := 0
	for _, n := range pop {
		assert.LessOrEqual(t, n, 9)
		if n > 0 {
			live++
		}
	}
	assert.Equal(t, 13, pop["t1"]+pop["t2"]+pop["t3"])
	assert.LessOrEqual(t, live, 2)
}
