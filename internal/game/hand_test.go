package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltworks/tourneyd/poker"
)

func testPlayers(stacks ...int) []*Player {
	players := make([]*Player, len(stacks))
	for i, chips := range stacks {
		players[i] = &Player{
			ID:    fmt.Sprintf("p%d", i),
			Name:  fmt.Sprintf("player-%d", i),
			Seat:  i,
			Chips: chips,
		}
	}
	return players
}

// dealHand starts a hand from a stacked deck. Cards are dealt one at a
// time starting left of the button, so for three players on the button
// at seat 0 the first six cards land p1 p2 p0 p1 p2 p0, then the board.
func dealHand(t *testing.T, stacks []int, button int, level BlindLevel, cards string) (*Hand, []*Player) {
	t.Helper()
	players := testPlayers(stacks...)
	deck := poker.NewStackedDeck(poker.MustParseCards(cards)...)
	h, err := NewHand(HandConfig{
		ID:      "hand-1",
		TableID: "table-1",
		Players: players,
		Button:  button,
		Level:   level,
		Deck:    deck,
	})
	require.NoError(t, err)
	return h, players
}

func chipSum(players []*Player) int {
	sum := 0
	for _, p := range players {
		sum += p.Chips
	}
	return sum
}

var level50100 = BlindLevel{Small: 50, Big: 100}

func TestHandFoldToOne(t *testing.T) {
	h, players := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c")

	// Button seat 0, blinds 1 and 2: first to act is seat 0.
	require.Equal(t, 0, h.ActiveIndex())
	require.NoError(t, h.Apply(0, Action{Kind: Fold}))
	require.NoError(t, h.Apply(1, Action{Kind: Fold}))

	require.True(t, h.Settled())
	res := h.Result()
	require.NotNil(t, res)
	assert.True(t, res.FoldWin)
	assert.Empty(t, res.Revealed, "fold wins reveal nothing")
	assert.Equal(t, map[int]int{2: 100}, res.Payouts)

	// Big blind keeps the blinds, uncalled raise portion refunded.
	assert.Equal(t, 1000, players[0].Chips)
	assert.Equal(t, 950, players[1].Chips)
	assert.Equal(t, 1050, players[2].Chips)
	assert.Equal(t, 3000, chipSum(players))
}

func TestHandCheckedDownToShowdown(t *testing.T) {
	// Heads-up: button posts the small blind and acts first preflop.
	h, players := dealHand(t, []int{1000, 1000}, 0, level50100,
		"Kd As Qd Ah 2c 7h 9s 4d Js")

	require.Equal(t, PhasePreflop, h.Phase())
	require.Equal(t, 0, h.ActiveIndex())
	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.Apply(1, Action{Kind: Check}))

	for _, phase := range []Phase{PhaseFlop, PhaseTurn, PhaseRiver} {
		require.Equal(t, phase, h.Phase())
		require.Equal(t, 1, h.ActiveIndex(), "big blind acts first postflop")
		require.NoError(t, h.Apply(1, Action{Kind: Check}))
		require.NoError(t, h.Apply(0, Action{Kind: Check}))
	}

	require.True(t, h.Settled())
	res := h.Result()
	assert.False(t, res.FoldWin)
	assert.Len(t, res.Board, 5)
	assert.Equal(t, map[int]int{0: 200}, res.Payouts, "pair of aces beats king high")
	assert.Len(t, res.Revealed, 2)
	assert.Equal(t, 1100, players[0].Chips)
	assert.Equal(t, 900, players[1].Chips)
}

func TestHandAllInRunout(t *testing.T) {
	h, players := dealHand(t, []int{500, 500}, 0, level50100,
		"Ks Ac Kh Ad 2c 7h 9s 4d Jc")

	require.NoError(t, h.Apply(0, Action{Kind: AllIn}))
	require.NoError(t, h.Apply(1, Action{Kind: Call}))

	// Both players are all in: the board runs out with no further prompts.
	require.True(t, h.Settled())
	res := h.Result()
	assert.False(t, res.FoldWin)
	assert.Len(t, res.Board, 5)
	assert.Equal(t, 1000, players[0].Chips)
	assert.Zero(t, players[1].Chips)
}

func TestHandBigBlindOption(t *testing.T) {
	h, players := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c 8c 9c Tc Jc Qc")

	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.Apply(1, Action{Kind: Call}))

	// Everyone limped: the big blind still gets the option.
	require.Equal(t, PhasePreflop, h.Phase())
	require.Equal(t, 2, h.ActiveIndex())
	legal := h.LegalActions()
	_, hasCheck := findLegal(legal, Check)
	_, hasRaise := findLegal(legal, Raise)
	assert.True(t, hasCheck)
	assert.True(t, hasRaise)

	require.NoError(t, h.Apply(2, Action{Kind: Raise, Amount: 300}))
	require.Equal(t, 0, h.ActiveIndex(), "raise reopens the round")
	require.NoError(t, h.Apply(0, Action{Kind: Fold}))
	require.NoError(t, h.Apply(1, Action{Kind: Fold}))

	require.True(t, h.Settled())
	assert.Equal(t, 1200, players[2].Chips)
	assert.Equal(t, 3000, chipSum(players))
}

func TestHandBigBlindCheckClosesPreflop(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c 8c 9c Tc Jc Qc")

	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.Apply(1, Action{Kind: Call}))
	require.NoError(t, h.Apply(2, Action{Kind: Check}))
	assert.Equal(t, PhaseFlop, h.Phase())
}

func TestHandBlindAllInForLess(t *testing.T) {
	// The short button cannot cover the small blind; posting leaves no
	// betting decision and the hand runs out immediately.
	h, players := dealHand(t, []int{30, 1000}, 0, level50100,
		"As Kd Ah Qd 2c 7h 9s 4d Js")

	require.True(t, h.Settled())
	res := h.Result()
	assert.False(t, res.FoldWin)
	assert.Equal(t, map[int]int{1: 60}, res.Payouts, "ace high wins the 30+30 pot")
	assert.Zero(t, players[0].Chips)
	assert.Equal(t, 1030, players[1].Chips)
}

func TestHandAntes(t *testing.T) {
	level := BlindLevel{Small: 50, Big: 100, Ante: 10}
	h, players := dealHand(t, []int{1000, 1000, 1000}, 0, level,
		"2c 3c 4c 5c 6c 7c")

	// Antes are whole-hand commitments, not street bets.
	assert.Equal(t, 10, players[0].TotalBet)
	assert.Zero(t, players[0].Bet)
	assert.Equal(t, 110, players[2].TotalBet)
	assert.Equal(t, 100, players[2].Bet)

	require.NoError(t, h.Apply(0, Action{Kind: Fold}))
	require.NoError(t, h.Apply(1, Action{Kind: Fold}))

	require.True(t, h.Settled())
	assert.Equal(t, map[int]int{2: 130}, h.Result().Payouts)
	assert.Equal(t, 3000, chipSum(players))
}

func TestHandMultiwayAllInSidePots(t *testing.T) {
	// Short stack wins the main pot, middle stack the side pot.
	h, players := dealHand(t, []int{100, 300, 300}, 0, level50100,
		"Qs Ah Kd Qc 3h Kc Ks Qd 8c 8d 2s")

	// p0 holds KdKc, p1 QsQc, p2 Ah3h on a Ks Qd 8c 8d 2s board.
	require.NoError(t, h.Apply(0, Action{Kind: AllIn}))
	require.NoError(t, h.Apply(1, Action{Kind: AllIn}))
	require.NoError(t, h.Apply(2, Action{Kind: Call}))

	require.True(t, h.Settled())
	res := h.Result()
	require.Len(t, res.Pots, 2)
	assert.Equal(t, 300, res.Pots[0].Amount)
	assert.Equal(t, []int{0}, res.Pots[0].Winners, "kings full takes the main pot")
	assert.Equal(t, 400, res.Pots[1].Amount)
	assert.Equal(t, []int{1}, res.Pots[1].Winners, "queens full takes the side pot")
	assert.Equal(t, 300, players[0].Chips)
	assert.Equal(t, 400, players[1].Chips)
	assert.Zero(t, players[2].Chips)
	assert.Equal(t, 700, chipSum(players))
}

func TestHandEventSequence(t *testing.T) {
	var kinds []EventKind
	var autoCount int
	sink := EventSinkFunc(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		if ev.Auto {
			autoCount++
		}
	})

	players := testPlayers(1000, 1000)
	deck := poker.NewStackedDeck(poker.MustParseCards("Kd As Qd Ah 2c 7h 9s 4d Js")...)
	h, err := NewHand(HandConfig{
		ID: "hand-ev", TableID: "table-1",
		Players: players, Button: 0, Level: level50100,
		Deck: deck, Events: sink,
	})
	require.NoError(t, err)

	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.ApplyDefault(1)) // substituted check

	assert.Equal(t, EventHandStarted, kinds[0])
	assert.Equal(t, EventHoleCards, kinds[1])
	assert.Equal(t, EventHoleCards, kinds[2])
	assert.Contains(t, kinds, EventCardsDealt)
	assert.Equal(t, 1, autoCount)
}

func TestNewHandRejectsBadConfig(t *testing.T) {
	_, err := NewHand(HandConfig{Players: testPlayers(1000), Level: level50100})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	players := testPlayers(1000, 0)
	_, err = NewHand(HandConfig{Players: players, Level: level50100})
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = NewHand(HandConfig{Players: testPlayers(1000, 1000), Button: 5, Level: level50100})
	assert.Error(t, err)
}
