package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireReject(t *testing.T, err error, code RejectCode) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, code, verr.Code)
	return verr
}

func TestLegalActionsFacingBet(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c")

	legal := h.LegalActions()

	_, ok := findLegal(legal, Fold)
	assert.True(t, ok)
	_, ok = findLegal(legal, Check)
	assert.False(t, ok, "no checking behind the blind")
	_, ok = findLegal(legal, Bet)
	assert.False(t, ok, "the blind counts as a standing bet")

	call, ok := findLegal(legal, Call)
	require.True(t, ok)
	assert.Equal(t, 100, call.Min)

	raise, ok := findLegal(legal, Raise)
	require.True(t, ok)
	assert.Equal(t, 200, raise.Min, "min raise is one big blind over the bet")
	assert.Equal(t, 1000, raise.Max)

	allIn, ok := findLegal(legal, AllIn)
	require.True(t, ok)
	assert.Equal(t, 1000, allIn.Min)
}

func TestLegalActionsUnopenedStreet(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000}, 0, level50100,
		"Kd As Qd Ah 2c 7h 9s 4d Js")
	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.Apply(1, Action{Kind: Check}))
	require.Equal(t, PhaseFlop, h.Phase())

	legal := h.LegalActions()
	_, ok := findLegal(legal, Check)
	assert.True(t, ok)
	_, ok = findLegal(legal, Call)
	assert.False(t, ok)

	bet, ok := findLegal(legal, Bet)
	require.True(t, ok)
	assert.Equal(t, 100, bet.Min, "min bet is one big blind")
	assert.Equal(t, 900, bet.Max)
}

func TestApplyRejections(t *testing.T) {
	h, players := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c")
	before := players[0].Chips

	requireReject(t, h.Apply(1, Action{Kind: Call}), RejectOutOfTurn)
	requireReject(t, h.Apply(0, Action{Kind: Check}), RejectIllegalKind)
	requireReject(t, h.Apply(0, Action{Kind: Raise, Amount: 150}), RejectBelowMinimum)
	requireReject(t, h.Apply(0, Action{Kind: Raise, Amount: 1500}), RejectOverStack)

	// Rejections leave the hand untouched.
	assert.Equal(t, 0, h.ActiveIndex())
	assert.Equal(t, before, players[0].Chips)
	assert.Equal(t, PhasePreflop, h.Phase())
}

func TestApplyAfterSettlementRejected(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000}, 0, level50100,
		"Kd As Qd Ah 2c 7h 9s 4d Js")
	require.NoError(t, h.Apply(0, Action{Kind: Fold}))
	require.True(t, h.Settled())

	requireReject(t, h.Apply(1, Action{Kind: Check}), RejectRoundClosed)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000, 400}, 0, level50100,
		"2c 3c 4c 5c 6c 7c 8c 9c Tc Jc Qc")

	require.NoError(t, h.Apply(0, Action{Kind: Call}))
	require.NoError(t, h.Apply(1, Action{Kind: Raise, Amount: 300}))
	// The big blind shoves 400: only 100 more, short of the 200 minimum.
	require.NoError(t, h.Apply(2, Action{Kind: AllIn}))

	// The caller in seat 0 never acted on the full raise to 300, so the
	// short shove leaves its raise rights intact.
	require.Equal(t, 0, h.ActiveIndex())
	legal := h.LegalActions()
	raise, ok := findLegal(legal, Raise)
	require.True(t, ok)
	assert.Equal(t, 600, raise.Min, "min raise tracks the last full increment")
	call, ok := findLegal(legal, Call)
	require.True(t, ok)
	assert.Equal(t, 300, call.Min, "100 already in, 400 to match")
	require.NoError(t, h.Apply(0, Action{Kind: Call}))

	// The raiser already acted: the short all-in does not reopen betting
	// for them, though calling the extra 100 and going all in remain open.
	require.Equal(t, 1, h.ActiveIndex())
	legal = h.LegalActions()
	_, ok = findLegal(legal, Raise)
	assert.False(t, ok, "short all-in does not reopen betting")
	_, ok = findLegal(legal, AllIn)
	assert.True(t, ok)
	requireReject(t, h.Apply(1, Action{Kind: Raise, Amount: 600}), RejectIllegalKind)
	require.NoError(t, h.Apply(1, Action{Kind: Call}))

	assert.Equal(t, PhaseFlop, h.Phase())
}

func TestFullRaiseReopensBetting(t *testing.T) {
	h, _ := dealHand(t, []int{1000, 1000, 1000}, 0, level50100,
		"2c 3c 4c 5c 6c 7c 8c 9c Tc Jc Qc")

	require.NoError(t, h.Apply(0, Action{Kind: Raise, Amount: 300}))
	require.NoError(t, h.Apply(1, Action{Kind: Raise, Amount: 500}))
	require.NoError(t, h.Apply(2, Action{Kind: Fold}))

	// A full raise restores the first raiser's right to re-raise.
	require.Equal(t, 0, h.ActiveIndex())
	raise, ok := findLegal(h.LegalActions(), Raise)
	require.True(t, ok)
	assert.Equal(t, 700, raise.Min, "last full increment was 200")
}

func TestApplyDefaultChecksWhenLegal(t *testing.T) {
	h, players := dealHand(t, []int{1000, 1000}, 0, level50100,
		"Kd As Qd Ah 2c 7h 9s 4d Js")
	require.NoError(t, h.Apply(0, Action{Kind: Call}))

	// Big blind facing no raise: the default is a check, not a fold.
	require.NoError(t, h.ApplyDefault(1))
	assert.Equal(t, PhaseFlop, h.Phase())
	assert.False(t, players[1].Folded)

	// Facing a bet, the default folds.
	require.NoError(t, h.Apply(1, Action{Kind: Bet, Amount: 200}))
	require.NoError(t, h.ApplyDefault(0))
	assert.True(t, players[0].Folded)
	assert.True(t, h.Settled())
}

func TestParseActionKind(t *testing.T) {
	for _, kind := range []ActionKind{Fold, Check, Call, Bet, Raise, AllIn} {
		parsed, ok := ParseActionKind(kind.String())
		require.True(t, ok)
		assert.Equal(t, kind, parsed)
	}
	_, ok := ParseActionKind("shove")
	assert.False(t, ok)
}
