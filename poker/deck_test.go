package poker

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckDealsAllCardsOnce(t *testing.T) {
	t.Parallel()

	d := NewDeck(rand.New(rand.NewPCG(1, 2)))
	seen := make(map[Card]bool)
	for i := 0; i < 52; i++ {
		c := d.DealOne()
		require.NotZero(t, c)
		require.False(t, seen[c], "card %s dealt twice", c)
		seen[c] = true
	}
	assert.Zero(t, d.DealOne())
	assert.Equal(t, 0, d.Remaining())
}

func TestDeckDeterministicUnderSeed(t *testing.T) {
	t.Parallel()

	a := NewDeck(rand.New(rand.NewPCG(7, 7)))
	b := NewDeck(rand.New(rand.NewPCG(7, 7)))
	for i := 0; i < 52; i++ {
		assert.Equal(t, a.DealOne(), b.DealOne())
	}
}

func TestDeckDealShortCircuit(t *testing.T) {
	t.Parallel()

	d := NewDeck(rand.New(rand.NewPCG(3, 4)))
	got := d.Deal(50)
	require.Len(t, got, 50)
	assert.Nil(t, d.Deal(3))
	assert.Equal(t, 2, d.Remaining())
}

func TestDeckReset(t *testing.T) {
	t.Parallel()

	d := NewDeck(rand.New(rand.NewPCG(9, 9)))
	d.Deal(20)
	d.Reset()
	assert.Equal(t, 52, d.Remaining())
}
