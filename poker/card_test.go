package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	t.Parallel()

	c, err := ParseCard("As")
	require.NoError(t, err)
	assert.Equal(t, Ace, c.Rank())
	assert.Equal(t, Spades, c.Suit())
	assert.Equal(t, "As", c.String())

	c, err = ParseCard("td")
	require.NoError(t, err)
	assert.Equal(t, Ten, c.Rank())
	assert.Equal(t, Diamonds, c.Suit())
	assert.Equal(t, "Td", c.String())

	for _, bad := range []string{"", "A", "Asx", "Xs", "Az", "1s"} {
		_, err := ParseCard(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestParseCards(t *testing.T) {
	t.Parallel()

	cards, err := ParseCards("As Kh 2c")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "As", cards[0].String())
	assert.Equal(t, "Kh", cards[1].String())
	assert.Equal(t, "2c", cards[2].String())

	cards, err = ParseCards("QdJd")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	_, err = ParseCards("AsK")
	assert.Error(t, err)
}

func TestHandBitset(t *testing.T) {
	t.Parallel()

	h := NewHand(MustParseCards("AsAhKd")...)
	assert.Equal(t, 3, h.Count())
	assert.True(t, h.Contains(MakeCard(Ace, Spades)))
	assert.False(t, h.Contains(MakeCard(Ace, Clubs)))

	h = h.Add(MakeCard(Ace, Clubs))
	assert.Equal(t, 4, h.Count())

	// Adding an existing card is a no-op.
	h = h.Add(MakeCard(Ace, Clubs))
	assert.Equal(t, 4, h.Count())
}

func TestHandMasks(t *testing.T) {
	t.Parallel()

	h := NewHand(MustParseCards("2s3s4sAh")...)
	assert.Equal(t, uint16(0b111), h.SuitMask(Spades))
	assert.Equal(t, uint16(1<<Ace), h.SuitMask(Hearts))
	assert.Equal(t, uint16(0b111|1<<Ace), h.RankMask())
}

func TestAllCardsDistinct(t *testing.T) {
	t.Parallel()

	seen := make(map[Card]bool)
	var h Hand
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			c := MakeCard(r, s)
			assert.False(t, seen[c])
			seen[c] = true
			h = h.Add(c)
		}
	}
	assert.Equal(t, 52, h.Count())
}
