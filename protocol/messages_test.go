package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeActionResponse, ActionResponse{
		TableID: "table-1",
		HandID:  "h1",
		Seq:     7,
		Kind:    "raise",
		Amount:  300,
	})
	require.NoError(t, err)
	assert.False(t, msg.Timestamp.IsZero())

	frame, err := json.Marshal(msg)
	require.NoError(t, err)

	parsed, err := Parse(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeActionResponse, parsed.Type)

	var resp ActionResponse
	require.NoError(t, parsed.Decode(&resp))
	assert.Equal(t, "raise", resp.Kind)
	assert.Equal(t, 300, resp.Amount)
	assert.Equal(t, 7, resp.Seq)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"data":{}}`))
	assert.Error(t, err, "missing type is rejected")
}

func TestActionRequestOmitsPrivateFieldsFromState(t *testing.T) {
	req := ActionRequest{
		TableID:   "table-1",
		HoleCards: []string{"As", "Kd"},
		LegalActions: []LegalAction{
			{Kind: "fold"},
			{Kind: "call", Min: 100, Max: 100},
		},
		State: TableState{
			TableID: "table-1",
			Phase:   "preflop",
			Seats:   []SeatState{{Seat: 0, PlayerID: "p0", Chips: 900, Bet: 100}},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	state := decoded["state"].(map[string]any)
	_, hasHole := state["holeCards"]
	assert.False(t, hasHole, "table state never carries hole cards")
}

func TestHandResultSeatKeys(t *testing.T) {
	res := HandResult{
		TableID: "table-1",
		HandID:  "h9",
		Payouts: map[int]int{2: 600},
		Revealed: map[int][]string{
			2: {"Ah", "Ad"},
		},
	}
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var back HandResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, 600, back.Payouts[2])
	assert.Equal(t, []string{"Ah", "Ad"}, back.Revealed[2])
}
