package game

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// promptRecorder delivers every action request to a channel so the test
// drives the table explicitly.
type promptRecorder struct {
	prompts chan ActionRequest
}

func newPromptRecorder() *promptRecorder {
	return &promptRecorder{prompts: make(chan ActionRequest, 16)}
}

func (r *promptRecorder) PromptAction(req ActionRequest) {
	r.prompts <- req
}

// autoResponder answers every prompt from its own goroutine, check when
// legal and otherwise call.
type autoResponder struct {
	table *Table
}

func (a *autoResponder) PromptAction(req ActionRequest) {
	action := Action{Kind: Call}
	if _, ok := findLegal(req.Legal, Check); ok {
		action.Kind = Check
	}
	go a.table.SubmitAction(req.PlayerID, req.Seq, action)
}

// countingHost plays a fixed number of hands and records the results.
type countingHost struct {
	maxHands int
	results  []*Result
}

func (h *countingHost) BetweenHands(ctx context.Context, t *Table) bool {
	return len(h.results) < h.maxHands
}

func (h *countingHost) HandFinished(t *Table, res *Result) {
	h.results = append(h.results, res)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestTableSeating(t *testing.T) {
	table := NewTable(TableConfig{ID: "t1", Capacity: 2, Logger: quietLogger()})

	a, b, c := &Player{ID: "a", Chips: 100}, &Player{ID: "b", Chips: 100}, &Player{ID: "c", Chips: 100}
	require.NoError(t, table.SeatPlayer(a, nil))
	require.NoError(t, table.SeatPlayer(b, nil))
	assert.Equal(t, 0, a.Seat)
	assert.Equal(t, 1, b.Seat)
	assert.ErrorIs(t, table.SeatPlayer(c, nil), ErrTableFull)

	removed, err := table.RemovePlayer("a")
	require.NoError(t, err)
	assert.Same(t, a, removed)
	assert.Equal(t, 1, table.PlayerCount())

	require.NoError(t, table.SeatPlayer(c, nil))
	assert.Equal(t, 0, c.Seat, "lowest free seat is reused")

	_, err = table.RemovePlayer("nobody")
	assert.ErrorIs(t, err, ErrNoSeat)
}

func TestTableSnapshotIdle(t *testing.T) {
	table := NewTable(TableConfig{ID: "t1", Capacity: 3, Level: level50100, Logger: quietLogger()})
	require.NoError(t, table.SeatPlayer(&Player{ID: "a", Name: "alice", Chips: 500}, nil))

	st := table.Snapshot()
	assert.Equal(t, "idle", st.Phase)
	assert.Equal(t, -1, st.ToAct)
	require.Len(t, st.Seats, 3)
	assert.Equal(t, "a", st.Seats[0].PlayerID)
	assert.Equal(t, 500, st.Seats[0].Chips)
	assert.True(t, st.Seats[1].Empty)
	assert.Equal(t, 100, st.Level.Big)
}

func TestTableSubmitWithoutPrompt(t *testing.T) {
	table := NewTable(TableConfig{ID: "t1", Capacity: 2, Logger: quietLogger()})
	require.NoError(t, table.SeatPlayer(&Player{ID: "a", Chips: 100}, nil))

	requireReject(t, table.SubmitAction("a", 1, Action{Kind: Check}), RejectOutOfTurn)
}

func TestTableRunsHandsAndRotatesButton(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := &countingHost{maxHands: 3}
	var buttons []int
	sink := EventSinkFunc(func(ev Event) {
		if ev.Kind == EventHandStarted {
			buttons = append(buttons, ev.Button)
		}
	})
	table := NewTable(TableConfig{
		ID: "t1", Capacity: 6, Level: level50100,
		ActionTimeout: 5 * time.Second,
		Logger:        quietLogger(), Events: sink, Host: host,
	})
	responder := &autoResponder{table: table}
	players := testPlayers(1000, 1000, 1000)
	for _, p := range players {
		require.NoError(t, table.SeatPlayer(p, responder))
	}

	require.NoError(t, table.Run(ctx))

	require.Len(t, host.results, 3)
	assert.Equal(t, []int{0, 1, 2}, buttons, "button rotates every hand")
	for _, res := range host.results {
		assert.False(t, res.Aborted)
		assert.NotEmpty(t, res.Payouts)
	}
	assert.Equal(t, 3000, chipSum(players))
}

func TestTableTimeoutsSitPlayerOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	mockClock := quartz.NewMock(t)

	host := &countingHost{maxHands: 2}
	table := NewTable(TableConfig{
		ID: "t1", Capacity: 2, Level: level50100,
		ActionTimeout: time.Second, SitOutAfter: 2,
		Clock: mockClock, Logger: quietLogger(), Host: host,
	})

	silent := newPromptRecorder()
	players := testPlayers(1000, 1000)
	require.NoError(t, table.SeatPlayer(players[0], silent))
	require.NoError(t, table.SeatPlayer(players[1], silent))

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			assert.True(t, players[0].SittingOut, "two consecutive timeouts sit the player out")
			assert.Equal(t, 2, players[0].Timeouts)
			assert.Zero(t, players[1].Timeouts, "responding resets nothing for the live player")
			require.Len(t, host.results, 2)
			assert.Equal(t, 2000, chipSum(players))
			return

		case req := <-silent.prompts:
			if req.PlayerID == "p1" {
				action := Action{Kind: Call}
				if _, ok := findLegal(req.Legal, Check); ok {
					action.Kind = Check
				}
				require.NoError(t, table.SubmitAction("p1", req.Seq, action))
				continue
			}
			// Let the table's deadline timer arm, then expire it.
			time.Sleep(50 * time.Millisecond)
			mockClock.Advance(req.Timeout).MustWait(ctx)

		case <-ctx.Done():
			t.Fatal("table did not finish")
		}
	}
}

func TestTableLateSubmissionRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	mockClock := quartz.NewMock(t)

	host := &countingHost{maxHands: 1}
	table := NewTable(TableConfig{
		ID: "t1", Capacity: 2, Level: level50100,
		ActionTimeout: time.Second,
		Clock:         mockClock, Logger: quietLogger(), Host: host,
	})
	silent := newPromptRecorder()
	players := testPlayers(1000, 1000)
	require.NoError(t, table.SeatPlayer(players[0], silent))
	require.NoError(t, table.SeatPlayer(players[1], silent))

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	req := <-silent.prompts
	time.Sleep(50 * time.Millisecond)
	mockClock.Advance(req.Timeout).MustWait(ctx)

	require.NoError(t, <-done)

	// The window closed with the substituted default: the straggler's
	// response must not apply.
	requireReject(t, table.SubmitAction(req.PlayerID, req.Seq, Action{Kind: Call}), RejectOutOfTurn)
	assert.True(t, host.results[0].FoldWin)
}

func TestTableStaleSequenceRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	host := &countingHost{maxHands: 1}
	table := NewTable(TableConfig{
		ID: "t1", Capacity: 2, Level: level50100,
		ActionTimeout: 5 * time.Second,
		Logger:        quietLogger(), Host: host,
	})
	silent := newPromptRecorder()
	players := testPlayers(1000, 1000)
	require.NoError(t, table.SeatPlayer(players[0], silent))
	require.NoError(t, table.SeatPlayer(players[1], silent))

	done := make(chan error, 1)
	go func() { done <- table.Run(ctx) }()

	firstSeq := make(map[string]int)
	for {
		select {
		case req := <-silent.prompts:
			if seq, ok := firstSeq[req.PlayerID]; ok && seq != req.Seq {
				// A retransmitted frame answering the player's earlier
				// request must not land in this window.
				requireReject(t, table.SubmitAction(req.PlayerID, seq, Action{Kind: Call}), RejectOutOfTurn)
			} else {
				firstSeq[req.PlayerID] = req.Seq
			}
			action := Action{Kind: Call}
			if _, ok := findLegal(req.Legal, Check); ok {
				action.Kind = Check
			}
			require.NoError(t, table.SubmitAction(req.PlayerID, req.Seq, action))

		case err := <-done:
			require.NoError(t, err)
			require.Len(t, host.results, 1)
			assert.False(t, host.results[0].FoldWin, "the hand checks down to showdown")
			assert.Equal(t, 2000, chipSum(players))
			return

		case <-ctx.Done():
			t.Fatal("table did not finish")
		}
	}
}

func TestTableReconnectClearsSitOut(t *testing.T) {
	table := NewTable(TableConfig{ID: "t1", Capacity: 2, Logger: quietLogger()})
	p := &Player{ID: "a", Chips: 100, SittingOut: true, Timeouts: 3}
	require.NoError(t, table.SeatPlayer(p, nil))

	require.NoError(t, table.SetPrompter("a", newPromptRecorder()))
	assert.False(t, p.SittingOut)
	assert.Zero(t, p.Timeouts)

	require.NoError(t, table.SetSittingOut("a", true))
	assert.True(t, p.SittingOut)
	assert.ErrorIs(t, table.SetPrompter("ghost", nil), ErrNoSeat)
}
