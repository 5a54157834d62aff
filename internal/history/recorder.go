package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/poker"
)

// Options configure a Recorder.
type Options struct {
	// Dir is the base directory; one JSONL file per table is written
	// under it.
	Dir string

	// FlushHands writes buffered records to disk once this many have
	// accumulated for a table. Zero means 10.
	FlushHands int

	// FlushInterval flushes all tables on a timer regardless of count.
	// Zero means one minute.
	FlushInterval time.Duration

	// IncludeHoleCards records every player's private cards. Off, the
	// history still carries boards, actions and outcomes.
	IncludeHoleCards bool

	Clock  quartz.Clock
	Logger *log.Logger
}

// Recorder assembles one HandRecord per hand from the game event stream
// and appends settled records to per-table JSONL files. Publish is
// called on table goroutines and never blocks on disk: writes happen on
// flush, triggered by count, timer or Close.
type Recorder struct {
	opts Options

	mu      sync.Mutex
	open    map[string]*HandRecord // keyed by hand ID
	pending map[string][]*HandRecord
	files   map[string]*os.File
}

// NewRecorder creates the base directory and the recorder.
func NewRecorder(opts Options) (*Recorder, error) {
	if opts.Dir == "" {
		opts.Dir = "hands"
	}
	if opts.FlushHands <= 0 {
		opts.FlushHands = 10
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	opts.Logger = opts.Logger.WithPrefix("history")

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	return &Recorder{
		opts:    opts,
		open:    make(map[string]*HandRecord),
		pending: make(map[string][]*HandRecord),
		files:   make(map[string]*os.File),
	}, nil
}

// Publish implements game.EventSink.
func (r *Recorder) Publish(ev game.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case game.EventHandStarted:
		rec := &HandRecord{
			HandID:    ev.HandID,
			TableID:   ev.TableID,
			StartedAt: ev.At,
			Button:    ev.Button,
		}
		if ev.Level != nil {
			rec.SmallBlind = ev.Level.Small
			rec.BigBlind = ev.Level.Big
			rec.Ante = ev.Level.Ante
		}
		for _, s := range ev.Seats {
			rec.Seats = append(rec.Seats, SeatRecord{
				Seat: s.Seat, PlayerID: s.PlayerID, Name: s.Name, StartingStack: s.Chips,
			})
		}
		r.open[ev.HandID] = rec

	case game.EventHoleCards:
		rec := r.open[ev.HandID]
		if rec == nil || !r.opts.IncludeHoleCards {
			return
		}
		for i := range rec.Seats {
			if rec.Seats[i].Seat == ev.Seat {
				rec.Seats[i].HoleCards = cardStrings(ev.Cards)
			}
		}

	case game.EventAction, game.EventUncalledReturn:
		rec := r.open[ev.HandID]
		if rec == nil {
			return
		}
		rec.Actions = append(rec.Actions, ActionRecord{
			Seq:      ev.Seq,
			At:       ev.At,
			Street:   ev.Phase.String(),
			Seat:     ev.Seat,
			PlayerID: ev.PlayerID,
			Kind:     ev.Action,
			Amount:   ev.Amount,
			Auto:     ev.Auto,
		})

	case game.EventCardsDealt:
		rec := r.open[ev.HandID]
		if rec == nil {
			return
		}
		rec.Board = append(rec.Board, cardStrings(ev.Cards)...)

	case game.EventHandSettled:
		rec := r.open[ev.HandID]
		if rec == nil || ev.Result == nil {
			return
		}
		delete(r.open, ev.HandID)
		r.finish(rec, ev.Result, ev.At)
	}
}

func (r *Recorder) finish(rec *HandRecord, res *game.Result, at time.Time) {
	rec.EndedAt = at
	rec.Board = cardStrings(res.Board)
	rec.Payouts = res.Payouts
	rec.FinalStacks = res.FinalStacks
	rec.FoldWin = res.FoldWin
	rec.Aborted = res.Aborted
	for _, p := range res.Pots {
		rec.Pots = append(rec.Pots, PotRecord{Amount: p.Amount, Eligible: p.Eligible, Winners: p.Winners})
	}

	r.pending[rec.TableID] = append(r.pending[rec.TableID], rec)
	if len(r.pending[rec.TableID]) >= r.opts.FlushHands {
		if err := r.flushTableLocked(rec.TableID); err != nil {
			r.opts.Logger.Error("flushing hand history", "table", rec.TableID, "err", err)
		}
	}
}

// Run flushes on the configured interval until the context ends, then
// performs a final flush.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := r.opts.Clock.TickerFunc(ctx, r.opts.FlushInterval, func() error {
		r.Flush()
		return nil
	}, "history flush")
	err := ticker.Wait()
	r.Flush()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Flush writes all buffered records to disk.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tableID := range r.pending {
		if err := r.flushTableLocked(tableID); err != nil {
			r.opts.Logger.Error("flushing hand history", "table", tableID, "err", err)
		}
	}
}

// Close flushes everything and closes the table files.
func (r *Recorder) Close() error {
	r.Flush()
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.files = make(map[string]*os.File)
	return firstErr
}

// Path returns the JSONL file for a table.
func (r *Recorder) Path(tableID string) string {
	return filepath.Join(r.opts.Dir, tableID+".jsonl")
}

func (r *Recorder) flushTableLocked(tableID string) error {
	records := r.pending[tableID]
	if len(records) == 0 {
		return nil
	}

	f, ok := r.files[tableID]
	if !ok {
		var err error
		f, err = os.OpenFile(r.Path(tableID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		r.files[tableID] = f
	}

	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		line = append(line, '\n')
		if _, err := f.Write(line); err != nil {
			// Keep the unwritten tail for the next attempt.
			r.pending[tableID] = records[i:]
			return err
		}
	}
	delete(r.pending, tableID)
	return f.Sync()
}

func cardStrings(cards []poker.Card) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
