// Package tourney runs freezeout tournaments: it seats registered
// entrants across tables, escalates blinds on a schedule, eliminates
// busted players, rebalances tables at hand boundaries, and declares a
// winner when one player holds all the chips.
package tourney

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/internal/gameid"
	"github.com/feltworks/tourneyd/internal/randutil"
)

// Status is the tournament lifecycle state.
type Status int

const (
	StatusRegistering Status = iota
	StatusRunning
	StatusFinalizing
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusRegistering:
		return "registering"
	case StatusRunning:
		return "running"
	case StatusFinalizing:
		return "finalizing"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

var (
	ErrRegistrationClosed = errors.New("registration closed")
	ErrAlreadyRegistered  = errors.New("player already registered")
	ErrTournamentFull     = errors.New("tournament full")
	ErrNotRegistering     = errors.New("tournament already started")
	ErrUnknownPlayer      = errors.New("unknown player")
)

// Config configures a tournament.
type Config struct {
	Name          string
	StartingStack int
	TableCapacity int
	MinPlayers    int
	MaxPlayers    int
	ActionTimeout time.Duration
	TimeBank      time.Duration
	SitOutAfter   int

	// RebalanceSpread is the allowed table-size deviation before players
	// move; zero means one.
	RebalanceSpread int

	Levels []game.BlindLevel
	Seed   int64

	Clock  quartz.Clock
	Logger *log.Logger
	Events game.EventSink
	Rand   *rand.Rand
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.StartingStack <= 0 {
		return fmt.Errorf("starting stack must be positive, got %d", c.StartingStack)
	}
	if c.TableCapacity == 0 {
		c.TableCapacity = 9
	}
	if c.TableCapacity < 2 || c.TableCapacity > 10 {
		return fmt.Errorf("table capacity must be 2-10, got %d", c.TableCapacity)
	}
	if c.MinPlayers < 2 {
		c.MinPlayers = 2
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = 30 * time.Second
	}
	if c.SitOutAfter == 0 {
		c.SitOutAfter = 3
	}
	if c.RebalanceSpread < 0 {
		return fmt.Errorf("rebalance spread must not be negative, got %d", c.RebalanceSpread)
	}
	if c.RebalanceSpread == 0 {
		c.RebalanceSpread = 1
	}
	if len(c.Levels) == 0 {
		return errors.New("at least one blind level is required")
	}
	for i, l := range c.Levels {
		if l.Big <= 0 || l.Small <= 0 || l.Small > l.Big {
			return fmt.Errorf("level %d has invalid blinds %d/%d", i, l.Small, l.Big)
		}
		if l.Ante < 0 {
			return fmt.Errorf("level %d has negative ante", i)
		}
	}
	return nil
}

// Entrant is a registered player. Token authenticates the player's
// gateway session; Rank is assigned on elimination, 1 for the winner.
type Entrant struct {
	ID       string
	Name     string
	Token    string
	Player   *game.Player
	TableID  string
	Rank     int
	BustedAt time.Time
}

// Standing is one row of the live leaderboard.
type Standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
	Rank     int    `json:"rank"`
	TableID  string `json:"tableId,omitempty"`
}

// Update is a tournament status broadcast.
type Update struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	LevelIndex int            `json:"levelIndex"`
	Level      game.BlindLevel `json:"level"`
	Remaining  int            `json:"remaining"`
	Entrants   int            `json:"entrants"`
	Paused     bool           `json:"paused"`
	Standings  []Standing     `json:"standings,omitempty"`
}

// Broadcaster receives tournament updates for fan-out to sessions and
// spectators. Implementations must not block.
type Broadcaster interface {
	TournamentUpdate(Update)
}

// Director owns one tournament. All lifecycle mutations happen under a
// single mutex, and HandFinished runs on the finishing table's goroutine
// while that table is between hands, so settlement, elimination and the
// rebalance of that table are atomic with respect to every other table.
type Director struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	rng    *rand.Rand
	events game.EventSink

	mu          sync.Mutex
	cond        *sync.Cond
	status      Status
	paused      bool
	stopping    bool
	entrants    map[string]*Entrant
	order       []string
	tables      map[string]*game.Table
	prompters   map[string]game.Prompter
	levelIdx    int
	remaining   int
	winner      *Entrant
	broadcaster Broadcaster

	// done closes when the tournament completes, releasing the level
	// clock and the context watcher.
	done chan struct{}
}

// New creates a director for the given configuration.
func New(cfg Config) (*Director, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	rng := cfg.Rand
	if rng == nil {
		if cfg.Seed != 0 {
			rng = randutil.New(cfg.Seed)
		} else {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	d := &Director{
		cfg:       cfg,
		clock:     clock,
		logger:    logger.WithPrefix("tourney"),
		rng:       rng,
		events:    cfg.Events,
		entrants:  make(map[string]*Entrant),
		tables:    make(map[string]*game.Table),
		prompters: make(map[string]game.Prompter),
		done:      make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d, nil
}

// Register adds a player during the registration window and returns the
// entrant with its session token.
func (d *Director) Register(id, name string) (*Entrant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != StatusRegistering {
		return nil, ErrRegistrationClosed
	}
	if _, ok := d.entrants[id]; ok {
		return nil, ErrAlreadyRegistered
	}
	if d.cfg.MaxPlayers > 0 && len(d.entrants) >= d.cfg.MaxPlayers {
		return nil, ErrTournamentFull
	}
	e := &Entrant{
		ID:    id,
		Name:  name,
		Token: gameid.Generate(),
		Player: &game.Player{
			ID:       id,
			Name:     name,
			Chips:    d.cfg.StartingStack,
			TimeBank: d.cfg.TimeBank,
		},
	}
	d.entrants[id] = e
	d.order = append(d.order, id)
	d.logger.Info("player registered", "player", id, "entrants", len(d.entrants))
	return e, nil
}

// AttachPrompter wires a session to a registered player. Attaching after
// a disconnect brings the player back from sit-out.
func (d *Director) AttachPrompter(playerID string, p game.Prompter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entrants[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	d.prompters[playerID] = p
	if e.TableID != "" {
		if t, ok := d.tables[e.TableID]; ok {
			return t.SetPrompter(playerID, p)
		}
	}
	return nil
}

// DetachPrompter disconnects a player's session. The player keeps their
// seat and times out until they reconnect or bust.
func (d *Director) DetachPrompter(playerID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.prompters, playerID)
	if e, ok := d.entrants[playerID]; ok && e.TableID != "" {
		if t, ok := d.tables[e.TableID]; ok {
			_ = t.SetPrompter(playerID, nil)
		}
	}
}

// Authenticate returns the entrant for a player/token pair.
func (d *Director) Authenticate(playerID, token string) (*Entrant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entrants[playerID]
	if !ok || e.Token != token {
		return nil, false
	}
	return e, true
}

// SubmitAction routes a player's action response to their table. The
// seq identifies the action request being answered.
func (d *Director) SubmitAction(playerID string, seq int, a game.Action) error {
	d.mu.Lock()
	e, ok := d.entrants[playerID]
	if !ok {
		d.mu.Unlock()
		return ErrUnknownPlayer
	}
	t, ok := d.tables[e.TableID]
	d.mu.Unlock()
	if !ok {
		return game.ErrNoActionPending
	}
	return t.SubmitAction(playerID, seq, a)
}

// Start seats the field and runs the tournament to completion. It
// returns once a winner is decided, the context is canceled, or a table
// reports an unrecoverable error.
func (d *Director) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.status != StatusRegistering {
		d.mu.Unlock()
		return ErrNotRegistering
	}
	if len(d.entrants) < d.cfg.MinPlayers {
		d.mu.Unlock()
		return fmt.Errorf("need at least %d players, have %d", d.cfg.MinPlayers, len(d.entrants))
	}
	d.status = StatusRunning
	d.remaining = len(d.entrants)
	d.seatField()
	tables := make([]*game.Table, 0, len(d.tables))
	for _, t := range d.tables {
		tables = append(tables, t)
	}
	d.mu.Unlock()

	d.logger.Info("tournament started",
		"name", d.cfg.Name, "entrants", d.remaining, "tables", len(tables))
	d.broadcast()

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tables {
		g.Go(func() error { return t.Run(ctx) })
	}
	g.Go(func() error { return d.runLevelClock(ctx) })
	g.Go(func() error {
		// Unblock BetweenHands waiters when the run is torn down.
		select {
		case <-ctx.Done():
		case <-d.done:
		}
		d.mu.Lock()
		d.stopping = true
		d.cond.Broadcast()
		d.mu.Unlock()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && d.Winner() != nil {
		err = nil
	}
	return err
}

// seatField shuffles the registration order deterministically from the
// seed and deals players round-robin across the minimum number of
// tables, so table populations never differ by more than one.
func (d *Director) seatField() {
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	d.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	numTables := (len(ids) + d.cfg.TableCapacity - 1) / d.cfg.TableCapacity
	for i := 0; i < numTables; i++ {
		id := fmt.Sprintf("table-%d", i+1)
		d.tables[id] = game.NewTable(game.TableConfig{
			ID:            id,
			Capacity:      d.cfg.TableCapacity,
			Level:         d.cfg.Levels[0],
			ActionTimeout: d.cfg.ActionTimeout,
			SitOutAfter:   d.cfg.SitOutAfter,
			Clock:         d.clock,
			Logger:        d.logger,
			Events:        d.events,
			// Tables shuffle concurrently, so each gets its own stream
			// derived from the tournament rng.
			Rand: rand.New(rand.NewPCG(d.rng.Uint64(), d.rng.Uint64())),
			Host: d,
		})
	}
	tableIDs := make([]string, 0, numTables)
	for id := range d.tables {
		tableIDs = append(tableIDs, id)
	}
	sort.Strings(tableIDs)

	for i, playerID := range ids {
		e := d.entrants[playerID]
		tableID := tableIDs[i%numTables]
		if err := d.tables[tableID].SeatPlayer(e.Player, d.prompters[playerID]); err != nil {
			panic(fmt.Sprintf("seating %s at %s: %v", playerID, tableID, err))
		}
		e.TableID = tableID
	}
}

// runLevelClock escalates blinds on the configured schedule. The clock
// keeps running while the tournament is paused; only dealing stops.
func (d *Director) runLevelClock(ctx context.Context) error {
	for {
		d.mu.Lock()
		if d.status >= StatusFinalizing {
			d.mu.Unlock()
			return nil
		}
		idx := d.levelIdx
		d.mu.Unlock()
		if idx >= len(d.cfg.Levels)-1 {
			return nil
		}
		dur := d.cfg.Levels[idx].Duration
		if dur <= 0 {
			return nil
		}

		timer := d.clock.NewTimer(dur)
		select {
		case <-timer.C:
			d.advanceLevel()
		case <-d.done:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (d *Director) advanceLevel() {
	d.mu.Lock()
	if d.status >= StatusFinalizing || d.levelIdx >= len(d.cfg.Levels)-1 {
		d.mu.Unlock()
		return
	}
	d.levelIdx++
	level := d.cfg.Levels[d.levelIdx]
	for _, t := range d.tables {
		t.SetLevel(level)
	}
	idx := d.levelIdx
	d.mu.Unlock()

	d.logger.Info("blind level up", "level", idx+1, "small", level.Small, "big", level.Big, "ante", level.Ante)
	d.broadcast()
}

// Pause stops new hands from dealing; hands in flight finish normally
// and the level clock keeps running.
func (d *Director) Pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
	d.logger.Info("tournament paused")
	d.broadcast()
}

// Resume lets tables deal again.
func (d *Director) Resume() {
	d.mu.Lock()
	d.paused = false
	d.cond.Broadcast()
	d.mu.Unlock()
	d.logger.Info("tournament resumed")
	d.broadcast()
}

// BetweenHands blocks the table before each deal until it has at least
// two funded players and the tournament is neither paused nor finished.
// It returns false once the table is retired or the tournament ends. A
// short-handed waiting table is between hands too, so it re-runs its own
// outbound rebalance moves, which is how a stranded last player leaves
// for a table that has since opened a seat.
func (d *Director) BetweenHands(ctx context.Context, t *game.Table) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		if d.stopping || d.status >= StatusFinalizing || ctx.Err() != nil {
			return false
		}
		if _, ok := d.tables[t.ID()]; !ok {
			return false
		}
		if !d.paused {
			if t.FundedCount() >= 2 {
				return true
			}
			if d.rebalanceFrom(t) {
				d.cond.Broadcast()
			}
			if _, ok := d.tables[t.ID()]; !ok {
				return false
			}
		}
		d.cond.Wait()
	}
}

// HandFinished runs on the finishing table's goroutine: it eliminates
// busted players, retires or refills tables per the rebalance plan, and
// completes the tournament when one player remains. Holding the mutex
// across all of it makes the boundary atomic for admin views and for
// every other table's BetweenHands.
func (d *Director) HandFinished(t *game.Table, res *game.Result) {
	d.mu.Lock()

	d.eliminateBusted(t, res)

	if d.remaining == 1 && d.status == StatusRunning {
		d.crownWinner()
		d.cond.Broadcast()
		d.mu.Unlock()
		// Final standings go out while finalizing, then the status flips.
		d.broadcast()
		d.complete()
		return
	}

	d.rebalanceFrom(t)
	d.cond.Broadcast()
	d.mu.Unlock()
	d.broadcast()
}

// eliminateBusted assigns final ranks to players who lost their stack in
// the hand. When several bust at once, the player who began the hand
// with more chips places higher; stack ties go to the lower seat.
func (d *Director) eliminateBusted(t *game.Table, res *game.Result) {
	type bust struct {
		player *game.Player
		start  int
	}
	var busted []bust
	for _, p := range t.Players() {
		if p.Chips == 0 {
			busted = append(busted, bust{player: p, start: res.StartStacks[p.Seat]})
		}
	}
	if len(busted) == 0 {
		return
	}
	sort.Slice(busted, func(i, j int) bool {
		if busted[i].start != busted[j].start {
			return busted[i].start < busted[j].start
		}
		return busted[i].player.Seat > busted[j].player.Seat
	})

	for _, b := range busted {
		e := d.entrants[b.player.ID]
		e.Rank = d.remaining
		e.BustedAt = d.clock.Now()
		e.TableID = ""
		d.remaining--
		if _, err := t.RemovePlayer(b.player.ID); err != nil {
			d.logger.Error("removing busted player", "player", b.player.ID, "err", err)
		}
		d.logger.Info("player eliminated", "player", b.player.ID, "rank", e.Rank, "remaining", d.remaining)
	}
}

func (d *Director) crownWinner() {
	for _, e := range d.entrants {
		if e.Rank == 0 {
			e.Rank = 1
			d.winner = e
			d.logger.Info("tournament won", "player", e.ID, "chips", e.Player.Chips)
			break
		}
	}
	d.status = StatusFinalizing
}

// complete ends the lifecycle after the final standings broadcast;
// nothing mutates past this point.
func (d *Director) complete() {
	d.mu.Lock()
	d.status = StatusComplete
	close(d.done)
	d.mu.Unlock()
	d.broadcast()
}

// rebalanceFrom executes the rebalance plan's moves out of the given
// table, the only one guaranteed to be between hands. Other tables'
// moves run when they reach their own boundaries. It reports whether any
// player moved or the table was retired.
func (d *Director) rebalanceFrom(t *game.Table) bool {
	counts := make(map[string]int, len(d.tables))
	for id, table := range d.tables {
		counts[id] = table.FundedCount()
	}
	changed := false
	for _, m := range planMoves(counts, d.cfg.TableCapacity, d.cfg.RebalanceSpread) {
		if m.From != t.ID() {
			continue
		}
		if d.movePlayers(t, d.tables[m.To], m.Count) > 0 {
			changed = true
		}
	}
	if t.PlayerCount() == 0 {
		delete(d.tables, t.ID())
		changed = true
		d.logger.Info("table broken", "table", t.ID(), "tables", len(d.tables))
	}
	return changed
}

// movePlayers relocates up to count players, highest seat first so the
// blinds at the source table are disturbed as little as possible. It
// returns the number moved.
func (d *Director) movePlayers(from, to *game.Table, count int) int {
	moved := 0
	players := from.Players()
	for i := len(players) - 1; i >= 0 && moved < count; i-- {
		p := players[i]
		if _, err := from.RemovePlayer(p.ID); err != nil {
			continue
		}
		if err := to.SeatPlayer(p, d.prompters[p.ID]); err != nil {
			// Target filled up between planning and execution: put the
			// player back and stop.
			_ = from.SeatPlayer(p, d.prompters[p.ID])
			d.logger.Error("rebalance move failed", "player", p.ID, "to", to.ID(), "err", err)
			return moved
		}
		d.entrants[p.ID].TableID = to.ID()
		d.logger.Debug("player moved", "player", p.ID, "from", from.ID(), "to", to.ID())
		moved++
	}
	return moved
}

// Status returns the lifecycle state.
func (d *Director) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Winner returns the champion entrant, or nil before completion.
func (d *Director) Winner() *Entrant {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.winner
}

// Remaining returns the number of players still holding chips.
func (d *Director) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

// Level returns the current blind level and its index.
func (d *Director) Level() (int, game.BlindLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.levelIdx, d.cfg.Levels[d.levelIdx]
}

// SetBroadcaster wires the update fan-out. Call before Start.
func (d *Director) SetBroadcaster(b Broadcaster) {
	d.mu.Lock()
	d.broadcaster = b
	d.mu.Unlock()
}

// Tables returns the IDs of the live tables in order.
func (d *Director) Tables() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.tables))
	for id := range d.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TableSnapshot returns the public state of one table.
func (d *Director) TableSnapshot(id string) (game.TableState, bool) {
	d.mu.Lock()
	t, ok := d.tables[id]
	d.mu.Unlock()
	if !ok {
		return game.TableState{}, false
	}
	return t.Snapshot(), true
}

// Standings returns the leaderboard: live players by chips descending,
// then eliminated players by finish order.
func (d *Director) Standings() []Standing {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.standingsLocked()
}

func (d *Director) standingsLocked() []Standing {
	rows := make([]Standing, 0, len(d.entrants))
	for _, e := range d.entrants {
		rows = append(rows, Standing{
			PlayerID: e.ID,
			Name:     e.Name,
			Chips:    e.Player.Chips,
			Rank:     e.Rank,
			TableID:  e.TableID,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		aOut, bOut := a.Rank != 0 && a.Chips == 0, b.Rank != 0 && b.Chips == 0
		if aOut != bOut {
			return !aOut
		}
		if aOut {
			return a.Rank < b.Rank
		}
		if a.Chips != b.Chips {
			return a.Chips > b.Chips
		}
		return a.PlayerID < b.PlayerID
	})
	return rows
}

func (d *Director) update() Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Update{
		Name:       d.cfg.Name,
		Status:     d.status.String(),
		LevelIndex: d.levelIdx,
		Level:      d.cfg.Levels[d.levelIdx],
		Remaining:  d.remaining,
		Entrants:   len(d.entrants),
		Paused:     d.paused,
		Standings:  d.standingsLocked(),
	}
}

func (d *Director) broadcast() {
	d.mu.Lock()
	b := d.broadcaster
	d.mu.Unlock()
	if b != nil {
		b.TournamentUpdate(d.update())
	}
}
