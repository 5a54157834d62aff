package server

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/internal/tourney"
)

// Config is the complete tourneyd configuration, loaded from HCL.
type Config struct {
	Server     ServerSettings    `hcl:"server,block"`
	Auth       *AuthSettings     `hcl:"auth,block"`
	Tournament TournamentSettings `hcl:"tournament,block"`
	History    *HistorySettings  `hcl:"history,block"`
}

// ServerSettings is the server block.
type ServerSettings struct {
	Listen     string `hcl:"listen,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	LogFile    string `hcl:"log_file,optional"`
	AdminToken string `hcl:"admin_token,optional"`
}

// AuthSettings enables external token validation over HTTP.
type AuthSettings struct {
	URL         string `hcl:"url"`
	AdminSecret string `hcl:"admin_secret,optional"`
}

// TournamentSettings is the tournament block.
type TournamentSettings struct {
	Name              string          `hcl:"name,optional"`
	StartingStack     int             `hcl:"starting_stack,optional"`
	TableCapacity     int             `hcl:"table_capacity,optional"`
	MinPlayers        int             `hcl:"min_players,optional"`
	MaxPlayers        int             `hcl:"max_players,optional"`
	ActionTimeoutMs   int             `hcl:"action_timeout_ms,optional"`
	TimeBankMs        int             `hcl:"time_bank_ms,optional"`
	SitOutAfter       int             `hcl:"sit_out_after_timeouts,optional"`
	RebalanceSpread   int             `hcl:"rebalance_threshold,optional"`
	Seed              int64           `hcl:"seed,optional"`
	Levels            []LevelSettings `hcl:"level,block"`
}

// LevelSettings is one blind level, in schedule order.
type LevelSettings struct {
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	Ante       int    `hcl:"ante,optional"`
	Duration   string `hcl:"duration,optional"`
}

// HistorySettings is the history block.
type HistorySettings struct {
	Dir              string `hcl:"dir,optional"`
	FlushHands       int    `hcl:"flush_hands,optional"`
	FlushInterval    string `hcl:"flush_interval,optional"`
	IncludeHoleCards bool   `hcl:"include_hole_cards,optional"`
}

// DefaultConfig returns a runnable configuration: one table's worth of
// players, 25/50 blinds doubling every ten minutes.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Listen:   "localhost:8080",
			LogLevel: "info",
		},
		Tournament: TournamentSettings{
			Name:            "tourneyd",
			StartingStack:   10000,
			TableCapacity:   9,
			MinPlayers:      2,
			ActionTimeoutMs: 30000,
			TimeBankMs:      60000,
			SitOutAfter:     3,
			Levels: []LevelSettings{
				{SmallBlind: 25, BigBlind: 50, Duration: "10m"},
				{SmallBlind: 50, BigBlind: 100, Duration: "10m"},
				{SmallBlind: 100, BigBlind: 200, Ante: 25, Duration: "10m"},
				{SmallBlind: 200, BigBlind: 400, Ante: 50},
			},
		},
		History: &HistorySettings{
			Dir:        "hands",
			FlushHands: 10,
		},
	}
}

// LoadConfig parses an HCL configuration file, fills defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", path, diags.Error())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.Server.LogLevel
	}
	t := &c.Tournament
	if t.Name == "" {
		t.Name = def.Tournament.Name
	}
	if t.StartingStack == 0 {
		t.StartingStack = def.Tournament.StartingStack
	}
	if t.TableCapacity == 0 {
		t.TableCapacity = def.Tournament.TableCapacity
	}
	if t.MinPlayers == 0 {
		t.MinPlayers = def.Tournament.MinPlayers
	}
	if t.ActionTimeoutMs == 0 {
		t.ActionTimeoutMs = def.Tournament.ActionTimeoutMs
	}
	if t.TimeBankMs == 0 {
		t.TimeBankMs = def.Tournament.TimeBankMs
	}
	if t.SitOutAfter == 0 {
		t.SitOutAfter = def.Tournament.SitOutAfter
	}
	if len(t.Levels) == 0 {
		t.Levels = def.Tournament.Levels
	}
	if c.History != nil {
		if c.History.Dir == "" {
			c.History.Dir = "hands"
		}
		if c.History.FlushHands == 0 {
			c.History.FlushHands = 10
		}
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server listen address is required")
	}
	t := c.Tournament
	if t.StartingStack <= 0 {
		return fmt.Errorf("tournament starting_stack must be positive, got %d", t.StartingStack)
	}
	if t.TableCapacity < 2 || t.TableCapacity > 10 {
		return fmt.Errorf("tournament table_capacity must be 2-10, got %d", t.TableCapacity)
	}
	if t.ActionTimeoutMs <= 0 {
		return fmt.Errorf("tournament action_timeout_ms must be positive, got %d", t.ActionTimeoutMs)
	}
	if t.TimeBankMs < 0 {
		return fmt.Errorf("tournament time_bank_ms must not be negative, got %d", t.TimeBankMs)
	}
	if len(t.Levels) == 0 {
		return fmt.Errorf("tournament needs at least one level block")
	}
	for i, l := range t.Levels {
		if l.SmallBlind <= 0 {
			return fmt.Errorf("level %d: small_blind must be positive", i+1)
		}
		if l.BigBlind < l.SmallBlind {
			return fmt.Errorf("level %d: big_blind %d is below small_blind %d", i+1, l.BigBlind, l.SmallBlind)
		}
		if l.Ante < 0 {
			return fmt.Errorf("level %d: ante must not be negative", i+1)
		}
		if _, err := parseDuration(l.Duration); err != nil {
			return fmt.Errorf("level %d: %w", i+1, err)
		}
	}
	if c.History != nil {
		if _, err := parseDuration(c.History.FlushInterval); err != nil {
			return fmt.Errorf("history flush_interval: %w", err)
		}
	}
	return nil
}

// TournamentConfig converts the HCL settings into a director config.
func (c *Config) TournamentConfig() tourney.Config {
	t := c.Tournament
	levels := make([]game.BlindLevel, len(t.Levels))
	for i, l := range t.Levels {
		dur, _ := parseDuration(l.Duration)
		levels[i] = game.BlindLevel{
			Small:    l.SmallBlind,
			Big:      l.BigBlind,
			Ante:     l.Ante,
			Duration: dur,
		}
	}
	return tourney.Config{
		Name:            t.Name,
		StartingStack:   t.StartingStack,
		TableCapacity:   t.TableCapacity,
		MinPlayers:      t.MinPlayers,
		MaxPlayers:      t.MaxPlayers,
		ActionTimeout:   time.Duration(t.ActionTimeoutMs) * time.Millisecond,
		TimeBank:        time.Duration(t.TimeBankMs) * time.Millisecond,
		SitOutAfter:     t.SitOutAfter,
		RebalanceSpread: t.RebalanceSpread,
		Levels:          levels,
		Seed:            t.Seed,
	}
}

// parseDuration parses an optional duration string; empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}
	return d, nil
}
