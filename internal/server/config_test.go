package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tourneyd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleConfig = `
server {
  listen      = "0.0.0.0:9000"
  log_level   = "debug"
  admin_token = "s3cret"
}

tournament {
  name              = "nightly"
  starting_stack    = 5000
  table_capacity    = 6
  min_players       = 4
  action_timeout_ms = 10000
  time_bank_ms      = 30000
  seed              = 7

  level {
    small_blind = 25
    big_blind   = 50
    duration    = "5m"
  }
  level {
    small_blind = 50
    big_blind   = 100
    ante        = 10
  }
}

history {
  dir                = "out/hands"
  flush_hands        = 25
  flush_interval     = "30s"
  include_hole_cards = true
}
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)

	assert.Equal(t, "nightly", cfg.Tournament.Name)
	assert.Equal(t, 5000, cfg.Tournament.StartingStack)
	assert.Equal(t, 6, cfg.Tournament.TableCapacity)
	require.Len(t, cfg.Tournament.Levels, 2)
	assert.Equal(t, 10, cfg.Tournament.Levels[1].Ante)

	require.NotNil(t, cfg.History)
	assert.Equal(t, "out/hands", cfg.History.Dir)
	assert.Equal(t, 25, cfg.History.FlushHands)
	assert.True(t, cfg.History.IncludeHoleCards)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
server {}
tournament {
  level {
    small_blind = 25
    big_blind   = 50
  }
}
`))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Server.Listen)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10000, cfg.Tournament.StartingStack)
	assert.Equal(t, 9, cfg.Tournament.TableCapacity)
	assert.Equal(t, 30000, cfg.Tournament.ActionTimeoutMs)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server { listen = }"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			mutate: func(c *Config) {},
		},
		{
			name:    "no levels",
			mutate:  func(c *Config) { c.Tournament.Levels = nil },
			wantErr: "level",
		},
		{
			name:    "big blind below small blind",
			mutate:  func(c *Config) { c.Tournament.Levels[0].BigBlind = 10 },
			wantErr: "big_blind",
		},
		{
			name:    "negative ante",
			mutate:  func(c *Config) { c.Tournament.Levels[0].Ante = -1 },
			wantErr: "ante",
		},
		{
			name:    "bad duration",
			mutate:  func(c *Config) { c.Tournament.Levels[0].Duration = "fast" },
			wantErr: "duration",
		},
		{
			name:    "capacity out of range",
			mutate:  func(c *Config) { c.Tournament.TableCapacity = 11 },
			wantErr: "table_capacity",
		},
		{
			name:    "zero stack",
			mutate:  func(c *Config) { c.Tournament.StartingStack = -1 },
			wantErr: "starting_stack",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTournamentConfigConversion(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	tc := cfg.TournamentConfig()
	assert.Equal(t, "nightly", tc.Name)
	assert.Equal(t, 5000, tc.StartingStack)
	assert.Equal(t, 10*time.Second, tc.ActionTimeout)
	assert.Equal(t, 30*time.Second, tc.TimeBank)
	assert.Equal(t, int64(7), tc.Seed)
	require.Len(t, tc.Levels, 2)
	assert.Equal(t, 5*time.Minute, tc.Levels[0].Duration)
	assert.Equal(t, time.Duration(0), tc.Levels[1].Duration)
	require.NoError(t, tc.Validate())
}
