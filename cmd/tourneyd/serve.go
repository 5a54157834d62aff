package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/feltworks/tourneyd/internal/server"
)

// ServeCmd runs the tournament server.
type ServeCmd struct {
	Config   string `short:"c" type:"existingfile" help:"HCL configuration file"`
	Listen   string `help:"Override the listen address"`
	LogLevel string `short:"l" help:"Override the log level (debug, info, warn, error)"`
	Start    bool   `help:"Start the tournament as soon as enough players register"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}

	logger, err := setupLogger(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Start {
		go autoStart(ctx, srv, cfg.Tournament.MinPlayers, logger)
	}

	logger.Info("starting tourneyd",
		"version", version,
		"listen", cfg.Server.Listen,
		"tournament", cfg.Tournament.Name,
		"starting_stack", cfg.Tournament.StartingStack,
		"table_capacity", cfg.Tournament.TableCapacity,
		"levels", len(cfg.Tournament.Levels))
	return srv.Run(ctx)
}

// autoStart kicks the tournament off once the field reaches the
// configured minimum.
func autoStart(ctx context.Context, srv *server.Server, minPlayers int, logger *log.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := len(srv.Director().Standings()); n >= minPlayers {
				logger.Info("field complete, starting tournament", "entrants", n)
				srv.StartTournament()
				return
			}
		}
	}
}

func loadConfig(path string) (*server.Config, error) {
	if path == "" {
		return server.DefaultConfig(), nil
	}
	return server.LoadConfig(path)
}

func setupLogger(cfg *server.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Server.LogLevel, err)
	}
	out := os.Stderr
	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
	}
	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
	}), nil
}
