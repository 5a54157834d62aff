// Package server hosts a tournament: the HTTP listener, the WebSocket
// gateway for bots and spectators, the admin surface, and the hand
// history recorder, all wired to one tournament director.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/feltworks/tourneyd/internal/game"
	"github.com/feltworks/tourneyd/internal/history"
	"github.com/feltworks/tourneyd/internal/tourney"
)

// Server runs one tournament per process.
type Server struct {
	cfg      *Config
	logger   *log.Logger
	director *tourney.Director
	gateway  *Gateway
	recorder *history.Recorder

	upgrader websocket.Upgrader

	startOnce sync.Once
	startCh   chan struct{}
}

// sinkSwitch defers event sink binding: the director wants its sink at
// construction, but the gateway and recorder need the director first.
// Set must happen before the tournament starts publishing.
type sinkSwitch struct {
	sink game.EventSink
}

func (s *sinkSwitch) Publish(ev game.Event) {
	if s.sink != nil {
		s.sink.Publish(ev)
	}
}

// New builds a server from configuration.
func New(cfg *Config, logger *log.Logger) (*Server, error) {
	events := &sinkSwitch{}

	tcfg := cfg.TournamentConfig()
	tcfg.Logger = logger
	tcfg.Events = events
	director, err := tourney.New(tcfg)
	if err != nil {
		return nil, err
	}

	var validator TokenValidator
	if cfg.Auth != nil && cfg.Auth.URL != "" {
		validator = NewHTTPValidator(cfg.Auth)
	}
	gateway := NewGateway(director, validator, logger)

	var recorder *history.Recorder
	if cfg.History != nil {
		interval, _ := parseDuration(cfg.History.FlushInterval)
		recorder, err = history.NewRecorder(history.Options{
			Dir:              cfg.History.Dir,
			FlushHands:       cfg.History.FlushHands,
			FlushInterval:    interval,
			IncludeHoleCards: cfg.History.IncludeHoleCards,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		events.sink = game.MultiSink(gateway, recorder)
	} else {
		events.sink = gateway
	}

	return &Server{
		cfg:      cfg,
		logger:   logger.WithPrefix("server"),
		director: director,
		gateway:  gateway,
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		startCh: make(chan struct{}),
	}, nil
}

// Director exposes the tournament for tests and the CLI.
func (s *Server) Director() *tourney.Director { return s.director }

// Run serves until the context is canceled. The tournament itself does
// not begin until StartTournament is called, directly or through the
// admin endpoint; registration is open the whole time.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := s.gateway.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if s.recorder != nil {
		g.Go(func() error {
			err := s.recorder.Run(ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if closeErr := s.recorder.Close(); err == nil {
				err = closeErr
			}
			return err
		})
	}
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case <-s.startCh:
		}
		if err := s.director.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		s.logger.Info("tournament finished")
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StartTournament begins play. Safe to call more than once; only the
// first call takes effect.
func (s *Server) StartTournament() {
	s.startOnce.Do(func() { close(s.startCh) })
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleBotSocket)
	mux.HandleFunc("/ws/viewer", s.handleViewerSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/admin/status", s.adminOnly(s.handleStatus))
	mux.HandleFunc("/admin/standings", s.adminOnly(s.handleStandings))
	mux.HandleFunc("/admin/tables", s.adminOnly(s.handleTables))
	mux.HandleFunc("/admin/start", s.adminOnly(s.handleStart))
	mux.HandleFunc("/admin/pause", s.adminOnly(s.handlePause))
	mux.HandleFunc("/admin/resume", s.adminOnly(s.handleResume))
	return mux
}

func (s *Server) handleBotSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.gateway.HandleBot(NewConnection(conn, s.logger, nil, nil))
}

func (s *Server) handleViewerSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.gateway.HandleViewer(NewConnection(conn, s.logger, nil, nil))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adminOnly enforces the bearer token when one is configured.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := s.cfg.Server.AdminToken; token != "" {
			if r.Header.Get("Authorization") != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idx, level := s.director.Level()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":       s.cfg.Tournament.Name,
		"status":     s.director.Status().String(),
		"remaining":  s.director.Remaining(),
		"levelIndex": idx,
		"level":      wireLevel(level),
		"tables":     s.director.Tables(),
	})
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.director.Standings())
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	states := []any{}
	for _, id := range s.director.Tables() {
		if st, ok := s.director.TableSnapshot(id); ok {
			states = append(states, wireTableState(st))
		}
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.director.Status() != tourney.StatusRegistering {
		http.Error(w, "tournament already started", http.StatusConflict)
		return
	}
	s.StartTournament()
	writeJSON(w, http.StatusOK, map[string]string{"status": "starting"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.director.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.director.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
