// Package server implements the quizline trivia server: connection
// admission, the lobby, the game pool and package routing.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/crypto"
	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

// Dependencies holds external inputs for the server.
type Dependencies struct {
	// Seed is the bootstrapped question bank copied into every game.
	Seed content.Seed
	// Wire overrides the codec built from Config.Passphrase and CipherSuite.
	Wire *protocol.Wire
}

// Server is the main quizline server.
type Server struct {
	cfg      Config
	wire     *protocol.Wire
	seed     content.Seed
	sessions *SessionManager
	rooms    *RoomManager
	games    *GamePool
	metrics  *Metrics
	out      *fanout
	log      *slog.Logger

	lnMu      sync.Mutex // guards listeners and orders admissions against Shutdown
	listeners []transport.Listener
	wg        sync.WaitGroup // connection workers

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server: invalid config: %w", err)
	}
	wire := deps.Wire
	if wire == nil {
		suite, err := crypto.ParseSuite(cfg.CipherSuite)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		codec, err := crypto.NewCodec(cfg.Passphrase, suite)
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		wire = protocol.NewWire(codec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	metrics := NewMetrics()
	log := logging.Component("server")
	out := &fanout{wire: wire, metrics: metrics, log: log}
	rooms := NewRoomManager()

	return &Server{
		cfg:      cfg,
		wire:     wire,
		seed:     deps.Seed,
		sessions: NewSessionManager(),
		rooms:    rooms,
		games:    NewGamePool(ctx, cfg.gameConfig(), deps.Seed, rooms, out),
		metrics:  metrics,
		out:      out,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Rooms returns the room index.
func (s *Server) Rooms() *RoomManager {
	return s.rooms
}

// Games returns the game pool.
func (s *Server) Games() *GamePool {
	return s.games
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
