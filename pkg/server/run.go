package server

import (
	"context"
	"fmt"
	"time"

	"github.com/NicolasHaas/quizline/pkg/transport"
)

// Run opens the configured listeners and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if len(s.seed.Questions) == 0 {
		return fmt.Errorf("server: empty question seed")
	}

	var listeners []transport.Listener
	if s.cfg.ListenAddr != "" {
		ln, err := transport.ListenTCP(s.cfg.ListenAddr, transport.WithWriteTimeout(s.cfg.WriteTimeout))
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		listeners = append(listeners, ln)
	}
	if s.cfg.WSAddr != "" {
		ln, err := transport.ListenWS(s.cfg.WSAddr, s.cfg.WSPath)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return fmt.Errorf("server: %w", err)
		}
		listeners = append(listeners, ln)
	}

	for _, ln := range listeners {
		s.trackListener(ln)
	}
	for _, ln := range listeners {
		go func(ln transport.Listener) {
			if err := s.Serve(ln); err != nil {
				s.log.Error("accept loop stopped", "addr", ln.Addr(), "err", err)
			}
		}(ln)
	}

	s.log.Info("quizline server running",
		"tcp", s.cfg.ListenAddr,
		"ws", s.cfg.WSAddr,
		"questions", len(s.seed.Questions),
		"categories", len(s.seed.Categories),
	)

	s.StartMetricsHTTP()
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	select {
	case <-ctx.Done():
	case <-s.ctx.Done():
	}
	s.log.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown closes the listeners and every connection, then waits for the
// connection and game goroutines to exit.
func (s *Server) Shutdown() {
	s.cancel()

	s.lnMu.Lock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.lnMu.Unlock()

	for _, sess := range s.sessions.All() {
		_ = sess.Close()
	}
	s.wg.Wait()
	s.games.Wait()
}
