package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry exposes the atomic counters in m as Prometheus collectors.
// Values are read at scrape time, so the hot path keeps using atomics.
func NewRegistry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	counter := func(name, help string, v *atomic.Int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "quizline", Name: name, Help: help,
		}, func() float64 { return float64(v.Load()) })
	}
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quizline", Name: name, Help: help,
		}, fn)
	}

	reg.MustRegister(
		gauge("uptime_seconds", "Server uptime in seconds.",
			func() float64 { return time.Since(m.startTime).Seconds() }),
		gauge("connections_active", "Current open client connections.",
			func() float64 { return float64(m.ActiveConnections.Load()) }),
		gauge("games_active", "Games currently in the pool.",
			func() float64 { return float64(m.ActiveGames.Load()) }),

		counter("connections_total", "Lifetime client connections accepted.", &m.TotalConnections),
		counter("handshakes_total", "Sessions promoted to active.", &m.Handshakes),
		counter("handshakes_failed_total", "Connections dropped before the handshake completed.", &m.FailedHandshakes),
		counter("disconnects_total", "Total client disconnects.", &m.TotalDisconnects),
		counter("packages_in_total", "Packages decoded from clients.", &m.PackagesIn),
		counter("packages_out_total", "Packages written to clients.", &m.PackagesOut),
		counter("bad_frames_total", "Lines that failed to open or decode.", &m.BadFrames),
		counter("write_errors_total", "Failed writes to clients.", &m.WriteErrors),
		counter("chat_messages_total", "Chat lines relayed.", &m.ChatMessagesSent),
		counter("games_created_total", "Games created.", &m.GamesCreated),
		counter("games_stopped_total", "Games stopped and removed.", &m.GamesStopped),
		counter("placements_total", "Sessions placed into a game.", &m.Placements),
		counter("answers_correct_total", "Correct answers.", &m.CorrectAnswers),
		counter("answers_incorrect_total", "Incorrect answers.", &m.IncorrectAnswers),
	)
	return reg
}

// registry extends NewRegistry with gauges read from the session and room
// indexes.
func (s *Server) registry() *prometheus.Registry {
	reg := NewRegistry(s.metrics)
	rooms := func(name, help string, kind RoomKind) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quizline", Name: name, Help: help,
		}, func() float64 { return float64(s.rooms.Count(kind)) })
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quizline", Name: "sessions", Help: "Sessions known to the server, enrolled or not.",
		}, func() float64 { return float64(s.sessions.Count()) }),
		rooms("sessions_unassigned", "Sessions still in the handshake.", RoomUnassigned),
		rooms("sessions_lobby", "Enrolled sessions waiting outside a game.", RoomLobby),
		rooms("sessions_in_game", "Sessions in a game's player set.", RoomGame),
	)
	return reg
}

// metricsHandler serves /metrics, /stats and /healthz.
func (s *Server) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.metrics.JSON()))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// StartMetricsHTTP starts the metrics endpoint in the background. It shuts
// down when the server context is cancelled. An empty MetricsAddr disables it.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}
