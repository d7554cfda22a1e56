package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections  atomic.Int64 // lifetime connections accepted
	ActiveConnections atomic.Int64 // current open connections
	Handshakes        atomic.Int64 // sessions promoted to Active
	FailedHandshakes  atomic.Int64 // connections dropped before AccountInfo
	TotalDisconnects  atomic.Int64 // total client disconnects (clean + unclean)

	// Wire counters
	PackagesIn  atomic.Int64 // packages decoded from clients
	PackagesOut atomic.Int64 // packages written to clients
	BadFrames   atomic.Int64 // lines that failed to open or decode
	WriteErrors atomic.Int64 // failed writes to a client

	// Chat counters
	ChatMessagesSent atomic.Int64 // chat lines relayed

	// Game counters
	GamesCreated     atomic.Int64
	GamesStopped     atomic.Int64
	ActiveGames      atomic.Int64
	Placements       atomic.Int64 // sessions placed into a game
	CorrectAnswers   atomic.Int64
	IncorrectAnswers atomic.Int64
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	Handshakes        int64 `json:"handshakes"`
	FailedHandshakes  int64 `json:"failed_handshakes"`
	TotalDisconnects  int64 `json:"total_disconnects"`

	PackagesIn  int64 `json:"packages_in"`
	PackagesOut int64 `json:"packages_out"`
	BadFrames   int64 `json:"bad_frames"`
	WriteErrors int64 `json:"write_errors"`

	ChatMessagesSent int64 `json:"chat_messages_sent"`

	GamesCreated     int64 `json:"games_created"`
	GamesStopped     int64 `json:"games_stopped"`
	ActiveGames      int64 `json:"active_games"`
	Placements       int64 `json:"placements"`
	CorrectAnswers   int64 `json:"correct_answers"`
	IncorrectAnswers int64 `json:"incorrect_answers"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:            uptime.Truncate(time.Second).String(),
		UptimeSeconds:     int64(uptime.Seconds()),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		Handshakes:        m.Handshakes.Load(),
		FailedHandshakes:  m.FailedHandshakes.Load(),
		TotalDisconnects:  m.TotalDisconnects.Load(),
		PackagesIn:        m.PackagesIn.Load(),
		PackagesOut:       m.PackagesOut.Load(),
		BadFrames:         m.BadFrames.Load(),
		WriteErrors:       m.WriteErrors.Load(),
		ChatMessagesSent:  m.ChatMessagesSent.Load(),
		GamesCreated:      m.GamesCreated.Load(),
		GamesStopped:      m.GamesStopped.Load(),
		ActiveGames:       m.ActiveGames.Load(),
		Placements:        m.Placements.Load(),
		CorrectAnswers:    m.CorrectAnswers.Load(),
		IncorrectAnswers:  m.IncorrectAnswers.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"games", s.ActiveGames,
		"packages_in", s.PackagesIn,
		"packages_out", s.PackagesOut,
		"bad_frames", s.BadFrames,
		"chat_msgs", s.ChatMessagesSent,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
