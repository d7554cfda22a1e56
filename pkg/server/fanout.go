package server

import (
	"log/slog"

	"github.com/NicolasHaas/quizline/pkg/protocol"
)

// fanout seals packages and writes them to sessions. A failed write is
// logged and closes that session's handle so its reader runs the
// disconnect path; delivery to the remaining targets continues.
type fanout struct {
	wire    *protocol.Wire
	metrics *Metrics
	log     *slog.Logger
}

func (f *fanout) sendTo(s *Session, p protocol.Package) {
	line, err := f.wire.Marshal(p)
	if err != nil {
		f.log.Error("seal package failed", "type", p.Type, "session", s.ShortID(), "err", err)
		return
	}
	if err := s.Send(line); err != nil {
		f.metrics.WriteErrors.Add(1)
		f.log.Warn("write failed", "session", s.ShortID(), "user", s.Username(), "type", p.Type, "err", err)
		_ = s.Close()
		return
	}
	f.metrics.PackagesOut.Add(1)
}

// sendToAll delivers p to every target. Each target gets its own IV.
func (f *fanout) sendToAll(targets []*Session, p protocol.Package) {
	for _, s := range targets {
		f.sendTo(s, p)
	}
}

// sendToAllBut delivers p to every target except the session with id except.
func (f *fanout) sendToAllBut(targets []*Session, except string, p protocol.Package) {
	for _, s := range targets {
		if s.ID == except {
			continue
		}
		f.sendTo(s, p)
	}
}
