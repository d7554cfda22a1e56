package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/NicolasHaas/quizline/pkg/model"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

var errTooManyBadFrames = errors.New("server: too many undecodable lines")

// Serve runs the accept loop on ln until ln is closed or the server shuts
// down. Admission is serialized: the next connection is accepted only after
// the previous one finished its handshake or hit HandshakeTimeout.
func (s *Server) Serve(ln transport.Listener) error {
	s.trackListener(ln)
	s.log.Info("accepting connections", "addr", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || transport.IsClosed(err) {
				return nil
			}
			s.log.Error("accept error", "err", err)
			continue
		}

		sess := s.admit(conn)
		if sess == nil {
			_ = conn.Close()
			return nil
		}
		handshakeDone := make(chan struct{})
		go s.handleConn(sess, handshakeDone)

		select {
		case <-handshakeDone:
		case <-s.ctx.Done():
			return nil
		}
	}
}

// admit enrolls conn as a pending session and counts its worker, or
// returns nil once shutdown has begun. It holds lnMu so Shutdown either
// sees the session or admit sees the cancelled context.
func (s *Server) admit(conn transport.Conn) *Session {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.ctx.Err() != nil {
		return nil
	}
	sess := s.sessions.Create(conn)
	s.rooms.Enter(sess.ID, unassigned)
	s.wg.Add(1)
	return sess
}

// trackListener registers ln so Shutdown closes it.
func (s *Server) trackListener(ln transport.Listener) {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	for _, cur := range s.listeners {
		if cur == ln {
			return
		}
	}
	s.listeners = append(s.listeners, ln)
}

// handleConn handles a single connection lifecycle.
func (s *Server) handleConn(sess *Session, handshakeDone chan<- struct{}) {
	defer s.wg.Done()
	defer s.disconnect(sess)

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	s.log.Debug("new connection", "session", sess.ShortID(), "remote", sess.RemoteAddr)

	err := s.handshake(sess)
	if err != nil {
		s.metrics.FailedHandshakes.Add(1)
	}
	close(handshakeDone)
	if err != nil {
		s.log.Info("handshake failed", "session", sess.ShortID(), "remote", sess.RemoteAddr, "err", err)
		return
	}

	for {
		line, err := sess.conn.ReadLine()
		if err != nil {
			s.logReadError(sess, err)
			return
		}
		pkg, err := s.wire.Unmarshal(line)
		if err != nil {
			if s.badFrame(sess, err) {
				return
			}
			continue
		}
		sess.badFrames = 0
		s.metrics.PackagesIn.Add(1)
		s.route(sess, pkg)
	}
}

// handshake waits for AccountInfo and enrolls the session in the lobby.
// Other packages sent before it are dropped.
func (s *Server) handshake(sess *Session) error {
	_ = sess.conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	defer func() { _ = sess.conn.SetReadDeadline(time.Time{}) }()

	for {
		line, err := sess.conn.ReadLine()
		if err != nil {
			if transport.IsTimeout(err) {
				return fmt.Errorf("no account info within %s", s.cfg.HandshakeTimeout)
			}
			return err
		}
		pkg, err := s.wire.Unmarshal(line)
		if err != nil {
			if s.badFrame(sess, err) {
				return errTooManyBadFrames
			}
			continue
		}
		sess.badFrames = 0
		s.metrics.PackagesIn.Add(1)

		info, ok := pkg.Data.(pb.AccountInfo)
		if !ok {
			s.log.Debug("dropping package before handshake", "session", sess.ShortID(), "type", pkg.Type)
			continue
		}

		name := model.NormalizeUsername(info.AccountInfo.Username)
		if name == "" {
			name = "player-" + sess.ShortID()
		}
		if !sess.promote(name, info.AccountInfo.Password) {
			return errSessionClosed
		}
		s.rooms.Move(sess.ID, unassigned, lobby)
		s.metrics.Handshakes.Add(1)
		s.log.Info("session enrolled", "session", sess.ShortID(), "user", name, "remote", sess.RemoteAddr)
		return nil
	}
}

// badFrame records an undecodable line and reports whether the session
// exceeded MaxBadFrames consecutive failures.
func (s *Server) badFrame(sess *Session, err error) bool {
	sess.badFrames++
	s.metrics.BadFrames.Add(1)
	s.log.Warn("dropping undecodable line", "session", sess.ShortID(), "consecutive", sess.badFrames, "err", err)
	if sess.badFrames >= s.cfg.MaxBadFrames {
		s.log.Warn("stream out of sync, disconnecting", "session", sess.ShortID(), "user", sess.Username())
		return true
	}
	return false
}

func (s *Server) logReadError(sess *Session, err error) {
	switch {
	case transport.IsClosed(err):
		s.log.Debug("connection closed", "session", sess.ShortID())
	case errors.Is(err, transport.ErrLineTooLong):
		s.log.Warn("line too long, disconnecting", "session", sess.ShortID(), "user", sess.Username())
	default:
		s.log.Warn("read failed", "session", sess.ShortID(), "user", sess.Username(), "err", err)
	}
}

// disconnect removes a session from every index, tells the remaining
// sessions and releases the handle. Only the first call has an effect.
func (s *Server) disconnect(sess *Session) {
	prev, ok := sess.markClosed()
	if !ok {
		return
	}
	_, game, newOwner := s.games.Leave(sess.ID)
	s.sessions.Remove(sess.ID)
	_ = sess.Close()

	s.metrics.ActiveConnections.Add(-1)
	s.metrics.TotalDisconnects.Add(1)

	if prev != model.SessionActive || s.ctx.Err() != nil {
		return
	}
	name := sess.Username()
	s.log.Info("session disconnected", "session", sess.ShortID(), "user", name)
	s.out.sendToAll(s.sessions.Active(), protocol.NewBroadcast(name+" has disconnected!"))
	if newOwner != nil {
		s.log.Info("game ownership transferred", "game", game.Name, "user", newOwner.Username())
		s.out.sendTo(newOwner, protocol.NewGameMessage(msgOwnerHint))
	}
}
