package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
)

// Lobby commands carried in Broadcast packages, matched case-insensitively.
const (
	cmdJoin  = "join"
	cmdStart = "start"
)

const (
	msgAlreadyInGame  = "You are already in a game"
	msgNotInGame      = "You are not in a game"
	msgNotOwner       = "Only the game owner can start the game"
	msgAlreadyStarted = "The game has already started"
	msgPlacement      = "Could not find or create a game, try again later"
)

// route dispatches one package from an enrolled session by its tag.
func (s *Server) route(sess *Session, pkg protocol.Package) {
	switch d := pkg.Data.(type) {
	case pb.Broadcast:
		s.handleBroadcast(sess, d.Message)
	case pb.GameChoice:
		s.handleGameChoice(sess, d.Message)
	case pb.AccountInfo:
		s.log.Debug("ignoring repeated account info", "session", sess.ShortID())
	default:
		s.log.Debug("dropping server-only package", "session", sess.ShortID(), "type", pkg.Type)
	}
}

func (s *Server) handleBroadcast(sess *Session, msg string) {
	text := strings.TrimSpace(msg)
	switch {
	case strings.EqualFold(text, cmdJoin):
		s.handleJoin(sess)
	case strings.EqualFold(text, cmdStart):
		s.handleStart(sess)
	case text == "":
	default:
		s.handleChat(sess, text)
	}
}

func (s *Server) handleJoin(sess *Session) {
	if s.rooms.RoomOf(sess.ID).Kind == RoomGame {
		s.out.sendTo(sess, protocol.NewGameMessage(msgAlreadyInGame))
		return
	}
	g, owner, err := s.games.Place(sess)
	if err != nil {
		s.log.Warn("placement failed", "session", sess.ShortID(), "user", sess.Username(), "err", err)
		s.out.sendTo(sess, protocol.NewGameMessage(msgPlacement))
		return
	}
	s.log.Info("session joined game", "session", sess.ShortID(), "user", sess.Username(), "game", g.Name, "owner", owner)

	s.out.sendTo(sess, protocol.NewGameMessage(fmt.Sprintf(msgWelcome, GameTitle)))
	if owner {
		s.out.sendTo(sess, protocol.NewGameMessage(msgOwnerHint))
	}
	players := g.Players()
	s.out.sendToAll(players, protocol.NewGameMessage(
		fmt.Sprintf(msgJoined, sess.Username(), len(players), s.cfg.MaxPlayers)))
}

func (s *Server) handleStart(sess *Session) {
	g := s.gameOf(sess)
	if g == nil {
		s.out.sendTo(sess, protocol.NewGameMessage(msgNotInGame))
		return
	}
	err := g.Start(sess.ID)
	switch {
	case err == nil:
		s.log.Info("game start requested", "game", g.Name, "user", sess.Username())
	case errors.Is(err, ErrNotOwner):
		s.out.sendTo(sess, protocol.NewGameMessage(msgNotOwner))
	case errors.Is(err, ErrAlreadyStarted):
		s.out.sendTo(sess, protocol.NewGameMessage(msgAlreadyStarted))
	case errors.Is(err, ErrNotEnoughPlayers):
		s.out.sendTo(sess, protocol.NewGameMessage(fmt.Sprintf(msgNotEnoughPlayers, s.cfg.MinPlayers)))
	default:
		s.log.Error("start failed", "game", g.Name, "err", err)
	}
}

// handleChat relays a chat line to every other enrolled session.
func (s *Server) handleChat(sess *Session, text string) {
	name := sess.Username()
	s.log.Info("chat", "user", name, "text", text)
	s.metrics.ChatMessagesSent.Add(1)
	s.out.sendToAllBut(s.sessions.Active(), sess.ID, protocol.NewEcho(name+" > "+text))
}

func (s *Server) handleGameChoice(sess *Session, text string) {
	g := s.gameOf(sess)
	if g == nil {
		s.out.sendTo(sess, protocol.NewGameMessage(msgNotInGame))
		return
	}
	g.Choose(sess, text)
}

func (s *Server) gameOf(sess *Session) *Game {
	room := s.rooms.RoomOf(sess.ID)
	if room.Kind != RoomGame {
		return nil
	}
	return s.games.Get(room.GameID)
}
