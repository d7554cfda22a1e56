package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NicolasHaas/quizline/pkg/content"
)

// ErrPlacement is returned when a join request cannot be satisfied.
var ErrPlacement = errors.New("server: placement failed")

// GamePool owns every live game in creation order and places joining
// sessions. Lock order: pool, then rooms, then a game's own lock.
type GamePool struct {
	ctx     context.Context
	cfg     GameConfig
	seed    content.Seed
	rooms   *RoomManager
	out     *fanout
	metrics *Metrics

	mu      sync.Mutex
	games   []*Game
	created int
	closed  bool
	wg      sync.WaitGroup
}

// NewGamePool creates an empty pool. Games it creates run until ctx is done.
func NewGamePool(ctx context.Context, cfg GameConfig, seed content.Seed, rooms *RoomManager, out *fanout) *GamePool {
	return &GamePool{
		ctx:     ctx,
		cfg:     cfg,
		seed:    seed,
		rooms:   rooms,
		out:     out,
		metrics: out.metrics,
	}
}

// Place moves a lobby session into the first game, in creation order, that
// is neither full nor running, creating a new game when none qualifies.
func (p *GamePool) Place(s *Session) (g *Game, owner bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rooms.RoomOf(s.ID) != lobby {
		return nil, false, fmt.Errorf("%w: session is not in the lobby", ErrPlacement)
	}

	for _, cand := range p.games {
		if !cand.accepting() {
			continue
		}
		if owner, err := p.enter(cand, s); err == nil {
			return cand, owner, nil
		}
	}

	if p.closed || p.ctx.Err() != nil {
		return nil, false, fmt.Errorf("%w: server is shutting down", ErrPlacement)
	}
	g = p.createLocked()
	owner, err = p.enter(g, s)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrPlacement, err)
	}
	return g, owner, nil
}

// enter performs the room move and the player-set insert together.
func (p *GamePool) enter(g *Game, s *Session) (bool, error) {
	if !p.rooms.Move(s.ID, lobby, inGame(g.ID)) {
		return false, errGameClosed
	}
	owner, err := g.join(s)
	if err != nil {
		p.rooms.Move(s.ID, inGame(g.ID), lobby)
		return false, err
	}
	p.metrics.Placements.Add(1)
	return owner, nil
}

func (p *GamePool) createLocked() *Game {
	p.created++
	g := newGame(fmt.Sprintf("%s #%d", GameTitle, p.created), p.cfg, p.seed, p.out, p.remove)
	p.games = append(p.games, g)
	p.metrics.GamesCreated.Add(1)
	p.metrics.ActiveGames.Add(1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		g.run(p.ctx)
	}()
	p.out.log.Info("game created", "game", g.Name, "id", g.ID)
	return g
}

// Leave removes a session from whatever room it occupies. When the session
// was in a game it returns that game and the player who inherited
// ownership, if any.
func (p *GamePool) Leave(sessionID string) (room Room, g *Game, newOwner *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	room = p.rooms.Leave(sessionID)
	if room.Kind != RoomGame {
		return room, nil, nil
	}
	g = p.getLocked(room.GameID)
	if g == nil {
		return room, nil, nil
	}
	return room, g, g.leave(sessionID)
}

// remove is the games' onStop hook.
func (p *GamePool) remove(g *Game) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.games {
		if cur == g {
			p.games = append(p.games[:i], p.games[i+1:]...)
			p.metrics.GamesStopped.Add(1)
			p.metrics.ActiveGames.Add(-1)
			return
		}
	}
}

// Get returns the live game with the given id.
func (p *GamePool) Get(id string) *Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getLocked(id)
}

func (p *GamePool) getLocked(id string) *Game {
	for _, g := range p.games {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Games returns the live games in creation order.
func (p *GamePool) Games() []*Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]*Game, len(p.games))
	copy(result, p.games)
	return result
}

// Count returns the number of live games.
func (p *GamePool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.games)
}

// Wait stops the pool from creating games and blocks until every game
// goroutine has exited.
func (p *GamePool) Wait() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
