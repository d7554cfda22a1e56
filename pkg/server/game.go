package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/model"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
)

// GameTitle is the display name prefix of every game.
const GameTitle = "Jeopardy"

// Player-facing texts.
const (
	msgCategoryPicked   = "You picked %s"
	msgNoSuchCategory   = "Category does not exist.."
	msgQuestionPicked   = "You picked %d"
	msgNoSuchQuestion   = "Question does not exist.."
	msgCorrect          = "Answer was correct"
	msgIncorrect        = "Answer was incorrect... Try again.."
	msgNoAttemptsLeft   = "No attempts left, the answer was %s"
	msgOwnerHint        = "You are Game Owner. At any point you wish to start the game, type Start"
	msgJoined           = "%s joined the game!\nCurrent players in this game %d/%d"
	msgStarted          = "The game has started! Pick a category."
	msgNotStarted       = "The game has not started yet"
	msgAllAnswered      = "All questions have been answered. Thanks for playing!"
	msgWelcome          = "Welcome to %s!\nYou will receive the available categories once the game starts. Send your choice to pick a category, a question id or an answer."
	msgNotEnoughPlayers = "At least %d players are needed to start"
)

var (
	ErrNotOwner         = errors.New("server: only the game owner can start the game")
	ErrAlreadyStarted   = errors.New("server: game already started")
	ErrNotEnoughPlayers = errors.New("server: not enough players")
	errGameClosed       = errors.New("server: game does not accept players")
)

// GameConfig bounds one game.
type GameConfig struct {
	MinPlayers   int
	MaxPlayers   int
	AttemptCap   int
	PollInterval time.Duration
}

type eventKind int

const (
	eventStart eventKind = iota
	eventChoice
)

type gameEvent struct {
	kind    eventKind
	session *Session
	text    string
}

// TurnState is a point-in-time view of a game's turn.
type TurnState struct {
	Status   model.GameStatus
	Phase    model.Phase
	Category string
	Question int // question id, 0 when none is chosen
	Attempts int
	Players  int
}

// Game is one trivia match. Its turn state and working copy are mutated only
// by the goroutine started in run; the player set is guarded by mu.
type Game struct {
	ID   string
	Name string

	cfg    GameConfig
	out    *fanout
	log    *slog.Logger
	onStop func(*Game)

	mu            sync.Mutex
	players       map[string]*Session
	order         []string // join order
	owner         string
	status        model.GameStatus
	hasHadPlayers bool

	events chan gameEvent
	wake   chan struct{}
	done   chan struct{}

	// turnMu is held by the game goroutine while it applies an event, so
	// readers of Turn never observe a half-applied transition.
	turnMu      sync.Mutex
	phase       model.Phase
	category    string
	questionIdx int
	attempts    int
	questions   []model.Question
	categories  []model.Category
	filtered    []int
}

func newGame(name string, cfg GameConfig, seed content.Seed, out *fanout, onStop func(*Game)) *Game {
	id := uuid.NewString()
	return &Game{
		ID:          id,
		Name:        name,
		cfg:         cfg,
		out:         out,
		log:         out.log.With("game", name),
		onStop:      onStop,
		players:     make(map[string]*Session),
		status:      model.GameCreated,
		events:      make(chan gameEvent, 64),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		questionIdx: -1,
		questions:   model.CloneQuestions(seed.Questions),
		categories:  model.CloneCategories(seed.Categories),
	}
}

// Status returns the lifecycle status.
func (g *Game) Status() model.GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// PlayerCount returns the current size of the player set.
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// Owner returns the owning session id, "" when the game is empty.
func (g *Game) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

// Done is closed when the game goroutine has exited.
func (g *Game) Done() <-chan struct{} { return g.done }

// Players returns the player set in join order.
func (g *Game) Players() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersLocked()
}

func (g *Game) playersLocked() []*Session {
	result := make([]*Session, 0, len(g.order))
	for _, id := range g.order {
		if s, ok := g.players[id]; ok {
			result = append(result, s)
		}
	}
	return result
}

// accepting reports whether placement may put a new player here.
func (g *Game) accepting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status == model.GameCreated && len(g.players) < g.cfg.MaxPlayers
}

// join adds s to the player set. The first player becomes owner.
func (g *Game) join(s *Session) (owner bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != model.GameCreated || len(g.players) >= g.cfg.MaxPlayers {
		return false, errGameClosed
	}
	g.players[s.ID] = s
	g.order = append(g.order, s.ID)
	g.hasHadPlayers = true
	if g.owner == "" {
		g.owner = s.ID
		owner = true
	}
	s.setOwner(owner)
	return owner, nil
}

// leave removes a player. When the owner leaves, ownership passes to the
// earliest remaining player, which is returned.
func (g *Game) leave(sessionID string) (newOwner *Session) {
	g.mu.Lock()
	s, ok := g.players[sessionID]
	if ok {
		delete(g.players, sessionID)
		for i, id := range g.order {
			if id == sessionID {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
		s.setOwner(false)
		if g.owner == sessionID {
			g.owner = ""
			if len(g.order) > 0 {
				g.owner = g.order[0]
				newOwner = g.players[g.owner]
				newOwner.setOwner(true)
			}
		}
	}
	g.mu.Unlock()

	if ok {
		select {
		case g.wake <- struct{}{}:
		default:
		}
	}
	return newOwner
}

// Start moves Created → Running. Only the owner may start, and only while
// the game has at least MinPlayers players.
func (g *Game) Start(sessionID string) error {
	g.mu.Lock()
	if g.owner != sessionID {
		g.mu.Unlock()
		return ErrNotOwner
	}
	if g.status != model.GameCreated {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(g.players) < g.cfg.MinPlayers {
		g.mu.Unlock()
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(g.players), g.cfg.MinPlayers)
	}
	g.status = model.GameRunning
	g.mu.Unlock()

	g.post(gameEvent{kind: eventStart})
	return nil
}

// Choose queues a player's choice for the game goroutine.
func (g *Game) Choose(s *Session, text string) {
	g.post(gameEvent{kind: eventChoice, session: s, text: text})
}

func (g *Game) post(ev gameEvent) {
	select {
	case g.events <- ev:
	case <-g.done:
	}
}

// Turn returns the current turn state.
func (g *Game) Turn() TurnState {
	g.turnMu.Lock()
	defer g.turnMu.Unlock()
	ts := TurnState{
		Status:   g.Status(),
		Phase:    g.phase,
		Category: g.category,
		Attempts: g.attempts,
		Players:  g.PlayerCount(),
	}
	if g.questionIdx >= 0 {
		ts.Question = g.questions[g.questionIdx].ID
	}
	return ts
}

// run drives the game until it is abandoned or ctx is cancelled. The ticker
// only backs up the wake channel for the emptiness check.
func (g *Game) run(ctx context.Context) {
	defer close(g.done)
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.stop("shutdown")
			return
		case ev := <-g.events:
			g.handle(ev)
		case <-g.wake:
		case <-ticker.C:
		}
		if g.abandoned() {
			g.stop("empty")
			return
		}
	}
}

// abandoned reports whether the game has had players and now has none.
func (g *Game) abandoned() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasHadPlayers && len(g.players) == 0
}

func (g *Game) stop(reason string) {
	g.mu.Lock()
	g.status = model.GameStopped
	g.mu.Unlock()
	g.log.Info("game stopped", "reason", reason)
	if g.onStop != nil {
		g.onStop(g)
	}
}

func (g *Game) handle(ev gameEvent) {
	g.turnMu.Lock()
	defer g.turnMu.Unlock()

	switch ev.kind {
	case eventStart:
		g.log.Info("game started", "players", g.PlayerCount())
		g.out.sendToAll(g.Players(), protocol.NewGameMessage(msgStarted))
		g.enterPickCategory()
	case eventChoice:
		g.applyChoice(ev.session, strings.TrimSpace(ev.text))
	}
}

func (g *Game) applyChoice(s *Session, text string) {
	g.mu.Lock()
	_, member := g.players[s.ID]
	status := g.status
	g.mu.Unlock()
	if !member {
		return
	}
	if status != model.GameRunning {
		g.out.sendTo(s, protocol.NewGameMessage(msgNotStarted))
		return
	}

	switch g.phase {
	case model.PhasePickCategory:
		g.pickCategory(s, text)
	case model.PhasePickQuestion:
		g.pickQuestion(s, text)
	case model.PhaseAnswerQuestion:
		g.answer(s, text)
	}
}

// ----- State machine -----

func (g *Game) enterPickCategory() {
	if g.questionIdx >= 0 {
		q := &g.questions[g.questionIdx]
		q.Category = ""
		q.Text = ""
	}
	if g.category != "" && !g.hasOpenQuestion(g.category) {
		for i := range g.categories {
			if model.SameName(g.categories[i].Name, g.category) {
				g.categories[i].Exhausted = true
			}
		}
	}
	g.category = ""
	g.questionIdx = -1
	g.filtered = nil
	g.phase = model.PhasePickCategory

	players := g.Players()
	g.out.sendToAll(players, protocol.NewCategories(g.categorySummaries()))
	if g.allExhausted() {
		g.out.sendToAll(players, protocol.NewGameMessage(msgAllAnswered))
	}
}

func (g *Game) pickCategory(s *Session, text string) {
	for _, c := range g.categories {
		if c.Exhausted || !model.SameName(c.Name, text) {
			continue
		}
		g.category = c.Name
		g.filtered = g.filtered[:0]
		for i, q := range g.questions {
			if !q.Consumed() && model.SameName(q.Category, c.Name) {
				g.filtered = append(g.filtered, i)
			}
		}
		g.out.sendTo(s, protocol.NewGameMessage(fmt.Sprintf(msgCategoryPicked, c.Name)))
		g.enterPickQuestion()
		return
	}
	g.out.sendTo(s, protocol.NewGameMessage(msgNoSuchCategory))
}

func (g *Game) enterPickQuestion() {
	g.phase = model.PhasePickQuestion
	summaries := make([]pb.QuestionSummary, 0, len(g.filtered))
	for _, i := range g.filtered {
		q := g.questions[i]
		summaries = append(summaries, pb.QuestionSummary{ID: q.ID, Category: q.Category})
	}
	g.out.sendToAll(g.Players(), protocol.NewQuestions(summaries))
}

func (g *Game) pickQuestion(s *Session, text string) {
	id, err := strconv.Atoi(text)
	if err == nil {
		for i, q := range g.questions {
			if q.ID != id {
				continue
			}
			if q.Consumed() || !model.SameName(q.Category, g.category) {
				break
			}
			g.questionIdx = i
			g.out.sendTo(s, protocol.NewGameMessage(fmt.Sprintf(msgQuestionPicked, id)))
			g.enterAnswerQuestion()
			return
		}
	}
	g.out.sendTo(s, protocol.NewGameMessage(msgNoSuchQuestion))
}

func (g *Game) enterAnswerQuestion() {
	g.phase = model.PhaseAnswerQuestion
	q := g.questions[g.questionIdx]
	g.out.sendToAll(g.Players(), protocol.NewQuestion(pb.QuestionSummary{
		ID:       q.ID,
		Category: q.Category,
		Question: q.Text,
		Answer:   q.Answer,
	}))
}

// answer counts every submission against the shared attempt counter.
func (g *Game) answer(s *Session, text string) {
	g.attempts++
	q := g.questions[g.questionIdx]
	if strings.EqualFold(text, strings.TrimSpace(q.Answer)) {
		g.out.metrics.CorrectAnswers.Add(1)
		g.log.Info("question answered", "question", q.ID, "user", s.Username(), "attempts", g.attempts)
		g.out.sendTo(s, protocol.NewGameMessage(msgCorrect))
		g.attempts = 0
		g.enterPickCategory()
		return
	}

	g.out.metrics.IncorrectAnswers.Add(1)
	if g.attempts >= g.cfg.AttemptCap {
		g.log.Info("attempt cap reached", "question", q.ID, "attempts", g.attempts)
		g.out.sendToAll(g.Players(), protocol.NewGameMessage(fmt.Sprintf(msgNoAttemptsLeft, q.Answer)))
		g.attempts = 0
		g.enterPickCategory()
		return
	}
	g.out.sendTo(s, protocol.NewGameMessage(msgIncorrect))
}

// ----- Working copy queries -----

// Categories summarizes the working copy's categories. It has no side
// effects, so asking twice without a choice in between yields the same flags.
func (g *Game) Categories() []pb.CategorySummary {
	g.turnMu.Lock()
	defer g.turnMu.Unlock()
	return g.categorySummaries()
}

func (g *Game) categorySummaries() []pb.CategorySummary {
	out := make([]pb.CategorySummary, len(g.categories))
	for i, c := range g.categories {
		out[i] = pb.CategorySummary{Category: c.Name, Empty: c.Exhausted}
	}
	return out
}

func (g *Game) hasOpenQuestion(category string) bool {
	for _, q := range g.questions {
		if !q.Consumed() && model.SameName(q.Category, category) {
			return true
		}
	}
	return false
}

func (g *Game) allExhausted() bool {
	for _, c := range g.categories {
		if !c.Exhausted {
			return false
		}
	}
	return true
}
