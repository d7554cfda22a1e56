package server

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/quizline/pkg/model"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
	"github.com/NicolasHaas/quizline/pkg/transport"
)

// startedGame returns a running game with two players, owner first.
func startedGame(t *testing.T, cfg GameConfig) (*Game, *player, *player) {
	t.Helper()
	g, out := newTestGame(t, cfg)
	owner := newPlayer(t, out.wire, "alice")
	other := newPlayer(t, out.wire, "bob")
	if isOwner, err := g.join(owner.Session); err != nil || !isOwner {
		t.Fatalf("join owner: owner=%v err=%v", isOwner, err)
	}
	if isOwner, err := g.join(other.Session); err != nil || isOwner {
		t.Fatalf("join other: owner=%v err=%v", isOwner, err)
	}
	if err := g.Start(owner.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	owner.expect(t, pb.TypeCategories, "")
	other.expect(t, pb.TypeCategories, "")
	return g, owner, other
}

func pickScience(t *testing.T, g *Game, p *player) {
	t.Helper()
	g.Choose(p.Session, "science")
	p.expect(t, pb.TypeGameMessage, "You picked Science")
	p.expect(t, pb.TypeQuestions, "")
}

func TestStartRequiresOwner(t *testing.T) {
	g, out := newTestGame(t, defaultGameConfig())
	owner := newPlayer(t, out.wire, "alice")
	other := newPlayer(t, out.wire, "bob")
	_, _ = g.join(owner.Session)
	_, _ = g.join(other.Session)

	if !owner.IsOwner() || other.IsOwner() {
		t.Fatalf("ownership flags: alice=%v bob=%v", owner.IsOwner(), other.IsOwner())
	}
	if err := g.Start(other.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Start by non-owner: err = %v, want ErrNotOwner", err)
	}
	if got := g.Status(); got != model.GameCreated {
		t.Fatalf("status after non-owner start = %v, want created", got)
	}
	if err := g.Start(owner.ID); err != nil {
		t.Fatalf("Start by owner: %v", err)
	}
	if got := g.Status(); got != model.GameRunning {
		t.Fatalf("status = %v, want running", got)
	}
	if err := g.Start(owner.ID); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start: err = %v, want ErrAlreadyStarted", err)
	}
	if g.accepting() {
		t.Error("running game still accepts players")
	}
}

func TestStartNeedsMinPlayers(t *testing.T) {
	cfg := defaultGameConfig()
	cfg.MinPlayers = 2
	g, out := newTestGame(t, cfg)
	owner := newPlayer(t, out.wire, "alice")
	_, _ = g.join(owner.Session)
	if err := g.Start(owner.ID); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("Start with one player: err = %v, want ErrNotEnoughPlayers", err)
	}
}

func TestPickCategory(t *testing.T) {
	g, owner, other := startedGame(t, defaultGameConfig())

	g.Choose(other.Session, "Nonexistent")
	other.expect(t, pb.TypeGameMessage, "Category does not exist..")
	if ts := g.Turn(); ts.Phase != model.PhasePickCategory || ts.Category != "" {
		t.Fatalf("turn after bad category = %+v", ts)
	}

	g.Choose(owner.Session, "science")
	owner.expect(t, pb.TypeGameMessage, "You picked Science")
	pkg := other.expect(t, pb.TypeQuestions, "")
	qs := pkg.Data.(pb.Questions).Questions
	var ids []int
	for _, q := range qs {
		ids = append(ids, q.ID)
		if q.Answer != "" || q.Question != "" {
			t.Errorf("question list leaks text: %+v", q)
		}
	}
	if diff := cmp.Diff([]int{11, 12, 13, 14, 15}, ids); diff != "" {
		t.Errorf("question ids (-want +got):\n%s", diff)
	}
	if ts := g.Turn(); ts.Phase != model.PhasePickQuestion || ts.Category != "Science" {
		t.Fatalf("turn = %+v, want pick-question in Science", ts)
	}
}

func TestPickQuestion(t *testing.T) {
	g, owner, other := startedGame(t, defaultGameConfig())
	pickScience(t, g, owner)

	for _, bad := range []string{"abc", "1", "99", ""} {
		g.Choose(owner.Session, bad)
		owner.expect(t, pb.TypeGameMessage, "Question does not exist..")
	}
	if ts := g.Turn(); ts.Phase != model.PhasePickQuestion {
		t.Fatalf("phase after bad ids = %v", ts.Phase)
	}

	g.Choose(owner.Session, " 12 ")
	owner.expect(t, pb.TypeGameMessage, "You picked 12")
	pkg := other.expect(t, pb.TypeQuestionsQuestion, "")
	q := pkg.Data.(pb.Question).Question
	if q == nil || q.ID != 12 || q.Answer != "Mars" || q.Question == "" {
		t.Fatalf("question record = %+v", q)
	}
	if ts := g.Turn(); ts.Phase != model.PhaseAnswerQuestion || ts.Question != 12 {
		t.Fatalf("turn = %+v", ts)
	}
}

func TestAnswerQuestion(t *testing.T) {
	g, owner, other := startedGame(t, defaultGameConfig())
	pickScience(t, g, owner)
	g.Choose(owner.Session, "12")
	owner.expect(t, pb.TypeQuestionsQuestion, "")

	g.Choose(other.Session, "Venus")
	other.expect(t, pb.TypeGameMessage, "Answer was incorrect... Try again..")
	if ts := g.Turn(); ts.Attempts != 1 || ts.Phase != model.PhaseAnswerQuestion {
		t.Fatalf("turn after wrong answer = %+v", ts)
	}

	g.Choose(owner.Session, "mars")
	owner.expect(t, pb.TypeGameMessage, "Answer was correct")
	other.expect(t, pb.TypeCategories, "")
	if ts := g.Turn(); ts.Attempts != 0 || ts.Phase != model.PhasePickCategory || ts.Question != 0 {
		t.Fatalf("turn after correct answer = %+v", ts)
	}

	// The answered question is consumed and no longer offered.
	owner.drain()
	g.Choose(owner.Session, "Science")
	pkg := owner.expect(t, pb.TypeQuestions, "")
	for _, q := range pkg.Data.(pb.Questions).Questions {
		if q.ID == 12 {
			t.Fatal("consumed question offered again")
		}
	}
	g.Choose(owner.Session, "12")
	owner.expect(t, pb.TypeGameMessage, "Question does not exist..")
}

func TestAttemptCap(t *testing.T) {
	cfg := defaultGameConfig()
	g, owner, other := startedGame(t, cfg)
	pickScience(t, g, owner)
	g.Choose(owner.Session, "12")
	owner.expect(t, pb.TypeQuestionsQuestion, "")

	for i := 0; i < cfg.AttemptCap-1; i++ {
		g.Choose(owner.Session, fmt.Sprintf("wrong %d", i))
		owner.expect(t, pb.TypeGameMessage, "Answer was incorrect")
	}
	if ts := g.Turn(); ts.Attempts != cfg.AttemptCap-1 {
		t.Fatalf("attempts = %d, want %d", ts.Attempts, cfg.AttemptCap-1)
	}

	g.Choose(other.Session, "still wrong")
	other.expect(t, pb.TypeGameMessage, "No attempts left, the answer was Mars")
	owner.expect(t, pb.TypeGameMessage, "No attempts left")
	owner.expect(t, pb.TypeCategories, "")
	if ts := g.Turn(); ts.Attempts != 0 || ts.Phase != model.PhasePickCategory {
		t.Fatalf("turn after cap = %+v", ts)
	}

	// The abandoned question is consumed like an answered one.
	owner.drain()
	g.Choose(owner.Session, "Science")
	owner.expect(t, pb.TypeGameMessage, "You picked Science")
	pkg := owner.expect(t, pb.TypeQuestions, "")
	var ids []int
	for _, q := range pkg.Data.(pb.Questions).Questions {
		ids = append(ids, q.ID)
	}
	if diff := cmp.Diff([]int{11, 13, 14, 15}, ids); diff != "" {
		t.Errorf("questions after cap (-want +got):\n%s", diff)
	}
	g.Choose(owner.Session, "12")
	owner.expect(t, pb.TypeGameMessage, "Question does not exist..")
	if ts := g.Turn(); ts.Phase != model.PhasePickQuestion {
		t.Fatalf("phase after rejected id = %v, want pick question", ts.Phase)
	}
}

// A player that stops reading must not hold up the rest of the game.
func TestStalledPlayerDoesNotBlockGame(t *testing.T) {
	g, out := newTestGame(t, defaultGameConfig())
	owner := newPlayer(t, out.wire, "alice")

	a, b := net.Pipe()
	t.Cleanup(func() { _ = b.Close() })
	stalled := newSession(transport.NewLineConn(a, transport.WithWriteTimeout(50*time.Millisecond)))
	if !stalled.promote("mallory", "pw") {
		t.Fatal("promote mallory failed")
	}
	t.Cleanup(func() { _ = stalled.Close() })

	if _, err := g.join(owner.Session); err != nil {
		t.Fatalf("join owner: %v", err)
	}
	if _, err := g.join(stalled); err != nil {
		t.Fatalf("join stalled: %v", err)
	}
	if err := g.Start(owner.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	owner.expect(t, pb.TypeCategories, "")
	pickScience(t, g, owner)

	if got := out.metrics.WriteErrors.Load(); got == 0 {
		t.Error("write to the stalled player did not fail")
	}
}

func TestCategoryExhaustion(t *testing.T) {
	g, owner, _ := startedGame(t, defaultGameConfig())
	answers := map[int]string{
		11: "Eat it", 12: "Mars", 13: "Gold and silver", 14: "Caterpillars", 15: "Ostrich",
	}
	for id := 11; id <= 15; id++ {
		pickScience(t, g, owner)
		g.Choose(owner.Session, fmt.Sprint(id))
		owner.expect(t, pb.TypeQuestionsQuestion, "")
		g.Choose(owner.Session, answers[id])
		owner.expect(t, pb.TypeGameMessage, "Answer was correct")
	}

	pkg := owner.expect(t, pb.TypeCategories, "")
	for _, c := range pkg.Data.(pb.Categories).Categories {
		if want := c.Category == "Science"; c.Empty != want {
			t.Errorf("category %s empty = %v, want %v", c.Category, c.Empty, want)
		}
	}
	g.Choose(owner.Session, "Science")
	owner.expect(t, pb.TypeGameMessage, "Category does not exist..")
}

func TestCategoriesIdempotent(t *testing.T) {
	g, _, _ := startedGame(t, defaultGameConfig())
	first := g.Categories()
	second := g.Categories()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-query changed categories (-first +second):\n%s", diff)
	}
	if len(first) != 5 {
		t.Fatalf("got %d categories, want 5", len(first))
	}
}

func TestChoiceBeforeStart(t *testing.T) {
	g, out := newTestGame(t, defaultGameConfig())
	p := newPlayer(t, out.wire, "alice")
	_, _ = g.join(p.Session)
	g.Choose(p.Session, "Science")
	p.expect(t, pb.TypeGameMessage, "The game has not started yet")
}

func TestJoinRespectsMaxPlayers(t *testing.T) {
	cfg := defaultGameConfig()
	cfg.MaxPlayers = 2
	g, out := newTestGame(t, cfg)
	for i := 0; i < 2; i++ {
		if _, err := g.join(newPlayer(t, out.wire, fmt.Sprint("p", i)).Session); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	if g.accepting() {
		t.Error("full game still accepting")
	}
	if _, err := g.join(newPlayer(t, out.wire, "late").Session); err == nil {
		t.Fatal("join beyond max succeeded")
	}
	if n := g.PlayerCount(); n != 2 {
		t.Fatalf("PlayerCount = %d, want 2", n)
	}
}

func TestOwnershipPassesOnLeave(t *testing.T) {
	g, out := newTestGame(t, defaultGameConfig())
	alice := newPlayer(t, out.wire, "alice")
	bob := newPlayer(t, out.wire, "bob")
	_, _ = g.join(alice.Session)
	_, _ = g.join(bob.Session)

	next := g.leave(alice.ID)
	if next == nil || next.ID != bob.ID {
		t.Fatalf("new owner = %v, want bob", next)
	}
	if g.Owner() != bob.ID || !bob.IsOwner() || alice.IsOwner() {
		t.Fatal("ownership flags not updated")
	}
	if err := g.Start(bob.ID); err != nil {
		t.Fatalf("Start by new owner: %v", err)
	}
}

func TestAbandonedGameStops(t *testing.T) {
	g, out := newTestGame(t, defaultGameConfig())
	p := newPlayer(t, out.wire, "alice")
	_, _ = g.join(p.Session)
	g.leave(p.ID)

	select {
	case <-g.Done():
	case <-time.After(waitTimeout):
		t.Fatal("abandoned game did not stop")
	}
	if got := g.Status(); got != model.GameStopped {
		t.Fatalf("status = %v, want stopped", got)
	}
}

func TestEmptyGameAwaitsFirstPlayer(t *testing.T) {
	g, _ := newTestGame(t, defaultGameConfig())
	select {
	case <-g.Done():
		t.Fatal("game without any player stopped")
	case <-time.After(5 * defaultGameConfig().PollInterval):
	}
	if !g.accepting() {
		t.Fatal("fresh game not accepting players")
	}
}
