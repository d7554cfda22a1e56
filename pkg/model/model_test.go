package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "alice", "alice"},
		{"padded", "  bob \t", "bob"},
		{"control chars", "ev\x1b[31mil\x00", "ev[31mil"},
		{"newline", "multi\nline", "multiline"},
		{"unicode kept", "ñoño", "ñoño"},
		{"too long", strings.Repeat("a", MaxUsernameLength+10), strings.Repeat("a", MaxUsernameLength)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeUsername(tt.input); got != tt.want {
				t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSessionStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{SessionPending, SessionActive, true},
		{SessionPending, SessionClosed, true},
		{SessionActive, SessionClosed, true},
		{SessionActive, SessionPending, false},
		{SessionClosed, SessionActive, false},
		{SessionClosed, SessionClosed, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%v -> %v = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCloneQuestionsIsIndependent(t *testing.T) {
	seed := []Question{{ID: 1, Category: "Science", Text: "Fourth planet?", Answer: "Mars"}}
	working := CloneQuestions(seed)
	working[0].Text = ""
	working[0].Category = ""

	if seed[0].Text == "" {
		t.Fatal("mutating the clone changed the seed")
	}
	if !working[0].Consumed() || seed[0].Consumed() {
		t.Errorf("Consumed: working=%v seed=%v", working[0].Consumed(), seed[0].Consumed())
	}
}

func TestCategoryNames(t *testing.T) {
	qs := []Question{
		{ID: 1, Category: "Arts"},
		{ID: 2, Category: "Geography"},
		{ID: 3, Category: "arts"},
	}
	got := CategoryNames([]string{"Science", " Arts ", ""}, qs)
	want := []string{"Science", "Arts", "Geography"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CategoryNames mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusStrings(t *testing.T) {
	if GameRunning.String() != "running" || PhaseAnswerQuestion.String() != "answer-question" {
		t.Errorf("unexpected strings: %s %s", GameRunning, PhaseAnswerQuestion)
	}
	if SessionStatus(9).String() != "unknown" || GameStatus(9).String() != "unknown" || Phase(9).String() != "unknown" {
		t.Error("out of range values should stringify as unknown")
	}
}
