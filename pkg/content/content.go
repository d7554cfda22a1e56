// Package content loads the question bank the game server plays with.
//
// A Source yields questions and category names; Bootstrap polls a Source
// until enough questions are available and freezes them into a Seed that
// every game copies.
package content

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NicolasHaas/quizline/pkg/model"
)

// MinQuestions is how many questions the server needs before it starts.
const MinQuestions = 25

// Source provides question data.
type Source interface {
	Questions(ctx context.Context) ([]model.Question, error)
	Categories(ctx context.Context) ([]string, error)
}

// Seed is the read-only question bank shared by all games. Games must copy
// it before mutating, see Clone.
type Seed struct {
	Questions  []model.Question
	Categories []model.Category
}

// NewSeed drops incomplete questions, merges the category list with the
// categories found on questions, and flags categories without questions as
// exhausted.
func NewSeed(questions []model.Question, categories []string) Seed {
	var qs []model.Question
	for _, q := range questions {
		q.Category = strings.TrimSpace(q.Category)
		q.Text = strings.TrimSpace(q.Text)
		q.Answer = strings.TrimSpace(q.Answer)
		if q.Category == "" || q.Text == "" || q.Answer == "" {
			continue
		}
		qs = append(qs, q)
	}

	names := model.CategoryNames(categories, qs)
	cs := make([]model.Category, 0, len(names))
	for _, n := range names {
		c := model.Category{Name: n, Exhausted: true}
		for _, q := range qs {
			if model.SameName(q.Category, n) {
				c.Exhausted = false
				break
			}
		}
		cs = append(cs, c)
	}
	return Seed{Questions: qs, Categories: cs}
}

// Clone returns an independent working copy.
func (s Seed) Clone() Seed {
	return Seed{
		Questions:  model.CloneQuestions(s.Questions),
		Categories: model.CloneCategories(s.Categories),
	}
}

// Bank is the YAML layout of a question file.
type Bank struct {
	Questions []model.Question `yaml:"questions"`
}

// ParseBank decodes a YAML question bank. Questions without an id are
// numbered after the highest id present, in file order.
func ParseBank(data []byte) ([]model.Question, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("content: parse bank: %w", err)
	}
	next := 1
	for _, q := range b.Questions {
		if q.ID >= next {
			next = q.ID + 1
		}
	}
	for i := range b.Questions {
		if b.Questions[i].ID == 0 {
			b.Questions[i].ID = next
			next++
		}
	}
	return b.Questions, nil
}

//go:embed questions.yaml
var defaultBank []byte

// DefaultQuestions returns the built-in bank of 25 questions in five
// categories.
func DefaultQuestions() []model.Question {
	qs, err := ParseBank(defaultBank)
	if err != nil {
		panic(err)
	}
	return qs
}

// StaticSource serves a fixed list, e.g. DefaultQuestions.
type StaticSource struct {
	List []model.Question
}

func (s StaticSource) Questions(context.Context) ([]model.Question, error) {
	return model.CloneQuestions(s.List), nil
}

func (s StaticSource) Categories(context.Context) ([]string, error) {
	return model.CategoryNames(nil, s.List), nil
}
