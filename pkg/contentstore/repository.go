package contentstore

import (
	"context"
	"errors"
	"strings"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/model"
)

var (
	ErrNotFound  = errors.New("contentstore: question not found")
	ErrDuplicate = errors.New("contentstore: question already exists")
	ErrInvalid   = errors.New("contentstore: category, question and answer are required")
)

// Repository is the question persistence the API runs on. Store keeps
// questions in SQLite, Memory keeps them in process.
type Repository interface {
	Create(ctx context.Context, q model.Question) (model.Question, error)
	Get(ctx context.Context, id int) (model.Question, error)
	List(ctx context.Context) ([]model.Question, error)
	ListByCategory(ctx context.Context, category string) ([]model.Question, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Delete(ctx context.Context, id int) (model.Question, error)
	Count(ctx context.Context) (int, error)

	// Import adds qs atomically, skipping texts already stored, and
	// reports how many were added.
	Import(ctx context.Context, qs []model.Question) (int, error)
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*Memory)(nil)
)

// SeedDefaults loads the built-in bank into an empty repository.
func SeedDefaults(ctx context.Context, r Repository) (int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return r.Import(ctx, content.DefaultQuestions())
}

// normalize trims every field and rejects incomplete questions. The id is
// always assigned by the repository.
func normalize(q model.Question) (model.Question, error) {
	q.ID = 0
	q.Category = strings.TrimSpace(q.Category)
	q.Text = strings.TrimSpace(q.Text)
	q.Answer = strings.TrimSpace(q.Answer)
	if q.Category == "" || q.Text == "" || q.Answer == "" {
		return model.Question{}, ErrInvalid
	}
	return q, nil
}
