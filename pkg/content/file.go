package content

import (
	"context"
	"fmt"
	"os"

	"github.com/NicolasHaas/quizline/pkg/model"
)

// FileSource reads a YAML question bank from disk on every call, so edits
// are picked up by a retrying Bootstrap.
type FileSource struct {
	Path string
}

func (s FileSource) Questions(context.Context) ([]model.Question, error) {
	data, err := os.ReadFile(s.Path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", s.Path, err)
	}
	return ParseBank(data)
}

func (s FileSource) Categories(ctx context.Context) ([]string, error) {
	qs, err := s.Questions(ctx)
	if err != nil {
		return nil, err
	}
	return model.CategoryNames(nil, qs), nil
}
