package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NicolasHaas/quizline/pkg/model"
	"github.com/NicolasHaas/quizline/pkg/version"
)

// HTTPSource reads from a content store service.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a source for the store at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Questions(ctx context.Context) ([]model.Question, error) {
	var qs []model.Question
	if err := s.get(ctx, "/api/questions", &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// Categories accepts either a list of names or a list of category objects.
func (s *HTTPSource) Categories(ctx context.Context) ([]string, error) {
	var raw json.RawMessage
	if err := s.get(ctx, "/api/categories", &raw); err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var cs []model.Category
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, fmt.Errorf("content: decode categories: %w", err)
	}
	names = make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, v any) error {
	u, err := url.JoinPath(s.BaseURL, path)
	if err != nil {
		return fmt.Errorf("content: bad base url %q: %w", s.BaseURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("content: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("content: GET %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("content: read %s: %w", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content: GET %s: %s: %s", u, resp.Status, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("content: decode %s: %w", u, err)
	}
	return nil
}
