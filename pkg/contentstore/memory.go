package contentstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/NicolasHaas/quizline/pkg/model"
)

// Memory is an in-process Repository for tests and throwaway stores. It
// mirrors Store for ordering, validation and error values.
type Memory struct {
	mu     sync.RWMutex
	nextID int
	byID   map[int]model.Question
	order  []int           // ids in insertion order, which is id order
	texts  map[string]bool // stored question texts
}

// NewMemory creates an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		nextID: 1,
		byID:   make(map[int]model.Question),
		texts:  make(map[string]bool),
	}
}

func (m *Memory) Create(_ context.Context, in model.Question) (model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(in)
}

func (m *Memory) createLocked(in model.Question) (model.Question, error) {
	in, err := normalize(in)
	if err != nil {
		return model.Question{}, err
	}
	if m.texts[in.Text] {
		return model.Question{}, fmt.Errorf("%w: %q", ErrDuplicate, in.Text)
	}
	in.ID = m.nextID
	m.nextID++
	m.byID[in.ID] = in
	m.order = append(m.order, in.ID)
	m.texts[in.Text] = true
	return in, nil
}

func (m *Memory) Get(_ context.Context, id int) (model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.byID[id]
	if !ok {
		return model.Question{}, ErrNotFound
	}
	return q, nil
}

func (m *Memory) List(_ context.Context) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Question
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out, nil
}

func (m *Memory) ListByCategory(_ context.Context, category string) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Question
	for _, id := range m.order {
		if q := m.byID[id]; model.SameName(q.Category, category) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *Memory) Categories(_ context.Context) ([]model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []model.Category
	for _, id := range m.order {
		name := m.byID[id].Category
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Category{Name: name})
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id int) (model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byID[id]
	if !ok {
		return model.Question{}, ErrNotFound
	}
	delete(m.byID, id)
	delete(m.texts, q.Text)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return q, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}

// Import validates the whole batch before adding anything, matching the
// rollback behavior of Store.
func (m *Memory) Import(_ context.Context, qs []model.Question) (int, error) {
	for _, q := range qs {
		if _, err := normalize(q); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, q := range qs {
		if _, err := m.createLocked(q); err == nil {
			added++
		}
	}
	return added, nil
}
