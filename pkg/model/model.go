// Package model defines the core domain types for quizline.
package model

import "strings"

// Question is one trivia entry. Ids are assigned once at ingestion, 1-based.
//
// Inside a game's working copy a question is consumed by blanking Category and
// Text; Id and Answer stay so lookups by id keep working.
type Question struct {
	ID       int    `json:"id" yaml:"id,omitempty"`
	Category string `json:"category" yaml:"category"`
	Text     string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Consumed reports whether the question has been used up in a working copy.
func (q Question) Consumed() bool {
	return q.Text == "" && q.Category == ""
}

// Category is a category name plus its exhausted flag for one working copy.
type Category struct {
	Name      string `json:"category" yaml:"category"`
	Exhausted bool   `json:"empty" yaml:"-"`
}

// SameName compares category names case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// CloneQuestions returns an independent copy of qs.
func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	copy(out, qs)
	return out
}

// CloneCategories returns an independent copy of cs.
func CloneCategories(cs []Category) []Category {
	if cs == nil {
		return nil
	}
	out := make([]Category, len(cs))
	copy(out, cs)
	return out
}

// CategoryNames collects the distinct category names in first-seen order,
// starting with names and then any category that only appears on questions.
func CategoryNames(names []string, qs []Question) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n string) {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, n)
	}
	for _, n := range names {
		add(n)
	}
	for _, q := range qs {
		add(q.Category)
	}
	return out
}
