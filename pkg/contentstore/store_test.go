package contentstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/contentstore"
	"github.com/NicolasHaas/quizline/pkg/model"
)

func newTestStore(t *testing.T) *contentstore.Store {
	t.Helper()

	st, err := contentstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("closing database: %v", err)
		}
	})
	return st
}

// withRepos runs fn against every Repository implementation.
func withRepos(t *testing.T, fn func(t *testing.T, repo contentstore.Repository)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		fn(t, newTestStore(t))
	})
	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, contentstore.NewMemory())
	})
}

func TestCreateAndGet(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		got, err := st.Create(ctx, model.Question{Category: " Science ", Text: "Red planet?", Answer: "Mars"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		want := model.Question{ID: 1, Category: "Science", Text: "Red planet?", Answer: "Mars"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Create mismatch (-want +got):\n%s", diff)
		}

		stored, err := st.Get(ctx, got.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if diff := cmp.Diff(want, stored); diff != "" {
			t.Errorf("Get mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCreateRejects(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		if _, err := st.Create(ctx, model.Question{Category: "Arts", Text: "Who painted it?", Answer: "Leonardo"}); err != nil {
			t.Fatalf("Create: %v", err)
		}

		tcases := map[string]struct {
			in   model.Question
			want error
		}{
			"duplicate_text":   {model.Question{Category: "History", Text: "Who painted it?", Answer: "x"}, contentstore.ErrDuplicate},
			"missing_category": {model.Question{Text: "Q", Answer: "A"}, contentstore.ErrInvalid},
			"blank_answer":     {model.Question{Category: "C", Text: "Q", Answer: "  "}, contentstore.ErrInvalid},
		}
		for name, tc := range tcases {
			t.Run(name, func(t *testing.T) {
				if _, err := st.Create(ctx, tc.in); !errors.Is(err, tc.want) {
					t.Errorf("Create(%+v) err = %v, want %v", tc.in, err, tc.want)
				}
			})
		}
	})
}

func TestGetMissing(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		if _, err := st.Get(context.Background(), 42); !errors.Is(err, contentstore.ErrNotFound) {
			t.Errorf("Get(42) err = %v, want ErrNotFound", err)
		}
	})
}

func TestSeedDefaults(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		n, err := contentstore.SeedDefaults(ctx, st)
		if err != nil {
			t.Fatalf("SeedDefaults: %v", err)
		}
		if n != content.MinQuestions {
			t.Fatalf("SeedDefaults added %d, want %d", n, content.MinQuestions)
		}

		// A second run leaves a populated store alone.
		n, err = contentstore.SeedDefaults(ctx, st)
		if err != nil || n != 0 {
			t.Fatalf("second SeedDefaults = %d, %v; want 0, nil", n, err)
		}

		got, err := st.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if diff := cmp.Diff(content.DefaultQuestions(), got); diff != "" {
			t.Errorf("seeded questions mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestImportSkipsDuplicates(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		qs := []model.Question{
			{Category: "Arts", Text: "One", Answer: "1"},
			{Category: "Arts", Text: "Two", Answer: "2"},
			{Category: "Arts", Text: "One", Answer: "again"},
		}
		n, err := st.Import(ctx, qs)
		if err != nil {
			t.Fatalf("Import: %v", err)
		}
		if n != 2 {
			t.Errorf("Import added %d, want 2", n)
		}
		if c, _ := st.Count(ctx); c != 2 {
			t.Errorf("Count = %d, want 2", c)
		}
	})
}

func TestImportRollsBackOnInvalid(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		_, err := st.Import(ctx, []model.Question{
			{Category: "Arts", Text: "One", Answer: "1"},
			{Category: "Arts", Text: "", Answer: "2"},
		})
		if !errors.Is(err, contentstore.ErrInvalid) {
			t.Fatalf("Import err = %v, want ErrInvalid", err)
		}
		if c, _ := st.Count(ctx); c != 0 {
			t.Errorf("Count after rollback = %d, want 0", c)
		}
	})
}

func TestCategoriesAndListByCategory(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		_, err := st.Import(ctx, []model.Question{
			{Category: "Science", Text: "s1", Answer: "a"},
			{Category: "Arts", Text: "a1", Answer: "a"},
			{Category: "science", Text: "s2", Answer: "a"},
			{Category: "Geography", Text: "g1", Answer: "a"},
		})
		if err != nil {
			t.Fatalf("Import: %v", err)
		}

		cs, err := st.Categories(ctx)
		if err != nil {
			t.Fatalf("Categories: %v", err)
		}
		want := []model.Category{{Name: "Science"}, {Name: "Arts"}, {Name: "Geography"}}
		if diff := cmp.Diff(want, cs); diff != "" {
			t.Errorf("Categories mismatch (-want +got):\n%s", diff)
		}

		qs, err := st.ListByCategory(ctx, "SCIENCE")
		if err != nil {
			t.Fatalf("ListByCategory: %v", err)
		}
		var texts []string
		for _, q := range qs {
			texts = append(texts, q.Text)
		}
		if diff := cmp.Diff([]string{"s1", "s2"}, texts); diff != "" {
			t.Errorf("ListByCategory mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDelete(t *testing.T) {
	withRepos(t, func(t *testing.T, st contentstore.Repository) {
		ctx := context.Background()

		q, err := st.Create(ctx, model.Question{Category: "Arts", Text: "One", Answer: "1"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := st.Delete(ctx, q.ID)
		if err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if diff := cmp.Diff(q, got); diff != "" {
			t.Errorf("Delete returned (-want +got):\n%s", diff)
		}
		if _, err := st.Delete(ctx, q.ID); !errors.Is(err, contentstore.ErrNotFound) {
			t.Errorf("second Delete err = %v, want ErrNotFound", err)
		}
	})
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	st, err := contentstore.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Create(ctx, model.Question{Category: "Arts", Text: "One", Answer: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = contentstore.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	if n, _ := st.Count(ctx); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
