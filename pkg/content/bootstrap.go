package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotEnoughQuestions is returned by a single fetch that came up short.
var ErrNotEnoughQuestions = errors.New("content: not enough questions")

// BootstrapOptions tunes the retry policy.
type BootstrapOptions struct {
	MinQuestions    int           // defaults to MinQuestions
	InitialInterval time.Duration // first retry delay (default 500ms)
	MaxInterval     time.Duration // cap on the retry delay (default 30s)
}

// Bootstrap fetches questions and categories from src, retrying with
// exponential backoff until at least MinQuestions usable questions are
// available or ctx is done.
func Bootstrap(ctx context.Context, src Source, opts BootstrapOptions) (Seed, error) {
	if opts.MinQuestions <= 0 {
		opts.MinQuestions = MinQuestions
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	log := slog.Default().With("component", "bootstrap")

	var seed Seed
	operation := func() error {
		qs, err := src.Questions(ctx)
		if err != nil {
			return err
		}
		names, err := src.Categories(ctx)
		if err != nil {
			return err
		}
		s := NewSeed(qs, names)
		if len(s.Questions) < opts.MinQuestions {
			return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughQuestions, len(s.Questions), opts.MinQuestions)
		}
		seed = s
		return nil
	}

	strategy := backoff.WithContext(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(opts.InitialInterval),
			backoff.WithMaxInterval(opts.MaxInterval),
			backoff.WithMaxElapsedTime(0),
		),
		ctx,
	)
	err := backoff.RetryNotify(operation, strategy, func(err error, d time.Duration) {
		log.Warn("question bank not ready", "err", err, "retry_in", d)
	})
	if err != nil {
		return Seed{}, fmt.Errorf("content: bootstrap: %w", err)
	}
	log.Info("question bank loaded", "questions", len(seed.Questions), "categories", len(seed.Categories))
	return seed, nil
}
