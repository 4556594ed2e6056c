package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/source"
)

// delayFunc waits between article requests; replaced in tests
var delayFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runner executes one parser: discovery, then each article in order
type Runner struct {
	pipeline *Pipeline
	minDelay time.Duration
	maxDelay time.Duration
	logger   zerolog.Logger
}

// NewRunner creates a runner that waits a random duration in
// [minDelay, maxDelay] between article fetches
func NewRunner(p *Pipeline, minDelay, maxDelay time.Duration, logger zerolog.Logger) *Runner {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Runner{pipeline: p, minDelay: minDelay, maxDelay: maxDelay, logger: logger}
}

// Run processes every candidate of parser. Fetch errors are counted and
// skipped. Cancelling ctx stops the run between articles; the article in
// flight completes under its own timeouts.
func (r *Runner) Run(ctx context.Context, parser source.Parser) (model.RunStats, error) {
	stats := model.NewRunStats()
	log := r.logger.With().Str("parser", parser.Name()).Logger()

	candidates, err := parser.Discover(ctx)
	if err != nil {
		return stats, fmt.Errorf("discover: %w", err)
	}
	stats.TotalFound = len(candidates)
	log.Info().Int("candidates", len(candidates)).Msg("discovery finished")

	for i, c := range candidates {
		if i > 0 {
			if err := delayFunc(ctx, r.delay()); err != nil {
				return stats, err
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}

		articleCtx := context.WithoutCancel(ctx)

		raw, err := parser.FetchArticle(articleCtx, c)
		if err != nil {
			stats.Errors++
			log.Warn().Err(err).Str("link", c.Link).Msg("failed to fetch article")
			continue
		}
		r.pipeline.Process(articleCtx, raw, &stats)
	}

	log.Info().
		Int("saved", stats.SuccessfullySaved).
		Int("duplicates", stats.DuplicatesSkipped).
		Int("rejected", stats.ValidationRejected).
		Int("errors", stats.Errors).
		Msg("parser finished")
	return stats, nil
}

func (r *Runner) delay() time.Duration {
	span := r.maxDelay - r.minDelay
	if span <= 0 {
		return r.minDelay
	}
	return r.minDelay + rand.N(span+1)
}
