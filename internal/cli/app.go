package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/cache"
	"github.com/ppiankov/tenscan/internal/classify"
	"github.com/ppiankov/tenscan/internal/dedup"
	"github.com/ppiankov/tenscan/internal/fetch"
	"github.com/ppiankov/tenscan/internal/llm"
	"github.com/ppiankov/tenscan/internal/logging"
	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/pipeline"
	"github.com/ppiankov/tenscan/internal/score"
	"github.com/ppiankov/tenscan/internal/source"
	"github.com/ppiankov/tenscan/internal/store"
	"github.com/ppiankov/tenscan/internal/validate"
	"github.com/ppiankov/tenscan/internal/worker"
)

// app holds the wired components for one CLI invocation
type app struct {
	cfg    *model.Config
	logger zerolog.Logger

	cache      cache.Cache
	store      store.Store
	validator  *validate.Validator
	classifier *classify.Classifier
	scorer     *score.Scorer
	pipeline   *pipeline.Pipeline
	registry   *source.Registry
	manager    *worker.Manager
}

// appOptions selects the optional parts of the wiring
type appOptions struct {
	// sources builds the fetcher, parser registry and manager
	sources bool

	concurrency int
	onComplete  func(model.ParserRunResult)
}

func newApp(ctx context.Context, cfg *model.Config, opts appOptions) (*app, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	fail := func(err error) (*app, error) {
		_ = a.close()
		return nil, err
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return fail(fmt.Errorf("cache: %w", err))
		}
		a.cache = c
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return fail(fmt.Errorf("llm: %w", err))
	}
	if provider == nil {
		logger.Info().Msg("no AI provider configured, using keyword classification")
	}

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fail(fmt.Errorf("store: %w", err))
	}
	a.store = s

	a.validator = validate.NewValidator(&cfg.Validation)
	a.classifier = classify.New(provider, a.cache, classify.Options{
		Timeout:  time.Duration(cfg.LLM.Timeout) * time.Second,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger.With().Str("component", "classifier").Logger(),
	})
	a.scorer = score.NewScorer(cfg.Pipeline.BlendMinConfidence)

	a.pipeline = pipeline.New(pipeline.Deps{
		Validator:  a.validator,
		Classifier: a.classifier,
		Dedup: dedup.NewChecker(a.store, dedup.Options{
			Window:    cfg.Store.DedupWindow,
			Limit:     cfg.Store.DedupLimit,
			Threshold: cfg.Store.TitleThreshold,
			Logger:    logger.With().Str("component", "dedup").Logger(),
		}),
		Scorer: a.scorer,
		Store:  a.store,
		Logger: logger,
	}, pipeline.PolicyFromConfig(cfg))

	if !opts.sources {
		return a, nil
	}

	var robots *fetch.RobotsChecker
	if cfg.HTTP.RespectRobots {
		robots = fetch.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	limiter := fetch.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	fetcher := fetch.NewFetcher(cfg.HTTP, limiter, robots)

	registry, err := source.FromConfig(cfg, fetcher)
	if err != nil {
		return fail(fmt.Errorf("sources: %w", err))
	}
	a.registry = registry

	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}
	runner := pipeline.NewRunner(a.pipeline, cfg.RateLimiting.MinDelay, cfg.RateLimiting.MaxDelay, logger)
	a.manager = worker.NewManager(a.registry, runner, worker.ManagerOptions{
		Concurrency: concurrency,
		OnComplete:  opts.onComplete,
		Logger:      logger,
	})

	return a, nil
}

// close flushes the cache and releases the store
func (a *app) close() error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush cache: %w", err))
		}
		if closer, ok := a.cache.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close cache: %w", err))
			}
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn().Err(err).Msg("shutdown incomplete")
	}
	return err
}
