// Package classify assigns categories to articles using an AI provider,
// a classification cache and a deterministic keyword fallback.
package classify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/cache"
	"github.com/ppiankov/tenscan/internal/llm"
	"github.com/ppiankov/tenscan/internal/model"
)

// Classifier never fails: every path ends in a valid classification
type Classifier struct {
	provider llm.Provider
	cache    cache.Cache
	timeout  time.Duration
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// Options configures a Classifier
type Options struct {
	// Timeout bounds a single provider call
	Timeout time.Duration

	// CacheTTL is passed to the cache; zero uses the backend default
	CacheTTL time.Duration

	Logger zerolog.Logger
}

// New creates a classifier. Both provider and c may be nil.
func New(provider llm.Provider, c cache.Cache, opts Options) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Classifier{
		provider: provider,
		cache:    c,
		timeout:  opts.Timeout,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
	}
}

// Classify returns a cached, AI or fallback classification
func (c *Classifier) Classify(ctx context.Context, title, content string) model.Classification {
	key := cache.Key(title, content)

	if result, ok := c.lookup(key); ok {
		return result
	}

	if c.provider != nil {
		result, err := c.classifyAI(ctx, title, content)
		if err == nil {
			c.store(key, result)
			return result
		}
		c.logger.Warn().Err(err).Str("provider", c.provider.Name()).Msg("AI classification failed, using keyword fallback")
	}

	return Fallback(title, content)
}

func (c *Classifier) lookup(key string) (model.Classification, bool) {
	if c.cache == nil {
		return model.Classification{}, false
	}

	data, found := c.cache.Get(key)
	if !found {
		return model.Classification{}, false
	}

	var result model.Classification
	if err := json.Unmarshal(data, &result); err != nil || !llm.ValidClassification(result) {
		c.logger.Debug().Str("key", key).Msg("dropping invalid cache entry")
		_ = c.cache.Delete(key)
		return model.Classification{}, false
	}

	result.Provenance = model.ProvenanceCached
	return result, true
}

func (c *Classifier) classifyAI(ctx context.Context, title, content string) (model.Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Classify(ctx, llm.ClassifyRequest{Title: title, Content: content})
	if err != nil {
		return model.Classification{}, err
	}

	result, err := llm.ParseClassification(resp.Text)
	if err != nil {
		return model.Classification{}, err
	}
	result.Provider = c.provider.Name()
	return result, nil
}

func (c *Classifier) store(key string, result model.Classification) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(key, data, c.cacheTTL); err != nil {
		c.logger.Warn().Err(err).Msg("failed to cache classification")
	}
}
