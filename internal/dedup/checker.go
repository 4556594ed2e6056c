// Package dedup decides whether an article already exists in a store table.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/store"
)

// Defaults for the recency window
const (
	DefaultWindow    = 7 * 24 * time.Hour
	DefaultLimit     = 1000
	DefaultThreshold = 0.85
)

// Checker runs the link, title and content hash strategies in that order.
// Only the recent window of a table is compared, never the whole table.
type Checker struct {
	store     store.Store
	window    time.Duration
	limit     int
	threshold float64
	logger    zerolog.Logger
}

// Options configures a Checker; zero values use the defaults
type Options struct {
	Window    time.Duration
	Limit     int
	Threshold float64
	Logger    zerolog.Logger
}

// NewChecker creates a duplicate checker over s
func NewChecker(s store.Store, opts Options) *Checker {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	return &Checker{
		store:     s,
		window:    opts.Window,
		limit:     opts.Limit,
		threshold: opts.Threshold,
		logger:    opts.Logger,
	}
}

// Check returns the verdict for an article. Store failures do not make an
// article a duplicate; they are logged and noted in the verdict reason.
func (c *Checker) Check(ctx context.Context, title, content, link string, table store.Table) model.DuplicateVerdict {
	var failures []string
	fail := func(strategy model.DedupStrategy, err error) {
		c.logger.Warn().Err(err).Str("table", table.String()).Str("strategy", string(strategy)).Msg("duplicate check failed, treating as no match")
		failures = append(failures, fmt.Sprintf("%s check failed: %v", strategy, err))
	}

	hash := ContentHash(title, content)

	// A link is stored at most once per source, whatever its category
	if link != "" {
		for _, t := range linkTables(table) {
			exists, err := c.store.ExistsByLink(ctx, t, link)
			if err != nil {
				fail(model.StrategyLink, err)
				continue
			}
			if exists {
				return model.DuplicateVerdict{
					Duplicate: true,
					Strategy:  model.StrategyLink,
					Reason:    "link already stored in " + t.String(),
					Match:     &model.Ref{Link: link},
				}
			}
		}
	}

	titles, err := c.store.RecentTitles(ctx, table, c.window, c.limit)
	if err != nil {
		fail(model.StrategyTitle, err)
	} else if ref, ratio, ok := c.similarTitle(title, titles); ok {
		if ref.Hash == hash {
			return model.DuplicateVerdict{
				Duplicate: true,
				Strategy:  model.StrategyContentHash,
				Reason:    "identical content hash",
				Match:     &ref,
			}
		}
		return model.DuplicateVerdict{
			Duplicate: true,
			Strategy:  model.StrategyTitle,
			Reason:    fmt.Sprintf("title similar to %q (ratio %.2f)", ref.Title, ratio),
			Match:     &ref,
		}
	}

	hashes, err := c.store.RecentHashes(ctx, table, c.window, c.limit)
	if err != nil {
		fail(model.StrategyContentHash, err)
	} else {
		for _, ref := range hashes {
			if ref.Hash == hash {
				ref := ref
				return model.DuplicateVerdict{
					Duplicate: true,
					Strategy:  model.StrategyContentHash,
					Reason:    "identical content hash",
					Match:     &ref,
				}
			}
		}
	}

	reason := "unique"
	if len(failures) > 0 {
		reason += " (" + strings.Join(failures, "; ") + ")"
	}
	return model.DuplicateVerdict{Reason: reason}
}

// linkTables lists the source rollup ahead of table itself
func linkTables(table store.Table) []store.Table {
	rollup := store.RollupTable(table.Source)
	if table == rollup {
		return []store.Table{table}
	}
	return []store.Table{rollup, table}
}

// similarTitle returns the first recent title whose ratio reaches the threshold
func (c *Checker) similarTitle(title string, refs []model.Ref) (model.Ref, float64, bool) {
	norm := Normalize(title)
	n := utf8.RuneCountInString(norm)

	for _, ref := range refs {
		other := Normalize(ref.Title)
		if realQuickRatio(n, utf8.RuneCountInString(other)) < c.threshold {
			continue
		}
		if ratio := Ratio(norm, other); ratio >= c.threshold {
			return ref, ratio, true
		}
	}
	return model.Ref{}, 0, false
}
