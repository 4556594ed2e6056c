// Package pipeline moves one article through validation, classification,
// duplicate detection, scoring and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/dedup"
	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/score"
	"github.com/ppiankov/tenscan/internal/store"
	"github.com/ppiankov/tenscan/internal/validate"
)

// State is the terminal state an article reached
type State string

const (
	StateRejected         State = "rejected"
	StateLowConfidence    State = "low_confidence"
	StateCategoryFiltered State = "category_filtered"
	StateDuplicate        State = "duplicate"
	StatePersisted        State = "persisted"
	StatePersistFailed    State = "persist_failed"
	StateFailed           State = "failed"
)

// Outcome is the result of processing one article. Fields are filled
// up to the stage the article reached.
type Outcome struct {
	State          State
	Reason         string
	Article        *model.CleanedArticle
	Classification *model.Classification
	Verdict        *model.DuplicateVerdict
	Scores         *model.Scores
	Record         *model.Record
}

// Classifier assigns a category; it must never fail
type Classifier interface {
	Classify(ctx context.Context, title, content string) model.Classification
}

// DuplicateChecker decides whether an article is already stored
type DuplicateChecker interface {
	Check(ctx context.Context, title, content, link string, table store.Table) model.DuplicateVerdict
}

// Deps are the components an article passes through
type Deps struct {
	Validator  *validate.Validator
	Classifier Classifier
	Dedup      DuplicateChecker
	Scorer     *score.Scorer
	Store      store.Store
	Logger     zerolog.Logger
}

// Policy decides which classified articles are kept
type Policy struct {
	MinConfidence float64

	// AllowedCategories applies to every source; empty allows all
	AllowedCategories []model.Category

	// SourceCategories narrows the allowed categories per source name
	SourceCategories map[string][]model.Category
}

// PolicyFromConfig builds the acceptance policy; unknown category names are ignored
func PolicyFromConfig(cfg *model.Config) Policy {
	p := Policy{
		MinConfidence:     cfg.Pipeline.MinConfidence,
		AllowedCategories: parseCategories(cfg.Pipeline.AllowedCategories),
		SourceCategories:  make(map[string][]model.Category),
	}
	for _, src := range cfg.Sources {
		if cats := parseCategories(src.AllowedCategories); len(cats) > 0 {
			p.SourceCategories[src.Name] = cats
		}
	}
	return p
}

func parseCategories(names []string) []model.Category {
	var out []model.Category
	for _, n := range names {
		if c, ok := model.ParseCategory(n); ok {
			out = append(out, c)
		}
	}
	return out
}

// Pipeline processes articles; it is safe for concurrent use if its deps are
type Pipeline struct {
	deps   Deps
	policy Policy
	now    func() time.Time
	newID  func() string
}

// New creates a pipeline
func New(deps Deps, policy Policy) *Pipeline {
	return &Pipeline{
		deps:   deps,
		policy: policy,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Process runs raw through every stage and updates stats with the outcome.
// A panic in any stage is recovered and counted as an error.
func (p *Pipeline) Process(ctx context.Context, raw model.RawArticle, stats *model.RunStats) (out Outcome) {
	if stats == nil {
		stats = &model.RunStats{}
	}
	log := p.deps.Logger.With().Str("source", raw.Source).Str("link", raw.Link).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("article processing panicked")
			stats.Errors++
			out = Outcome{State: StateFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	// Fetched -> Validated | Rejected
	var article model.CleanedArticle
	switch res := p.deps.Validator.Validate(raw.Title, raw.Content).(type) {
	case validate.Rejected:
		stats.ValidationRejected++
		log.Debug().Str("reason", res.Reason()).Msg("article rejected")
		return Outcome{State: StateRejected, Reason: res.Reason()}
	case validate.Accepted:
		article = model.CleanedArticle{Raw: raw, Title: res.Title, Content: res.Content}
	default:
		panic(fmt.Sprintf("unexpected validation result %T", res))
	}
	out.Article = &article

	// Validated -> Classified | LowConfidence | CategoryFiltered
	c := p.deps.Classifier.Classify(ctx, article.Title, article.Content)
	out.Classification = &c
	if c.Confidence < p.policy.MinConfidence {
		stats.LowConfidenceSkipped++
		out.State = StateLowConfidence
		out.Reason = fmt.Sprintf("confidence %.2f below %.2f", c.Confidence, p.policy.MinConfidence)
		return out
	}
	if !p.allowed(raw.Source, c.Category) {
		stats.CategorySkipped++
		out.State = StateCategoryFiltered
		out.Reason = fmt.Sprintf("category %s not allowed", c.Category)
		return out
	}

	source := store.SourceName(raw.Source)
	categoryTable := store.CategoryTable(source, c.Category)

	// Classified -> Unique | Duplicate
	verdict := p.deps.Dedup.Check(ctx, article.Title, article.Content, raw.Link, categoryTable)
	out.Verdict = &verdict
	if verdict.Duplicate {
		stats.DuplicatesSkipped++
		out.State = StateDuplicate
		out.Reason = verdict.Reason
		return out
	}

	// Unique -> Scored
	scores := p.deps.Scorer.Score(c.Category, article.Title, article.Content, score.HintFrom(c))
	out.Scores = &scores

	// Scored -> Persisted | PersistFailed
	scored := model.ScoredArticle{
		Article:        article,
		Classification: c,
		Scores:         scores,
		ContentHash:    dedup.ContentHash(article.Title, article.Content),
	}
	rec := scored.Record(p.newID(), source, p.now().UTC())
	out.Record = &rec

	// The rollup row and the category row land together or not at all
	if err := p.deps.Store.InsertAll(ctx, rec, store.RollupTable(source), categoryTable); err != nil {
		if errors.Is(err, store.ErrDuplicateLink) {
			stats.DuplicatesSkipped++
			out.State = StateDuplicate
			out.Reason = err.Error()
			return out
		}
		stats.Errors++
		log.Error().Err(err).Str("table", categoryTable.String()).Msg("failed to persist article")
		out.State = StatePersistFailed
		out.Reason = err.Error()
		return out
	}

	stats.SuccessfullySaved++
	stats.AddCategory(c.Category)
	out.State = StatePersisted
	log.Info().
		Str("category", string(c.Category)).
		Str("provenance", string(c.Provenance)).
		Float64("tension", scores.Tension).
		Float64("spike", scores.Spike).
		Msg("article saved")
	return out
}

func (p *Pipeline) allowed(source string, c model.Category) bool {
	if len(p.policy.AllowedCategories) > 0 && !containsCategory(p.policy.AllowedCategories, c) {
		return false
	}
	if cats, ok := p.policy.SourceCategories[source]; ok && !containsCategory(cats, c) {
		return false
	}
	return true
}

func containsCategory(cats []model.Category, c model.Category) bool {
	for _, known := range cats {
		if known == c {
			return true
		}
	}
	return false
}
