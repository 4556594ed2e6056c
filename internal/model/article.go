package model

import (
	"math"
	"strings"
	"time"
)

// RawArticle is a candidate article as produced by a source parser
type RawArticle struct {
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	Content      string    `json:"content"`
	Rubric       string    `json:"rubric,omitempty"`
	Source       string    `json:"source"`
	DiscoveredAt time.Time `json:"discovered_at"`
	PublishedAt  time.Time `json:"published_at,omitempty"`
}

// CleanedArticle is a RawArticle that passed validation, with normalized text
type CleanedArticle struct {
	Raw     RawArticle `json:"raw"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
}

// Category is a member of the closed set of topical labels
type Category string

const (
	CategoryMilitaryOperations   Category = "military_operations"
	CategoryHumanitarianCrisis   Category = "humanitarian_crisis"
	CategoryEconomicConsequences Category = "economic_consequences"
	CategoryPoliticalDecisions   Category = "political_decisions"
	CategoryInformationSocial    Category = "information_social"
	CategoryOther                Category = "other"
)

// Categories lists every category in enumeration order
var Categories = []Category{
	CategoryMilitaryOperations,
	CategoryHumanitarianCrisis,
	CategoryEconomicConsequences,
	CategoryPoliticalDecisions,
	CategoryInformationSocial,
	CategoryOther,
}

// ParseCategory converts free text into a Category.
// It reports false for anything outside the enumeration.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is a member of the enumeration
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Provenance records where a classification came from
type Provenance string

const (
	ProvenanceAI       Provenance = "ai"
	ProvenanceFallback Provenance = "fallback"
	ProvenanceCached   Provenance = "cached"
)

// Classification is the validated contract between the classifier and the pipeline
type Classification struct {
	Category   Category   `json:"category"`
	Confidence float64    `json:"confidence"`
	Tension    *float64   `json:"tension_index,omitempty"` // AI hint, 0-100
	Spike      *float64   `json:"spike_index,omitempty"`   // AI hint, 0-100
	Provenance Provenance `json:"provenance"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Provider   string     `json:"provider,omitempty"`
}

// DedupStrategy names the duplicate detection strategy that produced a verdict
type DedupStrategy string

const (
	StrategyNone        DedupStrategy = ""
	StrategyLink        DedupStrategy = "link"
	StrategyTitle       DedupStrategy = "title"
	StrategyContentHash DedupStrategy = "content_hash"
)

// Ref points at an existing persisted record
type Ref struct {
	Link  string `json:"link"`
	Title string `json:"title,omitempty"`
	Hash  string `json:"hash,omitempty"`
}

// DuplicateVerdict is the outcome of a duplicate check
type DuplicateVerdict struct {
	Duplicate bool          `json:"is_duplicate"`
	Strategy  DedupStrategy `json:"strategy,omitempty"`
	Reason    string        `json:"reason"`
	Match     *Ref          `json:"match,omitempty"`
}

// Scores holds the two bounded indices computed for an article
type Scores struct {
	Tension float64 `json:"tension_score"`
	Spike   float64 `json:"spike_score"`
}

// ScoredArticle is a classified, unique, scored article ready to persist
type ScoredArticle struct {
	Article        CleanedArticle `json:"article"`
	Classification Classification `json:"classification"`
	Scores         Scores         `json:"scores"`
	ContentHash    string         `json:"content_hash"`
}

// Record is the persisted form of a ScoredArticle
type Record struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Category    Category   `json:"category"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Link        string     `json:"link"`
	Rubric      string     `json:"rubric,omitempty"`
	ContentHash string     `json:"content_hash"`
	Tension     float64    `json:"tension_score"`
	Spike       float64    `json:"spike_score"`
	Confidence  float64    `json:"confidence"`
	Provenance  Provenance `json:"provenance"`
	Reasoning   string     `json:"reasoning,omitempty"`
	PublishedAt time.Time  `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// AI hints kept so a rescore can blend them again
	AITension *float64 `json:"ai_tension,omitempty"`
	AISpike   *float64 `json:"ai_spike,omitempty"`
}

// Record builds the persisted form of s
func (s ScoredArticle) Record(id, source string, createdAt time.Time) Record {
	return Record{
		ID:          id,
		Source:      source,
		Category:    s.Classification.Category,
		Title:       s.Article.Title,
		Content:     s.Article.Content,
		Link:        s.Article.Raw.Link,
		Rubric:      s.Article.Raw.Rubric,
		ContentHash: s.ContentHash,
		Tension:     s.Scores.Tension,
		Spike:       s.Scores.Spike,
		Confidence:  s.Classification.Confidence,
		Provenance:  s.Classification.Provenance,
		Reasoning:   s.Classification.Reasoning,
		PublishedAt: s.Article.Raw.PublishedAt,
		CreatedAt:   createdAt,
		AITension:   s.Classification.Tension,
		AISpike:     s.Classification.Spike,
	}
}

// Classification recovers the classification a record was stored with
func (r Record) Classification() Classification {
	return Classification{
		Category:   r.Category,
		Confidence: r.Confidence,
		Tension:    r.AITension,
		Spike:      r.AISpike,
		Provenance: r.Provenance,
		Reasoning:  r.Reasoning,
	}
}

// Finite replaces NaN and infinities with def
func Finite(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// Clamp sanitizes v and bounds it to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	v = Finite(v, lo)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
