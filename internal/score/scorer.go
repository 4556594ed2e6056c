package score

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/tenscan/internal/model"
)

// Sub-score weights
const (
	weightPrior    = 0.30
	weightKeywords = 0.40
	weightEmotion  = 0.20
	weightStyle    = 0.10

	weightUrgency     = 0.45
	weightTitleCaps   = 0.20
	weightExclamation = 0.15
	weightTimeMarkers = 0.20

	// aiBlend is the share of the AI hint in a blended score
	aiBlend = 0.7
)

// Hint carries AI-provided indices into the scorer
type Hint struct {
	Tension    *float64
	Spike      *float64
	Confidence float64
}

// HintFrom extracts the AI hint from a classification, or nil if it has none
func HintFrom(c model.Classification) *Hint {
	if c.Tension == nil && c.Spike == nil {
		return nil
	}
	return &Hint{Tension: c.Tension, Spike: c.Spike, Confidence: c.Confidence}
}

// Signal is one transparent component of a score
type Signal struct {
	Name        string                 `json:"name"`
	Value       float64                `json:"value"`  // 0-1
	Weight      float64                `json:"weight"` // share of its index
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Result is a score with the signals that produced it
type Result struct {
	Scores  model.Scores `json:"scores"`
	Local   model.Scores `json:"local"`
	Blended bool         `json:"blended"`
	Tension []Signal     `json:"tension_signals"`
	Spike   []Signal     `json:"spike_signals"`
}

// Scorer computes the tension and spike indices
type Scorer struct {
	blendMinConfidence float64
}

// NewScorer creates a scorer. Hints from classifications below
// blendMinConfidence are ignored; zero always blends.
func NewScorer(blendMinConfidence float64) *Scorer {
	return &Scorer{blendMinConfidence: model.Clamp(blendMinConfidence, 0, 1)}
}

// Score returns bounded tension and spike indices
func (s *Scorer) Score(category model.Category, title, content string, hint *Hint) model.Scores {
	return s.Analyze(category, title, content, hint).Scores
}

// Analyze scores an article and keeps the signal breakdown
func (s *Scorer) Analyze(category model.Category, title, content string, hint *Hint) Result {
	t := newTextStats(title, content)

	tensionSignals := []Signal{
		s.priorSignal(category),
		s.keywordSignal(t),
		s.emotionSignal(t),
		s.styleSignal(t),
	}
	spikeSignals := []Signal{
		s.urgencySignal(t),
		s.titleCapsSignal(t),
		s.exclamationSignal(t),
		s.timeMarkerSignal(t),
	}

	local := model.Scores{
		Tension: combine(tensionSignals),
		Spike:   combine(spikeSignals),
	}
	result := Result{
		Scores:  local,
		Local:   local,
		Tension: tensionSignals,
		Spike:   spikeSignals,
	}

	if hint != nil && model.Finite(hint.Confidence, 0) >= s.blendMinConfidence {
		if hint.Tension != nil {
			result.Scores.Tension = blend(*hint.Tension, local.Tension)
			result.Blended = true
		}
		if hint.Spike != nil {
			result.Scores.Spike = blend(*hint.Spike, local.Spike)
			result.Blended = true
		}
	}
	return result
}

func combine(signals []Signal) float64 {
	total := 0.0
	for _, sig := range signals {
		total += sig.Weight * model.Clamp(sig.Value, 0, 1)
	}
	return model.Clamp(100*total, 0, 100)
}

func blend(hint, local float64) float64 {
	hint = model.Clamp(hint, 0, 100)
	return model.Clamp(aiBlend*hint+(1-aiBlend)*local, 0, 100)
}

// textStats holds counts shared by the signals
type textStats struct {
	lower      string
	runes      int
	letters    int
	upper      int
	words      int
	capsWords  int
	exclaims   int
	titleUpper int
	titleAlpha int
}

func newTextStats(title, content string) textStats {
	text := title + "\n" + content
	t := textStats{
		lower:    strings.ToLower(text),
		runes:    utf8.RuneCountInString(text),
		exclaims: strings.Count(text, "!"),
	}

	for _, r := range text {
		if unicode.IsLetter(r) {
			t.letters++
			if unicode.IsUpper(r) {
				t.upper++
			}
		}
	}
	for _, r := range title {
		if unicode.IsLetter(r) {
			t.titleAlpha++
			if unicode.IsUpper(r) {
				t.titleUpper++
			}
		}
	}

	for _, w := range strings.Fields(text) {
		t.words++
		if isCapsWord(w) {
			t.capsWords++
		}
	}
	return t
}

// isCapsWord reports words of three or more letters written in capitals
func isCapsWord(w string) bool {
	letters := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func countHits(lower string, words []string) int {
	hits := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return hits
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func (s *Scorer) priorSignal(category model.Category) Signal {
	prior, ok := categoryPriors[category]
	if !ok {
		prior = categoryPriors[model.CategoryOther]
	}
	return Signal{
		Name:        "category_prior",
		Value:       prior,
		Weight:      weightPrior,
		Description: fmt.Sprintf("Category %s baseline", category),
	}
}

func (s *Scorer) keywordSignal(t textStats) Signal {
	high := countHits(t.lower, highTension)
	medium := countHits(t.lower, mediumTension)
	low := countHits(t.lower, lowTension)
	value := model.Clamp(float64(3*high+2*medium-low)/10, 0, 1)

	return Signal{
		Name:        "tension_keywords",
		Value:       value,
		Weight:      weightKeywords,
		Description: fmt.Sprintf("Keywords: %d high, %d medium, %d low", high, medium, low),
		Data: map[string]interface{}{
			"high":    high,
			"medium":  medium,
			"low":     low,
			"formula": "clamp((3*high + 2*medium - low) / 10)",
		},
	}
}

func (s *Scorer) emotionSignal(t textStats) Signal {
	emotional := 0
	for _, w := range strings.Fields(t.lower) {
		for _, stem := range emotionWords {
			if strings.Contains(w, stem) {
				emotional++
				break
			}
		}
	}

	density := model.Clamp(ratio(emotional, t.words)*10, 0, 1)
	exclaim := model.Clamp(float64(t.exclaims)/3, 0, 1)
	caps := model.Clamp(float64(t.capsWords)/3, 0, 1)
	value := 0.6*density + 0.2*exclaim + 0.2*caps

	return Signal{
		Name:        "emotion",
		Value:       model.Clamp(value, 0, 1),
		Weight:      weightEmotion,
		Description: fmt.Sprintf("%d emotional words in %d", emotional, t.words),
		Data: map[string]interface{}{
			"emotional_words": emotional,
			"exclamations":    t.exclaims,
			"caps_words":      t.capsWords,
			"formula":         "0.6*min(density*10, 1) + 0.2*min(exclamations/3, 1) + 0.2*min(caps_words/3, 1)",
		},
	}
}

func (s *Scorer) styleSignal(t textStats) Signal {
	exclaimRatio := ratio(t.exclaims, t.runes)
	capsRatio := ratio(t.upper, t.letters)
	value := 0.5*model.Clamp(exclaimRatio*20, 0, 1) + 0.5*model.Clamp(capsRatio*2, 0, 1)

	return Signal{
		Name:        "style",
		Value:       model.Clamp(value, 0, 1),
		Weight:      weightStyle,
		Description: fmt.Sprintf("Exclamation ratio %.3f, caps ratio %.3f", exclaimRatio, capsRatio),
		Data: map[string]interface{}{
			"exclamation_ratio": exclaimRatio,
			"caps_ratio":        capsRatio,
		},
	}
}

func (s *Scorer) urgencySignal(t textStats) Signal {
	critical := countHits(t.lower, criticalUrgency)
	high := countHits(t.lower, highUrgency)
	medium := countHits(t.lower, mediumUrgency)
	value := model.Clamp(float64(3*critical+2*high+medium)/6, 0, 1)

	return Signal{
		Name:        "urgency",
		Value:       value,
		Weight:      weightUrgency,
		Description: fmt.Sprintf("Urgency: %d critical, %d high, %d medium", critical, high, medium),
		Data: map[string]interface{}{
			"critical": critical,
			"high":     high,
			"medium":   medium,
			"formula":  "clamp((3*critical + 2*high + medium) / 6)",
		},
	}
}

func (s *Scorer) titleCapsSignal(t textStats) Signal {
	r := ratio(t.titleUpper, t.titleAlpha)
	return Signal{
		Name:        "title_caps",
		Value:       model.Clamp(r*2, 0, 1),
		Weight:      weightTitleCaps,
		Description: fmt.Sprintf("Title caps ratio %.2f", r),
	}
}

func (s *Scorer) exclamationSignal(t textStats) Signal {
	return Signal{
		Name:        "exclamation",
		Value:       model.Clamp(float64(t.exclaims)/3, 0, 1),
		Weight:      weightExclamation,
		Description: fmt.Sprintf("%d exclamation marks", t.exclaims),
	}
}

func (s *Scorer) timeMarkerSignal(t textStats) Signal {
	hits := countHits(t.lower, timeMarkers)
	return Signal{
		Name:        "time_markers",
		Value:       model.Clamp(float64(hits)/2, 0, 1),
		Weight:      weightTimeMarkers,
		Description: fmt.Sprintf("%d time markers", hits),
	}
}
