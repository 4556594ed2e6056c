package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/tenscan/internal/model"
)

// ErrInvalidResponse is returned when a model answer does not satisfy the classification contract
var ErrInvalidResponse = errors.New("invalid classification response")

type classificationPayload struct {
	Category   string   `json:"category"`
	Tension    *float64 `json:"tension_index"`
	Spike      *float64 `json:"spike_index"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// ParseClassification extracts and validates the JSON object in a model answer.
// Code fences and surrounding prose are tolerated. The category must be a known id
// and confidence must be present; numbers are clamped to their ranges.
func ParseClassification(text string) (model.Classification, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return model.Classification{}, fmt.Errorf("%w: no JSON object", ErrInvalidResponse)
	}

	var p classificationPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return model.Classification{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	category, ok := model.ParseCategory(p.Category)
	if !ok {
		return model.Classification{}, fmt.Errorf("%w: unknown category %q", ErrInvalidResponse, p.Category)
	}
	if p.Confidence == nil {
		return model.Classification{}, fmt.Errorf("%w: missing confidence", ErrInvalidResponse)
	}
	for _, v := range []*float64{p.Confidence, p.Tension, p.Spike} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return model.Classification{}, fmt.Errorf("%w: non-finite number", ErrInvalidResponse)
		}
	}

	c := model.Classification{
		Category:   category,
		Confidence: model.Clamp(*p.Confidence, 0, 1),
		Provenance: model.ProvenanceAI,
		Reasoning:  strings.TrimSpace(p.Reasoning),
	}
	if p.Tension != nil {
		t := model.Clamp(*p.Tension, 0, 100)
		c.Tension = &t
	}
	if p.Spike != nil {
		s := model.Clamp(*p.Spike, 0, 100)
		c.Spike = &s
	}
	return c, nil
}

// ValidClassification reports whether c satisfies the classification contract
func ValidClassification(c model.Classification) bool {
	if !c.Category.Valid() {
		return false
	}
	if !finiteIn(c.Confidence, 0, 1) {
		return false
	}
	if c.Tension != nil && !finiteIn(*c.Tension, 0, 100) {
		return false
	}
	if c.Spike != nil && !finiteIn(*c.Spike, 0, 100) {
		return false
	}
	return true
}

func finiteIn(v, lo, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= lo && v <= hi
}
