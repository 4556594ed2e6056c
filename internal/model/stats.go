package model

import "time"

// RunStatus is the outcome of one parser execution
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusError   RunStatus = "error"
)

// RunStats counts what happened to the candidates of a parser run
type RunStats struct {
	TotalFound           int              `json:"total_found"`
	ValidationRejected   int              `json:"validation_rejected"`
	LowConfidenceSkipped int              `json:"low_confidence_skipped"`
	CategorySkipped      int              `json:"category_skipped"`
	DuplicatesSkipped    int              `json:"duplicates_skipped"`
	SuccessfullySaved    int              `json:"successfully_saved"`
	Errors               int              `json:"errors"`
	ByCategory           map[Category]int `json:"by_category,omitempty"`
}

// NewRunStats returns zeroed stats with an initialized category map
func NewRunStats() RunStats {
	return RunStats{ByCategory: make(map[Category]int)}
}

// AddCategory increments the saved-article counter for a category
func (s *RunStats) AddCategory(c Category) {
	if s.ByCategory == nil {
		s.ByCategory = make(map[Category]int)
	}
	s.ByCategory[c]++
}

// Merge adds other into s
func (s *RunStats) Merge(other RunStats) {
	s.TotalFound += other.TotalFound
	s.ValidationRejected += other.ValidationRejected
	s.LowConfidenceSkipped += other.LowConfidenceSkipped
	s.CategorySkipped += other.CategorySkipped
	s.DuplicatesSkipped += other.DuplicatesSkipped
	s.SuccessfullySaved += other.SuccessfullySaved
	s.Errors += other.Errors
	for c, n := range other.ByCategory {
		if s.ByCategory == nil {
			s.ByCategory = make(map[Category]int)
		}
		s.ByCategory[c] += n
	}
}

// ParserRunResult is the structured outcome of one parser execution
type ParserRunResult struct {
	Parser   string        `json:"parser"`
	Status   RunStatus     `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Stats    RunStats      `json:"stats"`
}

// RunReport aggregates a manager run
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Results    []ParserRunResult `json:"results"`
	Stats      RunStats          `json:"stats"`
}

// Failed returns the parsers that ended in error
func (r RunReport) Failed() []ParserRunResult {
	var failed []ParserRunResult
	for _, res := range r.Results {
		if res.Status == StatusError {
			failed = append(failed, res)
		}
	}
	return failed
}
