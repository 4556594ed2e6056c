package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/source"
)

// DefaultConcurrency is the number of parsers run at once
const DefaultConcurrency = 4

// errNotDispatched marks parsers skipped because the run was cancelled
const errNotDispatched = "run cancelled before dispatch"

// Runner executes one parser end to end
type Runner interface {
	Run(ctx context.Context, parser source.Parser) (model.RunStats, error)
}

// ParserJob runs one parser inside the pool
type ParserJob struct {
	Parser source.Parser
	Runner Runner
	now    func() time.Time
}

// Execute runs the parser, converting errors and panics into a failed result
func (j *ParserJob) Execute(ctx context.Context) (res Result) {
	start := j.now()
	name := j.Parser.Name()

	defer func() {
		if r := recover(); r != nil {
			res = &ParserResult{Run: model.ParserRunResult{
				Parser:   name,
				Status:   model.StatusError,
				Duration: j.now().Sub(start),
				Error:    fmt.Sprintf("panic: %v", r),
				Stats:    model.NewRunStats(),
			}}
		}
	}()

	stats, err := j.Runner.Run(ctx, j.Parser)
	run := model.ParserRunResult{
		Parser:   name,
		Status:   model.StatusSuccess,
		Duration: j.now().Sub(start),
		Stats:    stats,
	}
	if err != nil {
		run.Status = model.StatusError
		run.Error = err.Error()
	}
	return &ParserResult{Run: run}
}

// ParserResult carries a ParserRunResult through the pool
type ParserResult struct {
	Run model.ParserRunResult
}

// GetError returns the parser failure, if any
func (r *ParserResult) GetError() error {
	if r.Run.Status == model.StatusError {
		return fmt.Errorf("parser %s: %s", r.Run.Parser, r.Run.Error)
	}
	return nil
}

// Lifetime accumulates statistics over every run of a manager
type Lifetime struct {
	SuccessfulRuns int            `json:"successful_runs"`
	FailedRuns     int            `json:"failed_runs"`
	LastRun        time.Time      `json:"last_run"`
	Totals         model.RunStats `json:"totals"`
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	Concurrency int

	// OnComplete is called once per parser from the collecting goroutine
	OnComplete func(model.ParserRunResult)

	Logger zerolog.Logger
}

// Manager runs parsers on a bounded pool. A failing parser never affects
// its siblings: its error or panic becomes a failed ParserRunResult.
type Manager struct {
	registry    *source.Registry
	runner      Runner
	concurrency int
	onComplete  func(model.ParserRunResult)
	logger      zerolog.Logger
	now         func() time.Time

	mu       sync.Mutex
	lifetime Lifetime
}

// NewManager creates a parser manager
func NewManager(registry *source.Registry, runner Runner, opts ManagerOptions) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Manager{
		registry:    registry,
		runner:      runner,
		concurrency: opts.Concurrency,
		onComplete:  opts.OnComplete,
		logger:      opts.Logger,
		now:         time.Now,
		lifetime:    Lifetime{Totals: model.NewRunStats()},
	}
}

// RunAll runs every registered parser
func (m *Manager) RunAll(ctx context.Context) model.RunReport {
	return m.run(ctx, m.registry.All())
}

// RunOne runs a single parser by name
func (m *Manager) RunOne(ctx context.Context, name string) (model.RunReport, error) {
	p, err := m.registry.Get(name)
	if err != nil {
		return model.RunReport{}, err
	}
	return m.run(ctx, []source.Parser{p}), nil
}

// Lifetime returns a snapshot of the accumulated statistics
func (m *Manager) Lifetime() Lifetime {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.lifetime
	snapshot.Totals = model.NewRunStats()
	snapshot.Totals.Merge(m.lifetime.Totals)
	return snapshot
}

func (m *Manager) run(ctx context.Context, parsers []source.Parser) model.RunReport {
	report := model.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: m.now(),
		Stats:     model.NewRunStats(),
	}
	log := m.logger.With().Str("run_id", report.RunID).Logger()
	log.Info().Int("parsers", len(parsers)).Int("concurrency", m.concurrency).Msg("run started")

	pool := NewPoolContext(ctx, m.concurrency)
	pool.Start()
	defer pool.Shutdown()

	// Submission runs beside the collector so a full result buffer never blocks dispatch
	skipped := make(chan []string, 1)
	go func() {
		var notDispatched []string
		for i, p := range parsers {
			if ctx.Err() != nil || !pool.Submit(&ParserJob{Parser: p, Runner: m.runner, now: m.now}) {
				for _, rest := range parsers[i:] {
					notDispatched = append(notDispatched, rest.Name())
				}
				break
			}
		}
		pool.Close()
		skipped <- notDispatched
	}()

	for res := range pool.Results() {
		m.collect(&report, toRunResult(res), log)
	}
	for _, name := range <-skipped {
		m.collect(&report, model.ParserRunResult{
			Parser: name,
			Status: model.StatusError,
			Error:  errNotDispatched,
			Stats:  model.NewRunStats(),
		}, log)
	}

	report.FinishedAt = m.now()
	m.record(report)

	log.Info().
		Int("saved", report.Stats.SuccessfullySaved).
		Int("failed_parsers", len(report.Failed())).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("run finished")
	return report
}

func toRunResult(res Result) model.ParserRunResult {
	switch r := res.(type) {
	case *ParserResult:
		return r.Run
	default:
		return model.ParserRunResult{
			Parser: "unknown",
			Status: model.StatusError,
			Error:  res.GetError().Error(),
			Stats:  model.NewRunStats(),
		}
	}
}

// collect runs on the single collecting goroutine
func (m *Manager) collect(report *model.RunReport, run model.ParserRunResult, log zerolog.Logger) {
	report.Results = append(report.Results, run)
	report.Stats.Merge(run.Stats)

	if run.Status == model.StatusError {
		log.Warn().Str("parser", run.Parser).Str("error", run.Error).Msg("parser failed")
	}
	if m.onComplete != nil {
		m.onComplete(run)
	}
}

func (m *Manager) record(report model.RunReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range report.Results {
		if r.Status == model.StatusSuccess {
			m.lifetime.SuccessfulRuns++
		} else {
			m.lifetime.FailedRuns++
		}
	}
	m.lifetime.LastRun = report.FinishedAt
	m.lifetime.Totals.Merge(report.Stats)
}
