package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is produced when a job panics instead of returning
type PanicResult struct {
	Value interface{}
	Stack []byte
}

// GetError describes the panic
func (r *PanicResult) GetError() error {
	return fmt.Errorf("job panicked: %v", r.Value)
}

// Pool manages a pool of workers that execute jobs concurrently.
// Results must be drained (Results or Wait) while jobs are submitted,
// otherwise Submit blocks once the buffers fill.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeJobs  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolContext(context.Background(), workers)
}

// NewPoolContext creates a pool whose jobs run under a child of ctx
func NewPoolContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker drains the queue until it is closed. Cancelled jobs still
// report a result so the collector sees every submitted job.
func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.results <- p.execute(job)
	}
}

func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &PanicResult{Value: r, Stack: debug.Stack()}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit queues a job. It returns false without queueing once the pool
// context is done. Submit must not be called after Close.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Close stops accepting jobs; Results is closed after the last job finishes
func (p *Pool) Close() {
	p.closeJobs.Do(func() {
		close(p.jobQueue)
		go func() {
			p.wg.Wait()
			p.closeResults()
		}()
	})
}

// Results streams job results as they complete
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait closes the pool and returns the results of all jobs
func (p *Pool) Wait() []Result {
	p.Close()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}

	return results
}

// Shutdown cancels running jobs, discards queued results and waits for the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.Close()
	for range p.results {
	}
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
