// Package worker implements the generic probe worker: a per-module
// state machine that polls the Dispatch API for jobs and runs them
// through a bounded pool of Protocol Adapter calls (spec.md §4.4).
package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"hosh/internal/domain"
	"hosh/pkg/logger"
)

// pollInterval is how often a worker calls GET /jobs.
const pollInterval = 10 * time.Second

// jobWallTime bounds a single Protocol Adapter call plus its result
// submission.
const jobWallTime = 30 * time.Second

// Adapter is the Protocol Adapter surface a worker drives. Both
// internal/probe/btc.Adapter and internal/probe/zec.Adapter satisfy
// this directly.
type Adapter interface {
	Probe(ctx context.Context, hostname string, port int) domain.ResponseData
}

// Pool runs one module's worker state machine: Idle -> Polling ->
// Dispatching -> Idle, enforcing the "at most max_concurrent Protocol
// Adapter calls in flight" invariant with a weighted semaphore acting
// as the bounded channel's backpressure (spec.md §4.4/§8).
type Pool struct {
	module        domain.Module
	adapter       Adapter
	client        *dispatchClient
	maxConcurrent int
	sem           *semaphore.Weighted
	wg            sync.WaitGroup
}

// NewPool builds a Pool for module, polling baseURL with apiKey and
// running at most maxConcurrent adapter calls at once.
func NewPool(module domain.Module, adapter Adapter, baseURL, apiKey string, maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{
		module:        module,
		adapter:       adapter,
		client:        newDispatchClient(baseURL, apiKey, module),
		maxConcurrent: maxConcurrent,
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Run drives the poll loop until ctx is canceled. On cancellation it
// stops polling and returns once every already-dispatched job has
// finished under its own deadline — in-flight jobs are never
// interrupted by the parent context, only by their own jobWallTime.
func (p *Pool) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	logger.Log.Info("worker started", "module", p.module, "max_concurrent", p.maxConcurrent)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("worker stopping, draining in-flight jobs", "module", p.module)
			p.wg.Wait()
			logger.Log.Info("worker stopped", "module", p.module)
			return
		case <-ticker.C:
			p.pollAndDispatch(ctx)
		}
	}
}

func (p *Pool) pollAndDispatch(ctx context.Context) {
	logger.Log.Debug("worker state", "module", p.module, "state", "polling")

	jobs, err := p.client.poll(ctx, p.maxConcurrent)
	if err != nil {
		logger.Log.Warn("dispatch poll failed", "module", p.module, "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	logger.Log.Debug("worker state", "module", p.module, "state", "dispatching", "jobs", len(jobs))

	for _, job := range jobs {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			// ctx canceled while waiting for a slot; stop accepting
			// more jobs from this batch.
			return
		}
		p.wg.Add(1)
		go func(job Job) {
			defer p.wg.Done()
			defer p.sem.Release(1)
			p.runJob(job)
		}(job)
	}
}

// runJob executes one Protocol Adapter call and submits its result.
// It deliberately derives its deadline from context.Background()
// rather than the poll loop's ctx, so a SIGINT during Run's shutdown
// doesn't cut a job short before its own 30s wall time elapses.
func (p *Pool) runJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobWallTime)
	defer cancel()

	resp := p.adapter.Probe(ctx, job.Host, job.Port)

	if err := p.client.submit(ctx, job, p.module, resp); err != nil {
		logger.Log.Error("failed to submit probe result", "module", p.module, "host", job.Host, "port", job.Port, "error", err)
	}
}
