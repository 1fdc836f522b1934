// Package pool runs subset-compilation and document-render jobs on a fixed
// set of worker slots so the submitting thread never blocks on them.
//
// Inputs and outputs cross the pool boundary by value: the submitter hands
// over an immutable payload and receives a freshly-owned output, so no locks
// are needed around results once delivered. A pool of size 1 runs the exact
// same queue and dispatch machinery, only serialized, which keeps the
// degraded path observably identical to the parallel one.
package pool

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/surfgate/filterd/internal/filter/common/log"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("pool is shut down")

// Default job time budgets. Compilation is latency-sensitive; rendering may
// legitimately run much longer.
const (
	DefaultCompileTimeout = 30 * time.Second
	DefaultRenderTimeout  = 120 * time.Second
)

// Executor runs one job and returns its output or a typed failure.
// It must not retain the payload past return.
type Executor func(job Job) (any, *JobError)

// Config configures a Pool.
type Config struct {
	// Workers is the number of worker slots. Values below 1 are raised to 1
	// (safe mode / degraded platforms).
	Workers int
	// CompileTimeout bounds KindCompileSubset jobs; zero uses the default.
	CompileTimeout time.Duration
	// RenderTimeout bounds KindRenderDocument jobs; zero uses the default.
	RenderTimeout time.Duration
	// Execute runs a job on a worker slot.
	Execute Executor
	// Logger defaults to a noop logger.
	Logger log.Logger
}

// Pool dispatches jobs to worker slots in priority order.
type Pool struct {
	cfg Config

	mu     sync.Mutex
	cond   *sync.Cond
	queue  jobQueue
	seq    uint64
	closed bool

	wg sync.WaitGroup
}

// New validates the configuration and starts the worker slots.
func New(cfg Config) (*Pool, error) {
	if cfg.Execute == nil {
		return nil, errors.New("pool: Execute is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = DefaultCompileTimeout
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = DefaultRenderTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}

	p := &Pool{cfg: cfg}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.cfg.Logger.Debug(map[string]any{"workers": cfg.Workers}, "pool_started")
	return p, nil
}

// Workers returns the configured number of worker slots.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Queued returns the number of jobs waiting for a slot.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Submit enqueues a job and returns immediately. done, when non-nil, is
// invoked from the worker slot that completes the job.
func (p *Pool) Submit(job Job, done func(Result)) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.seq++
	h := &Handle{
		id:         p.seq,
		job:        job,
		done:       make(chan struct{}),
		onComplete: done,
	}
	heap.Push(&p.queue, h)
	p.cond.Signal()
	p.mu.Unlock()

	p.cfg.Logger.Debug(map[string]any{
		"id":     h.id,
		"kind":   job.Kind.String(),
		"origin": job.Origin,
	}, "job_submitted")
	return h, nil
}

// Shutdown stops the pool. With drain, queued and in-flight jobs are awaited;
// without, queued jobs complete with a Canceled error and in-flight jobs are
// abandoned (their slots exit after the current job, results discarded).
func (p *Pool) Shutdown(drain bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	var abandoned []*Handle
	if !drain {
		for len(p.queue) > 0 {
			abandoned = append(abandoned, heap.Pop(&p.queue).(*Handle))
		}
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, h := range abandoned {
		h.complete(Result{
			Job: h.job,
			Err: &JobError{Kind: Canceled, Cause: ErrPoolClosed},
		})
	}
	if drain {
		p.wg.Wait()
	}
	p.cfg.Logger.Debug(map[string]any{"drain": drain, "canceled": len(abandoned)}, "pool_shutdown")
}

// worker is one slot: pop the highest-priority job, run it, repeat. The slot
// survives job crashes and timeouts; only Shutdown retires it.
func (p *Pool) worker(slot int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		h := heap.Pop(&p.queue).(*Handle)
		p.mu.Unlock()
		p.run(slot, h)
	}
}

// run executes one job with panic isolation and a per-kind time budget.
// On timeout the job goroutine is logically cancelled: it may keep running,
// but its late result lands in a buffered channel nobody reads.
func (p *Pool) run(slot int, h *Handle) {
	timeout := p.cfg.CompileTimeout
	if h.job.Kind == KindRenderDocument {
		timeout = p.cfg.RenderTimeout
	}

	out := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- Result{
					Job: h.job,
					Err: &JobError{Kind: Crashed, Cause: fmt.Errorf("worker panic: %v", r)},
				}
			}
		}()
		v, jerr := p.cfg.Execute(h.job)
		out <- Result{Job: h.job, Output: v, Err: jerr}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-out:
		h.complete(r)
		if r.Err != nil {
			p.cfg.Logger.Warn(map[string]any{
				"id":     h.id,
				"slot":   slot,
				"kind":   h.job.Kind.String(),
				"origin": h.job.Origin,
				"error":  r.Err.Error(),
			}, "job_failed")
		} else {
			p.cfg.Logger.Debug(map[string]any{
				"id":   h.id,
				"slot": slot,
				"kind": h.job.Kind.String(),
			}, "job_done")
		}
	case <-timer.C:
		h.complete(Result{
			Job: h.job,
			Err: &JobError{Kind: Timeout, Cause: fmt.Errorf("exceeded %s budget", timeout)},
		})
		p.cfg.Logger.Warn(map[string]any{
			"id":      h.id,
			"slot":    slot,
			"kind":    h.job.Kind.String(),
			"origin":  h.job.Origin,
			"timeout": timeout.String(),
		}, "job_timeout")
	}
}
