package pool

import (
	"context"
	"fmt"
)

// Kind identifies the unit of offloaded work. The pool supports exactly two:
// subset compilation and document rendering.
type Kind uint8

const (
	// KindCompileSubset compiles a per-origin rule subset. Highest priority:
	// a subset a tab is navigating to must not sit behind queued render work.
	KindCompileSubset Kind = iota
	// KindRenderDocument transforms document markup off the UI thread.
	KindRenderDocument
)

// String returns a stable name for the job kind.
func (k Kind) String() string {
	switch k {
	case KindCompileSubset:
		return "compile_subset"
	case KindRenderDocument:
		return "render_document"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// priority orders dispatch; lower runs first.
func (k Kind) priority() int {
	if k == KindCompileSubset {
		return 0
	}
	return 1
}

// ErrorKind is the typed reason a job failed inside the pool.
type ErrorKind uint8

const (
	// Crashed means the worker slot panicked while running the job.
	Crashed ErrorKind = iota
	// Timeout means the job exceeded its kind's time budget.
	Timeout
	// MalformedInput means the job payload could not be processed.
	MalformedInput
	// Canceled means the job was abandoned at pool shutdown.
	Canceled
)

// String returns a stable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case Crashed:
		return "crashed"
	case Timeout:
		return "timeout"
	case MalformedInput:
		return "malformed_input"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// JobError is the value a failed job completes with. Failures never
// propagate as panics to the submitter.
type JobError struct {
	Kind  ErrorKind
	Cause error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return "job " + e.Kind.String() + ": " + e.Cause.Error()
	}
	return "job " + e.Kind.String()
}

func (e *JobError) Unwrap() error { return e.Cause }

// Job is one unit of offloaded work. The payload is owned by the pool from
// submission until completion; ownership of the output transfers to the
// submitter when the result is delivered.
type Job struct {
	Kind       Kind
	Origin     string // origin for compile jobs, informational otherwise
	Generation uint64 // ruleset generation for compile jobs
	Payload    any    // kind-specific input, treated as an immutable value
}

// Result is the completed outcome of a job: exactly one of Output or Err is
// meaningful.
type Result struct {
	Job    Job
	Output any
	Err    *JobError
}

// Handle tracks a submitted job. The submitter either polls, awaits, or
// registers a continuation at submit time; it never blocks inside the pool.
type Handle struct {
	id         uint64
	job        Job
	done       chan struct{}
	result     Result
	onComplete func(Result)
}

// ID returns the pool-unique submission id.
func (h *Handle) ID() uint64 { return h.id }

// Job returns the submitted job.
func (h *Handle) Job() Job { return h.job }

// Done returns a channel closed when the job completes (or is canceled).
func (h *Handle) Done() <-chan struct{} { return h.done }

// Poll returns the result without blocking; ok is false while the job is
// still in flight.
func (h *Handle) Poll() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

// Await blocks until the job completes or the context is done.
func (h *Handle) Await(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// complete stores the result and fires the continuation. Called exactly once.
func (h *Handle) complete(r Result) {
	h.result = r
	close(h.done)
	if h.onComplete != nil {
		h.onComplete(r)
	}
}
