// Package engine orchestrates filtering: it owns the subset and decision
// caches, schedules per-origin subset compilation on the offload pool, and
// answers the host's per-request block/allow question without ever blocking
// on worker results.
//
// All cache mutation funnels through the engine's mutex, so entry state
// transitions have a single writer even though job completions arrive on
// worker goroutines.
package engine

import (
	"errors"
	"sync"

	"github.com/surfgate/filterd/internal/filter/common/clock"
	"github.com/surfgate/filterd/internal/filter/common/log"
	"github.com/surfgate/filterd/internal/filter/common/urlx"
	"github.com/surfgate/filterd/internal/filter/compiler"
	"github.com/surfgate/filterd/internal/filter/domain"
	"github.com/surfgate/filterd/internal/filter/pool"
	"github.com/surfgate/filterd/internal/filter/render"
	"github.com/surfgate/filterd/internal/filter/repos/subsetcache"
)

// Stats is a point-in-time snapshot of engine state for diagnostics.
type Stats struct {
	Generation        uint64
	Subsets           subsetcache.Stats
	DecisionHits      uint64
	DecisionMisses    uint64
	DecisionEvictions uint64
	Queued            int
	Workers           int
}

// Options wires an Engine. All fields but Clock and Logger are required.
type Options struct {
	Pool      Offloader
	Store     RuleSource
	Subsets   SubsetCache
	Decisions DecisionCache
	Clock     clock.Clock
	Logger    log.Logger
}

// Engine is the filtering orchestrator. Safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	pool      Offloader
	store     RuleSource
	subsets   SubsetCache
	decisions DecisionCache
	clk       clock.Clock
	logger    log.Logger
}

// New validates the options and returns a ready Engine.
func New(opts Options) (*Engine, error) {
	if opts.Pool == nil || opts.Store == nil || opts.Subsets == nil || opts.Decisions == nil {
		return nil, errors.New("engine: Pool, Store, Subsets and Decisions are required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Engine{
		pool:      opts.Pool,
		store:     opts.Store,
		subsets:   opts.Subsets,
		decisions: opts.Decisions,
		clk:       opts.Clock,
		logger:    opts.Logger,
	}, nil
}

// OnNavigationStart prefetches the subset for the page the host is navigating
// to. pageURL may be a full URL or a bare host. Repeated calls for the same
// origin within a generation are free.
func (e *Engine) OnNavigationStart(pageURL string) {
	host := urlx.HostFromURL(pageURL)
	if host == "" {
		host = urlx.CanonicalHost(pageURL)
	}
	if host == "" {
		return
	}
	origin := urlx.RegistrableDomain(host)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduleSubsetLocked(origin)
}

// Decide answers block/allow for one request. It consults only published
// state and never waits: a subset that is not Ready yields an allow verdict
// that is deliberately not cached, so the answer is re-evaluated once the
// subset lands.
func (e *Engine) Decide(req domain.RequestDescriptor) domain.Decision {
	rs := e.store.Current()
	if rs == nil {
		return domain.Allow(0)
	}
	gen := rs.Generation

	// Subsets and decisions are keyed by the first party's registrable
	// domain; a request with no first-party context falls back to its own.
	host := urlx.CanonicalHost(req.FirstParty)
	if host == "" {
		host = req.RequestHost()
	}
	if host == "" {
		return domain.Allow(0)
	}
	origin := urlx.RegistrableDomain(host)
	fp := req.Fingerprint()

	e.mu.Lock()
	defer e.mu.Unlock()

	if d, ok := e.decisions.Get(origin, fp, gen); ok {
		return d
	}

	entry, ok := e.subsets.Get(origin)
	if ok && entry.Usable(gen) {
		d := entry.Matcher.Match(req)
		e.decisions.Put(origin, fp, d)
		return d
	}
	if !ok || entry.Generation != gen {
		e.scheduleSubsetLocked(origin)
	}
	// Pending, Failed, or absent: fail open and do not cache the verdict.
	return domain.Allow(0)
}

// PublishRuleSet validates and publishes a refreshed ruleset, then drops all
// per-origin state so nothing from the previous generation is ever consulted.
// A fatally broken ruleset is rejected and the previous generation stays live.
func (e *Engine) PublishRuleSet(lines []string, source string) error {
	if err := compiler.Validate(lines); err != nil {
		e.logger.Error(map[string]any{"source": source, "error": err.Error()}, "ruleset rejected")
		return err
	}
	rs, err := e.store.Publish(lines, source)
	if err != nil {
		e.logger.Warn(map[string]any{"source": source, "error": err.Error()}, "ruleset snapshot not persisted")
	}

	e.mu.Lock()
	e.subsets.PurgeAll()
	e.decisions.Purge()
	e.mu.Unlock()

	e.logger.Info(map[string]any{
		"generation": rs.Generation,
		"lines":      rs.Len(),
		"source":     source,
	}, "ruleset published")
	return nil
}

// SubmitRender offloads a document transform at render priority. The caller
// owns the handle; output is the rendered HTML string.
func (e *Engine) SubmitRender(doc render.Document, done func(pool.Result)) (*pool.Handle, error) {
	return e.pool.Submit(pool.Job{Kind: pool.KindRenderDocument, Payload: doc}, done)
}

// Stats snapshots cache and pool state.
func (e *Engine) Stats() Stats {
	hits, misses, evictions := e.decisions.Stats()
	e.mu.Lock()
	subs := e.subsets.Stats()
	e.mu.Unlock()
	return Stats{
		Generation:        e.store.Generation(),
		Subsets:           subs,
		DecisionHits:      hits,
		DecisionMisses:    misses,
		DecisionEvictions: evictions,
		Queued:            e.pool.Queued(),
		Workers:           e.pool.Workers(),
	}
}

// scheduleSubsetLocked submits one compile job for the origin at the current
// generation unless an entry for that generation already exists. Caller holds
// e.mu.
func (e *Engine) scheduleSubsetLocked(origin string) {
	rs := e.store.Current()
	if rs == nil {
		return
	}
	if _, created := e.subsets.GetOrCreate(origin, rs.Generation); !created {
		return
	}
	e.submitCompileLocked(origin, rs)
}

// submitCompileLocked hands one compile job to the pool. Caller holds e.mu.
func (e *Engine) submitCompileLocked(origin string, rs *domain.RuleSet) {
	job := pool.Job{
		Kind:       pool.KindCompileSubset,
		Origin:     origin,
		Generation: rs.Generation,
		Payload:    rs,
	}
	if _, err := e.pool.Submit(job, e.onCompileDone); err != nil {
		// Pool is shutting down; drop the entry so a restart can reschedule.
		e.subsets.Remove(origin)
		e.logger.Debug(map[string]any{"origin": origin, "error": err.Error()}, "compile not scheduled")
	}
}

// onCompileDone applies a compile result. Runs on a worker goroutine; all
// mutation happens under the engine mutex. Results for a generation the entry
// has moved past are discarded on arrival.
func (e *Engine) onCompileDone(res pool.Result) {
	origin := res.Job.Origin
	gen := res.Job.Generation

	e.mu.Lock()
	defer e.mu.Unlock()

	if res.Err == nil {
		m, ok := res.Output.(domain.Matcher)
		if !ok {
			res.Err = &pool.JobError{Kind: pool.MalformedInput, Cause: errors.New("compile output is not a matcher")}
		} else {
			e.subsets.Complete(origin, gen, m, nil)
			e.logger.Debug(map[string]any{
				"origin":     origin,
				"generation": gen,
				"rules":      m.RuleCount(),
			}, "subset ready")
			return
		}
	}

	retry := e.subsets.Complete(origin, gen, nil, res.Err)
	if retry && retryable(res.Err) {
		rs := e.store.Current()
		if rs != nil && rs.Generation == gen {
			e.logger.Warn(map[string]any{
				"origin":     origin,
				"generation": gen,
				"error":      res.Err.Error(),
			}, "subset compile failed, retrying")
			e.submitCompileLocked(origin, rs)
			return
		}
		retry = false
	}
	if retry {
		// Non-retryable failure: burn the remaining retry so the entry goes
		// terminally Failed for this generation.
		e.subsets.Complete(origin, gen, nil, res.Err)
	}
	e.logger.Warn(map[string]any{
		"origin":     origin,
		"generation": gen,
		"error":      res.Err.Error(),
	}, "subset compile failed")
}

// retryable reports whether a failure class is worth one automatic retry.
// Malformed input fails identically every time; canceled means shutdown.
func retryable(err *pool.JobError) bool {
	if err == nil {
		return false
	}
	return err.Kind == pool.Crashed || err.Kind == pool.Timeout
}
