package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/surfgate/filterd/internal/filter/common/log"
	"github.com/surfgate/filterd/internal/filter/config"
	"github.com/surfgate/filterd/internal/filter/domain"
	"github.com/surfgate/filterd/internal/filter/gateways/listdir"
	"github.com/surfgate/filterd/internal/filter/pool"
	"github.com/surfgate/filterd/internal/filter/repos/decisioncache"
	"github.com/surfgate/filterd/internal/filter/repos/rulestore"
	"github.com/surfgate/filterd/internal/filter/repos/subsetcache"
	"github.com/surfgate/filterd/internal/filter/services/engine"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "filterd"

	defaultShutdownTimeout = 10 * time.Second
	listWatchDebounce      = 500 * time.Millisecond
)

// Application holds all the components of the filter daemon
type Application struct {
	config  *config.AppConfig
	engine  *engine.Engine
	pool    *pool.Pool
	store   *rulestore.Store
	watcher *listdir.Watcher
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":       version,
		"env":           cfg.Env,
		"log_level":     cfg.LogLevel,
		"workers":       cfg.EffectiveWorkers(),
		"safe_mode":     cfg.SafeMode,
		"list_dir":      cfg.ListDir,
		"snapshot_path": cfg.SnapshotPath,
	}, "Starting filterd")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal(map[string]any{"error": err}, "filterd failed")
	}

	log.Info(nil, "filterd stopped gracefully")
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	// Ruleset store, with the optional bbolt snapshot behind it.
	var store *rulestore.Store
	var err error
	if cfg.SnapshotPath != "" {
		store, err = rulestore.Open(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ruleset snapshot: %w", err)
		}
	} else {
		store = rulestore.New()
	}

	// Decision cache first, so subset evictions can purge its rows.
	decisions, err := decisioncache.New(int(cfg.DecisionCacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}
	subsets, err := subsetcache.New(int(cfg.SubsetCacheSize), nil, func(origin string) {
		decisions.PurgeOrigin(origin)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subset cache: %w", err)
	}

	// Offload pool running the compile/render executor.
	workers := cfg.EffectiveWorkers()
	p, err := pool.New(pool.Config{
		Workers:        workers,
		CompileTimeout: cfg.CompileTimeout,
		RenderTimeout:  cfg.RenderTimeout,
		Execute:        engine.NewExecutor(),
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	log.Info(map[string]any{
		"workers":         workers,
		"compile_timeout": cfg.CompileTimeout.String(),
		"render_timeout":  cfg.RenderTimeout.String(),
	}, "Offload pool configured")

	eng, err := engine.New(engine.Options{
		Pool:      p,
		Store:     store,
		Subsets:   subsets,
		Decisions: decisions,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	// Serve the persisted snapshot immediately, then load fresh lists.
	if rs, err := store.Restore(); err != nil {
		log.Warn(map[string]any{"error": err}, "Snapshot restore failed")
	} else if rs != nil {
		log.Info(map[string]any{
			"generation": rs.Generation,
			"lines":      rs.Len(),
			"fetched_at": rs.FetchedAt,
		}, "Ruleset restored from snapshot")
	}

	lines, err := listdir.Load(cfg.ListDir)
	if err != nil {
		if store.Current() == nil {
			return nil, fmt.Errorf("failed to load filter lists: %w", err)
		}
		log.Warn(map[string]any{"error": err}, "List load failed, serving snapshot")
	} else if err := eng.PublishRuleSet(lines, "listdir"); err != nil {
		if store.Current() == nil {
			return nil, fmt.Errorf("failed to publish filter lists: %w", err)
		}
		log.Warn(map[string]any{"error": err}, "List publish failed, serving snapshot")
	}

	watcher, err := listdir.Watch(cfg.ListDir, listWatchDebounce)
	if err != nil {
		return nil, fmt.Errorf("failed to watch list directory: %w", err)
	}

	return &Application{
		config:  cfg,
		engine:  eng,
		pool:    p,
		store:   store,
		watcher: watcher,
	}, nil
}

// Run serves the interactive command loop and list refreshes until the
// context is cancelled or stdin closes.
func (app *Application) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	go app.refreshLoop(ctx)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := app.handleCommand(line, out); quit {
				break loop
			}
		}
	}

	log.Info(nil, "Shutdown initiated")
	return app.shutdown()
}

// refreshLoop republishes the ruleset whenever the list directory changes.
func (app *Application) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-app.watcher.Events():
			if !ok {
				return
			}
			lines, err := listdir.Load(app.config.ListDir)
			if err != nil {
				log.Warn(map[string]any{"error": err}, "List reload failed")
				continue
			}
			if err := app.engine.PublishRuleSet(lines, "listdir"); err != nil {
				log.Warn(map[string]any{"error": err}, "List republish failed")
			}
		}
	}
}

// handleCommand executes one interactive command. Returns true on quit.
func (app *Application) handleCommand(line string, out io.Writer) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "nav":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: nav <url>")
			return false
		}
		app.engine.OnNavigationStart(fields[1])
		fmt.Fprintln(out, "ok")
	case "req":
		if len(fields) != 4 {
			fmt.Fprintln(out, "usage: req <first-party> <url> <type>")
			return false
		}
		rt, err := domain.ParseResourceType(fields[3])
		if err != nil {
			fmt.Fprintf(out, "bad resource type: %v\n", err)
			return false
		}
		d := app.engine.Decide(domain.RequestDescriptor{
			URL:        fields[2],
			FirstParty: fields[1],
			Type:       rt,
		})
		if d.Blocked {
			fmt.Fprintf(out, "BLOCK %s\n", d.MatchedRule)
		} else {
			fmt.Fprintln(out, "ALLOW")
		}
	case "stats":
		st := app.engine.Stats()
		fmt.Fprintf(out, "generation=%d subsets(pending=%d ready=%d failed=%d) decisions(hits=%d misses=%d evictions=%d) pool(queued=%d workers=%d)\n",
			st.Generation,
			st.Subsets.Pending, st.Subsets.Ready, st.Subsets.Failed,
			st.DecisionHits, st.DecisionMisses, st.DecisionEvictions,
			st.Queued, st.Workers)
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(out, "unknown command %q (nav, req, stats, quit)\n", fields[0])
	}
	return false
}

// shutdown drains the pool under a timeout and releases resources.
func (app *Application) shutdown() error {
	if err := app.watcher.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing list watcher")
	}

	done := make(chan struct{})
	go func() {
		app.pool.Shutdown(true)
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout.String()}, "Shutdown timeout exceeded")
	}

	if err := app.store.Close(); err != nil {
		log.Warn(map[string]any{"error": err}, "Error closing ruleset store")
		return err
	}
	return nil
}
