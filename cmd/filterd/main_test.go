package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfgate/filterd/internal/filter/config"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	listDir := t.TempDir()
	lines := "! test list\n||ads.example^\n@@||cdn.example^\n"
	require.NoError(t, os.WriteFile(filepath.Join(listDir, "00-test.txt"), []byte(lines), 0o644))

	cfg := config.DEFAULT_APP_CONFIG
	cfg.Workers = 2
	cfg.ListDir = listDir
	cfg.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.db")
	cfg.Env = "dev"
	cfg.LogLevel = "error"
	return &cfg
}

func TestApplication_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	app, err := buildApplication(testConfig(t))
	require.NoError(t, err)

	var out strings.Builder
	app.handleCommand("nav https://news.example/", &out)
	assert.Contains(t, out.String(), "ok")

	// The subset compiles asynchronously; poll the verdict until it blocks.
	require.Eventually(t, func() bool {
		var b strings.Builder
		app.handleCommand("req news.example https://ads.example/banner.js script", &b)
		return strings.HasPrefix(b.String(), "BLOCK")
	}, 5*time.Second, 10*time.Millisecond)

	out.Reset()
	app.handleCommand("req news.example https://cdn.example/lib.js script", &out)
	assert.Equal(t, "ALLOW\n", out.String())

	out.Reset()
	app.handleCommand("stats", &out)
	assert.Contains(t, out.String(), "generation=1")
	assert.Contains(t, out.String(), "ready=1")

	require.NoError(t, app.shutdown())
}

func TestApplication_CommandErrors(t *testing.T) {
	app, err := buildApplication(testConfig(t))
	require.NoError(t, err)
	defer app.shutdown()

	var out strings.Builder
	app.handleCommand("req too few", &out)
	assert.Contains(t, out.String(), "usage: req")

	out.Reset()
	app.handleCommand("req a.example https://b.example/x hologram", &out)
	assert.Contains(t, out.String(), "bad resource type")

	out.Reset()
	app.handleCommand("frobnicate", &out)
	assert.Contains(t, out.String(), "unknown command")

	assert.False(t, app.handleCommand("", &out))
	assert.True(t, app.handleCommand("quit", &out))
}

func TestApplication_RunStopsOnQuit(t *testing.T) {
	app, err := buildApplication(testConfig(t))
	require.NoError(t, err)

	var out strings.Builder
	done := make(chan error, 1)
	go func() {
		done <- app.Run(context.Background(), strings.NewReader("nav https://news.example/\nquit\n"), &out)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not stop on quit")
	}
}

func TestApplication_RunStopsOnContextCancel(t *testing.T) {
	app, err := buildApplication(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var out strings.Builder
		// A blocked reader: only cancellation can stop the loop.
		done <- app.Run(ctx, blockingReader{}, &out)
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

// blockingReader never returns, standing in for an idle stdin.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestApplication_SnapshotServesAfterListLoss(t *testing.T) {
	cfg := testConfig(t)

	app, err := buildApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, app.shutdown())

	// Remove the list files; the snapshot must carry the ruleset.
	entries, err := os.ReadDir(cfg.ListDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, os.Remove(filepath.Join(cfg.ListDir, e.Name())))
	}

	app2, err := buildApplication(cfg)
	require.NoError(t, err)
	defer app2.shutdown()

	var out strings.Builder
	app2.handleCommand("stats", &out)
	assert.Contains(t, out.String(), "generation=1", "restored snapshot must be generation 1")
}
