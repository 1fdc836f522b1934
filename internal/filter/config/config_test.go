package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Workers)
	assert.False(t, cfg.SafeMode)
	assert.Equal(t, uint(256), cfg.SubsetCacheSize)
	assert.Equal(t, uint(4096), cfg.DecisionCacheSize)
	assert.Equal(t, 30*time.Second, cfg.CompileTimeout)
	assert.Equal(t, 120*time.Second, cfg.RenderTimeout)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FILTERD_WORKERS", "4")
	t.Setenv("FILTERD_SAFE_MODE", "true")
	t.Setenv("FILTERD_COMPILE_TIMEOUT", "5s")
	t.Setenv("FILTERD_LIST_DIR", "/tmp/lists")
	t.Setenv("FILTERD_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.SafeMode)
	assert.Equal(t, 5*time.Second, cfg.CompileTimeout)
	assert.Equal(t, "/tmp/lists", cfg.ListDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("FILTERD_LOG_LEVEL", "loud")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FILTERD_LOG_LEVEL", "info")
	t.Setenv("FILTERD_WORKERS", "1000")
	_, err = Load()
	assert.Error(t, err)
}

func TestEffectiveWorkers(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		safeMode bool
		want     func(got int) bool
	}{
		{"explicit", 3, false, func(got int) bool { return got == 3 }},
		{"safe mode wins", 6, true, func(got int) bool { return got == 1 }},
		{"auto is bounded", 0, false, func(got int) bool { return got >= 1 && got <= 8 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DEFAULT_APP_CONFIG
			cfg.Workers = tt.workers
			cfg.SafeMode = tt.safeMode
			if got := cfg.EffectiveWorkers(); !tt.want(got) {
				t.Errorf("EffectiveWorkers() = %d, unexpected for %s", got, tt.name)
			}
		})
	}
}
