package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Workers is the offload pool size. 0 auto-detects from CPU count.
	Workers int `koanf:"workers" validate:"gte=0,lte=128"`

	// SafeMode forces the pool down to a single worker slot regardless of
	// Workers. Set by the host on platforms where parallel native work is
	// known to be unstable.
	SafeMode bool `koanf:"safe_mode"`

	// SubsetCacheSize bounds how many per-origin compiled subsets are kept.
	SubsetCacheSize uint `koanf:"subset_cache_size" validate:"required,gte=1"`

	// DecisionCacheSize bounds the number of cached request verdicts.
	DecisionCacheSize uint `koanf:"decision_cache_size" validate:"required,gte=1"`

	// CompileTimeout bounds a single subset compilation job.
	CompileTimeout time.Duration `koanf:"compile_timeout" validate:"required"`

	// RenderTimeout bounds a single document render job. Rendering is
	// allowed to take longer than compilation.
	RenderTimeout time.Duration `koanf:"render_timeout" validate:"required"`

	// ListDir is the directory holding raw filter-list text files.
	ListDir string `koanf:"list_dir" validate:"required"`

	// SnapshotPath is the bbolt file for the persisted ruleset snapshot.
	// Empty disables persistence.
	SnapshotPath string `koanf:"snapshot_path"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// DEFAULT_APP_CONFIG defines the default configuration: auto worker count,
// cache bounds sized for a typical multi-tab session, and generous job
// timeouts.
var DEFAULT_APP_CONFIG = AppConfig{
	Workers:           0,
	SafeMode:          false,
	SubsetCacheSize:   256,
	DecisionCacheSize: 4096,
	CompileTimeout:    30 * time.Second,
	RenderTimeout:     120 * time.Second,
	ListDir:           "/etc/filterd/lists/",
	SnapshotPath:      "",
	Env:               "prod",
	LogLevel:          "info",
}

// EffectiveWorkers resolves the configured worker count: safe mode pins the
// pool to one slot, 0 falls back to the CPU count capped at 8.
func (c *AppConfig) EffectiveWorkers() int {
	if c.SafeMode {
		return 1
	}
	if c.Workers > 0 {
		return c.Workers
	}
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	return n
}

// envLoader loads environment variables with the prefix "FILTERD_",
// lowercasing keys and removing the prefix. Swappable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FILTERD_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "FILTERD_")), value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using the structs provider.
	k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	// Duration fields arrive from the environment as strings like "30s",
	// so decoding needs the string-to-duration hook.
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
