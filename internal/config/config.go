package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables overriding configuration keys,
// e.g. WBGHOST_HTTP_ADDR for http.addr.
const EnvPrefix = "WBGHOST"

type Config struct {
	AppPaths       []string       `mapstructure:"app_paths"`
	LogLevel       string         `mapstructure:"log_level"`
	MetricsEnabled bool           `mapstructure:"metrics_enabled"`
	MetricsPort    int            `mapstructure:"metrics_port"` // 0 serves /metrics on the API listener
	HTTP           HTTPConfig     `mapstructure:"http"`
	Wasm           WasmConfig     `mapstructure:"wasm"`
	Fetch          FetchConfig    `mapstructure:"fetch"`
	Document       DocumentConfig `mapstructure:"document"`
}

// HTTPConfig configures the inspection API.
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Keep debug information for trap stack traces.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory, empty for in-memory only.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Upper bound of a single guest call.
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
}

// FetchConfig configures the fetch client of every session.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// DocumentConfig configures the initial document of sessions whose
// manifest does not name one.
type DocumentConfig struct {
	URL string `mapstructure:"url"`
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app_paths", []string{"./apps"})
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("metrics_port", 9090)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", "127.0.0.1:8040")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30*time.Second)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "wbghost/1.0")
	v.SetDefault("fetch.max_body_bytes", 8<<20)

	v.SetDefault("document.url", "http://localhost/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.MetricsEnabled && (c.MetricsPort < 0 || c.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics_port %d", c.MetricsPort)
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required when http.enabled is set")
	}
	if c.Wasm.ExecutionTimeout < 0 || c.Fetch.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
