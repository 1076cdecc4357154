// Package config loads vizloom settings from defaults, an optional YAML
// file, and VIZLOOM_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// HTTP server
	Host               string   `mapstructure:"host" yaml:"host"`
	Port               int      `mapstructure:"port" yaml:"port"`
	CORSOrigins        []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxUploadMB        int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ShutdownTimeoutSec int      `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
	MaxPointsLimit     int      `mapstructure:"max_points_limit" yaml:"max_points_limit"`

	// Pipeline
	DefaultMaxPoints     int     `mapstructure:"default_max_points" yaml:"default_max_points"`
	MaxInsights          int     `mapstructure:"max_insights" yaml:"max_insights"`
	CorrelationThreshold float64 `mapstructure:"correlation_threshold" yaml:"correlation_threshold"`
	OutlierSigma         float64 `mapstructure:"outlier_sigma" yaml:"outlier_sigma"`
	TrendThreshold       float64 `mapstructure:"trend_threshold" yaml:"trend_threshold"`
	KMeansMaxIter        int     `mapstructure:"kmeans_max_iter" yaml:"kmeans_max_iter"`
	ClusterMinRows       int     `mapstructure:"cluster_min_rows" yaml:"cluster_min_rows"`
	SampleSeed           uint64  `mapstructure:"sample_seed" yaml:"sample_seed"`
	SampleMode           string  `mapstructure:"sample_mode" yaml:"sample_mode"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// AI code generation
	DefaultProvider  string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel     string  `mapstructure:"default_model" yaml:"default_model"`
	APIKey           string  `mapstructure:"api_key" yaml:"api_key"`
	OllamaHost       string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	MaxTokens        int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`
	PromptTokenLimit int     `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

var defaults = map[string]any{
	"host":                  "127.0.0.1",
	"port":                  8000,
	"cors_origins":          []string{"*"},
	"max_upload_mb":         32,
	"shutdown_timeout_sec":  10,
	"max_points_limit":      1000,
	"default_max_points":    50,
	"max_insights":          10,
	"correlation_threshold": 0.6,
	"outlier_sigma":         3.0,
	"trend_threshold":       0.1,
	"kmeans_max_iter":       100,
	"cluster_min_rows":      500,
	"sample_seed":           42,
	"sample_mode":           "uniform",
	"log_level":             "info",
	"log_format":            "console",
	"default_provider":      "openrouter",
	"default_model":         "openai/gpt-4o-mini",
	"api_key":               "",
	"ollama_host":           "http://127.0.0.1:11434",
	"max_tokens":            4096,
	"temperature":           0.2,
	"prompt_token_limit":    12000,
	"http_timeout_sec":      60,
	"retry_max_attempts":    3,
	"retry_base_delay_ms":   500,
	"retry_max_delay_ms":    4000,
}

// Keys lists every recognised configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultPath returns ~/.vizloom/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".vizloom", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is
// empty, it writes to ~/.vizloom/config.yaml, creating the directory if
// necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command-line flags are applied
// by the caller afterwards.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("VIZLOOM")
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		// A missing file is allowed so that `config set` can create it.
		if _, err := os.Stat(cfgFile); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
			}
		}
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Global) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port: %d", c.Port)
	case c.DefaultMaxPoints < 1:
		return fmt.Errorf("default_max_points must be at least 1, got %d", c.DefaultMaxPoints)
	case c.MaxPointsLimit < c.DefaultMaxPoints:
		return fmt.Errorf("max_points_limit (%d) must be at least default_max_points (%d)", c.MaxPointsLimit, c.DefaultMaxPoints)
	case c.MaxInsights < 1:
		return fmt.Errorf("max_insights must be at least 1, got %d", c.MaxInsights)
	case c.SampleMode != "uniform" && c.SampleMode != "head":
		return fmt.Errorf("invalid sample_mode: %s (use uniform or head)", c.SampleMode)
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("invalid log_format: %s (use console or json)", c.LogFormat)
	}
	return nil
}

// Set parses val for key and assigns it.
func (c *Global) Set(key, val string) error {
	switch key {
	case "host":
		c.Host = val
	case "port":
		return setInt(&c.Port, key, val, 0)
	case "cors_origins":
		c.CORSOrigins = splitList(val)
	case "max_upload_mb":
		return setInt(&c.MaxUploadMB, key, val, 1)
	case "shutdown_timeout_sec":
		return setInt(&c.ShutdownTimeoutSec, key, val, 0)
	case "max_points_limit":
		return setInt(&c.MaxPointsLimit, key, val, 1)
	case "default_max_points":
		return setInt(&c.DefaultMaxPoints, key, val, 1)
	case "max_insights":
		return setInt(&c.MaxInsights, key, val, 1)
	case "correlation_threshold":
		return setFloat(&c.CorrelationThreshold, key, val)
	case "outlier_sigma":
		return setFloat(&c.OutlierSigma, key, val)
	case "trend_threshold":
		return setFloat(&c.TrendThreshold, key, val)
	case "kmeans_max_iter":
		return setInt(&c.KMeansMaxIter, key, val, 1)
	case "cluster_min_rows":
		return setInt(&c.ClusterMinRows, key, val, 0)
	case "sample_seed":
		u, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid uint for sample_seed: %w", err)
		}
		c.SampleSeed = u
	case "sample_mode":
		switch strings.ToLower(val) {
		case "uniform", "head":
			c.SampleMode = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid sample_mode: %s (use uniform or head)", val)
		}
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "console", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
	case "default_provider":
		switch strings.ToLower(val) {
		case "openrouter", "openai", "anthropic", "ollama":
			c.DefaultProvider = strings.ToLower(val)
		case "local":
			c.DefaultProvider = "ollama"
		default:
			return fmt.Errorf("invalid default_provider: %s (use openrouter, openai, anthropic, or ollama)", val)
		}
	case "default_model":
		c.DefaultModel = val
	case "api_key":
		c.APIKey = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_tokens":
		return setInt(&c.MaxTokens, key, val, 1)
	case "temperature":
		return setFloat(&c.Temperature, key, val)
	case "prompt_token_limit":
		return setInt(&c.PromptTokenLimit, key, val, 0)
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val, 1)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val, 0)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val, 0)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val, 0)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, min int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < min {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func setFloat(dst *float64, key, val string) error {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("invalid float for %s: %v", key, val)
	}
	*dst = f
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
