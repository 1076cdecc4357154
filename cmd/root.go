package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is rebuilt whenever configuration is loaded.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "vizloom",
	Short: "vizloom: turn tabular data into chart-ready summaries and insights",
	Long: `vizloom inspects CSV, JSON, XLSX, or SQL result sets, reduces them to a
chart-sized table, interprets a plain-language chart request, and writes
insights. It can also serve the same pipeline over HTTP and ask a language
model for a matching chart component.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.vizloom/config.yaml)")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	f.StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
	f.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	f.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	f.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	f.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		printWarn(os.Stderr, "failed to load config: %v", err)
		c = nil
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if cfg != nil {
		if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
			cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
		}
		if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
			cfg.RetryMaxAttempts = flagRetryMaxAttempts
		}
		if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
			cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
		}
		if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
			cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
		}
		if f.Changed("log-format") && logFormat != "" {
			cfg.LogFormat = logFormat
		}
	}

	l, err := newLogger(cfg, debug)
	if err != nil {
		printWarn(os.Stderr, "failed to build logger: %v", err)
		return
	}
	logger = l
}

// currentConfig returns the loaded config, falling back to defaults when
// loading failed.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg = c
	return cfg, nil
}

var (
	successMark = color.New(color.FgGreen).SprintFunc()
	warnMark    = color.New(color.FgYellow).SprintFunc()
	errorMark   = color.New(color.FgRed, color.Bold).SprintFunc()
)
