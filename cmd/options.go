package cmd

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/KaramelBytes/vizloom-cli/internal/config"
	"github.com/KaramelBytes/vizloom-cli/internal/insight"
	"github.com/KaramelBytes/vizloom-cli/internal/pipeline"
	"github.com/KaramelBytes/vizloom-cli/internal/reduce"
	"github.com/KaramelBytes/vizloom-cli/internal/server"
)

// newLogger builds a console (development) or json (production) logger.
// --debug forces debug level.
func newLogger(c *cfgpkg.Global, debugFlag bool) (*zap.Logger, error) {
	format, levelName := "console", "info"
	if c != nil {
		format, levelName = c.LogFormat, c.LogLevel
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", levelName, err)
	}
	if debugFlag {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	if format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = !debugFlag
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func pipelineOptions(c *cfgpkg.Global) pipeline.Options {
	opts := pipeline.DefaultOptions()
	if c == nil {
		return opts
	}
	opts.DefaultMaxPoints = c.DefaultMaxPoints
	opts.Reduce = reduce.Options{
		Seed:           c.SampleSeed,
		MaxIter:        c.KMeansMaxIter,
		ClusterMinRows: c.ClusterMinRows,
		SampleMode:     c.SampleMode,
	}
	ins := insight.DefaultOptions()
	ins.MaxInsights = c.MaxInsights
	if c.CorrelationThreshold > 0 {
		ins.CorrelationThreshold = c.CorrelationThreshold
	}
	if c.OutlierSigma > 0 {
		ins.OutlierSigma = c.OutlierSigma
	}
	if c.TrendThreshold > 0 {
		ins.TrendThreshold = c.TrendThreshold
	}
	opts.Insight = ins
	return opts
}

func serverOptions(c *cfgpkg.Global) server.Options {
	return server.Options{
		Addr:            net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		CORSOrigins:     c.CORSOrigins,
		MaxUploadBytes:  int64(c.MaxUploadMB) << 20,
		MaxPoints:       c.MaxPointsLimit,
		ShutdownTimeout: time.Duration(c.ShutdownTimeoutSec) * time.Second,
		Version:         Version,
	}
}

func newProcessor(c *cfgpkg.Global) *pipeline.Processor {
	return pipeline.New(pipelineOptions(c), logger)
}
