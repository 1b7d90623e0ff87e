package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quantfabric/multibase-optimizer/internal/config"
	"github.com/quantfabric/multibase-optimizer/internal/regbank"
	"github.com/quantfabric/multibase-optimizer/pkg/host"
	"github.com/quantfabric/multibase-optimizer/pkg/output"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// defaultConfigFile is the configuration file looked up when no -config
// flag is given.
const defaultConfigFile = "config.yaml"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info" // Default to info level
	}

	// Parse log level
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	// Determine output format
	format := loggingConfig.Format
	if format == "" {
		format = "json" // Default to JSON for production
	}

	// Configure encoder
	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Configure output file if specified
	if loggingConfig.OutputFile != "" {
		// Ensure the directory exists
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", defaultConfigFile, "path to configuration file")
	benchmarkFlag := flag.Bool("benchmark", false, "run the benchmark instead of a single optimization")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	// Initialize logging based on config and CLI override
	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	baseSelect, err := config.ParseBaseSelect(conf.Defaults.BaseSelect)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Assemble the core and the driver that clocks it.
	bank := regbank.New(logger, conf.Core.ClockHz)
	driver := host.NewDriver(logger, bank, bank)
	driver.Enable()

	req := host.Request{
		BidPrice:      conf.Market.BidPrice,
		AskPrice:      conf.Market.AskPrice,
		LastPrice:     conf.Market.LastPrice,
		BidSize:       conf.Market.BidSize,
		AskSize:       conf.Market.AskSize,
		BaseSelect:    baseSelect,
		RiskLimit:     conf.Defaults.RiskLimit,
		LatencyBudget: conf.Defaults.LatencyBudget,
		StrategyID:    conf.Defaults.StrategyID,
	}

	if *benchmarkFlag {
		bench, err := driver.Benchmark(req, conf.Benchmark.Iterations, conf.Benchmark.PriceStep)
		if err != nil {
			logger.Fatal("benchmark failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		output.PrettyBenchmark(bench)
		return
	}

	result, err := driver.Optimize(req)
	if err != nil {
		if errors.Is(err, host.ErrStalled) {
			// A stall is a clocking or reset fault; reset and report.
			driver.Reset()
		}
		logger.Fatal("optimization failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	output.PrettyResult(result, req.StrategyID)
}
