// Package main implements the entry point for target-parquet, a Singer
// target that persists tap output as compressed parquet files on disk.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/saeedzareian/target-parquet/config"
	"github.com/saeedzareian/target-parquet/diag"
	"github.com/saeedzareian/target-parquet/errors"
	"github.com/saeedzareian/target-parquet/metric"
	"github.com/saeedzareian/target-parquet/pipeline"
	"github.com/saeedzareian/target-parquet/usage"
	"github.com/saeedzareian/target-parquet/writer"
)

// Build information constants
const (
	Version   = "0.2.0"
	BuildTime = "dev"
	appName   = "target-parquet"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("run failed",
			"error", err,
			"error_class", errors.Classify(err).String(),
			"exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	// The config file's logging_level takes precedence over the flag.
	if cfg.LoggingLevel != "" && cfg.LoggingLevel != cliCfg.LogLevel {
		logger := setupLogger(cfg.LoggingLevel, cliCfg.LogFormat)
		slog.SetDefault(logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cfg.DisableCollection {
		slog.Info("Sending version information to singer.io. " +
			"To disable sending anonymous usage data, set " +
			`the config parameter "disable_collection" to true`)
		go usage.Send(Version, slog.Default())
	}

	metricsRegistry := metric.NewMetricsRegistry()

	reporter := diag.NewMemoryReporter(0, slog.Default())
	reporter.Start(ctx)

	batchWriter := writer.NewWriter(writer.Config{
		DestinationPath:         cfg.DestinationPath,
		CompressionMethod:       cfg.CompressionMethod,
		StreamsInSeparateFolder: cfg.StreamsInSeparateFolder,
	}, slog.Default(), writer.WithMetrics(metricsRegistry.CoreMetrics()))

	if err := batchWriter.Initialize(); err != nil {
		metricsRegistry.CoreMetrics().RecordError(errors.Classify(err).String())
		return err
	}

	p := pipeline.New(pipeline.Config{
		FileSize: cfg.FileSize,
	}, batchWriter, slog.Default(), pipeline.WithMetrics(metricsRegistry.CoreMetrics()))

	slog.Info("starting ingestion",
		"destination_path", cfg.DestinationPath,
		"compression_method", cfg.CompressionMethod,
		"streams_in_separate_folder", cfg.StreamsInSeparateFolder,
		"file_size", cfg.FileSize)

	checkpoint, err := p.Run(ctx, os.Stdin)
	if err != nil {
		metricsRegistry.CoreMetrics().RecordError(errors.Classify(err).String())
		return err
	}

	if err := pipeline.EmitCheckpoint(os.Stdout, checkpoint); err != nil {
		return err
	}

	slog.Debug("exiting normally")
	return nil
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting target-parquet",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	if cliCfg.ConfigPath == "" {
		return config.DefaultConfig(), nil
	}

	cfg, err := config.NewLoader().LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
