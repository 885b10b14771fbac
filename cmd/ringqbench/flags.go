// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"code.hybscloud.com/ringq/slab"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Capacity    int
	BlockSize   int
	Backing     string
	Producers   int
	Observers   int
	Consumers   int
	Duration    time.Duration
	Stats       bool
	Clock       string
	Pin         bool
	PoolOps     int
	MetricsAddr string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.IntVar(&cfg.Capacity, "capacity",
		getEnvInt("RINGQ_CAPACITY", 20000),
		"Queue slots; at most capacity-1 elements are queued (env: RINGQ_CAPACITY)")

	fs.IntVar(&cfg.BlockSize, "block-size",
		getEnvInt("RINGQ_BLOCK_SIZE", 1024),
		"Elements per slab block (env: RINGQ_BLOCK_SIZE)")

	fs.StringVar(&cfg.Backing, "backing",
		getEnv("RINGQ_BACKING", "auto"),
		"Slab backing: auto, heap, mmap (env: RINGQ_BACKING)")

	fs.IntVar(&cfg.Producers, "producers",
		getEnvInt("RINGQ_PRODUCERS", 2),
		"Producer drivers (env: RINGQ_PRODUCERS)")

	fs.IntVar(&cfg.Observers, "observers",
		getEnvInt("RINGQ_OBSERVERS", 3),
		"Observer drivers reading without removing (env: RINGQ_OBSERVERS)")

	fs.IntVar(&cfg.Consumers, "consumers",
		getEnvInt("RINGQ_CONSUMERS", 0),
		"Goroutines popping elements (env: RINGQ_CONSUMERS)")

	fs.DurationVar(&cfg.Duration, "duration",
		getEnvDuration("RINGQ_DURATION", 10*time.Second),
		"Run time (env: RINGQ_DURATION)")

	fs.BoolVar(&cfg.Stats, "stats",
		getEnvBool("RINGQ_STATS", true),
		"Collect queue and driver statistics (env: RINGQ_STATS)")

	fs.StringVar(&cfg.Clock, "clock",
		getEnv("RINGQ_CLOCK", "auto"),
		"Statistics clock: auto, tsc, system (env: RINGQ_CLOCK)")

	fs.BoolVar(&cfg.Pin, "pin",
		getEnvBool("RINGQ_PIN", false),
		"Pin each driver to its own CPU, Linux only (env: RINGQ_PIN)")

	fs.IntVar(&cfg.PoolOps, "pool-ops",
		getEnvInt("RINGQ_POOL_OPS", 1000000),
		"Allocations in the pool vs heap benchmark, 0 to skip (env: RINGQ_POOL_OPS)")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("RINGQ_METRICS_ADDR", ""),
		"Serve Prometheus metrics on this address, empty to disable (env: RINGQ_METRICS_ADDR)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RINGQ_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: RINGQ_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RINGQ_LOG_FORMAT", "text"),
		"Log format: json, text (env: RINGQ_LOG_FORMAT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "%s - lock-free ring queue benchmark\n\nUsage: %s [options]\n\nOptions:\n", appName, appName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion {
		return nil
	}

	var errs []error
	if cfg.Capacity < 2 {
		errs = append(errs, fmt.Errorf("capacity must be >= 2, got %d", cfg.Capacity))
	}
	if cfg.BlockSize < 1 {
		errs = append(errs, fmt.Errorf("block size must be >= 1, got %d", cfg.BlockSize))
	}
	if _, err := slab.ParseBacking(cfg.Backing); err != nil {
		errs = append(errs, err)
	}
	if cfg.Producers < 0 || cfg.Observers < 0 || cfg.Consumers < 0 {
		errs = append(errs, errors.New("driver counts must not be negative"))
	}
	if cfg.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", cfg.Duration))
	}
	if !slices.Contains([]string{"auto", "tsc", "system"}, cfg.Clock) {
		errs = append(errs, fmt.Errorf("invalid clock: %s", cfg.Clock))
	}
	if cfg.PoolOps < 0 {
		errs = append(errs, fmt.Errorf("pool ops must not be negative, got %d", cfg.PoolOps))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.LogLevel))
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid log format: %s", cfg.LogFormat))
	}
	return errors.Join(errs...)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
