// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ringqbench drives a ringq queue with producer and observer
// drivers and optional destructive consumers for a fixed time, then prints
// queue, driver and pool statistics and compares slab allocation with the
// Go heap.
//
// Usage:
//
//	ringqbench -capacity 20000 -producers 2 -observers 3 -duration 10s
//	ringqbench -consumers 2 -backing mmap -metrics-addr :9090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"code.hybscloud.com/ringq/clock"
	"code.hybscloud.com/ringq/slab"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "ringqbench"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("ringqbench failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := validateFlags(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	clk, err := selectClock(cfg.Clock)
	if err != nil {
		return err
	}
	logger.Debug("clock selected", "clock", cfg.Clock, "type", fmt.Sprintf("%T", clk))

	h, err := newHarness(cfg, clk, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.close(); err != nil {
			logger.Warn("close queue", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		srv, err := newMetricsServer(cfg.MetricsAddr, h.collector, logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			if err := srv.Shutdown(5 * time.Second); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	if err := h.run(ctx); err != nil {
		return err
	}
	h.report(stdout)

	if cfg.PoolOps > 0 {
		backing, _ := slab.ParseBacking(cfg.Backing)
		res, err := benchPool(cfg.PoolOps, cfg.BlockSize, backing, clk)
		if err != nil {
			return fmt.Errorf("pool benchmark: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "\n=== Allocation ===\n%s\n", res)
	}
	return nil
}

func selectClock(name string) (clock.Clock, error) {
	switch name {
	case "tsc":
		c, err := clock.NewTSC()
		if err != nil {
			return nil, fmt.Errorf("tsc clock: %w", err)
		}
		return c, nil
	case "system":
		return clock.System{}, nil
	default:
		return clock.Default(), nil
	}
}
