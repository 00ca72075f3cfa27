// Command fraudscan runs a single fraud scan over the configured window and
// prints the report as JSON. It shares the distributed scan lock with the
// server, so it refuses to run while a scheduled scan is in progress.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"ledgerly/internal/app"
	"ledgerly/internal/config"
	"ledgerly/internal/logger"
	"ledgerly/internal/worker"

	"go.uber.org/zap"
)

func main() {
	window := flag.Duration("window", 0, "scan window ending now (default SCAN_WINDOW)")
	flag.Parse()

	config.LoadEnv()
	cfg := config.Load()
	if *window > 0 {
		cfg.Scan.Window = *window
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		if errors.Is(err, worker.ErrScanInProgress) {
			log.Warn("another fraud scan is running, nothing to do")
			os.Exit(2)
		}
		log.Fatal("fraud scan failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Scanner.RunOnce(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
