// Package main is the events command. It runs the dispatch demo, checks the
// event catalog, and prints events in canonical text form.
//
//	events demo                 publish a quest and follow the handler chain
//	events verify [kind ...]    round-trip every kind; compare with the given kinds
//	events encode <kind> [json] encode a payload as canonical text
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lifedashboard/life-dashboard/config"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return runWith(ctx, cfg, args, stdout, stderr)
}

func runWith(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	log := setupLogger(cfg, stderr)

	command := "demo"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "demo":
		return runDemo(ctx, cfg, log, stdout)
	case "verify":
		return runVerify(args, stdout)
	case "encode":
		return runEncode(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}

	printUsage(stderr)
	return fmt.Errorf("unknown command %q", command)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: events [demo | verify [kind ...] | encode <kind> [json]]")
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger configures structured logging and installs it as the default.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsProduction() || cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
