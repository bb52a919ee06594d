package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/session"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir        = flag.String("dir", "", "directory to process invoices from (required)")
		owner      = flag.String("owner", "batch", "owner id for the produced sessions")
		sessionID  = flag.String("session", "", "session id (defaults to a fresh UUID per batch)")
		watch      = flag.Bool("watch", false, "keep running and process each burst of new PDFs as a session")
		debounce   = flag.Duration("debounce", 2*time.Second, "quiet period closing a watched batch")
		skipHidden = flag.Bool("skip-hidden", true, "ignore dot files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if fi, err := os.Stat(*dir); err != nil || !fi.IsDir() {
		printError("Error: %s is not a directory\n", *dir)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: load config: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	logger := app.NewLogger(cfg, true)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	run := func(paths []string) session.Snapshot {
		id := *sessionID
		if id == "" || *watch {
			id = uuid.NewString()
		}
		logger.Info("batch started", "owner", *owner, "session_id", id, "files", len(paths))
		snap := a.Orchestrator.Run(ctx, *owner, id, paths)
		printSummary(id, snap)
		return snap
	}

	if !*watch {
		paths, stats, err := ingest.Collect(*dir, *skipHidden, logger)
		if err != nil {
			printError("Error: scan %s: %v\n", *dir, err)
			os.Exit(1)
		}
		logger.Info("directory scanned", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
		if len(paths) == 0 {
			printError("No PDF files found in %s\n", *dir)
			return
		}
		if snap := run(paths); snap.Status == constants.SessionFailed {
			os.Exit(1)
		}
		return
	}

	batches, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{*dir},
		InitialScan: true,
		Debounce:    *debounce,
		SkipHidden:  *skipHidden,
	}, logger)
	if err != nil {
		printError("Error: watch %s: %v\n", *dir, err)
		os.Exit(1)
	}
	logger.Info("watching for invoices", "dir", *dir, "debounce", *debounce)
	for paths := range batches {
		run(paths)
	}
}

func printSummary(id string, snap session.Snapshot) {
	out := struct {
		SessionID string `json:"session_id"`
		session.Snapshot
	}{id, snap}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		printError("Error: encode summary: %v\n", err)
	}
}
