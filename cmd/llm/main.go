package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/app"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

// llm runs one PDF through the extraction processor repeatedly and logs each outcome, to
// check how stable the model's answer is for that document.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <file.pdf> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	if !constants.IsAllowedExt(filepath.Ext(path)) {
		logger.Error("not a PDF", "path", path)
		os.Exit(2)
	}
	times := 3
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	columns := schema.Load(cfg.Session.SchemaFile, logger)
	base := filepath.Base(path)
	for i := 1; i <= times; i++ {
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "file", base)

		out := a.Processor.Process(ctx, path, columns)

		attrs := []any{"iter", i, "status", out.Status, "vendor", out.Vendor, "rows", out.Table.Len(), "elapsed_ms", time.Since(start).Milliseconds()}
		if out.Usage != nil {
			attrs = append(attrs, "input_tokens", out.Usage.InputTokens, "output_tokens", out.Usage.OutputTokens)
		}
		logger.Info("pipeline.run.done", attrs...)

		time.Sleep(750 * time.Millisecond)
	}
	logger.Info("done", "file", base, "times", times)
}
