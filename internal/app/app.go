// Package app assembles the extraction stack from configuration for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/artifact"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/rasterize"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/server"
	"github.com/joseph-ayodele/invoice-extractor/internal/session"
)

// App is the wired stack. Close releases provider clients, storage clients and the usage store.
type App struct {
	Config       *common.Config
	Processor    *pipeline.Processor
	Orchestrator *session.Orchestrator
	Usage        repository.UsageRepository

	closers []func() error
	log     *slog.Logger
}

// NewLogger builds the process logger at the configured level.
func NewLogger(cfg *common.Config, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Build wires the processor and orchestrator. At least one provider credential is required.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, log: logger}

	pool := credentials.FromEnv(cfg.Extraction.CredentialPrefix)
	if pool.Len() == 0 {
		return nil, common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("no credentials found with prefix %s", cfg.Extraction.CredentialPrefix), common.ErrInvalidInput)
	}
	logger.Info("credentials loaded", "count", pool.Len(), "names", pool.Names())

	client, err := a.newClient(cfg.Extraction)
	if err != nil {
		return nil, err
	}
	engine := extract.NewEngine(client, pool, extract.Config{
		MaxRetries: cfg.Extraction.MaxRetries,
		BaseWait:   cfg.Extraction.BaseWait,
		Timeout:    cfg.Extraction.Timeout,
	}, logger)

	raster := rasterize.New(rasterize.Config{
		Pdftoppm: cfg.Rasterizer.Pdftoppm,
		DPI:      cfg.Rasterizer.DPI,
		MaxPages: cfg.Rasterizer.MaxPages,
	}, logger)
	a.Processor = pipeline.NewProcessor(logger, raster, engine, normalize.NewEngine(normalize.WithLogger(logger)))

	store, err := artifact.New(ctx, cfg.Storage, cfg.Server.PublicBaseURL, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	opts := []session.Option{session.WithPrices(costing.LoadPrices(cfg.Costing.PriceFile, logger))}
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if db != nil {
		if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
			db.Close()
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error { server.CloseDB(db, logger); return nil })
		a.Usage = repository.NewUsageRepository(db, logger)
		opts = append(opts, session.WithUsageSink(a.Usage))
	}

	a.Orchestrator = session.NewOrchestrator(session.Config{
		MaxConcurrent: cfg.Session.MaxConcurrent,
		MaxFiles:      cfg.Session.MaxFiles,
		MaxFileBytes:  cfg.Session.MaxFileBytes,
		UploadDir:     cfg.Session.UploadDir,
		OutputDir:     cfg.Session.OutputDir,
		SchemaFile:    cfg.Session.SchemaFile,
	}, a.Processor, session.NewStore(), store, logger, opts...)
	return a, nil
}

func (a *App) newClient(cfg common.ExtractionConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "gemini":
		c := gemini.NewClient(gemini.Config{
			Project:     cfg.GCPProject,
			Region:      cfg.GCPRegion,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, a.log)
		a.closers = append(a.closers, c.Close)
		return c, nil
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, a.log), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown provider "+cfg.Provider, common.ErrInvalidInput)
	}
}

// Close runs every registered closer in reverse order and joins their errors.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
