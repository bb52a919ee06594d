// Package pipeline runs one document through rasterization, extraction, de-duplication and
// normalization, and reduces every failure to a per-file status string.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

// Rasterizer renders a document to page images; an empty result means conversion failed.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) []llm.Image
}

// Outcome is the terminal result of one document.
type Outcome struct {
	File     string
	Status   string
	Vendor   string
	Table    normalize.Table
	Usage    *llm.Usage // nil when nothing should be billed
	Model    string
	Duration time.Duration
}

// Processor coordinates rasterize, extract, dedupe and normalize for one file.
type Processor struct {
	Logger    *slog.Logger
	Raster    Rasterizer
	Extractor extract.Extractor
	Normalize *normalize.Engine
	now       func() time.Time
}

func NewProcessor(logger *slog.Logger, raster Rasterizer, ex extract.Extractor, norm *normalize.Engine) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if norm == nil {
		norm = normalize.NewEngine(normalize.WithLogger(logger))
	}
	return &Processor{Logger: logger, Raster: raster, Extractor: ex, Normalize: norm, now: time.Now}
}

// Process never returns an error: panics and failures become an "Error: ..." status.
func (p *Processor) Process(ctx context.Context, path string, schema []string) (out Outcome) {
	name := filepath.Base(path)
	start := p.now()
	log := p.Logger.With("file", name)
	if key := common.SessionKeyFromContext(ctx); key != "" {
		log = log.With("session", key)
	}
	out.File = name

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{File: name, Duration: p.now().Sub(start)}
			out.Status = constants.FileStatusError(fmt.Sprint(r), out.Duration)
			log.Error("processor.panic", "panic", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Status = constants.FileStatusError(err.Error(), 0)
		return out
	}

	// 1) rasterize
	images := p.Raster.Rasterize(ctx, path)
	if len(images) == 0 {
		out.Status = constants.FileStatusImageFailed(name)
		log.Warn("processor.rasterize.empty")
		return out
	}

	// 2) extract with retry and credential rotation
	res, ok := p.Extractor.Extract(ctx, images, schema)
	out.Duration = p.now().Sub(start)
	if !ok || res == nil || len(res.Invoices) == 0 {
		out.Status = constants.FileStatusNoData(out.Duration)
		log.Warn("processor.extract.no_data", "pages", len(images), "elapsed", out.Duration)
		return out
	}
	usage := res.Usage
	out.Usage = &usage
	out.Model = res.Model

	// 3) dedupe by invoice number
	unique := extract.Dedupe(res.Invoices)
	if len(unique) == 0 {
		out.Status = constants.FileStatusDuplicate(out.Duration)
		log.Info("processor.dedupe.empty", "invoices", len(res.Invoices))
		return out
	}

	// 4) normalize under the first invoice's vendor
	out.Vendor = unique[0].Vendor
	out.Table = p.Normalize.Document(out.Vendor, unique, schema)
	out.Status = constants.FileStatusCompleted(out.Duration)
	log.Info("processor.ok",
		"vendor", out.Vendor,
		"invoices", len(unique),
		"dropped_duplicates", len(res.Invoices)-len(unique),
		"rows", out.Table.Len(),
		"elapsed", out.Duration,
	)
	return out
}
