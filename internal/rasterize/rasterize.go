// Package rasterize renders PDF pages to PNG images for the vision model.
package rasterize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 200
	MaxPages int    // 0 = no limit
}

// Rasterizer never returns an error: a document it cannot render yields no pages.
type Rasterizer struct {
	cfg     Config
	runner  Runner
	inspect func(path string) (int, error)
	logger  *slog.Logger
}

type Option func(*Rasterizer)

func WithRunner(r Runner) Option {
	return func(z *Rasterizer) { z.runner = r }
}

// WithInspector replaces the pdfcpu validation and page count step.
func WithInspector(f func(path string) (int, error)) Option {
	return func(z *Rasterizer) { z.inspect = f }
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	z := &Rasterizer{cfg: cfg, runner: execRunner{}, inspect: inspectPDF, logger: logger}
	for _, o := range opts {
		o(z)
	}
	return z
}

// inspectPDF validates the document leniently and returns its page count.
func inspectPDF(path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	return api.PageCountFile(path)
}

// Rasterize renders every page of path (up to MaxPages) in page order.
func (z *Rasterizer) Rasterize(ctx context.Context, path string) []llm.Image {
	log := z.logger.With("file", filepath.Base(path))

	if _, err := os.Stat(path); err != nil {
		log.Warn("rasterize.missing_file", "error", err)
		return nil
	}

	// pdftoppm tolerates more damage than pdfcpu, so a failed inspection is only logged.
	pages, err := z.inspect(path)
	if err != nil {
		log.Warn("rasterize.inspect_failed", "error", err)
	} else if pages == 0 {
		log.Warn("rasterize.empty_document")
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		log.Warn("rasterize.tempdir_failed", "error", err)
		return nil
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Warn("rasterize.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(z.cfg.DPI), "-png"}
	if z.cfg.MaxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(z.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, _, err := z.runner.Run(ctx, z.cfg.Pdftoppm, log, args...); err != nil {
		log.Warn("rasterize.render_failed", "error", err)
		return nil
	}

	// collect generated pngs (page-1.png, page-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPages(matches)
	if z.cfg.MaxPages > 0 && len(matches) > z.cfg.MaxPages {
		matches = matches[:z.cfg.MaxPages]
	}

	images := make([]llm.Image, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			log.Warn("rasterize.read_page_failed", "page", filepath.Base(m), "error", err)
			return nil
		}
		images = append(images, llm.Image{MIMEType: "image/png", Data: data})
	}
	if len(images) == 0 {
		log.Warn("rasterize.no_pages_rendered")
		return nil
	}
	log.Debug("rasterize.ok", "pages", len(images), "pdf_pages", pages, "dpi", z.cfg.DPI)
	return images
}

// sortPages orders page-<n>.png numerically; pdftoppm pads n only to the width of the last page.
func sortPages(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return paths[i] < paths[j]
	})
}
