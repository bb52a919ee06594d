package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/artifact"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/schema"
)

const (
	DefaultMaxConcurrent = 3
	costingFile          = "costing.json"
)

// DocumentProcessor runs one document to a terminal outcome. It must not panic, but the
// orchestrator guards against it anyway.
type DocumentProcessor interface {
	Process(ctx context.Context, path string, columns []string) pipeline.Outcome
}

type Config struct {
	MaxConcurrent int
	MaxFiles      int
	MaxFileBytes  int64
	UploadDir     string
	OutputDir     string
	SchemaFile    string
}

// Orchestrator accepts batches, runs their documents under a bounded admission gate and
// writes the session report once every document has resolved.
type Orchestrator struct {
	cfg       Config
	proc      DocumentProcessor
	store     *Store
	artifacts artifact.Store
	prices    *costing.PriceTable
	sink      costing.UsageSink
	loadCols  func(logger *slog.Logger) []string
	now       func() time.Time
	log       *slog.Logger

	wg sync.WaitGroup
}

type Option func(*Orchestrator)

func WithPrices(p *costing.PriceTable) Option { return func(o *Orchestrator) { o.prices = p } }

func WithUsageSink(s costing.UsageSink) Option { return func(o *Orchestrator) { o.sink = s } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithSchema fixes the master columns instead of reading cfg.SchemaFile per session.
func WithSchema(columns []string) Option {
	return func(o *Orchestrator) {
		o.loadCols = func(*slog.Logger) []string { return columns }
	}
}

func NewOrchestrator(cfg Config, proc DocumentProcessor, store *Store, artifacts artifact.Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = constants.MaxFilesPerSession
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = constants.MaxFileSizeBytes
	}
	if store == nil {
		store = NewStore()
	}
	if artifacts == nil {
		artifacts = artifact.NewLocal("", logger)
	}
	o := &Orchestrator{
		cfg:       cfg,
		proc:      proc,
		store:     store,
		artifacts: artifacts,
		now:       time.Now,
		log:       logger,
	}
	o.loadCols = func(l *slog.Logger) []string { return schema.Load(o.cfg.SchemaFile, l) }
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Store() *Store { return o.store }

// Submit validates the batch, stages the files under the session upload directory (replacing
// any previous upload and output of the same session), registers the session and processes
// it in the background. The returned session is already visible to Store().
func (o *Orchestrator) Submit(ctx context.Context, owner, id string, paths []string) (Key, error) {
	key := Key{Owner: owner, ID: id}
	sizes, err := o.validate(key, paths)
	if err != nil {
		return key, err
	}

	uploadDir := filepath.Join(o.cfg.UploadDir, owner, id)
	staged, err := stage(paths, uploadDir)
	if err != nil {
		return key, err
	}
	outputDir := filepath.Join(o.cfg.OutputDir, owner, id)
	if err := os.RemoveAll(outputDir); err != nil {
		return key, fmt.Errorf("reset output: %w", err)
	}

	sess := o.begin(key, staged, sizes)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(context.WithoutCancel(ctx), sess, staged)
	}()
	o.log.Info("session.submitted", "session", key.String(), "files", len(staged))
	return key, nil
}

// Run processes paths as one session and blocks until it is finalized. No submission limits
// apply; the files are read in place.
func (o *Orchestrator) Run(ctx context.Context, owner, id string, paths []string) Snapshot {
	key := Key{Owner: owner, ID: id}
	sizes := make(map[string]int64, len(paths))
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			sizes[filepath.Base(p)] = fi.Size()
		} else {
			sizes[filepath.Base(p)] = 0
		}
	}
	sess := o.begin(key, paths, sizes)
	o.execute(ctx, sess, paths)
	return sess.Snapshot()
}

// Wait blocks until every background session has been finalized.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) validate(key Key, paths []string) (map[string]int64, error) {
	v := common.NewValidator().
		Field("owner_id", key.Owner, common.Required, common.MaxLength(128), common.PathSegment).
		Field("session_id", key.ID, common.Required, common.MaxLength(128), common.PathSegment).
		Field("files", paths, common.Required)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if len(paths) > o.cfg.MaxFiles {
		return nil, common.NewAppError("TOO_MANY_FILES",
			fmt.Sprintf("Too many files. Max %d.", o.cfg.MaxFiles), common.ErrInvalidInput)
	}

	sizes := make(map[string]int64, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if _, dup := sizes[name]; dup {
			return nil, common.NewAppError("DUPLICATE_FILE", "File "+name+" submitted twice.", common.ErrInvalidInput)
		}
		if !constants.IsAllowedExt(filepath.Ext(name)) {
			return nil, common.NewAppError("UNSUPPORTED_FILE", "File "+name+" is not a PDF.", common.ErrInvalidInput)
		}
		fi, err := os.Stat(p)
		if err != nil {
			return nil, common.NewAppError("FILE_NOT_FOUND", "File "+name+" is not readable.", common.ErrInvalidInput)
		}
		if fi.Size() > o.cfg.MaxFileBytes {
			return nil, common.NewAppError("FILE_TOO_LARGE",
				fmt.Sprintf("File %s too large. Max %dMB.", name, o.cfg.MaxFileBytes>>20), common.ErrInvalidInput)
		}
		sizes[name] = fi.Size()
	}
	return sizes, nil
}

func (o *Orchestrator) begin(key Key, paths []string, sizes map[string]int64) *Session {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sess := newSession(key, names, sizes)
	o.store.put(sess)
	return sess
}

// execute drives every document through the processor and finalizes the session.
// Per-document failures only ever reach the file status; finalization failures fail the session.
func (o *Orchestrator) execute(ctx context.Context, sess *Session, paths []string) {
	key := sess.Key()
	log := o.log.With("session", key.String())
	started := o.now()
	ctx = common.WithSessionKey(ctx, key.String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("session.panic", "panic", r)
			sess.fail(fmt.Sprint(r))
		}
	}()

	columns := o.loadCols(log)
	var ledgerOpts []costing.LedgerOption
	if o.sink != nil {
		ledgerOpts = append(ledgerOpts, costing.WithSink(key.String(), o.sink))
	}
	ledger := costing.NewLedger(o.prices, log, ledgerOpts...)
	acc := newAccumulator()

	// every file is visibly in flight before the gate admits the first one
	names := sess.Names()
	for _, n := range names {
		sess.setFileStatus(n, constants.FileStatusProcessing)
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, p := range paths {
		g.Go(func() error {
			out := o.processOne(ctx, log, p, columns)
			sess.resolve(names[i], out.Status)
			if out.Usage != nil {
				ledger.Log(ctx, names[i], out.Model, out.Usage.InputTokens, out.Usage.OutputTokens)
			}
			acc.add(i, out.Vendor, out.Table)
			log.Info("session.document.done", "file", names[i], "status", out.Status)
			return nil
		})
	}
	_ = g.Wait()
	log.Info("session.documents.resolved", "rows", acc.rows())

	ref, report, err := o.finalize(ctx, key, columns, acc, ledger, log)
	if err != nil {
		log.Error("session.failed", "error", err)
		sess.fail(err.Error())
		return
	}
	sess.finish(ref, report)
	log.Info("session.completed",
		"files", len(paths),
		"result", ref,
		"total_cost", report.Summary.TotalCost,
		"elapsed", o.now().Sub(started),
	)
}

func (o *Orchestrator) processOne(ctx context.Context, log *slog.Logger, p string, columns []string) (out pipeline.Outcome) {
	start := o.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("session.document.panic", "file", filepath.Base(p), "panic", r)
			out = pipeline.Outcome{File: filepath.Base(p), Status: constants.FileStatusError(fmt.Sprint(r), o.now().Sub(start))}
		}
	}()
	return o.proc.Process(ctx, p, columns)
}

// finalize writes the workbook (single writer), the cost report, and publishes the workbook.
func (o *Orchestrator) finalize(ctx context.Context, key Key, columns []string, acc *accumulator, ledger *costing.Ledger, log *slog.Logger) (string, *costing.Report, error) {
	outDir := filepath.Join(o.cfg.OutputDir, key.Owner, key.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create output dir: %w", err)
	}
	reportName := "Report_" + o.now().Format("20060102_150405") + ".xlsx"
	reportPath := filepath.Join(outDir, reportName)

	writer := export.NewWriter(columns, log)
	batches := acc.drain()
	for _, b := range batches {
		if _, err := writer.WriteVendorRows(reportPath, b.vendor, b.table); err != nil {
			return "", nil, fmt.Errorf("write sheet for %s: %w", b.vendor, err)
		}
	}

	report := ledger.Report()
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", nil, fmt.Errorf("encode cost report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, costingFile), data, 0o644); err != nil {
		return "", nil, fmt.Errorf("write cost report: %w", err)
	}

	if len(batches) == 0 {
		log.Warn("session.no_rows", "report", reportName)
		return "", &report, nil
	}
	ref, err := o.artifacts.Publish(ctx, reportPath, path.Join(key.Owner, key.ID, reportName))
	if err != nil {
		return "", nil, fmt.Errorf("publish report: %w", err)
	}
	return ref, &report, nil
}

// stage copies paths into a fresh directory that then replaces uploadDir, so sources that
// already live under uploadDir survive the reset.
func stage(paths []string, uploadDir string) ([]string, error) {
	parent := filepath.Dir(uploadDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(uploadDir)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	for _, p := range paths {
		if err := copyFile(p, filepath.Join(tmp, filepath.Base(p))); err != nil {
			os.RemoveAll(tmp)
			return nil, fmt.Errorf("stage %s: %w", filepath.Base(p), err)
		}
	}
	if err := os.RemoveAll(uploadDir); err != nil {
		os.RemoveAll(tmp)
		return nil, fmt.Errorf("reset uploads: %w", err)
	}
	if err := os.Rename(tmp, uploadDir); err != nil {
		return nil, fmt.Errorf("publish staged uploads: %w", err)
	}
	staged := make([]string, len(paths))
	for i, p := range paths {
		staged[i] = filepath.Join(uploadDir, filepath.Base(p))
	}
	return staged, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()
	_, err = io.Copy(out, in)
	return err
}
