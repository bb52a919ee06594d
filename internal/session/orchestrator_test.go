package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

var (
	testColumns = []string{"Vendor Name", "Invoice No"}
	fixedClock  = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
)

type fakeProc struct {
	outcomes map[string]pipeline.Outcome
	panics   map[string]bool
	gate     chan struct{}
	delay    time.Duration
	onFirst  func()

	once     sync.Once
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeProc) Process(ctx context.Context, path string, columns []string) pipeline.Outcome {
	if f.onFirst != nil {
		f.once.Do(f.onFirst)
	}
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	name := filepath.Base(path)
	if f.panics[name] {
		panic("boom")
	}
	if out, ok := f.outcomes[name]; ok {
		out.File = name
		return out
	}
	return pipeline.Outcome{File: name, Status: constants.FileStatusCompleted(time.Second)}
}

func rowsFor(vendor string, invoiceNos ...string) normalize.Table {
	t := normalize.Table{Columns: testColumns}
	for _, no := range invoiceNos {
		t.Rows = append(t.Rows, []invoice.Value{invoice.Text(vendor), invoice.Text(no)})
	}
	return t
}

func writeDocs(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		if err := os.WriteFile(paths[i], []byte("%PDF-1.4 "+n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func testPrices(t *testing.T) *costing.PriceTable {
	t.Helper()
	p, err := costing.ParsePrices([]byte(`{"gemini-2.5-flash": {"input_cost_per_token": 1e-06, "output_cost_per_token": 2e-06}}`))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestOrchestrator(t *testing.T, proc DocumentProcessor, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	root := t.TempDir()
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(root, "uploads")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(root, "outputs")
	}
	opts = append([]Option{WithSchema(testColumns), WithClock(fixedClock), WithPrices(testPrices(t))}, opts...)
	return NewOrchestrator(cfg, proc, nil, nil, nil, opts...)
}

func TestRunFinalizesReport(t *testing.T) {
	usage := &llm.Usage{InputTokens: 1000, OutputTokens: 100}
	proc := &fakeProc{outcomes: map[string]pipeline.Outcome{
		"a.pdf": {Status: "Completed (1.0s)", Vendor: "Acme", Table: rowsFor("Acme", "A-1"), Usage: usage, Model: "gemini-2.5-flash"},
		"b.pdf": {Status: "Skipped (Duplicate) (2.0s)", Usage: usage, Model: "gemini-2.5-flash"},
		"c.pdf": {Status: "Skipped (Image Conversion Failed): c.pdf"},
		"d.pdf": {Status: "Completed (3.0s)", Vendor: "Beta", Table: rowsFor("Beta", "B-1", "B-2"), Usage: usage, Model: "gemini-2.5-flash"},
		"e.pdf": {Status: "Completed (1.5s)", Vendor: "Acme", Table: rowsFor("Acme", "A-2"), Usage: usage, Model: "gemini-2.5-flash"},
	}}
	o := newTestOrchestrator(t, proc, Config{MaxConcurrent: 2})
	paths := writeDocs(t, t.TempDir(), "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf")

	snap := o.Run(context.Background(), "u1", "s1", paths)
	if snap.Status != constants.SessionCompleted {
		t.Fatalf("status = %s (%s)", snap.Status, snap.Error)
	}
	if snap.CompletedCount != 5 || snap.TotalCount != 5 {
		t.Errorf("counts = %d/%d", snap.CompletedCount, snap.TotalCount)
	}
	if snap.Files["c.pdf"] != "Skipped (Image Conversion Failed): c.pdf" || snap.Files["b.pdf"] != "Skipped (Duplicate) (2.0s)" {
		t.Errorf("files = %v", snap.Files)
	}
	if snap.FileSizes["a.pdf"] != int64(len("%PDF-1.4 a.pdf")) {
		t.Errorf("file sizes = %v", snap.FileSizes)
	}

	wantReport := filepath.Join(o.cfg.OutputDir, "u1", "s1", "Report_20250102_030405.xlsx")
	if snap.DownloadURL != wantReport {
		t.Fatalf("download = %q, want %q", snap.DownloadURL, wantReport)
	}
	if snap.CostAnalysis == nil || len(snap.CostAnalysis.Files) != 4 || snap.CostAnalysis.Summary.TotalInputTokens != 4000 {
		t.Errorf("cost = %+v", snap.CostAnalysis)
	}

	raw, err := os.ReadFile(filepath.Join(o.cfg.OutputDir, "u1", "s1", "costing.json"))
	if err != nil {
		t.Fatalf("costing.json: %v", err)
	}
	var rep costing.Report
	if err := json.Unmarshal(raw, &rep); err != nil || rep.Files["d.pdf"].ModelUsed != "gemini-2.5-flash" {
		t.Errorf("costing.json = %s (%v)", raw, err)
	}

	f, err := excelize.OpenFile(wantReport)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); !slices.Equal(sheets, []string{"Acme", "Beta"}) {
		t.Fatalf("sheets = %v", sheets)
	}
	acme, _ := f.GetRows("Acme")
	if len(acme) != 4 || acme[1][1] != "A-1" || acme[3][1] != "A-2" {
		t.Errorf("Acme rows = %v, want a-1, blank separator, a-2", acme)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	proc := &fakeProc{delay: 20 * time.Millisecond}
	o := newTestOrchestrator(t, proc, Config{MaxConcurrent: 2})

	names := []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf", "6.pdf", "7.pdf"}
	var firstSeen Snapshot
	proc.onFirst = func() {
		firstSeen, _ = o.Store().Snapshot(Key{Owner: "u", ID: "s"})
	}

	snap := o.Run(context.Background(), "u", "s", writeDocs(t, t.TempDir(), names...))
	if got := proc.peak.Load(); got > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", got)
	}
	if snap.CompletedCount != len(names) || int(proc.calls.Load()) != len(names) {
		t.Errorf("completed = %d, calls = %d", snap.CompletedCount, proc.calls.Load())
	}
	for _, n := range names {
		if firstSeen.Files[n] != constants.FileStatusProcessing {
			t.Errorf("%s was %q when the first document started", n, firstSeen.Files[n])
		}
	}
	if snap.DownloadURL != "" {
		t.Errorf("download = %q for a session without rows", snap.DownloadURL)
	}
}

func TestRunRecoversDocumentPanic(t *testing.T) {
	proc := &fakeProc{panics: map[string]bool{"bad.pdf": true}}
	o := newTestOrchestrator(t, proc, Config{})

	snap := o.Run(context.Background(), "u", "s", writeDocs(t, t.TempDir(), "bad.pdf", "good.pdf"))
	if snap.Status != constants.SessionCompleted {
		t.Fatalf("status = %s", snap.Status)
	}
	if got := snap.Files["bad.pdf"]; got != "Error: boom (0.0s)" {
		t.Errorf("bad.pdf = %q", got)
	}
	if got := snap.Files["good.pdf"]; got != "Completed (1.0s)" {
		t.Errorf("good.pdf = %q", got)
	}
}

type failingStore struct{}

func (failingStore) Publish(context.Context, string, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestFinalizeFailureFailsSession(t *testing.T) {
	proc := &fakeProc{outcomes: map[string]pipeline.Outcome{
		"a.pdf": {Status: "Completed (1.0s)", Vendor: "Acme", Table: rowsFor("Acme", "A-1")},
	}}
	root := t.TempDir()
	o := NewOrchestrator(Config{OutputDir: filepath.Join(root, "out"), UploadDir: filepath.Join(root, "up")},
		proc, nil, failingStore{}, nil, WithSchema(testColumns), WithClock(fixedClock))

	snap := o.Run(context.Background(), "u", "s", writeDocs(t, t.TempDir(), "a.pdf"))
	if snap.Status != constants.SessionFailed {
		t.Fatalf("status = %s", snap.Status)
	}
	if !strings.Contains(snap.Error, "bucket unavailable") {
		t.Errorf("error = %q", snap.Error)
	}
	if snap.Files["a.pdf"] != "Completed (1.0s)" || snap.CompletedCount != 1 {
		t.Errorf("per-file state lost: %+v", snap)
	}
}

func TestSubmitValidation(t *testing.T) {
	dir := t.TempDir()
	docs := writeDocs(t, dir, "a.pdf", "b.pdf", "c.pdf", "notes.txt")
	big := filepath.Join(dir, "big.pdf")
	if err := os.WriteFile(big, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}
	o := newTestOrchestrator(t, &fakeProc{}, Config{MaxFiles: 2, MaxFileBytes: 32})

	cases := []struct {
		name  string
		owner string
		id    string
		paths []string
	}{
		{"too many", "u", "s", docs[:3]},
		{"too large", "u", "s", []string{big}},
		{"not pdf", "u", "s", []string{docs[3]}},
		{"missing", "u", "s", []string{filepath.Join(dir, "ghost.pdf")}},
		{"no files", "u", "s", nil},
		{"blank owner", " ", "s", docs[:1]},
		{"escaping session", "u", "..", docs[:1]},
		{"duplicate names", "u", "s", []string{docs[0], docs[0]}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := o.Submit(context.Background(), c.owner, c.id, c.paths)
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if o.Store().Len() != 0 {
		t.Errorf("rejected submissions registered %d sessions", o.Store().Len())
	}
}

func TestSubmitRunsInBackgroundAndReplaces(t *testing.T) {
	gate := make(chan struct{})
	proc := &fakeProc{gate: gate}
	o := newTestOrchestrator(t, proc, Config{})
	key := Key{Owner: "u1", ID: "s1"}

	if _, err := o.Store().Snapshot(key); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("unknown session err = %v", err)
	}

	docs := writeDocs(t, t.TempDir(), "a.pdf", "b.pdf")
	if _, err := o.Submit(context.Background(), "u1", "s1", docs); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap, err := o.Store().Snapshot(key)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Status != constants.SessionProcessing || snap.TotalCount != 2 {
		t.Errorf("in-flight snapshot = %+v", snap)
	}
	close(gate)
	o.Wait()

	snap, _ = o.Store().Snapshot(key)
	if snap.Status != constants.SessionCompleted || snap.CompletedCount != 2 {
		t.Fatalf("final snapshot = %+v", snap)
	}
	staged := filepath.Join(o.cfg.UploadDir, "u1", "s1", "a.pdf")
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("staged file: %v", err)
	}

	// resubmitting a file that already lives in the session upload dir replaces the session
	if _, err := o.Submit(context.Background(), "u1", "s1", []string{staged}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	o.Wait()
	snap, _ = o.Store().Snapshot(key)
	if snap.TotalCount != 1 || snap.Status != constants.SessionCompleted {
		t.Errorf("replaced snapshot = %+v", snap)
	}
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("restaged file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(o.cfg.UploadDir, "u1", "s1", "b.pdf")); !os.IsNotExist(err) {
		t.Errorf("previous upload not cleared: %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newSession(Key{Owner: "u", ID: "s"}, []string{"a.pdf"}, map[string]int64{"a.pdf": 1})
	snap := s.Snapshot()
	snap.Files["a.pdf"] = "tampered"
	if s.Snapshot().Files["a.pdf"] != constants.FileStatusPending {
		t.Error("snapshot aliases session state")
	}
}
