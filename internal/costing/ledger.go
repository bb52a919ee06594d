package costing

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
)

// UnknownFile tags usage logged without a document name.
const UnknownFile = "Unknown_File"

// Record is one priced provider call.
type Record struct {
	Filename     string
	Model        string
	InputTokens  int
	OutputTokens int
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
}

// UsageSink persists records beyond the process lifetime.
type UsageSink interface {
	RecordUsage(ctx context.Context, sessionKey string, r Record) error
}

// Ledger accumulates the priced calls of one session. It is safe for concurrent use.
type Ledger struct {
	prices     *PriceTable
	logger     *slog.Logger
	sink       UsageSink
	sessionKey string

	mu      sync.Mutex
	records []Record
}

type LedgerOption func(*Ledger)

// WithSink forwards every priced record to sink under sessionKey. Sink errors are logged only.
func WithSink(sessionKey string, sink UsageSink) LedgerOption {
	return func(l *Ledger) {
		l.sessionKey = sessionKey
		l.sink = sink
	}
}

func NewLedger(prices *PriceTable, logger *slog.Logger, opts ...LedgerOption) *Ledger {
	if prices == nil {
		prices = newPriceTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{prices: prices, logger: logger}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Log prices one call. Unknown models are skipped with a warning.
func (l *Ledger) Log(ctx context.Context, filename, model string, inputTokens, outputTokens int) {
	full, price, ok := l.prices.Lookup(model)
	if !ok {
		l.logger.Warn("costing.model.unknown", "model", model, "file", filename)
		return
	}
	if filename == "" {
		filename = UnknownFile
	}
	in := price.InputCostPerToken * float64(inputTokens)
	out := price.OutputCostPerToken * float64(outputTokens)
	r := Record{
		Filename:     filename,
		Model:        full,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    in,
		OutputCost:   out,
		TotalCost:    in + out,
	}

	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.RecordUsage(ctx, l.sessionKey, r); err != nil {
			l.logger.Warn("costing.sink.failed", "file", filename, "error", err)
		}
	}
}

func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Summary totals every record of the session.
type Summary struct {
	TotalInputTokens  int                `json:"total_input_tokens"`
	TotalOutputTokens int                `json:"total_output_tokens"`
	TotalInputCost    float64            `json:"total_input_cost"`
	TotalOutputCost   float64            `json:"total_output_cost"`
	TotalCost         float64            `json:"total_cost"`
	CostByModel       map[string]float64 `json:"cost_by_model"`
}

// FileCost is the itemized cost of one document.
type FileCost struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
	ModelUsed    string  `json:"model_used"`
}

// Report is written as costing.json next to the session workbook.
type Report struct {
	Summary Summary             `json:"summary"`
	Files   map[string]FileCost `json:"files"`
}

// Report aggregates the ledger. File totals are rounded to 6 decimals; the model of a file is
// the model of its first record.
func (l *Ledger) Report() Report {
	records := l.Records()
	rep := Report{
		Summary: Summary{CostByModel: map[string]float64{}},
		Files:   map[string]FileCost{},
	}
	if len(records) == 0 {
		l.logger.Debug("costing.report.empty")
		return rep
	}

	files := map[string]*FileCost{}
	var order []string
	for _, r := range records {
		rep.Summary.TotalInputTokens += r.InputTokens
		rep.Summary.TotalOutputTokens += r.OutputTokens
		rep.Summary.TotalInputCost += r.InputCost
		rep.Summary.TotalOutputCost += r.OutputCost
		rep.Summary.TotalCost += r.TotalCost
		rep.Summary.CostByModel[r.Model] += r.TotalCost

		fc, ok := files[r.Filename]
		if !ok {
			fc = &FileCost{ModelUsed: r.Model}
			files[r.Filename] = fc
			order = append(order, r.Filename)
		}
		fc.InputTokens += r.InputTokens
		fc.OutputTokens += r.OutputTokens
		fc.TotalCost += r.TotalCost
	}

	sort.Strings(order)
	for _, name := range order {
		fc := *files[name]
		fc.TotalCost = round6(fc.TotalCost)
		rep.Files[name] = fc
	}
	return rep
}

func round6(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 6, 64), 64)
	if err != nil {
		return f
	}
	return r
}
