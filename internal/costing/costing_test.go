package costing

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const priceDoc = `{
  "sample_spec": {"input_cost_per_token": "see docs", "output_cost_per_token": 0},
  "gemini-2.5-flash": {"input_cost_per_token": 3e-07, "output_cost_per_token": 2.5e-06, "litellm_provider": "vertex_ai"},
  "vertex_ai/gemini-2.5-flash": {"input_cost_per_token": 9e-07, "output_cost_per_token": 9e-06},
  "openai/gpt-4o-mini": {"input_cost_per_token": 1.5e-07, "output_cost_per_token": 6e-07}
}`

func mustPrices(t *testing.T) *PriceTable {
	t.Helper()
	p, err := ParsePrices([]byte(priceDoc))
	if err != nil {
		t.Fatalf("ParsePrices: %v", err)
	}
	return p
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestLookup(t *testing.T) {
	p := mustPrices(t)
	if p.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (sample_spec skipped)", p.Len())
	}

	cases := []struct {
		model string
		full  string
		ok    bool
	}{
		{"gemini-2.5-flash", "gemini-2.5-flash", true},
		{"vertex_ai/gemini-2.5-flash", "vertex_ai/gemini-2.5-flash", true},
		{"gpt-4o-mini", "openai/gpt-4o-mini", true},
		{"models/gpt-4o-mini", "openai/gpt-4o-mini", true},
		{"claude-unknown", "", false},
	}
	for _, c := range cases {
		full, _, ok := p.Lookup(c.model)
		if full != c.full || ok != c.ok {
			t.Errorf("Lookup(%q) = %q, %v; want %q, %v", c.model, full, ok, c.full, c.ok)
		}
	}
}

func TestLoadPricesMissingFile(t *testing.T) {
	p := LoadPrices(filepath.Join(t.TempDir(), "nope.json"), nil)
	if p.Len() != 0 {
		t.Fatalf("Len = %d", p.Len())
	}
}

func TestLoadPricesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_prices.json")
	if err := os.WriteFile(path, []byte(priceDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if p := LoadPrices(path, nil); p.Len() != 3 {
		t.Fatalf("Len = %d", p.Len())
	}
}

type memSink struct {
	keys []string
	err  error
}

func (m *memSink) RecordUsage(_ context.Context, key string, _ Record) error {
	m.keys = append(m.keys, key)
	return m.err
}

func TestLedgerReport(t *testing.T) {
	sink := &memSink{err: errors.New("db down")}
	l := NewLedger(mustPrices(t), nil, WithSink("u1_s1", sink))
	ctx := context.Background()

	l.Log(ctx, "a.pdf", "gemini-2.5-flash", 1000, 200)
	l.Log(ctx, "a.pdf", "gemini-2.5-flash", 500, 100)
	l.Log(ctx, "b.pdf", "gpt-4o-mini", 2000, 1000)
	l.Log(ctx, "c.pdf", "mystery-model", 10, 10)
	l.Log(ctx, "", "gpt-4o-mini", 1, 1)

	rep := l.Report()
	s := rep.Summary
	if s.TotalInputTokens != 3501 || s.TotalOutputTokens != 1301 {
		t.Fatalf("tokens = %d/%d", s.TotalInputTokens, s.TotalOutputTokens)
	}
	wantA := 1500*3e-07 + 300*2.5e-06
	wantB := 2000*1.5e-07 + 1000*6e-07
	if !approx(s.CostByModel["gemini-2.5-flash"], wantA) {
		t.Errorf("gemini cost = %v, want %v", s.CostByModel["gemini-2.5-flash"], wantA)
	}
	if !approx(s.TotalCost, s.TotalInputCost+s.TotalOutputCost) {
		t.Errorf("total %v != input %v + output %v", s.TotalCost, s.TotalInputCost, s.TotalOutputCost)
	}

	a := rep.Files["a.pdf"]
	if a.InputTokens != 1500 || a.ModelUsed != "gemini-2.5-flash" || !approx(a.TotalCost, round6(wantA)) {
		t.Errorf("a.pdf = %+v", a)
	}
	if b := rep.Files["b.pdf"]; b.ModelUsed != "openai/gpt-4o-mini" || !approx(b.TotalCost, round6(wantB)) {
		t.Errorf("b.pdf = %+v", b)
	}
	if _, ok := rep.Files["c.pdf"]; ok {
		t.Error("unknown model was priced")
	}
	if _, ok := rep.Files[UnknownFile]; !ok {
		t.Error("unnamed usage not tagged")
	}
	if len(sink.keys) != 4 || sink.keys[0] != "u1_s1" {
		t.Errorf("sink calls = %v", sink.keys)
	}
}

func TestEmptyReport(t *testing.T) {
	rep := NewLedger(nil, nil).Report()
	if rep.Summary.TotalCost != 0 || len(rep.Files) != 0 || rep.Summary.CostByModel == nil {
		t.Fatalf("report = %+v", rep)
	}
}

func TestRound6(t *testing.T) {
	if got := round6(0.0012344999); got != 0.001234 {
		t.Errorf("round6 = %v", got)
	}
}
