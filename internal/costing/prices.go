// Package costing prices provider token usage and builds the per-session cost report.
package costing

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Price is the per-token cost of one model, in the litellm price list layout.
type Price struct {
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
}

// PriceTable resolves a model by its full name ("vertex_ai/gemini-2.5-flash") or by the
// short name after the last slash.
type PriceTable struct {
	prices map[string]Price
	short  map[string]string
}

// LoadPrices reads a price file. A missing or unreadable file yields an empty table, so
// every usage record is skipped with a warning.
func LoadPrices(path string, logger *slog.Logger) *PriceTable {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("costing.prices.missing", "path", path)
		} else {
			logger.Warn("costing.prices.read_failed", "path", path, "error", err)
		}
		return newPriceTable()
	}
	t, err := ParsePrices(data)
	if err != nil {
		logger.Warn("costing.prices.invalid", "path", path, "error", err)
		return newPriceTable()
	}
	logger.Info("costing.prices.loaded", "path", path, "models", t.Len())
	return t
}

// ParsePrices decodes a litellm-style document: an object keyed by model name. Entries that
// are not objects with numeric costs (such as "sample_spec") are skipped.
func ParsePrices(data []byte) (*PriceTable, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := newPriceTable()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var p Price
		if err := json.Unmarshal(raw[name], &p); err != nil {
			continue
		}
		t.prices[name] = p
		short := shortName(name)
		// an unprefixed entry wins the short name, otherwise the first name in sort order does
		if prev, ok := t.short[short]; !ok || (prev != short && name == short) {
			t.short[short] = name
		}
	}
	return t, nil
}

func newPriceTable() *PriceTable {
	return &PriceTable{prices: map[string]Price{}, short: map[string]string{}}
}

func (t *PriceTable) Len() int { return len(t.prices) }

// Lookup returns the full model name and its price.
func (t *PriceTable) Lookup(model string) (string, Price, bool) {
	if p, ok := t.prices[model]; ok {
		return model, p, true
	}
	full, ok := t.short[shortName(model)]
	if !ok {
		return "", Price{}, false
	}
	return full, t.prices[full], true
}

func shortName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}
