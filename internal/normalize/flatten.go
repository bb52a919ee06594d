// Package normalize flattens typed invoices into spreadsheet rows: serial-tag expansion,
// amount proration, derived columns and projection onto the master column layout.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Engine is stateless apart from its clock; the same input always yields the same rows.
type Engine struct {
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

var prorationSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(constants.ProrationKeys))
	for _, k := range constants.ProrationKeys {
		m[strings.ToLower(k)] = struct{}{}
	}
	return m
}()

func isProrated(key string) bool {
	_, ok := prorationSet[strings.ToLower(key)]
	return ok
}

// Document stamps vendor on every invoice of one document and returns the projected table.
func (e *Engine) Document(vendor string, invoices []invoice.Invoice, schema []string) Table {
	var rows []*invoice.Fields
	for _, inv := range invoices {
		stamped := inv
		stamped.Header = inv.Header.Clone()
		stamped.SetVendor(vendor)
		rows = append(rows, e.Flatten(stamped)...)
	}
	e.logger.Debug("normalize.document",
		"vendor", vendor,
		"invoices", len(invoices),
		"rows", len(rows),
		"schema_columns", len(schema),
	)
	return Project(rows, schema)
}

// Flatten expands one invoice into enriched rows. inv is not modified.
func (e *Engine) Flatten(inv invoice.Invoice) []*invoice.Fields {
	var recordTags []string
	if inv.HasRecordTags {
		recordTags = ProcessTags(inv.RecordTags)
	}

	var rows []*invoice.Fields
	for i, item := range inv.LineItems() {
		base := inv.Header.Clone()
		base.Merge(item.Fields)

		tags := itemTags(item)
		if len(tags) == 0 && i == 0 && len(recordTags) > 0 {
			tags = recordTags
		}
		rows = append(rows, expand(base, item.Quantity(), tags)...)
	}

	entryDate := e.now().Format("2006-01-02")
	for _, r := range rows {
		enrich(r, entryDate)
	}
	return rows
}

// expand emits one row per tag with prorated amounts, or the base row alone when tags is empty.
// The divisor is the declared quantity when positive, otherwise the tag count.
func expand(base *invoice.Fields, qty invoice.Value, tags []string) []*invoice.Fields {
	if len(tags) == 0 {
		row := base.Clone()
		if !row.Has(constants.ColQty) {
			q, ok := row.Get(constants.ColQuantity)
			if !ok {
				q = invoice.Number(1)
			}
			row.Set(constants.ColQty, q)
		}
		return []*invoice.Fields{row}
	}

	divisor := float64(len(tags))
	if q := CleanFloat(qty); q > 0 {
		divisor = q
	}

	out := make([]*invoice.Fields, 0, len(tags))
	for _, tag := range tags {
		row := base.Clone()
		row.Set(constants.ColAssetSerialNumber, invoice.Text(tag))
		for _, k := range row.Keys() {
			if isProrated(k) {
				row.Set(k, SafeDivide(row.Value(k), divisor))
			}
		}
		if row.Has(constants.ColNetAmount) {
			row.Set(constants.ColUnitPrice, row.Value(constants.ColNetAmount))
		} else if row.Has(constants.ColTotalBasePrice) {
			row.Set(constants.ColUnitPrice, row.Value(constants.ColTotalBasePrice))
		}
		row.Set(constants.ColQuantity, invoice.Number(1))
		row.Set(constants.ColQty, invoice.Number(1))
		out = append(out, row)
	}
	return out
}
