package extract

import (
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Dedupe keeps the first invoice for each non-empty invoice number.
// Invoices without a number are always kept.
func Dedupe(invoices []invoice.Invoice) []invoice.Invoice {
	seen := make(map[string]struct{}, len(invoices))
	out := make([]invoice.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		no := strings.TrimSpace(inv.Number)
		if no != "" {
			if _, dup := seen[no]; dup {
				continue
			}
			seen[no] = struct{}{}
		}
		out = append(out, inv)
	}
	return out
}
