package normalize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// A 6-digit postal code preceded by free text; group 1 is the locality.
var rePostalLocality = regexp.MustCompile(`([\p{L}\p{N}_\s]+?)[,\s-]*\d{6}`)

// enrich derives the bookkeeping columns of one row in place.
func enrich(row *invoice.Fields, entryDate string) {
	row.Set(constants.ColDateOfEntry, invoice.Text(entryDate))
	row.Set(constants.ColEntryDoneBy, invoice.Text(constants.AutoEntryMarker))

	if uom := row.Value(constants.ColUOM); !uom.Truthy() || uom.IsBlank() {
		row.Set(constants.ColUOM, invoice.Text(constants.DefaultUOM))
	}

	classifyCurrency(row)
	routeTaxCode(row)
	deriveClientCode(row)
	deriveDeliveryLocation(row)
	deriveTotals(row)
	canonicalizeCategory(row)
}

func classifyCurrency(row *invoice.Fields) {
	currency := strings.ToUpper(strings.TrimSpace(row.Value(constants.ColCurrencyCode).String()))
	domestic := currency == "" || currency == "NONE" || strings.Contains(currency, constants.DomesticCurrency)
	if domestic {
		row.Set(constants.ColBillINR, invoice.Number(1))
		row.Set(constants.ColBillForeign, invoice.Number(0))
		return
	}
	row.Set(constants.ColBillINR, invoice.Number(0))
	row.Set(constants.ColBillForeign, invoice.Number(1))
}

// routeTaxCode classifies the HSN/SAC code and routes the base amount to the labour
// (services, SAC) or material (goods, HSN) column.
func routeTaxCode(row *invoice.Fields) {
	code := strings.TrimSpace(row.FirstTruthy(constants.TaxCodeKeys...).String())
	if code == "" {
		row.Set(constants.ColHSNSAC, invoice.Text(""))
		row.Set(constants.ColCode, invoice.Text(""))
		return
	}

	base := row.FirstTruthy(constants.BaseAmountKeys...)
	row.Set(constants.ColCode, invoice.Text(code))
	if strings.HasPrefix(code, constants.SACPrefix) {
		row.Set(constants.ColHSNSAC, invoice.Text(constants.KindSAC))
		row.Set(constants.ColBaseLabour, base)
		row.Set(constants.ColBaseMaterial, invoice.Text(""))
		return
	}
	row.Set(constants.ColHSNSAC, invoice.Text(constants.KindHSN))
	row.Set(constants.ColBaseMaterial, base)
	row.Set(constants.ColBaseLabour, invoice.Text(""))
}

func deriveClientCode(row *invoice.Fields) {
	po := strings.TrimSpace(row.Value(constants.ColPONumber).String())
	if po == "" || row.Value(constants.ColClientCode).Truthy() {
		return
	}
	parts := strings.Split(po, "/")
	if len(parts) > 1 {
		row.Set(constants.ColClientCode, invoice.Text(strings.TrimSpace(parts[0])))
	}
}

func deriveDeliveryLocation(row *invoice.Fields) {
	address := strings.TrimSpace(row.Value(constants.ColDeliverAddress).String())
	current := strings.TrimSpace(row.Value(constants.ColDeliveryLocation).String())
	if address == "" || current != "" {
		return
	}
	if loc, ok := LocalityFromAddress(address); ok {
		row.Set(constants.ColDeliveryLocation, invoice.Text(loc))
	}
}

// LocalityFromAddress returns the last comma-separated segment of the text preceding
// the first 6-digit postal code.
func LocalityFromAddress(address string) (string, bool) {
	m := rePostalLocality.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	parts := strings.Split(strings.TrimSpace(m[1]), ",")
	return strings.TrimSpace(parts[len(parts)-1]), true
}

// deriveTotals fills Total Tax from its components when absent and computes the purchase total.
func deriveTotals(row *invoice.Fields) {
	base := CleanFloat(row.FirstTruthy(constants.ColTotalBasePrice, constants.ColNetAmount))
	tax := CleanFloat(row.FirstTruthy(constants.ColTotalTax, constants.ColTaxAmount))

	igst := CleanFloat(row.FirstTruthy(constants.ColIGST, constants.ColIGSTAmount))
	cgst := CleanFloat(row.FirstTruthy(constants.ColCGST, constants.ColCGSTAmount))
	sgst := CleanFloat(row.FirstTruthy(constants.ColSGST, constants.ColSGSTAmount))

	if tax == 0 && (igst > 0 || cgst > 0 || sgst > 0) {
		tax = igst + cgst + sgst
		row.Set(constants.ColTotalTax, invoice.Number(Round2(tax)))
	}

	if base <= 0 {
		return
	}
	total := invoice.Number(Round2(base + tax))
	row.Set(constants.ColTotalPurchase, total)
	for _, alias := range []string{constants.ColGrandTotal, constants.ColTotalAmount} {
		if row.Has(alias) {
			row.Set(alias, total)
		}
	}
}

// canonicalizeCategory maps loose category spellings onto the fixed set; unknown labels are kept.
func canonicalizeCategory(row *invoice.Fields) {
	v, ok := row.Get(constants.ColAssetCategory)
	if !ok || v.IsNumber() {
		return
	}
	if cat, ok := constants.Canonicalize(v.String()); ok {
		row.Set(constants.ColAssetCategory, invoice.Text(string(cat)))
	}
}
