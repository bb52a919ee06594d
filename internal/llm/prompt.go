package llm

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// BuildInvoicePrompt composes the extraction instructions for a multi-page invoice scan.
// columns is the master column layout; when empty the model chooses its own keys.
func BuildInvoicePrompt(columns []string) string {
	parts := []string{
		"You are an invoice data extraction agent. Extract EVERY row of every invoice table.",
		"Invoice tables may span multiple pages; read all attached pages before answering.",
		"Count the table rows first (Sr. No. 1, 2, 3...). The \"Line Items\" array MUST contain exactly one object per row, including zero-value rows.",
		"Never summarize several rows into one and never stop early.",

		// duplicates
		"Ignore pages marked Duplicate, Triplicate, Transporter Copy or Supplier Copy.",
		"If the same Invoice No appears twice, keep only the first occurrence.",

		// addresses
		"For \"Deliver Address\" look ONLY at Ship To, Shipped To or Shipping Address, never Bill To.",
		"\"Delivery Location\" is the city and \"Delivery State\" the state found in the delivery address.",
		"Set \"Invoice Status\" to Proforma when the document says Proforma Invoice, otherwise Final.",

		// serials
		serialRules(),

		// categories
		"\"Asset Category\" MUST be exactly one of: " + quoteJoin(constants.AsStringSlice()) + ".",
		"Use L-Information & Technology for servers, laptops, monitors, software and networking; E-furniture & fixture for chairs, tables and desks; C-plant & Machinery for generators and heavy equipment.",
		"\"Asset Make\" is the brand for L-Information & Technology items, otherwise N/A.",

		// quantity and money
		"\"Qty\" is a clean number (53, not \"53 nos\").",
		"Map Amount, Rate or Net Amount to \"Total Base Price\".",
		"\"Asset Description\" keeps the full text with specifications but without serial numbers.",
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, "\n"))
	b.WriteString("\n\n")
	if len(columns) > 0 {
		b.WriteString("Return a JSON list of invoices using these exact keys:\n")
		b.WriteString(mustJSON(columns))
		b.WriteString("\n")
	} else {
		b.WriteString("Return a JSON list of invoices.\n")
	}
	b.WriteString("Each invoice carries \"Vendor Name\", \"Invoice No\", \"Invoice Date\", \"Currency Code\" and a \"Line Items\" array.\n")
	b.WriteString(exampleInvoice)
	return b.String()
}

func serialRules() string {
	return strings.Join([]string{
		"Serial numbers are OPTIONAL; most invoices have none.",
		"Only values labelled Serial No, Serial Number, Tag Nos, S/N or SN are serials. \"Sr. No.\" followed by 1, 2, 3 is a row number.",
		"When one item has several serials return them as an array in \"Asset Serial Number\".",
		"When no serials exist leave \"Asset Serial Number\" as an empty string.",
		"Never report model numbers (7D76A049SG), item codes (AMCINSPP0358) or product codes (CON-SNT-CSBA4LUK) as serials.",
	}, " ")
}

const exampleInvoice = `Example:
[
  {
    "Vendor Name": "Orient Technologies Limited",
    "Invoice No": "MUM/2526/07509",
    "Invoice Date": "27/11/2025",
    "Currency Code": "INR",
    "Line Items": [
      {
        "Asset Description": "4XB7A83970 LENOVO 2.4TB 10K SAS HDD",
        "Asset Serial Number": ["1S4XB7A83970J902D45D", "1S4XB7A83970J902D45E", "1S4XB7A83970J902D456"],
        "Qty": 3,
        "Total Base Price": 0,
        "Asset Category": "L-Information & Technology",
        "Asset Make": "Lenovo"
      }
    ]
  }
]
`

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
