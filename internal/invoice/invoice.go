// Package invoice holds the typed form of an extraction result. Raw provider JSON is
// converted here once; downstream code never sees untyped maps.
package invoice

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// TagField is a serial-number field as extracted: a list of strings or a single string.
type TagField struct {
	List   []string
	Text   string
	IsList bool
}

// LineItem is one row of the invoice table.
type LineItem struct {
	Fields  *Fields
	Serials []TagField // every truthy serial alias on the item, in alias order
}

// Quantity returns the first truthy quantity alias.
func (li LineItem) Quantity() Value {
	return li.Fields.FirstTruthy(constants.QuantityKeys...)
}

// Description returns the first truthy description alias.
func (li LineItem) Description() Value {
	return li.Fields.FirstTruthy(constants.DescriptionKeys...)
}

// Invoice is one extracted invoice record.
type Invoice struct {
	Vendor   string
	Number   string
	Date     string
	Currency string

	// Header holds every record-level field except the line-item collection.
	Header *Fields
	// Items is the explicit line-item collection; empty means the record is its own item.
	Items []LineItem
	// RecordTags is the first truthy record-level serial field.
	RecordTags    TagField
	HasRecordTags bool

	rawVendor    Value
	hasRawVendor bool
	headerRaw    map[string]*node
}

// RawVendor returns the vendor as extracted, before normalization.
func (inv *Invoice) RawVendor() (Value, bool) {
	return inv.rawVendor, inv.hasRawVendor
}

// SetVendor stamps the vendor on the typed field and the header column.
func (inv *Invoice) SetVendor(name string) {
	inv.Vendor = name
	inv.Header.Delete(constants.LegacyVendorKey)
	inv.Header.Set(constants.ColVendorName, Text(name))
}

// LineItems returns the explicit items, or the record itself as a single implicit item.
func (inv *Invoice) LineItems() []LineItem {
	if len(inv.Items) > 0 {
		return inv.Items
	}
	implicit := LineItem{Fields: inv.Header.Clone()}
	implicit.Serials = serialsOf(inv.Header, inv.headerRaw)
	return []LineItem{implicit}
}

// Decode parses provider JSON (an array of records or a single record) into invoices.
func Decode(data []byte) ([]Invoice, error) {
	root, err := parseNode(data)
	if err != nil {
		return nil, fmt.Errorf("decode extraction json: %w", err)
	}
	var records []*node
	switch root.kind {
	case kindArray:
		records = root.items
	case kindObject:
		records = []*node{root}
	default:
		return nil, fmt.Errorf("extraction json must be an array or object")
	}

	out := make([]Invoice, 0, len(records))
	for i, rec := range records {
		if rec.kind != kindObject {
			return nil, fmt.Errorf("record %d is not an object", i)
		}
		out = append(out, fromNode(rec))
	}
	return out, nil
}

func fromNode(rec *node) Invoice {
	itemsKey := ""
	for _, k := range constants.LineItemKeys {
		if c, ok := rec.get(k); ok && c.kind == kindArray {
			itemsKey = k
			break
		}
	}

	inv := Invoice{Header: NewFields(), headerRaw: map[string]*node{}}
	for _, k := range rec.keys {
		if k == itemsKey {
			continue
		}
		inv.Header.Set(k, rec.fields[k].scalar())
		inv.headerRaw[k] = rec.fields[k]
	}

	if c, ok := rec.get(constants.ColVendorName); ok {
		inv.rawVendor, inv.hasRawVendor = c.scalar(), true
	} else if c, ok := rec.get(constants.LegacyVendorKey); ok {
		inv.rawVendor, inv.hasRawVendor = c.scalar(), true
	}
	inv.Vendor = inv.rawVendor.String()
	inv.Number = inv.Header.Value(constants.ColInvoiceNo).String()
	inv.Date = inv.Header.Value(constants.ColInvoiceDate).String()
	inv.Currency = inv.Header.Value(constants.ColCurrencyCode).String()

	for _, k := range constants.SerialKeys {
		if c, ok := rec.get(k); ok && c.truthy() {
			inv.RecordTags, inv.HasRecordTags = tagFieldOf(c), true
			break
		}
	}

	if itemsKey != "" {
		for _, it := range rec.fields[itemsKey].items {
			inv.Items = append(inv.Items, itemFromNode(it))
		}
	}
	return inv
}

func itemFromNode(it *node) LineItem {
	li := LineItem{Fields: NewFields()}
	if it.kind != kindObject {
		return li
	}
	raw := map[string]*node{}
	for _, k := range it.keys {
		li.Fields.Set(k, it.fields[k].scalar())
		raw[k] = it.fields[k]
	}
	li.Serials = serialsOf(li.Fields, raw)
	return li
}

// serialsOf collects every truthy serial alias. When raw nodes are unavailable the
// flattened cell values are used, which keeps list fields as bracket literals.
func serialsOf(f *Fields, raw map[string]*node) []TagField {
	var out []TagField
	for _, k := range constants.SerialKeys {
		if n, ok := raw[k]; ok {
			if n.truthy() {
				out = append(out, tagFieldOf(n))
			}
			continue
		}
		v, ok := f.Get(k)
		if !ok || !v.Truthy() || v.IsNumber() {
			continue
		}
		out = append(out, TagField{Text: v.String()})
	}
	return out
}

func tagFieldOf(n *node) TagField {
	switch n.kind {
	case kindArray:
		tf := TagField{IsList: true}
		for _, it := range n.items {
			if it.kind == kindNull {
				continue
			}
			tf.List = append(tf.List, it.scalar().String())
		}
		return tf
	case kindString:
		return TagField{Text: n.str}
	default:
		return TagField{}
	}
}
