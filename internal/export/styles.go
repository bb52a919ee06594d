package export

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

const columnWidth = 50

type fill string

const (
	fillRed    fill = "FF0000"
	fillBlue   fill = "0000FF"
	fillYellow fill = "FFFF00"
	fillWhite  fill = "FFFFFF"
)

// headerFills colours the report header by column role; unlisted headers are white.
var headerFills = func() map[string]fill {
	m := map[string]fill{}
	set := func(f fill, names ...string) {
		for _, n := range names {
			m[n] = f
		}
	}
	set(fillRed,
		"Asset Category", "Asset Class", "Total Base Price", "Total Tax", "Total Purchase Price")
	set(fillBlue,
		"Vendor Name", "Date of Entry", "Data Entry Done By", "Customer Name")
	set(fillYellow,
		"Client Code", "PO Number", "Invoice Status ( Proforma/ Final)", "Invoice No", "Invoice Date",
		"Invoice Received Date", "Vendor Code", "Vendor State", "Asset Type", "RS #",
		"Asset Description", "Asset Serial Number", "Qty", "UOM", "Deliver Address",
		"Delivery Location", "Delivery State", "Currency Code", "HSN/SAC", "Code",
		"Base Inv Amt (Excl Tax) - Material", "Base Inv Amt (Excl Tax) - Labour", "Reverse Charge",
		"Others", "CGST", "SGST", "IGST", "BCD", "% of Total Purchase Price being scheduled",
		"Waybill Inward Required", "Waybill Outward Required", "TDS Section", "TDS Base Value",
		"Vend Inv Type", "Remarks", "RAPL Billing State")
	return m
}()

func headerFill(name string) fill {
	if f, ok := headerFills[strings.TrimSpace(name)]; ok {
		return f
	}
	return fillWhite
}

var centered = &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

// styleSet caches style ids per workbook.
type styleSet struct {
	body    int
	headers map[fill]int
}

func newStyleSet(f *excelize.File) (*styleSet, error) {
	body, err := f.NewStyle(&excelize.Style{Alignment: centered})
	if err != nil {
		return nil, err
	}
	s := &styleSet{body: body, headers: map[fill]int{}}
	for _, c := range []fill{fillRed, fillBlue, fillYellow, fillWhite} {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{string(c)}, Pattern: 1},
			Alignment: centered,
		})
		if err != nil {
			return nil, err
		}
		s.headers[c] = id
	}
	return s, nil
}

// format widens every used column, centres and wraps all cells and colours the header row.
func (s *styleSet) format(f *excelize.File, sheet string, header []string, lastRow int) error {
	if len(header) == 0 {
		return nil
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, columnWidth); err != nil {
		return err
	}
	if lastRow > 1 {
		if err := f.SetCellStyle(sheet, "A2", lastCol+itoa(lastRow), s.body); err != nil {
			return err
		}
	}
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, s.headers[headerFill(h)]); err != nil {
			return err
		}
	}
	return nil
}
