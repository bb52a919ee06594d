package constants

// Column names the normalization engine reads or writes.
const (
	ColVendorName        = "Vendor Name"
	ColInvoiceNo         = "Invoice No"
	ColInvoiceDate       = "Invoice Date"
	ColCurrencyCode      = "Currency Code"
	ColAssetSerialNumber = "Asset Serial Number"
	ColAssetDescription  = "Asset Description"
	ColAssetCategory     = "Asset Category"
	ColDescription       = "Description"
	ColQty               = "Qty"
	ColQuantity          = "Quantity"
	ColUOM               = "UOM"
	ColUnitPrice         = "Unit Price"
	ColNetAmount         = "Net Amount"
	ColTotalBasePrice    = "Total Base Price"
	ColTotalTax          = "Total Tax"
	ColTaxAmount         = "Tax Amount"
	ColTotalPurchase     = "Total Purchase Price"
	ColGrandTotal        = "Grand Total"
	ColTotalAmount       = "Total Amount"
	ColIGST              = "IGST"
	ColCGST              = "CGST"
	ColSGST              = "SGST"
	ColIGSTAmount        = "IGST Amount"
	ColCGSTAmount        = "CGST Amount"
	ColSGSTAmount        = "SGST Amount"
	ColDateOfEntry       = "Date of Entry"
	ColEntryDoneBy       = "Data Entry Done By"
	ColBillINR           = "Total Bill Amount in INR"
	ColBillForeign       = "Total Bill Amount in Foreign Currency"
	ColHSNSAC            = "HSN/SAC"
	ColHSNCode           = "HSN Code"
	ColSACCode           = "SAC Code"
	ColCode              = "Code"
	ColBaseLabour        = "Base Inv Amt (Excl Tax) - Labour"
	ColBaseMaterial      = "Base Inv Amt (Excl Tax) - Material"
	ColPONumber          = "PO Number"
	ColClientCode        = "Client Code"
	ColDeliverAddress    = "Deliver Address"
	ColDeliveryLocation  = "Delivery Location"

	// LegacyVendorKey is an older snake_case spelling some responses still use.
	LegacyVendorKey = "vendor_name"
)

// Enrichment sentinels.
const (
	UnknownVendor      = "Unknown Vendor"
	UnknownVendorSheet = "Unknown_Vendor"
	AutoEntryMarker    = "Auto"
	DefaultUOM         = "NUMBER"
	DomesticCurrency   = "INR"
	SACPrefix          = "99"
	KindSAC            = "SAC"
	KindHSN            = "HSN"
)

// Alias lists, in priority order.
var (
	LineItemKeys    = []string{"Line Items", "items", "line_items"}
	SerialKeys      = []string{ColAssetSerialNumber, "Tag Nos", "Serial No", "Sr No"}
	DescriptionKeys = []string{ColAssetDescription, ColDescription}
	QuantityKeys    = []string{ColQuantity, ColQty}
	TaxCodeKeys     = []string{ColHSNSAC, ColHSNCode, ColSACCode, ColCode}
	BaseAmountKeys  = []string{ColTotalBasePrice, ColNetAmount, ColUnitPrice}
)

// ProrationKeys are the monetary columns split across expanded rows (matched case-insensitively).
var ProrationKeys = []string{
	"Total Value", "Total Purchase Price", "Total Amount", "Grand Total",
	"Sub Total", "Subtotal", "IGST Amount", "CGST Amount", "SGST Amount",
	"Total SGST", "Total CGST", "Total IGST", "Tax Total", "Total Tax Amount",
	"Net Amount", "Tax Amount", "Rate", "Amount", "Value (INR)", "Total Base Price",
	"IGST", "CGST", "SGST", "Total Tax", "HSN IGST",
	"Base Inv Amt (Excl Tax) - Labour", "Base Inv Amt (Excl Tax) - Material",
}

// Tag filters.
const MinTagLength = 5

var TagDenylist = []string{
	"VIDEO", "AUDIO", "CONF", "KIT", "UNIT", "SYS", "LIC", "SUB", "PRO", "PLUS",
	"WARRANTY", "PRESENTATION", "REPEATER", "CABLE", "HDMI",
	"WINDOWS", "SERVER", "MICROSOFT", "INTEL", "PROCESSOR",
	"7D76", "4X40", "8471", "STANDARD", "WIRELESS",
}

var BrandPrefixes = []string{"CISCO", "LENOVO", "HP", "DELL", "POLY", "LOGI", "APPLE"}
