package invoice

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a scalar cell: text or a number.
type Value struct {
	text  string
	num   float64
	isNum bool
}

func Text(s string) Value      { return Value{text: s} }
func Number(f float64) Value   { return Value{num: f, isNum: true} }
func (v Value) IsNumber() bool { return v.isNum }

// Float returns the numeric payload; ok is false for text values.
func (v Value) Float() (float64, bool) {
	return v.num, v.isNum
}

// String renders numbers without a trailing ".0" for integral values.
func (v Value) String() string {
	if v.isNum {
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
	return v.text
}

// Truthy is false for empty text and zero numbers.
func (v Value) Truthy() bool {
	if v.isNum {
		return v.num != 0
	}
	return v.text != ""
}

// IsBlank reports text that is empty after trimming.
func (v Value) IsBlank() bool {
	return !v.isNum && strings.TrimSpace(v.text) == ""
}

// Any returns float64 or string, suitable for spreadsheet cells and JSON.
func (v Value) Any() any {
	if v.isNum {
		return v.num
	}
	return v.text
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}
