package llm

import (
	"strings"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n[{\"a\":1}]\n```": `[{"a":1}]`,
		"```\n{}\n```":              `{}`,
		"  [1]  ":                   `[1]`,
		"`{}`":                      `{}`,
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvoiceResponseSchema(t *testing.T) {
	schema := InvoiceResponseSchema()
	for _, ok := range []string{`[{"Invoice No":"1"}]`, `{"Invoice No":"1"}`, `[]`} {
		if err := ValidateJSONAgainstSchema(schema, []byte(ok)); err != nil {
			t.Errorf("%s should validate: %v", ok, err)
		}
	}
	for _, bad := range []string{`"text"`, `[1,2]`, `42`, `not json`} {
		if err := ValidateJSONAgainstSchema(schema, []byte(bad)); err == nil {
			t.Errorf("%s should be rejected", bad)
		}
	}
}

func TestBuildInvoicePromptListsColumnsAndCategories(t *testing.T) {
	p := BuildInvoicePrompt([]string{"Vendor Name", "Invoice No"})
	for _, want := range []string{`["Vendor Name","Invoice No"]`, `"L-Information & Technology"`, "Line Items"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(BuildInvoicePrompt(nil), "these exact keys") {
		t.Error("prompt without columns should not demand exact keys")
	}
}
