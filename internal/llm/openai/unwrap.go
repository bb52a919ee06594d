package openai

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// unwrapInvoices turns {"invoices": [...]} into the bare array; anything else passes through.
func unwrapInvoices(content string) string {
	text := llm.StripCodeFences(content)
	var env map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &env); err != nil || len(env) != 1 {
		return text
	}
	raw, ok := env["invoices"]
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return text
	}
	return string(raw)
}
