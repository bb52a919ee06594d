package gemini

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
)

func TestResponseTextJoinsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`[{"Invoice No":`),
				genai.Blob{MIMEType: "image/png", Data: []byte{0}},
				genai.Text(`"A"}]`),
			}},
		}},
	}
	if got := responseText(resp); got != `[{"Invoice No":"A"}]` {
		t.Errorf("responseText = %q", got)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("nil response text = %q", got)
	}
	if got := responseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("no candidates text = %q", got)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{Project: "p"}, nil)
	if c.ModelName() != "gemini-2.5-flash" || c.cfg.Region != "us-central1" {
		t.Errorf("defaults = %+v", c.cfg)
	}
}
