package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
)

// Image is one rasterized page handed to the model.
type Image struct {
	MIMEType string
	Data     []byte
}

// Usage carries the token counts reported by the provider for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Request is a single extraction call: every page of one document plus the prompt.
type Request struct {
	Images []Image
	Prompt string
}

// Response is the raw model text; callers parse it.
type Response struct {
	Text  string
	Usage Usage
	Model string
}

// Client is the provider boundary the extraction engine depends on.
// Implementations must honor ctx cancellation and deadlines.
type Client interface {
	Generate(ctx context.Context, cred credentials.Credential, req Request) (Response, error)
	ModelName() string
}
