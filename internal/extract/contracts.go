package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Sleeper waits between attempts. It returns early with ctx.Err() on cancellation.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result is a successful extraction of one document.
type Result struct {
	Invoices   []invoice.Invoice
	Usage      llm.Usage
	Model      string
	Credential string
	Attempts   int
}

// Extractor is what the document pipeline depends on.
// A false ok means every credential exhausted its retries; it is never an error.
type Extractor interface {
	Extract(ctx context.Context, images []llm.Image, columns []string) (*Result, bool)
}
