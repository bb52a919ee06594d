package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

const (
	DefaultMaxRetries = 5
	DefaultBaseWait   = 2 * time.Second
	DefaultTimeout    = 300 * time.Second
)

type Config struct {
	MaxRetries int
	BaseWait   time.Duration
	Timeout    time.Duration
}

// Engine wraps an llm.Client with a per-call timeout, exponential backoff and credential rotation.
type Engine struct {
	client llm.Client
	pool   *credentials.Pool
	cfg    Config
	sleep  Sleeper
	logger *slog.Logger
	schema map[string]any
}

type Option func(*Engine)

// WithSleeper replaces the wall-clock wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

func NewEngine(client llm.Client, pool *credentials.Pool, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = DefaultBaseWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		client: client,
		pool:   pool,
		cfg:    cfg,
		sleep:  realSleeper{},
		logger: logger,
		schema: llm.InvoiceResponseSchema(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Backoff is base * 2^(attempt-1) for a 1-based attempt number.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// cursor is the retry state: which credential, which 1-based attempt on it.
type cursor struct {
	cred, attempt     int
	creds, maxRetries int
}

func (c cursor) exhausted() bool {
	return c.cred == c.creds-1 && c.attempt == c.maxRetries
}

func (c cursor) next() cursor {
	if c.attempt < c.maxRetries {
		c.attempt++
		return c
	}
	c.cred++
	c.attempt = 1
	return c
}

// Extract runs the attempt loop. It sleeps Backoff(attempt) after every failed attempt
// except the very last one, and stops early if ctx is cancelled.
func (e *Engine) Extract(ctx context.Context, images []llm.Image, columns []string) (*Result, bool) {
	reqID := uuid.New().String()
	log := e.logger.With("req_id", reqID, "model", e.client.ModelName(), "pages", len(images))

	if e.pool.Len() == 0 {
		log.Error("extract.no_credentials")
		return nil, false
	}
	req := llm.Request{Images: images, Prompt: llm.BuildInvoicePrompt(columns)}

	total := 0
	for cur := (cursor{cred: 0, attempt: 1, creds: e.pool.Len(), maxRetries: e.cfg.MaxRetries}); ; cur = cur.next() {
		if ctx.Err() != nil {
			log.Warn("extract.cancelled", "attempts", total, "error", ctx.Err())
			return nil, false
		}
		cred := e.pool.At(cur.cred)
		total++
		start := time.Now()

		res, err := e.attempt(ctx, cred, req)
		if err == nil {
			res.Attempts = total
			log.Info("extract.ok",
				"credential", cred.Masked(),
				"attempts", total,
				"invoices", len(res.Invoices),
				"input_tokens", res.Usage.InputTokens,
				"output_tokens", res.Usage.OutputTokens,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, true
		}

		if cur.exhausted() {
			log.Warn("extract.attempt_failed",
				"credential", cred.Masked(), "attempt", cur.attempt, "max", e.cfg.MaxRetries, "error", err)
			break
		}
		wait := Backoff(e.cfg.BaseWait, cur.attempt)
		log.Warn("extract.attempt_failed",
			"credential", cred.Masked(),
			"attempt", cur.attempt,
			"max", e.cfg.MaxRetries,
			"error", err,
			"retry_in", wait.String(),
		)
		if cur.attempt == e.cfg.MaxRetries {
			log.Warn("extract.credential_exhausted", "credential", cred.Masked())
		}
		if err := e.sleep.Sleep(ctx, wait); err != nil {
			log.Warn("extract.cancelled", "attempts", total, "error", err)
			return nil, false
		}
	}

	log.Error("extract.exhausted", "attempts", total, "credentials", e.pool.Len())
	return nil, false
}

// attempt performs one bounded provider call and parses its reply.
func (e *Engine) attempt(ctx context.Context, cred credentials.Credential, req llm.Request) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	type reply struct {
		resp llm.Response
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		resp, err := e.client.Generate(callCtx, cred, req)
		done <- reply{resp, err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("provider call timed out after %s", e.cfg.Timeout)
		}
		return nil, callCtx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}

	invoices, err := e.parse(r.resp.Text)
	if err != nil {
		return nil, err
	}
	model := r.resp.Model
	if model == "" {
		model = e.client.ModelName()
	}
	return &Result{
		Invoices:   invoices,
		Usage:      r.resp.Usage,
		Model:      model,
		Credential: cred.Name,
	}, nil
}

// parse strips fences, checks the reply shape and normalizes each vendor name.
func (e *Engine) parse(text string) ([]invoice.Invoice, error) {
	body := []byte(llm.StripCodeFences(text))
	if err := llm.ValidateJSONAgainstSchema(e.schema, body); err != nil {
		return nil, err
	}
	invoices, err := invoice.Decode(body)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		raw, _ := invoices[i].RawVendor()
		invoices[i].SetVendor(invoice.NormalizeVendor(raw.String()))
	}
	return invoices, nil
}
