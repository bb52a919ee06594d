// Package gemini implements llm.Client on Vertex AI generative models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type Config struct {
	Project     string
	Region      string
	Model       string
	Temperature float32
}

// Client keeps one genai.Client per credential; a genai.Client is bound to its auth at construction.
type Client struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, log: logger, clients: map[string]*genai.Client{}}
}

func (c *Client) ModelName() string { return c.cfg.Model }

func (c *Client) Generate(ctx context.Context, cred credentials.Credential, req llm.Request) (llm.Response, error) {
	gc, err := c.clientFor(ctx, cred)
	if err != nil {
		return llm.Response{}, err
	}
	start := time.Now()

	model := gc.GenerativeModel(c.cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(c.cfg.Temperature),
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini generate: %w", err)
	}

	out := llm.Response{Text: responseText(resp), Model: c.cfg.Model}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if out.Text == "" {
		return out, errors.New("gemini: empty response")
	}
	c.log.Debug("llm.gemini.ok",
		"model", c.cfg.Model,
		"credential", cred.Masked(),
		"pages", len(req.Images),
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) clientFor(ctx context.Context, cred credentials.Credential) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gc, ok := c.clients[cred.Name]; ok {
		return gc, nil
	}

	var opts []option.ClientOption
	switch {
	case cred.APIKey != "":
		opts = append(opts, option.WithAPIKey(cred.APIKey))
	case cred.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cred.CredentialsFile))
	}
	gc, err := genai.NewClient(ctx, c.cfg.Project, c.cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient(%s): %w", cred.Masked(), err)
	}
	c.clients[cred.Name] = gc
	return gc, nil
}

// Close releases every cached client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for name, gc := range c.clients {
		if err := gc.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.clients, name)
	}
	return errors.Join(errs...)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
