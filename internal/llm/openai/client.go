package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/credentials"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) ModelName() string { return c.cfg.Model }

// Generate implements llm.Client with a single chat/completions call carrying every page as an image part.
func (c *Client) Generate(ctx context.Context, cred credentials.Credential, req llm.Request) (llm.Response, error) {
	if cred.APIKey == "" {
		return llm.Response{}, errors.New("openai: credential has no api key")
	}
	start := time.Now()

	content := make([]map[string]any, 0, len(req.Images)+1)
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]any{
				"url": "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	content = append(content, map[string]any{"type": "text", "text": req.Prompt})

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "Return ONLY JSON. Wrap a list of invoices as {\"invoices\": [...]} when a bare array is not possible."},
			{"role": "user", "content": content},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + cred.APIKey}

	var cc chatResponse
	if err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, &cc, c.log); err != nil {
		return llm.Response{}, fmt.Errorf("openai: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.Response{}, errors.New("openai: no choices in response")
	}

	c.log.Debug("llm.openai.ok",
		"model", c.cfg.Model,
		"pages", len(req.Images),
		"input_tokens", cc.Usage.PromptTokens,
		"output_tokens", cc.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Response{
		Text: unwrapInvoices(cc.Choices[0].Message.Content),
		Usage: llm.Usage{
			InputTokens:  cc.Usage.PromptTokens,
			OutputTokens: cc.Usage.CompletionTokens,
		},
		Model: c.cfg.Model,
	}, nil
}
