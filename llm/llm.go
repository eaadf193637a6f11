// Package llm implements the translation provider client against an
// OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/transflow/transflow/config"
	"github.com/transflow/transflow/errdefs"
	"github.com/transflow/transflow/httpclient"
)

// temperature is kept low: translations should be stable, not creative.
const temperature = 0.3

// Client talks to one chat-completions endpoint with one model.
type Client struct {
	http    *httpclient.Client
	baseURL string
	model   string
	log     *slog.Logger
}

// New builds a Client from configuration. model overrides the
// configured default when non-empty. A missing API key fails fast.
func New(cfg config.Config, model string, log *slog.Logger) (*Client, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errdefs.Validationf("OpenAI API key is required (TRANSFLOW_OPENAI_API_KEY)")
	}
	if model == "" {
		model = cfg.OpenAIModel
	}
	if log == nil {
		log = slog.Default()
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.OpenAIAPIKey,
		"Content-Type":  "application/json",
	}
	return &Client{
		http:    httpclient.New(cfg.HTTPTimeout, cfg.HTTPMaxRetries, headers, log),
		baseURL: cfg.OpenAIBaseURL,
		model:   model,
		log:     log,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user message pair and returns the text of
// the first completion choice.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	c.log.Debug("chat completion", "model", c.model, "endpoint", endpoint)

	respBody, err := c.http.Post(ctx, endpoint, body, nil)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &errdefs.APIError{Msg: "decoding provider response", Err: err}
	}
	if resp.Error != nil {
		return "", errdefs.APIf("provider returned error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errdefs.APIf("provider returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errdefs.APIf("provider returned empty completion")
	}
	return content, nil
}

// Model returns the model identifier in use.
func (c *Client) Model() string { return c.model }
