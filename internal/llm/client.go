// Package llm invokes the external model collaborator. The collaborator is a
// fixed-contract black box: input is prompt text, output is JSON text that the
// schema package validates. Calls are never retried here.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"email-triage/internal/common/config"
	"email-triage/internal/common/logger"
	"email-triage/internal/common/metrics"
)

// Prompt is one model invocation request. Name labels metrics and error
// messages.
type Prompt struct {
	Name   string
	System string
	User   string
}

// Client is the model collaborator interface. Complete returns the raw JSON
// text of the model's answer.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) ([]byte, error)
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint in JSON
// mode.
type HTTPClient struct {
	cfg    config.ModelConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPClient(cfg config.ModelConfig, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			// Zero means no deadline. A hung call stalls only its own run
			// worker; other runs are unaffected.
			Timeout: config.GetDuration(cfg.Timeout),
		},
		logger: log.WithFields(map[string]interface{}{"component": "llm"}),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *HTTPClient) Complete(ctx context.Context, prompt Prompt) ([]byte, error) {
	reqBody := chatRequest{
		Model:       c.cfg.Name,
		Temperature: c.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	body, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		metrics.ModelCalls.WithLabelValues(prompt.Name, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ModelCalls.WithLabelValues(prompt.Name, "error").Inc()
		return nil, fmt.Errorf("model call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ModelCalls.WithLabelValues(prompt.Name, "error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model call: status %d: %s", resp.StatusCode, snippet)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		metrics.ModelCalls.WithLabelValues(prompt.Name, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		metrics.ModelCalls.WithLabelValues(prompt.Name, "error").Inc()
		return nil, fmt.Errorf("model returned no choices")
	}

	metrics.ModelCalls.WithLabelValues(prompt.Name, "ok").Inc()
	c.logger.Debug("model call completed", map[string]interface{}{
		"prompt": prompt.Name,
		"bytes":  len(chat.Choices[0].Message.Content),
	})

	return []byte(chat.Choices[0].Message.Content), nil
}
