package ai

import (
	"RelayBot/internal/config"
	"RelayBot/internal/service/conversation"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// HTTPClient делает прямой POST в /chat/completions без SDK.
type HTTPClient struct {
	http        *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func NewHTTPClient(cfg config.CompletionConfig, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{
		http:        hc,
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *HTTPClient) Complete(ctx context.Context, turns []conversation.Turn) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(turns)),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, t := range turns {
		payload.Messages = append(payload.Messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}
	choices := gjson.GetBytes(data, "choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return "", ErrEmptyResponse
	}
	content := choices.Get("0.message.content")
	if content.Type != gjson.String {
		return "", fmt.Errorf("%w: choices[0].message.content is %s", ErrMalformedResponse, content.Type)
	}
	if content.String() == "" {
		return "", ErrEmptyResponse
	}
	return content.String(), nil
}
