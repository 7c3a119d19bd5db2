package ai

import (
	"RelayBot/internal/config"
	"RelayBot/internal/service/conversation"
	"context"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient отправляет окно диалога в Gemini API. Системная реплика уходит
// в SystemInstruction, ответы ассистента — с ролью model.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func NewGeminiClient(ctx context.Context, cfg config.CompletionConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:      client,
		model:       cfg.GeminiModel,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, turns []conversation.Turn) (string, error) {
	system, contents := geminiContents(turns)
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// geminiContents раскладывает реплики на системную инструкцию и историю для Gemini.
func geminiContents(turns []conversation.Turn) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			system = append(system, t.Content)
		case conversation.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n"), contents
}
