package ai

import (
	"RelayBot/internal/config"
	"RelayBot/internal/service/conversation"
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ChatClient отправляет окно диалога в OpenAI-совместимый Chat Completions API
// (по умолчанию DeepSeek) через официальный SDK.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewChatClient(cfg config.CompletionConfig, opts ...option.RequestOption) *ChatClient {
	// Один запрос на сообщение: повторы SDK по умолчанию отключены
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		base = append(base, option.WithBaseURL(u))
	}
	client := openai.NewClient(append(base, opts...)...)
	return &ChatClient{
		client:      &client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (c *ChatClient) Complete(ctx context.Context, turns []conversation.Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    chatMessages(turns),
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func chatMessages(turns []conversation.Turn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case conversation.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case conversation.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return msgs
}
