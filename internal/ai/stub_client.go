package ai

import (
	"RelayBot/internal/service/conversation"
	"context"
)

// StubClient заглушка, которая не делает реальных запросов
type StubClient struct {
	Reply string
}

func NewStubClient() *StubClient { return &StubClient{Reply: "запрос получен"} }

func (c *StubClient) Complete(ctx context.Context, _ []conversation.Turn) (string, error) {
	if err := context.Cause(ctx); err != nil {
		return "", err
	}
	return c.Reply, nil
}
