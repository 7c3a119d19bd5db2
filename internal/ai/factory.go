package ai

import (
	"RelayBot/internal/config"
	"context"
	"fmt"
	"net/http"
)

// New выбирает реализацию Completer по COMPLETION_BACKEND.
func New(ctx context.Context, cfg config.CompletionConfig) (Completer, error) {
	switch cfg.Backend {
	case config.BackendSDK, "":
		return NewChatClient(cfg), nil
	case config.BackendHTTP:
		return NewHTTPClient(cfg, &http.Client{}), nil
	case config.BackendGemini:
		return NewGeminiClient(ctx, cfg)
	case config.BackendStub:
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}
