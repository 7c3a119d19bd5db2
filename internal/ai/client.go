package ai

import (
	"RelayBot/internal/service/conversation"
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrEmptyResponse — сервис ответил успешно, но без текста.
	ErrEmptyResponse = errors.New("completion service returned no choices")
	// ErrMalformedResponse — тело ответа не удалось разобрать.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// Completer интерфейс сервиса генерации. Все реализации взаимозаменяемы:
// на вход упорядоченная последовательность реплик, на выход один текст ответа.
type Completer interface {
	Complete(ctx context.Context, turns []conversation.Turn) (string, error)
}

// StatusError — неуспешный HTTP-ответ сервиса.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion service error: status=%d, body=%s", e.StatusCode, e.Body)
}

// ErrorDetails извлекает код и тело ответа из ошибки сервиса, если они есть.
func ErrorDetails(err error) (status int, body string, ok bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, se.Body, true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, apiErr.RawJSON(), true
	}
	return 0, "", false
}
