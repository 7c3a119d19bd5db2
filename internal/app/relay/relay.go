package relay

import (
	"RelayBot/internal/ai"
	"RelayBot/internal/service/conversation"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Inbound — входящее сообщение от платформы чата.
type Inbound struct {
	UserID   string // стабильный идентификатор отправителя
	UserName string // только для логов
	Text     string
}

// Options — параметры обработки сообщений.
type Options struct {
	FallbackReply    string
	SerializePerUser bool
	Timeout          time.Duration // 0 — без таймаута
}

// Relay связывает окна диалогов и сервис генерации: принимает сообщение,
// отправляет окно в сервис и возвращает текст для ответа пользователю.
type Relay struct {
	store     *conversation.Store
	completer ai.Completer
	opts      Options
	logger    *zap.SugaredLogger
}

func New(store *conversation.Store, completer ai.Completer, opts Options, logger *zap.SugaredLogger) *Relay {
	return &Relay{store: store, completer: completer, opts: opts, logger: logger}
}

// Handle обрабатывает одно входящее сообщение и всегда возвращает текст для ответа.
// При ошибке сервиса реплика пользователя остаётся в окне, ответ ассистента не добавляется,
// а пользователь получает фиксированный текст FallbackReply.
func (r *Relay) Handle(ctx context.Context, in Inbound) string {
	reqID := uuid.NewString()
	var w *conversation.Window
	if r.opts.SerializePerUser {
		var release func()
		w, release = r.store.Acquire(in.UserID)
		defer release()
	} else {
		w = r.store.GetOrCreate(in.UserID)
	}

	w.AppendUser(in.Text)
	turns := w.Snapshot()

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.opts.Timeout, errors.New("completion timeout"))
		defer cancel()
	}

	start := time.Now()
	r.logger.Debugw("Completion request", "req", reqID, "user", in.UserName, "userID", in.UserID, "turns", len(turns))
	reply, err := r.completer.Complete(ctx, turns)
	dur := time.Since(start)
	if err != nil {
		if status, body, ok := ai.ErrorDetails(err); ok {
			r.logger.Errorw("Completion service error", "req", reqID, "userID", in.UserID, "duration", dur.String(), "status", status, "data", body)
		} else {
			r.logger.Errorw("Completion service error", "req", reqID, "userID", in.UserID, "duration", dur.String(), "error", err)
		}
		return r.opts.FallbackReply
	}
	r.logger.Infow("Completion received", "req", reqID, "userID", in.UserID, "duration", dur.String())

	w.AppendAssistant(reply)
	return reply
}

// Close освобождает окна диалогов при остановке процесса.
func (r *Relay) Close() {
	n := r.store.Len()
	r.store.Reset()
	r.logger.Infow("Conversations released", "count", n)
}
