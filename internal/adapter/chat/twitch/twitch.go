package twitch

import (
	"RelayBot/internal/app/relay"
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// maxMessageLen — лимит длины сообщения в чате Twitch.
const maxMessageLen = 500

// Config хранит параметры подключения к Twitch IRC.
type Config struct {
	Username    string
	OAuth       string // может быть с/без префикса oauth:
	Channel     string // без #, регистр не важен
	IgnoreUsers []string
}

// Handler обрабатывает входящее сообщение и возвращает текст ответа.
type Handler interface {
	Handle(ctx context.Context, in relay.Inbound) string
}

type replier interface {
	Reply(channel, parentMsgID, text string)
}

type listener struct {
	self    string
	ignore  map[string]struct{}
	handler Handler
	out     replier
	logger  *zap.SugaredLogger
	wg      sync.WaitGroup
}

// Run подключается к каналу и отвечает на сообщения зрителей через handler.
// Базовые реконнекты обеспечиваются клиентом; функция завершается по отмене ctx
// после того, как ответят все начатые обработчики.
func Run(ctx context.Context, logger *zap.SugaredLogger, cfg Config, h Handler) error {
	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	token := strings.TrimSpace(cfg.OAuth)
	channel := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(username, token)
	l := newListener(username, cfg.IgnoreUsers, h, client, logger)

	client.OnConnect(func() {
		logger.Infow("Twitch connected", "as", username, "join", channel)
		client.Join(channel)
	})
	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		l.onMessage(ctx, msg)
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	var err error
	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
	case err = <-errCh:
		if err != nil {
			logger.Errorw("twitch connect error", "error", err)
		}
	}
	l.wg.Wait()
	return err
}

func newListener(self string, ignore []string, h Handler, out replier, logger *zap.SugaredLogger) *listener {
	set := make(map[string]struct{}, len(ignore))
	for _, u := range ignore {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			set[u] = struct{}{}
		}
	}
	return &listener{self: strings.ToLower(self), ignore: set, handler: h, out: out, logger: logger}
}

// isBot — у Twitch нет признака бота, поэтому отсекаем себя и известные аккаунты ботов.
func (l *listener) isBot(login string) bool {
	login = strings.ToLower(login)
	if login == l.self {
		return true
	}
	_, ok := l.ignore[login]
	return ok
}

func (l *listener) onMessage(ctx context.Context, msg twitchirc.PrivateMessage) {
	if l.isBot(msg.User.Name) {
		return
	}
	if ctx.Err() != nil {
		return
	}
	userID := msg.User.ID
	if userID == "" {
		userID = strings.ToLower(msg.User.Name)
	}
	in := relay.Inbound{UserID: userID, UserName: msg.User.Name, Text: msg.Message}

	// Клиент читает сообщения в одной горутине, ответ сервиса ждём отдельно
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		reply := l.handler.Handle(ctx, in)
		l.out.Reply(msg.Channel, msg.ID, truncate(reply, maxMessageLen))
	}()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
