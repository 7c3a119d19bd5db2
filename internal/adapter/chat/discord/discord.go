package discord

import (
	"RelayBot/internal/app/relay"
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxMessageLen — лимит длины сообщения Discord.
const maxMessageLen = 2000

// Handler обрабатывает входящее сообщение и возвращает текст ответа.
type Handler interface {
	Handle(ctx context.Context, in relay.Inbound) string
}

// sender — часть discordgo.Session, нужная для ответа.
type sender interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type listener struct {
	handler Handler
	out     sender
	logger  *zap.SugaredLogger
	wg      sync.WaitGroup
}

// Run подключается к шлюзу Discord и отвечает на сообщения в каналах гильдий.
// Завершается по отмене ctx после того, как ответят все начатые обработчики.
func Run(ctx context.Context, logger *zap.SugaredLogger, token string, h Handler) error {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bot ")
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	// Ошибки клиента только логируем
	discordgo.Logger = func(msgL, _ int, format string, a ...any) {
		if msgL <= discordgo.LogError {
			logger.Errorw("discord client", "message", fmt.Sprintf(format, a...))
			return
		}
		logger.Debugw("discord client", "message", fmt.Sprintf(format, a...))
	}

	l := &listener{handler: h, out: dg, logger: logger}
	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Infow("Logged in", "as", r.User.String())
	})
	dg.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		logger.Warnw("Discord gateway disconnected")
	})
	dg.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		l.onMessage(ctx, m.Message)
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	<-ctx.Done()
	if err := dg.Close(); err != nil {
		logger.Warnw("discord close error", "error", err)
	}
	l.wg.Wait()
	return nil
}

func (l *listener) onMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if ctx.Err() != nil {
		return
	}
	l.wg.Add(1)
	defer l.wg.Done()

	if err := l.out.ChannelTyping(m.ChannelID); err != nil {
		l.logger.Warnw("discord typing error", "channel", m.ChannelID, "error", err)
	}
	reply := l.handler.Handle(ctx, relay.Inbound{
		UserID:   m.Author.ID,
		UserName: m.Author.Username,
		Text:     m.Content,
	})
	if _, err := l.out.ChannelMessageSendReply(m.ChannelID, truncate(reply, maxMessageLen), m.Reference()); err != nil {
		l.logger.Errorw("discord reply error", "channel", m.ChannelID, "error", err)
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
