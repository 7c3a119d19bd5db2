package main

import (
	"RelayBot/internal/adapter/chat/discord"
	"RelayBot/internal/adapter/chat/twitch"
	"RelayBot/internal/ai"
	"RelayBot/internal/app/relay"
	"RelayBot/internal/config"
	"RelayBot/internal/service/conversation"
	"RelayBot/internal/service/health"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	var logger *zap.Logger
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	// Без ключей работать нечем: выходим до приёма трафика
	if err := cfg.Validate(); err != nil {
		sugar.Errorw("Invalid configuration", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("Stopped with error", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := conversation.NewStore(cfg.SystemPrompt, cfg.MaxHistory, cfg.MaxConversations)
	if err != nil {
		return fmt.Errorf("conversation store: %w", err)
	}
	completer, err := ai.New(ctx, cfg.Completion)
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}
	rl := relay.New(store, completer, relay.Options{
		FallbackReply:    cfg.FallbackReply,
		SerializePerUser: cfg.SerializePerUser,
		Timeout:          cfg.Completion.Timeout,
	}, logger)
	defer rl.Close()

	logger.Infow("Starting relay",
		"platform", cfg.Platform,
		"backend", cfg.Completion.Backend,
		"maxHistory", cfg.MaxHistory,
		"serializePerUser", cfg.SerializePerUser,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return health.NewServer(":"+strconv.Itoa(cfg.Port), logger).Run(gctx)
	})
	g.Go(func() error {
		switch cfg.Platform {
		case config.PlatformTwitch:
			return twitch.Run(gctx, logger, twitch.Config{
				Username:    cfg.TwitchUsername,
				OAuth:       cfg.TwitchOAuthToken,
				Channel:     cfg.TwitchChannel,
				IgnoreUsers: cfg.TwitchIgnoreUsers,
			}, rl)
		default:
			return discord.Run(gctx, logger, cfg.DiscordToken, rl)
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Infow("Relay stopped")
	return nil
}
