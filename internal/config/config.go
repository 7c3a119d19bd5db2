package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Платформы чата
const (
	PlatformDiscord = "discord"
	PlatformTwitch  = "twitch"
)

// Транспорты сервиса генерации
const (
	BackendSDK    = "sdk"
	BackendHTTP   = "http"
	BackendGemini = "gemini"
	BackendStub   = "stub"
)

// ErrMissingCredentials — не задан ключ сервиса генерации или логин платформы.
var ErrMissingCredentials = errors.New("missing required credentials")

type Config struct {
	DebugMode bool   `env:"DEBUG_MODE"` // Режим дебага (development-логгер)
	Port      int    `env:"PORT"`       // Порт health-сервера
	Platform  string `env:"PLATFORM"`   // discord|twitch

	// Discord
	DiscordToken string `env:"DISCORD_TOKEN"` // Токен бота Discord

	// Twitch
	TwitchUsername    string   `env:"TWITCH_USERNAME"`                        // Логин бота Twitch
	TwitchOAuthToken  string   `env:"TWITCH_OAUTH_TOKEN"`                     // OAuth токен (может быть без префикса oauth:)
	TwitchChannel     string   `env:"TWITCH_CHANNEL"`                         // Канал Twitch, без #
	TwitchIgnoreUsers []string `env:"TWITCH_IGNORE_USERS" envSeparator:";"` // Известные боты канала, их сообщения игнорируются

	// Сервис генерации
	Completion CompletionConfig

	// Окно диалога
	SystemPrompt     string `env:"SYSTEM_PROMPT"`      // Системная реплика, закреплённая в начале окна
	MaxHistory       int    `env:"MAX_HISTORY"`        // Максимум несистемных реплик в окне
	MaxConversations int    `env:"MAX_CONVERSATIONS"`  // Максимум окон в памяти, 0 — без ограничения
	SerializePerUser bool   `env:"SERIALIZE_PER_USER"` // Не более одного запроса к сервису на пользователя одновременно
	FallbackReply    string `env:"FALLBACK_REPLY"`     // Ответ пользователю при ошибке сервиса
}

// CompletionConfig — параметры сервиса генерации ответов.
type CompletionConfig struct {
	Backend      string        `env:"COMPLETION_BACKEND"`  // sdk|http|gemini|stub
	APIKey       string        `env:"DEEPSEEK_API_KEY"`    // Ключ OpenAI-совместимого API
	BaseURL      string        `env:"COMPLETION_BASE_URL"` // Базовый URL OpenAI-совместимого API
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`      // Ключ Gemini API (только для gemini)
	GeminiModel  string        `env:"GEMINI_MODEL"`        // Модель Gemini
	Model        string        `env:"COMPLETION_MODEL"`    // Идентификатор модели
	Temperature  float64       `env:"COMPLETION_TEMPERATURE"`
	MaxTokens    int           `env:"COMPLETION_MAX_TOKENS"`
	Timeout      time.Duration `env:"COMPLETION_TIMEOUT"` // 0 — ждать сколько потребуется
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode: false,
		Port:      3000,
		Platform:  PlatformDiscord,
		Completion: CompletionConfig{
			Backend:     BackendSDK,
			BaseURL:     "https://api.deepseek.com/v1",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   150,
			GeminiModel: "gemini-2.0-flash",
		},
		SystemPrompt:  "You are a friendly and helpful AI assistant. Be concise but engaging in your responses.",
		MaxHistory:    10,
		FallbackReply: "I ran into an error trying to reply. Please try again later.",
	}
}

// NewConfig загружает конфигурацию приложения: .env, окружение, флаги командной строки.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()
	return Parse(envMap(os.Environ()), os.Args[1:])
}

// Parse собирает конфигурацию из переданного окружения и аргументов.
func Parse(environ map[string]string, args []string) (*Config, error) {
	// Стартуем с дефолтов, затем перекрываем окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("relaybot", flag.ContinueOnError)
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "порт health-сервера")
	fs.StringVar(&cfg.Platform, "platform", cfg.Platform, "платформа чата: discord|twitch")
	fs.StringVar(&cfg.DiscordToken, "discord-token", cfg.DiscordToken, "токен бота Discord")
	fs.StringVar(&cfg.TwitchUsername, "twitch-username", cfg.TwitchUsername, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.TwitchOAuthToken, "twitch-oauth-token", cfg.TwitchOAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.TwitchChannel, "twitch-channel", cfg.TwitchChannel, "канал Twitch (без #)")
	// Список ботов одной строкой, разделённой ';'
	ignoreFlag := strings.Join(cfg.TwitchIgnoreUsers, ";")
	fs.StringVar(&ignoreFlag, "twitch-ignore-users", ignoreFlag, "боты канала Twitch, разделённые ';'")
	fs.StringVar(&cfg.Completion.Backend, "completion-backend", cfg.Completion.Backend, "транспорт сервиса генерации: sdk|http|gemini|stub")
	fs.StringVar(&cfg.Completion.BaseURL, "completion-base-url", cfg.Completion.BaseURL, "базовый URL OpenAI-совместимого API")
	fs.StringVar(&cfg.Completion.Model, "completion-model", cfg.Completion.Model, "идентификатор модели")
	fs.StringVar(&cfg.Completion.GeminiModel, "gemini-model", cfg.Completion.GeminiModel, "модель Gemini (для gemini)")
	fs.Float64Var(&cfg.Completion.Temperature, "completion-temperature", cfg.Completion.Temperature, "температура сэмплирования")
	fs.IntVar(&cfg.Completion.MaxTokens, "completion-max-tokens", cfg.Completion.MaxTokens, "максимум токенов ответа")
	fs.DurationVar(&cfg.Completion.Timeout, "completion-timeout", cfg.Completion.Timeout, "таймаут запроса к сервису, 0 — без таймаута")
	fs.StringVar(&cfg.SystemPrompt, "system-prompt", cfg.SystemPrompt, "системная реплика диалога")
	fs.IntVar(&cfg.MaxHistory, "max-history", cfg.MaxHistory, "максимум несистемных реплик в окне диалога")
	fs.IntVar(&cfg.MaxConversations, "max-conversations", cfg.MaxConversations, "максимум окон диалогов в памяти, 0 — без ограничения")
	fs.BoolVar(&cfg.SerializePerUser, "serialize-per-user", cfg.SerializePerUser, "не более одного запроса к сервису на пользователя")
	fs.StringVar(&cfg.FallbackReply, "fallback-reply", cfg.FallbackReply, "ответ пользователю при ошибке сервиса")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.TwitchIgnoreUsers = parseListFlag(ignoreFlag)
	cfg.Platform = strings.ToLower(strings.TrimSpace(cfg.Platform))
	cfg.Completion.Backend = strings.ToLower(strings.TrimSpace(cfg.Completion.Backend))
	if cfg.MaxHistory < 0 {
		cfg.MaxHistory = 0
	}
	return cfg, nil
}

// Validate проверяет обязательные учётные данные. Ошибка здесь фатальна для процесса.
func (c *Config) Validate() error {
	var missing []string
	switch c.Completion.Backend {
	case BackendSDK, BackendHTTP:
		if strings.TrimSpace(c.Completion.APIKey) == "" {
			missing = append(missing, "DEEPSEEK_API_KEY")
		}
	case BackendGemini:
		if strings.TrimSpace(c.Completion.GeminiAPIKey) == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	case BackendStub:
	default:
		return fmt.Errorf("unknown completion backend %q", c.Completion.Backend)
	}

	switch c.Platform {
	case PlatformDiscord:
		if strings.TrimSpace(c.DiscordToken) == "" {
			missing = append(missing, "DISCORD_TOKEN")
		}
	case PlatformTwitch:
		if strings.TrimSpace(c.TwitchUsername) == "" {
			missing = append(missing, "TWITCH_USERNAME")
		}
		if strings.TrimSpace(c.TwitchOAuthToken) == "" {
			missing = append(missing, "TWITCH_OAUTH_TOKEN")
		}
		if strings.TrimSpace(c.TwitchChannel) == "" {
			missing = append(missing, "TWITCH_CHANNEL")
		}
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned
}

func envMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
