package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(map[string]string{}, nil)
	require.NoError(t, err)

	assert.Equal(t, PlatformDiscord, cfg.Platform)
	assert.Equal(t, BackendSDK, cfg.Completion.Backend)
	assert.Equal(t, "deepseek-chat", cfg.Completion.Model)
	assert.Equal(t, 0.7, cfg.Completion.Temperature)
	assert.Equal(t, 150, cfg.Completion.MaxTokens)
	assert.Equal(t, 10, cfg.MaxHistory)
	assert.Equal(t, 3000, cfg.Port)
	assert.False(t, cfg.SerializePerUser)
	assert.NotEmpty(t, cfg.SystemPrompt)
	assert.NotEmpty(t, cfg.FallbackReply)
}

func TestParseEnvAndFlags(t *testing.T) {
	environ := map[string]string{
		"DEEPSEEK_API_KEY":    "sk-test",
		"DISCORD_TOKEN":       "discord-token",
		"PLATFORM":            "Twitch",
		"MAX_HISTORY":         "4",
		"COMPLETION_TIMEOUT":  "30s",
		"TWITCH_IGNORE_USERS": "nightbot; streamelements ;",
	}
	cfg, err := Parse(environ, []string{"-max-history", "6", "-completion-backend", "HTTP"})
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
	assert.Equal(t, "discord-token", cfg.DiscordToken)
	assert.Equal(t, PlatformTwitch, cfg.Platform)
	assert.Equal(t, 6, cfg.MaxHistory, "flag overrides env")
	assert.Equal(t, BackendHTTP, cfg.Completion.Backend)
	assert.Equal(t, 30*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, []string{"nightbot", "streamelements"}, cfg.TwitchIgnoreUsers)
}

func TestParseRejectsBadEnv(t *testing.T) {
	_, err := Parse(map[string]string{"MAX_HISTORY": "ten"}, nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantErr error
		errText string
	}{
		{
			name:    "discord ok",
			environ: map[string]string{"DEEPSEEK_API_KEY": "k", "DISCORD_TOKEN": "t"},
		},
		{
			name:    "missing both",
			environ: map[string]string{},
			wantErr: ErrMissingCredentials,
			errText: "DEEPSEEK_API_KEY, DISCORD_TOKEN",
		},
		{
			name:    "missing discord token",
			environ: map[string]string{"DEEPSEEK_API_KEY": "k"},
			wantErr: ErrMissingCredentials,
			errText: "DISCORD_TOKEN",
		},
		{
			name: "twitch ok",
			environ: map[string]string{
				"DEEPSEEK_API_KEY": "k", "PLATFORM": "twitch",
				"TWITCH_USERNAME": "bot", "TWITCH_OAUTH_TOKEN": "oauth:x", "TWITCH_CHANNEL": "chan",
			},
		},
		{
			name:    "twitch missing channel",
			environ: map[string]string{"DEEPSEEK_API_KEY": "k", "PLATFORM": "twitch", "TWITCH_USERNAME": "bot", "TWITCH_OAUTH_TOKEN": "x"},
			wantErr: ErrMissingCredentials,
			errText: "TWITCH_CHANNEL",
		},
		{
			name:    "gemini needs its own key",
			environ: map[string]string{"COMPLETION_BACKEND": "gemini", "DISCORD_TOKEN": "t"},
			wantErr: ErrMissingCredentials,
			errText: "GEMINI_API_KEY",
		},
		{
			name:    "stub needs no key",
			environ: map[string]string{"COMPLETION_BACKEND": "stub", "DISCORD_TOKEN": "t"},
		},
		{
			name:    "unknown platform",
			environ: map[string]string{"DEEPSEEK_API_KEY": "k", "PLATFORM": "irc"},
			errText: "unknown platform",
		},
		{
			name:    "unknown backend",
			environ: map[string]string{"COMPLETION_BACKEND": "grpc", "DISCORD_TOKEN": "t"},
			errText: "unknown completion backend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.environ, nil)
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantErr == nil && tt.errText == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestEnvMap(t *testing.T) {
	m := envMap([]string{"A=1", "B=x=y", "BROKEN"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y"}, m)
}
