package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"TTT_JWT_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "memory", cfg.StorageType)
	assert.Equal(t, "tictactoe", cfg.JWTIssuer)
	assert.Equal(t, 24*time.Hour, cfg.JWTTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Addr())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"TTT_HOST":            "127.0.0.1",
		"TTT_PORT":            "9090",
		"TTT_STORAGE_TYPE":    "redis",
		"TTT_REDIS_URL":       "redis://cache:6379/1",
		"TTT_JWT_SECRET":      "s3cret",
		"TTT_JWT_TOKEN_TTL":   "1h",
		"TTT_LOG_LEVEL":       "debug",
		"TTT_ALLOWED_ORIGINS": "https://a.example,https://b.example",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.JWTTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			environ: map[string]string{},
			wantErr: "TTT_JWT_SECRET is required",
		},
		{
			name:    "unknown storage",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_STORAGE_TYPE": "postgres"},
			wantErr: "TTT_STORAGE_TYPE must be",
		},
		{
			name:    "redis without url",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_STORAGE_TYPE": "redis"},
			wantErr: "TTT_REDIS_URL required",
		},
		{
			name:    "sqlite without path",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_STORAGE_TYPE": "sqlite"},
			wantErr: "TTT_SQLITE_PATH required",
		},
		{
			name:    "bad port",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_PORT": "70000"},
			wantErr: "TTT_PORT must be",
		},
		{
			name:    "bad level",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_LOG_LEVEL": "loud"},
			wantErr: "TTT_LOG_LEVEL",
		},
		{
			name:    "unparseable duration",
			environ: map[string]string{"TTT_JWT_SECRET": "x", "TTT_SHUTDOWN_TIMEOUT": "soon"},
			wantErr: "parse env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
