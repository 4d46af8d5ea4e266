package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Load_Applies_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("DATABASE_DSN", "host=localhost user=parley dbname=parley")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(":8080", cfg.ListenAddr)
	req.Equal(24*time.Hour, cfg.TokenTTL)
	req.Equal(64, cfg.SessionBuffer)
	req.Equal(10, cfg.RateLimit)
	req.Equal(slog.LevelInfo, cfg.LogLevel)
}

func Test_Load_Reads_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("DATABASE_DSN", "host=localhost user=parley dbname=parley")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(":9090", cfg.ListenAddr)
	req.Equal(time.Hour, cfg.TokenTTL)
	req.Equal(slog.LevelDebug, cfg.LogLevel)
}

func Test_Load_Requires_Secrets(t *testing.T) {
	// t.Setenv registers the restore; the variables must be absent, not
	// merely empty, for the required check to fire.
	for _, key := range []string{"DATABASE_DSN", "JWT_SECRET"} {
		t.Setenv(key, "placeholder")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	require.Error(t, err)
}
