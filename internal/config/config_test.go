package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECEIPTSPLIT_ENV", "dev")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	contents := "RECEIPTSPLIT_ENV=prod\nRECEIPTSPLIT_PORT=9090\nRECEIPTSPLIT_JWT_SECRET=s3cret\nRECEIPTSPLIT_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(contents), 0600))
	t.Cleanup(func() {
		for _, k := range []string{"RECEIPTSPLIT_ENV", "RECEIPTSPLIT_PORT", "RECEIPTSPLIT_JWT_SECRET", "RECEIPTSPLIT_LOG_LEVEL"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadRequiresSecretOutsideDev(t *testing.T) {
	t.Setenv("RECEIPTSPLIT_ENV", "prod")
	t.Setenv("RECEIPTSPLIT_JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
