package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, "token", cfg.DiscordToken)
	require.Equal(t, "localhost:6379", cfg.RedisAddr)
	require.Equal(t, 0, cfg.RedisDB)
	require.Equal(t, "tabletop.db", cfg.SQLitePath)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	require.Equal(t, 24*time.Hour, cfg.CleanupMaxAge)
	require.Equal(t, uint64(3), cfg.ConflictRetries)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env:")
}

func TestLoadDotenvFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("REDIS_DB", "")
	os.Unsetenv("REDIS_DB")
	t.Setenv("CLEANUP_MAX_AGE", "")
	os.Unsetenv("CLEANUP_MAX_AGE")

	file := filepath.Join(t.TempDir(), ".env")
	contents := "DISCORD_TOKEN=from-file\nREDIS_DB=4\nCLEANUP_MAX_AGE=2h\n"
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	// already-set variables are not overridden
	require.Equal(t, "from-env", cfg.DiscordToken)
	require.Equal(t, 4, cfg.RedisDB)
	require.Equal(t, 2*time.Hour, cfg.CleanupMaxAge)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("CLEANUP_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
}
