package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "a!", cfg.CommandPrefix)
	assert.Equal(t, 2333, cfg.LavalinkPort)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, time.Second, cfg.MoveSettle)
	assert.Equal(t, "pause", cfg.DefaultMovePolicy)
	assert.Equal(t, "datastore.json", cfg.StoragePath)
	assert.False(t, cfg.SpotifyEnabled())
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load(missingEnvFile(t))
	assert.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COMMAND_PREFIX=!\nSPOTIFY_CLIENT_ID=id\nSPOTIFY_CLIENT_SECRET=secret\nIDLE_TIMEOUT=30s\n"), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"COMMAND_PREFIX", "SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "IDLE_TIMEOUT"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DiscordToken)
	assert.Equal(t, "!", cfg.CommandPrefix)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.True(t, cfg.SpotifyEnabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	for key, value := range map[string]string{
		"DEFAULT_MOVE_POLICY": "resume",
		"LOG_FORMAT":          "xml",
		"IDLE_TIMEOUT":        "0s",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
