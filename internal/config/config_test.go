package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://example.enjin.test
  email: archivist@example.com
  password: hunter2
harvest:
  preset_ids: ["10001"]
store:
  provider: memory
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 90, cfg.Remote.TimeoutSeconds)
	require.Equal(t, 90*time.Second, cfg.Remote.RequestTimeout())
	require.True(t, cfg.Harvest.DoImages)
	require.False(t, cfg.Harvest.KeepGoing)
	require.Equal(t, []string{"10001"}, cfg.Harvest.PresetIDs)
}

func TestLoadRequiresCredentialsWithoutSession(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://example.enjin.test
store:
  provider: memory
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "remote.email")
}

func TestLoadSessionIDSkipsCredentials(t *testing.T) {
	path := writeConfig(t, `
remote:
  base_url: https://example.enjin.test
  session_id: abc123
store:
  provider: noop
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Remote.SessionID)
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	cfg := Config{
		Remote: RemoteConfig{BaseURL: "https://x", SessionID: "s", TimeoutSeconds: 10},
		Store:  StoreConfig{Provider: "postgres"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "store.dsn")
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := Config{
		Remote: RemoteConfig{BaseURL: "https://x", SessionID: "s", TimeoutSeconds: 10},
		Store:  StoreConfig{Provider: "tape"},
	}
	require.Error(t, cfg.Validate())
}
