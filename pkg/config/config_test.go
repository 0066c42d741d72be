package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "farmhub", cfg.ServiceName)
	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 15, cfg.API.CommandTimeout)
	assert.Equal(t, 6379, cfg.Feed.Port)
	assert.Equal(t, "farmhub", cfg.Feed.Namespace)
	assert.Equal(t, "ws://localhost:5000/ws", cfg.Push.URL)
	assert.Equal(t, 5000, cfg.Toast.TTL)
	assert.Equal(t, 1000, cfg.Push.ReconnectDelay)
	assert.Equal(t, 30000, cfg.Push.ReconnectMaxDelay)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
service_name = "farmhub-test"
environment = "staging"

[api]
base_url = "http://api.internal:9000"
command_timeout = 5

[toast]
ttl = 3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "farmhub-test", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "http://api.internal:9000", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.CommandTimeout)
	assert.Equal(t, 3000, cfg.Toast.TTL)
	// 未覆盖的段保留默认值
	assert.Equal(t, 6379, cfg.Feed.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toast ttl", "[toast]\nttl = 0\n"},
		{"bad feed port", "[feed]\nport = 99999\n"},
		{"bad command timeout", "[api]\ncommand_timeout = -1\n"},
		{"max delay below initial", "[push]\nreconnect_delay = 5000\nreconnect_max_delay = 100\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
