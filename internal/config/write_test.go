// internal/config/write_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arrq", "config.toml")

	require.NoError(t, WriteDefault(path, false))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[server]")
	assert.Contains(t, string(content), "[queue]")
	assert.Contains(t, string(content), "[downloaders.sabnzbd]")
	assert.Contains(t, string(content), "${SABNZBD_API_KEY}")
}

func TestWriteDefault_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.toml")

	require.NoError(t, WriteDefault(path, false))

	_, err := os.Stat(path)
	assert.NoError(t, err, "file was not created")
}

func TestWriteDefault_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o644))

	err := WriteDefault(path, false)
	require.Error(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine\n", string(content))

	require.NoError(t, WriteDefault(path, true))
	content, _ = os.ReadFile(path)
	assert.Contains(t, string(content), "[server]")
}

func TestConfig_Write(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 9000},
		Downloaders: DownloadersConfig{
			"sab": {Type: "sabnzbd", URL: "http://localhost:8080", APIKey: "key"},
		},
	}

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.Write(path))

	loaded, err := LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", loaded.Server.Host)
	assert.Equal(t, 9000, loaded.Server.Port)
	assert.Equal(t, "key", loaded.Downloaders["sab"].APIKey)
}
