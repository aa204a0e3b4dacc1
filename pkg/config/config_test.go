package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Queue.FlushInterval())
	assert.Equal(t, 60*time.Second, cfg.Queue.DedupWindow())
	assert.True(t, cfg.Capture.Clipboard)
	assert.Equal(t, 3*time.Second, cfg.Capture.ClipboardInterval())
	assert.Equal(t, "127.0.0.1:8330", cfg.Service.Addr())
	assert.Equal(t, time.Hour, cfg.Lifecycle.SweepInterval())
}

func TestHomeRespectsEnvOverride(t *testing.T) {
	t.Setenv("VIGIL_HOME", "/tmp/custom-vigil")
	assert.Equal(t, "/tmp/custom-vigil", Home())
	assert.Equal(t, filepath.Join("/tmp/custom-vigil", "config.yaml"), Path(Home()))
}

func TestLoadFillsMissingFieldsFromDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
vault_path: /data/vault
queue:
  batch_size: 25
llm:
  model: gpt-4o-mini
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/vault", cfg.VaultPath)
	assert.Equal(t, 25, cfg.Queue.BatchSize)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5, cfg.Queue.FlushIntervalSec)
	assert.Equal(t, 8330, cfg.Service.Port)
}

func TestLoadExpandsAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("MY_SECRET", "sk-test-123")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: ${MY_SECRET}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.LLM.APIKey)
}

func TestLoadFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vault_path: /v\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.LLM.APIKey)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultOnMissingFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestInitWritesLoadableDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Init(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Queue, cfg.Queue)

	// Refuses to clobber an existing file.
	assert.Error(t, Init(path))
}
