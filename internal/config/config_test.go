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
	path := filepath.Join(t.TempDir(), "gtn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, "LR", cfg.Draw.RankDir)
	assert.GreaterOrEqual(t, cfg.Parallel.Workers, 1)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
parallel:
  enabled: true
  workers: 3
draw:
  rankdir: TB
symbols:
  tiktoken: cl100k_base
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "TB", cfg.Draw.RankDir)
	assert.Equal(t, 14, cfg.Draw.FontSize, "unset fields keep defaults")
	assert.Equal(t, "cl100k_base", cfg.Symbols.Tiktoken)

	batch := cfg.Batch()
	assert.True(t, batch.Enabled)
	assert.Equal(t, 3, batch.NumWorkers)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\nparallel:\n  workers: 2\n")
	t.Setenv("GTN_LOG_LEVEL", "error")
	t.Setenv("GTN_WORKERS", "5")
	t.Setenv("GTN_PARALLEL", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Parallel.Workers)
	assert.False(t, cfg.Parallel.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"zero workers", "parallel:\n  workers: 0\n"},
		{"bad rankdir", "draw:\n  rankdir: RL\n"},
		{"unknown encoding", "symbols:\n  tiktoken: gpt2_base\n"},
		{"not yaml", "log: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
