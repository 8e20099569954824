package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(ws, "skills"), cfg.SkillsDir)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(ws, ".skillrouter", "history.db"), cfg.History.Path)
	assert.Equal(t, 2*time.Minute, cfg.Execution.ParsedTimeout())
	assert.Equal(t, []string{"main", "master"}, cfg.Safety.ProtectedBranches)
	assert.False(t, cfg.Logging.DebugMode)
}

func TestLoadFile(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".skillrouter")
	require.NoError(t, os.MkdirAll(dir, 0755))

	doc := `
skills_dir: /opt/skills
history:
  enabled: false
execution:
  timeout: 30s
safety:
  protected_branches: [trunk]
logging:
  debug_mode: true
  categories:
    matcher: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "/opt/skills", cfg.SkillsDir)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Execution.ParsedTimeout())
	assert.Equal(t, []string{"trunk"}, cfg.Safety.ProtectedBranches)
	assert.True(t, cfg.Logging.DebugMode)
	assert.True(t, cfg.Logging.Categories["matcher"])

	// Unset fields keep their defaults.
	assert.Equal(t, filepath.Join(ws, ".skillrouter", "learning.json"), cfg.Learning.Path)
}

func TestLoadMalformed(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".skillrouter")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("skills_dir: [unclosed"), 0644))

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestLoadEmptyProtectedBranches(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".skillrouter")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("safety:\n  protected_branches: []\n"), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "master"}, cfg.Safety.ProtectedBranches)
}

func TestParsedTimeoutFallback(t *testing.T) {
	assert.Zero(t, ExecutionConfig{Timeout: "soon"}.ParsedTimeout())
	assert.Zero(t, ExecutionConfig{}.ParsedTimeout())
}
