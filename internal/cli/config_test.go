package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cardaudit/internal/model"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	// Empty values count as unset
	for _, name := range []string{"STAGE_A_MODEL", "STAGE_B_MODEL", "STAGE_A_PROMPT_VERSION", "STAGE_B_PROMPT_VERSION"} {
		t.Setenv(name, "")
	}
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
	})
}

func testCommand(t *testing.T, noCache bool) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().Bool("no-cache", false, "")
	if noCache {
		require.NoError(t, cmd.Flags().Set("no-cache", "true"))
	}
	return cmd
}

func TestLoadConfig_Layering(t *testing.T) {
	resetConfig(t)

	cfgFile = filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
stage_a:
  model: gemini/from-file
stage_b:
  model: openai/gpt-4o
chunking:
  max_tokens: 800
retry:
  min_wait: 2s
`), 0644))

	t.Setenv("STAGE_A_MODEL", "ollama/llama3")
	t.Setenv("CARDAUDIT_CACHE_BACKEND", "sqlite")
	initConfig()

	cfg, err := loadConfig(testCommand(t, true))
	require.NoError(t, err)

	defaults := model.DefaultConfig()
	assert.Equal(t, "ollama/llama3", cfg.StageA.Model, "environment beats config file")
	assert.Equal(t, defaults.StageA.PromptVersion, cfg.StageA.PromptVersion)
	assert.Equal(t, "openai/gpt-4o", cfg.StageB.Model)
	assert.Equal(t, 800, cfg.Chunking.MaxTokens)
	assert.Equal(t, defaults.Chunking.OverlapTokens, cfg.Chunking.OverlapTokens)
	assert.Equal(t, 2*time.Second, cfg.Retry.MinWait)
	assert.Equal(t, defaults.Retry.MaxWait, cfg.Retry.MaxWait)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.False(t, cfg.Cache.Enabled, "--no-cache disables the cache")
	assert.Equal(t, defaults.Frameworks, cfg.Frameworks)
	assert.Equal(t, defaults.RateLimiting.RequestsPerSecond, cfg.RateLimiting.RequestsPerSecond)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetConfig(t)

	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	initConfig()

	cfg, err := loadConfig(testCommand(t, false))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestLoadRubric_FiltersFrameworks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: CoP-1
  framework: EU Code of Practice
  description: Document the model.
- id: STREAM-1
  framework: STREAM
  description: Describe evaluations.
`), 0644))

	cfg := model.DefaultConfig()
	cfg.Paths.Rubric = path
	cfg.Frameworks = []string{model.FrameworkSTREAM}

	rub, err := loadRubric(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"STREAM-1"}, rub.IDs())

	cfg.Paths.Rubric = filepath.Join(t.TempDir(), "missing.json")
	_, err = loadRubric(cfg)
	assert.Error(t, err)
}

func TestCacheLabel(t *testing.T) {
	assert.Equal(t, "disabled", cacheLabel(false, "redis"))
	assert.Equal(t, "layered", cacheLabel(true, ""))
	assert.Equal(t, "redis", cacheLabel(true, "redis"))
}
