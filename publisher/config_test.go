package publisher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "enhanced", cfg.Generation.Mode)
	assert.Equal(t, 250, cfg.Generation.MinSamples)
	assert.Equal(t, 5, cfg.Generation.MaxRetries)
	assert.Equal(t, 4*time.Second, cfg.Generation.BaseDelay)
	assert.Equal(t, []string{"ar", "bg"}, cfg.Generation.Languages)
	require.NotNil(t, cfg.LLM)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "data/ar_generated.tsv", cfg.Output.PathFor("ar"))
	assert.Empty(t, cfg.Output.MergePath("ar"))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "sk-test"},
		"generation": {"languages": ["en"], "mode": "promptset", "min_samples": 40, "base_delay": "2s"},
		"output": {"path": "out/{lang}.csv", "merge_with": "orig/train_en.tsv"}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.ResolveAPIKey())
	assert.Equal(t, []string{"en"}, cfg.Generation.Languages)
	assert.Equal(t, "promptset", cfg.Generation.Mode)
	assert.Equal(t, 40, cfg.Generation.MinSamples)
	assert.Equal(t, 2*time.Second, cfg.Generation.BaseDelay)
	assert.Equal(t, 4, cfg.Generation.GroupSize)
	assert.Equal(t, "out/en.csv", cfg.Output.PathFor("en"))
	assert.Equal(t, filepath.Join("out", "combined_data_en.tsv"), cfg.Output.MergePath("en"))

	cfg.Output.MergeOutput = "merged/{lang}_all.csv"
	assert.Equal(t, "merged/bg_all.csv", cfg.Output.MergePath("bg"))
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DATAGEN_GENERATION_MIN_SAMPLES", "12")
	t.Setenv("DATAGEN_LLM_MODEL", "gemini-2.0-flash")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Generation.MinSamples)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation": {"mode": "turbo"}}`), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "turbo")

	require.NoError(t, os.WriteFile(path, []byte(`{"output": {"path": "out/data.txt"}}`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "delimiter")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadRetrySettings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bare number delay", body: `{"generation": {"base_delay": 4}}`, want: "base_delay"},
		{name: "zero delay", body: `{"generation": {"base_delay": "0s"}}`, want: "base_delay"},
		{name: "too many retries", body: `{"generation": {"max_retries": 40}}`, want: "max_retries"},
		{name: "no retries", body: `{"generation": {"max_retries": 0}}`, want: "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"generation": {"base_delay": "500ms", "max_retries": 30}}`), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Generation.BaseDelay)
}

func TestResolveAPIKeyFromEnv(t *testing.T) {
	t.Setenv("api_key_gemini", "from-env")
	t.Setenv("CUSTOM_KEY", "custom")

	cfg := Config{LLM: &LLMConfig{}}
	assert.Equal(t, "from-env", cfg.ResolveAPIKey())

	cfg.LLM.APIKeyEnv = "CUSTOM_KEY"
	assert.Equal(t, "custom", cfg.ResolveAPIKey())

	assert.Empty(t, Config{}.ResolveAPIKey())
}
