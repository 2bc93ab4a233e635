package main

import (
	"bytes"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subjectivity_datagen/generator"
	"subjectivity_datagen/publisher"
)

func baseConfig() publisher.Config {
	return publisher.Config{
		LLM: &publisher.LLMConfig{Provider: "gemini"},
		Generation: publisher.GenerationConfig{
			Languages:  []string{"ar", "bg"},
			Mode:       "enhanced",
			MinSamples: 250,
			MaxRetries: 5,
			BaseDelay:  4 * time.Second,
		},
		Output: publisher.OutputConfig{Path: "data/{lang}_generated.tsv"},
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := baseConfig()
	applyFlags(&cfg, " EN, bg ,", 30, "out/{lang}.csv", "random", 9, true)

	assert.Equal(t, []string{"en", "bg"}, cfg.Generation.Languages)
	assert.Equal(t, 30, cfg.Generation.MinSamples)
	assert.Equal(t, "random", cfg.Generation.Mode)
	assert.Equal(t, uint64(9), cfg.Generation.Seed)
	assert.True(t, cfg.Output.Report)
	assert.True(t, cfg.Output.HTML)
	assert.NoError(t, cfg.Validate())
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	cfg := baseConfig()
	applyFlags(&cfg, "", 0, "", "", 0, false)
	assert.Equal(t, baseConfig(), cfg)
}

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(baseConfig(), true)
	require.NoError(t, err)
	assert.IsType(t, generator.MockLLM{}, llm)

	t.Setenv("api_key_gemini", "")
	_, err = buildLLM(baseConfig(), false)
	assert.ErrorContains(t, err, "api_key_gemini")

	cfg := baseConfig()
	cfg.LLM.APIKey = "k"
	llm, err = buildLLM(cfg, false)
	require.NoError(t, err)
	assert.Equal(t, generator.DefaultModel, llm.(*generator.OpenAILLM).Model)

	cfg.LLM.Provider = "deepseek"
	_, err = buildLLM(cfg, false)
	assert.ErrorContains(t, err, "base_url")

	cfg.LLM.Provider = "claude"
	_, err = buildLLM(cfg, false)
	assert.ErrorContains(t, err, "not supported")

	_, err = buildLLM(publisher.Config{}, false)
	assert.Error(t, err)
}

func TestRandomSourcesSeeded(t *testing.T) {
	r1, ids1 := randomSources(42)
	r2, ids2 := randomSources(42)
	assert.Equal(t, r1.Uint64(), r2.Uint64())

	b1 := make([]byte, 16)
	b2 := make([]byte, 16)
	_, err := io.ReadFull(ids1, b1)
	require.NoError(t, err)
	_, err = io.ReadFull(ids2, b2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	_, ids := randomSources(0)
	assert.Nil(t, ids)
}

func TestBuildLimiter(t *testing.T) {
	assert.Nil(t, buildLimiter(nil))
	assert.Nil(t, buildLimiter(&publisher.LLMConfig{}))
	lim := buildLimiter(&publisher.LLMConfig{RequestsPerMinute: 120})
	require.NotNil(t, lim)
	assert.InDelta(t, 2.0, float64(lim.Limit()), 1e-9)
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(levelFilter{w: &buf}, "", 0)
	logger.Printf("[INFO] generated %d sentences", 3)
	logger.Printf("[WARN] failed to generate content for ar/OBJ")
	logger.Printf("[ERROR] failed after 5 attempts")
	assert.Equal(t, "[WARN] failed to generate content for ar/OBJ\n[ERROR] failed after 5 attempts\n", buf.String())

	buf.Reset()
	logger = log.New(levelFilter{w: &buf, verbose: true}, "", 0)
	logger.Printf("[INFO] generated %d sentences", 3)
	assert.Equal(t, "[INFO] generated 3 sentences\n", buf.String())
}
