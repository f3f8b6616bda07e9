package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsProduceRunnableConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "anthropic", cfg.LLM.Type)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, "chromem", cfg.Vector.Type)
	assert.Equal(t, 2000, cfg.Cache.ChunkSize)
	assert.Equal(t, cfg.Cache.ChunkSize/5, cfg.Cache.ChunkOverlap)
	assert.Equal(t, 30, cfg.Agent.MaxRounds)
	assert.Positive(t, cfg.Agent.ContextLimit)
}

func TestLoadExpandsEnvironmentReferences(t *testing.T) {
	t.Setenv("SIFT_TEST_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "sift.yaml")
	content := `
llm:
  type: openai
  model: gpt-4o
  api_key: ${SIFT_TEST_KEY}
cache:
  chunk_size: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Type)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, 500, cfg.Cache.ChunkSize)
	assert.Equal(t, 100, cfg.Cache.ChunkOverlap)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Type = "mystery"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""
	assert.Error(t, cfg.Validate())
}

func TestQdrantDefaults(t *testing.T) {
	cfg := &VectorConfig{Type: "qdrant"}
	cfg.SetDefaults()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6334, cfg.Port)
}
