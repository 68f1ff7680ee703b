package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "")
	t.Setenv("CHAIN_TRANSCRIPT", "")
	t.Setenv("PLAYBACK_STRATEGY", "")
	t.Setenv("CACHE_TYPE", "")
	t.Setenv("ARTIFACT_STORE", "")

	cfg := FromEnv()
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout)
	assert.True(t, cfg.ChainTranscript)
	assert.Equal(t, "speedup", cfg.PlaybackStrategy)
	assert.Equal(t, 2.5, cfg.PlaybackMaxRate)
	assert.Equal(t, "local", cfg.Cache.Type)
	assert.Equal(t, 4, cfg.DubConcurrency)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "sql", cfg.ArtifactStore)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GENERATION_TIMEOUT", "2m")
	t.Setenv("CHAIN_TRANSCRIPT", "false")
	t.Setenv("PLAYBACK_STRATEGY", "pause")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("DUB_CONCURRENCY", "8")

	cfg := FromEnv()
	assert.Equal(t, 2*time.Minute, cfg.GenerationTimeout)
	assert.False(t, cfg.ChainTranscript)
	assert.Equal(t, "pause", cfg.PlaybackStrategy)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, 8, cfg.DubConcurrency)
}
