package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, DefaultPolicies(), cfg.Policies())
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.Revalidate.Shards)
	assert.Equal(t, 64, cfg.Revalidate.QueueSize)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("NOTES_BASE_URL", "https://notes.example.com")
	t.Setenv("NOTES_LIST_STALE_TIME", "30s")
	t.Setenv("NOTES_STRICT_SESSION_PROBE", "true")
	t.Setenv("NOTES_REVALIDATE_SHARDS", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://notes.example.com", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Policies().List.StaleTime)
	assert.True(t, cfg.StrictSessionProbe)
	assert.Equal(t, 2, cfg.Revalidate.Shards)

	c, err := NewFromConfig(cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, c.strictProbe)
	assert.Equal(t, 2, c.revalidate.Shards)
	assert.Equal(t, "https://notes.example.com", c.BaseURL())
}

func TestLoadConfig_RejectsBadDuration(t *testing.T) {
	t.Setenv("NOTES_REQUEST_TIMEOUT", "soon")
	_, err := LoadConfig()
	assert.Error(t, err)
}
