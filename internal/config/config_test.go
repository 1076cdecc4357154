package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, c.Port)
	assert.Equal(t, 50, c.DefaultMaxPoints)
	assert.Equal(t, 10, c.MaxInsights)
	assert.Equal(t, uint64(42), c.SampleSeed)
	assert.Equal(t, "uniform", c.SampleMode)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
	assert.InDelta(t, 0.6, c.CorrelationThreshold, 1e-12)
	assert.Equal(t, "openrouter", c.DefaultProvider)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\nmax_insights: 4\nsample_mode: head\n"), 0o600))
	t.Setenv("VIZLOOM_MAX_INSIGHTS", "7")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, 7, c.MaxInsights)
	assert.Equal(t, "head", c.SampleMode)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, c.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_mode: random\n"), 0o600))
	_, err := Load(path)
	assert.ErrorContains(t, err, "sample_mode")

	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("port", "8123"))
	require.NoError(t, c.Set("cors_origins", "http://a.test, http://b.test"))
	require.NoError(t, c.Set("default_provider", "Anthropic"))
	require.NoError(t, Save(c, path))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, again.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, again.CORSOrigins)
	assert.Equal(t, "anthropic", again.DefaultProvider)
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	tests := []struct {
		key, val string
		wantErr  bool
	}{
		{"max_insights", "0", true},
		{"max_insights", "3", false},
		{"default_max_points", "abc", true},
		{"max_points_limit", "0", true},
		{"max_points_limit", "500", false},
		{"outlier_sigma", "-1", true},
		{"outlier_sigma", "2.5", false},
		{"sample_seed", "7", false},
		{"sample_seed", "-7", true},
		{"sample_mode", "HEAD", false},
		{"log_format", "xml", true},
		{"default_provider", "local", false},
		{"default_provider", "cohere", true},
		{"nope", "1", true},
	}
	for _, tt := range tests {
		err := c.Set(tt.key, tt.val)
		if tt.wantErr {
			assert.Error(t, err, "%s=%s", tt.key, tt.val)
		} else {
			assert.NoError(t, err, "%s=%s", tt.key, tt.val)
		}
	}
	assert.Equal(t, 3, c.MaxInsights)
	assert.Equal(t, "head", c.SampleMode)
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, uint64(7), c.SampleSeed)
}

func TestKeysCoverSet(t *testing.T) {
	c := &Global{}
	for _, k := range Keys() {
		err := c.Set(k, "1")
		if err != nil {
			assert.NotContains(t, err.Error(), "unknown key", k)
		}
	}
}

func TestValidateMaxPointsLimit(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, c.MaxPointsLimit)

	c.MaxPointsLimit = c.DefaultMaxPoints - 1
	assert.ErrorContains(t, c.Validate(), "max_points_limit")
}
