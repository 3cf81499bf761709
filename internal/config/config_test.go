package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfigPath, EnvAPIURL, EnvResultLimit, EnvQueryTimeout, EnvLogFile, EnvLogLevel, EnvListCacheTTL} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3, cfg.ResultLimit)
	assert.Equal(t, "http://localhost:8000", cfg.APIURL)
	assert.Zero(t, cfg.QueryTimeout)
}

func TestLoadYAMLThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	body := []byte("api_url: http://rag.internal:9000\nn_results: 5\nquery_timeout: 45s\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://rag.internal:9000", cfg.APIURL)
	assert.Equal(t, 5, cfg.ResultLimit)
	assert.Equal(t, 45*time.Second, cfg.QueryTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv(EnvResultLimit, "7")
	t.Setenv(EnvListCacheTTL, "2m")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.ResultLimit)
	assert.Equal(t, 2*time.Minute, cfg.ListCacheTTL)
	assert.Equal(t, "http://rag.internal:9000", cfg.APIURL)
}

func TestLoadReadsPathFromEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "docchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n_results: 9\n"), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.ResultLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero results", env: map[string]string{EnvResultLimit: "0"}},
		{name: "results not a number", env: map[string]string{EnvResultLimit: "three"}},
		{name: "bad url", env: map[string]string{EnvAPIURL: "not a url"}},
		{name: "bad timeout", env: map[string]string{EnvQueryTimeout: "soon"}},
		{name: "unknown level", env: map[string]string{EnvLogLevel: "verbose"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
