package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigachat/internal/auth"
	"gigachat/internal/llmclient"
)

var configEnvVars = []string{
	"GIGACHAT_CREDENTIALS", "GIGACHAT_SCOPE", "GIGACHAT_AUTH_URL", "GIGACHAT_BASE_URL",
	"GIGACHAT_CA_BUNDLE", "GIGACHAT_MODEL", "GIGACHAT_EMBEDDING_MODEL",
	"HTTP_TIMEOUT", "HTTP_RESPONSE_HEADER_TIMEOUT",
	"LOG_FORMAT", "LOG_LEVEL", "METRICS_ENABLED", "METRICS_ADDR", "METRICS_ENDPOINT",
}

// isolate runs the test in an empty directory with no config variables set.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "GIGACHAT_API_PERS", cfg.GigaChat.Scope)
	assert.Equal(t, "https://ngw.devices.sberbank.ru:9443/api/v2/oauth", cfg.GigaChat.AuthURL)
	assert.Equal(t, "https://gigachat.devices.sberbank.ru/api/v1/", cfg.GigaChat.BaseURL)
	assert.Equal(t, auth.DefaultURL, cfg.GigaChat.AuthURL)
	assert.Equal(t, llmclient.DefaultBaseURL, cfg.GigaChat.BaseURL)
	assert.Equal(t, "GigaChat-2-Max", cfg.GigaChat.Model)
	assert.Equal(t, "EmbeddingsGigaR", cfg.GigaChat.EmbeddingModel)
	assert.Equal(t, 600, cfg.HTTP.Timeout)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
}

func TestLoad_YAMLWithPlaceholders(t *testing.T) {
	dir := isolate(t)
	t.Setenv("TEST_GIGACHAT_KEY", "from-env")

	path := filepath.Join(dir, "gigachat.yaml")
	writeFile(t, path, `
gigachat:
  credentials: "${TEST_GIGACHAT_KEY}"
  scope: "${TEST_GIGACHAT_SCOPE:-GIGACHAT_API_B2B}"
  model: GigaChat-2-Pro
http:
  timeout: 120
log:
  format: json
metrics:
  enabled: true
  address: "${TEST_METRICS_ADDR:-:9191}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GigaChat.Credentials)
	assert.Equal(t, "GIGACHAT_API_B2B", cfg.GigaChat.Scope)
	assert.Equal(t, "GigaChat-2-Pro", cfg.GigaChat.Model)
	assert.Equal(t, 120, cfg.HTTP.Timeout)
	assert.Equal(t, 600, cfg.HTTP.ResponseHeaderTimeout, "unset yaml keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9191", cfg.Metrics.Address)
}

func TestLoad_DefaultConfigFileIsPickedUp(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, DefaultConfigFile), "log:\n  level: debug\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "gigachat.yaml")
	writeFile(t, path, "gigachat:\n  scope: GIGACHAT_API_B2B\n")
	t.Setenv("GIGACHAT_SCOPE", "GIGACHAT_API_CORP")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "GIGACHAT_API_CORP", cfg.GigaChat.Scope)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv("GIGACHAT_CREDENTIALS")
	t.Cleanup(func() { os.Unsetenv("GIGACHAT_CREDENTIALS") })
	writeFile(t, filepath.Join(dir, ".env"), "GIGACHAT_CREDENTIALS=from-dotenv\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.GigaChat.Credentials)
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GIGACHAT_CREDENTIALS", "from-real-env")
	writeFile(t, filepath.Join(dir, ".env"), "GIGACHAT_CREDENTIALS=from-dotenv\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-real-env", cfg.GigaChat.Credentials)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "gigachat: [unclosed"},
		{"unknown scope", "gigachat:\n  scope: GIGACHAT_API_ENTERPRISE\n"},
		{"empty base url", "gigachat:\n  base_url: \"\"\n"},
		{"negative timeout", "http:\n  timeout: -1\n"},
		{"metrics without address", "metrics:\n  enabled: true\n  address: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := filepath.Join(dir, "bad.yaml")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestConfig_RootCAs(t *testing.T) {
	dir := isolate(t)
	cfg := buildDefaultConfig()

	pem, err := cfg.RootCAs()
	require.NoError(t, err)
	assert.Nil(t, pem)

	path := filepath.Join(dir, "ca.pem")
	writeFile(t, path, "-----BEGIN CERTIFICATE-----\n")
	cfg.GigaChat.CABundle = path
	pem, err = cfg.RootCAs()
	require.NoError(t, err)
	assert.Contains(t, string(pem), "BEGIN CERTIFICATE")

	cfg.GigaChat.CABundle = filepath.Join(dir, "missing.pem")
	_, err = cfg.RootCAs()
	assert.Error(t, err)
}
