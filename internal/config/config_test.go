package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.siliconflow.cn/v1", cfg.Agents.BaseURL)
	assert.Equal(t, 10, cfg.Backtest.EvalWindowDays)
	assert.Equal(t, 14, cfg.Backtest.MinAgeDays)
	assert.Equal(t, 3, cfg.Notification.MaxRetries)
	assert.Equal(t, "single", cfg.Notification.Mode)
	assert.Equal(t, 4, cfg.Run.Concurrency)
}

func TestLoadSortsProvidersByPriority(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: pytdx
    enabled: true
    priority: 2
    base_url: http://localhost:7709
  - name: akshare
    enabled: true
    priority: 1
    base_url: http://localhost:8080
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.DataSources, 2)
	assert.Equal(t, "akshare", cfg.DataSources[0].Name)
	assert.Equal(t, "pytdx", cfg.DataSources[1].Name)
}

func TestLoadStableOrderOnEqualPriority(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: pytdx
    enabled: true
    priority: 1
  - name: akshare
    enabled: true
    priority: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pytdx", cfg.DataSources[0].Name, "list order breaks priority ties")
}

func TestLoadFillsProviderFallbacks(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: akshare
    enabled: true
    priority: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.DataSources[0]
	assert.Equal(t, 10*time.Second, p.Timeout)
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 2*time.Second, p.RetryDelay)
}

func TestValidateRejectsDuplicateProviders(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: akshare
    enabled: true
  - name: akshare
    enabled: false
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadNotificationMode(t *testing.T) {
	path := writeConfig(t, `
notification:
  mode: broadcast
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadBacktestWindow(t *testing.T) {
	path := writeConfig(t, `
backtest:
  eval_window_days: 0
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnabledProvidersAndChannels(t *testing.T) {
	path := writeConfig(t, `
data_sources:
  - name: akshare
    enabled: true
    priority: 1
  - name: pytdx
    enabled: false
    priority: 2
notification:
  channels:
    wechat:
      enabled: true
      webhook_url: https://example.invalid/hook
    telegram:
      enabled: false
    feishu:
      enabled: true
      webhook_url: https://example.invalid/feishu
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	providers := cfg.EnabledProviders()
	require.Len(t, providers, 1)
	assert.Equal(t, "akshare", providers[0].Name)

	assert.Equal(t, []string{"feishu", "wechat"}, cfg.EnabledChannels())
}

func TestAgentWeightDefaults(t *testing.T) {
	path := writeConfig(t, `
agents:
  weights:
    technical: 0.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.AgentWeight("technical"))
	assert.Equal(t, 1.0, cfg.AgentWeight("unknown-role"))
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-from-env")
	cfg, err := Load(writeConfig(t, `
agents:
  api_key: sk-from-file
`))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Agents.APIKey)
}
