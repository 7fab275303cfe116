package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/azstore/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "core.windows.net", cfg.Client.CloudSuffix)
	assert.Equal(t, "2018-03-28", cfg.Client.APIVersion)
	assert.Equal(t, 30, cfg.Client.Timeout)
	assert.False(t, cfg.Client.Insecure)
	assert.Equal(t, 10000, cfg.Emulator.BlobPort)
	assert.Equal(t, 10001, cfg.Emulator.QueuePort)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
client:
  cloud_suffix: core.chinacloudapi.cn
  api_version: "2017-07-29"
  timeout: 60
  insecure: true
emulator:
  blob_port: 11000
  queue_port: 11001
keys:
  inline:
    - account: prodstore
      key: cHJvZA==
log:
  level: debug
`
	err := os.WriteFile(configPath, []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, "core.chinacloudapi.cn", cfg.Client.CloudSuffix)
	assert.Equal(t, "2017-07-29", cfg.Client.APIVersion)
	assert.Equal(t, 60, cfg.Client.Timeout)
	assert.True(t, cfg.Client.Insecure)
	assert.Equal(t, 11000, cfg.Emulator.BlobPort)
	assert.Equal(t, 11001, cfg.Emulator.QueuePort)
	require.Len(t, cfg.Keys.Inline, 1)
	assert.Equal(t, "prodstore", cfg.Keys.Inline[0].Account)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MergesFiles(t *testing.T) {
	tmpDir := t.TempDir()

	base := filepath.Join(tmpDir, "base.yaml")
	require.NoError(t, os.WriteFile(base, []byte("log:\n  level: warn\nclient:\n  timeout: 10\n"), 0o644))

	override := filepath.Join(tmpDir, "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte("log:\n  level: error\n"), 0o644))

	cfg, err := config.Load([]string{base, override}, nil)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Client.Timeout, "non-overridden file values persist")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AZSTORE_LOG_LEVEL", "error")
	t.Setenv("AZSTORE_CLIENT_TIMEOUT", "5")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Client.Timeout)
}

func TestLoad_FlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Int("blob-port", 10000, "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug", "--blob-port=12000"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 12000, cfg.Emulator.BlobPort)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "warn", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level, "unset flags keep the default")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("AZSTORE_LOG_LEVEL", "verbose")

	_, err := config.Load(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestConfigContext(t *testing.T) {
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	ctx := config.WithContext(t.Context(), cfg)
	got, err := config.FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	_, err = config.FromContext(t.Context())
	assert.Error(t, err)
}
