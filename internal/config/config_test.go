// internal/config/config_test.go
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
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.ConnectDelayDuration())
	assert.Equal(t, time.Second, cfg.StageDelayDuration())
	assert.Equal(t, 2*time.Second, cfg.GraceDelayDuration())
	assert.Equal(t, 2*time.Second, cfg.SettleDelayDuration())
	assert.Equal(t, DefaultWalletAddress, cfg.WalletAddress)
	assert.Equal(t, "2.45", cfg.Balance().String())
	assert.Equal(t, "0.5", cfg.SlippagePercent().String())
	assert.EqualValues(t, DefaultMaxFileSize, cfg.MaxFileSize)
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRetries, cfg.Retries)
	assert.EqualValues(t, DefaultRetries+1, cfg.MaxTries())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
connect_delay: 10
stage_delay: 20
grace_delay: 30
settle_delay: 40
retries: 5
wallet_address: ""
slippage: "1.0"
debug_logging: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.ConnectDelayDuration())
	assert.Equal(t, 20*time.Millisecond, cfg.StageDelayDuration())
	assert.Equal(t, 30*time.Millisecond, cfg.GraceDelayDuration())
	assert.Equal(t, 40*time.Millisecond, cfg.SettleDelayDuration())
	assert.Equal(t, 5, cfg.Retries)
	assert.EqualValues(t, 6, cfg.MaxTries())
	assert.Empty(t, cfg.WalletAddress)
	assert.True(t, cfg.DebugLogging)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DATATRADE_STAGE_DELAY", "5")
	t.Setenv("DATATRADE_WALLET_BALANCE", "10.5")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.StageDelay)
	assert.Equal(t, "10.5", cfg.Balance().String())
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative delay", "stage_delay: -1\n"},
		{"zero timeout", "settle_timeout: 0\n"},
		{"negative retries", "retries: -2\n"},
		{"bad balance", "wallet_balance: lots\n"},
		{"slippage too high", "slippage: \"150\"\n"},
		{"watch without path", "watch_catalog: true\n"},
		{"zero max file size", "max_file_size: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
