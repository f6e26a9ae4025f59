package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rovshanmuradov/datatrade/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config with every simulated delay removed.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
connect_delay: 0
stage_delay: 0
grace_delay: 0
settle_delay: 0
log_file: `+filepath.Join(dir, "datatrade.log")+`
`), 0600))
	return configFile
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile := writeConfig(t)

	slippageFlag = ""
	t.Cleanup(func() { slippageFlag = "" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := Execute(context.Background(), append([]string{"--config", configFile}, args...))
	return out.String(), err
}

func TestTokensCmd(t *testing.T) {
	out, err := execute(t, "tokens")
	require.NoError(t, err)
	assert.Contains(t, out, "SYMBOL")
	assert.Contains(t, out, "DATA1")
	assert.Contains(t, out, "$2340.50")
}

func TestQuoteCmd(t *testing.T) {
	out, err := execute(t, "quote", "ETH", "DATA1", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 ETH -> 51.625631 DATA1")
	assert.Contains(t, out, "1 ETH = 51.780973 DATA1")
	assert.Contains(t, out, "Fee:      0.3%")

	_, err = execute(t, "quote", "ETH", "DATA1", "lots")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = execute(t, "quote", "ETH", "ETH", "1")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestTokenizeCmd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "traffic.csv")
	require.NoError(t, os.WriteFile(file, bytes.Repeat([]byte("x"), 1500), 0600))

	out, err := execute(t, "tokenize", file)
	require.NoError(t, err)
	assert.Contains(t, out, "traffic.csv (1.5 kB)")
	assert.Contains(t, out, "[ 25%] Uploading data to Irys...")
	assert.Contains(t, out, "[100%]")
	assert.Regexp(t, `Asset: irys_\d+_[0-9a-z]{9}`, out)
}

func TestSwapCmd(t *testing.T) {
	out, err := execute(t, "swap", "DATA3", "ETH", "10", "--slippage", "1%")
	require.NoError(t, err)
	assert.Contains(t, out, "10 DATA3 -> 0.664525 ETH")
	assert.Regexp(t, `Tx:\s+trade_\d+_[0-9a-z]{9}`, out)

	_, err = execute(t, "swap", "DATA3", "ETH", "10", "--slippage", "150")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestTUICommandLogsToFileOnly(t *testing.T) {
	configPath = writeConfig(t)
	verbose = true
	t.Cleanup(func() {
		configPath = ""
		verbose = false
	})

	require.NoError(t, rootCmd.PersistentPreRunE(tuiCmd, nil))
	log.Info("dashboard check")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"tui"`)
	assert.Contains(t, string(data), "dashboard check")
}
