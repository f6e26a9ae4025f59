// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	ConnectDelay     int    `mapstructure:"connect_delay"`
	StageDelay       int    `mapstructure:"stage_delay"`
	GraceDelay       int    `mapstructure:"grace_delay"`
	SettleDelay      int    `mapstructure:"settle_delay"`
	HandshakeTimeout int    `mapstructure:"handshake_timeout"`
	StageTimeout     int    `mapstructure:"stage_timeout"`
	SettleTimeout    int    `mapstructure:"settle_timeout"`
	Retries          int    `mapstructure:"retries"`
	MaxFileSize      int64  `mapstructure:"max_file_size"`
	WalletAddress    string `mapstructure:"wallet_address"`
	WalletBalance    string `mapstructure:"wallet_balance"`
	CatalogPath      string `mapstructure:"catalog_path"`
	WatchCatalog     bool   `mapstructure:"watch_catalog"`
	Slippage         string `mapstructure:"slippage"`
	DebugLogging     bool   `mapstructure:"debug_logging"`
	LogFile          string `mapstructure:"log_file"`
}

const (
	DefaultConnectDelay     = 1500
	DefaultStageDelay       = 1000
	DefaultGraceDelay       = 2000
	DefaultSettleDelay      = 2000
	DefaultHandshakeTimeout = 30000
	DefaultStageTimeout     = 30000
	DefaultSettleTimeout    = 60000
	DefaultRetries          = 3
	DefaultMaxFileSize      = 100 << 20
	DefaultWalletAddress    = "0x742d35Cc6634C0532925a3b8D12C73AA9A7E5"
	DefaultWalletBalance    = "2.45"
	DefaultSlippage         = "0.5"
	DefaultLogFile          = "logs/datatrade.log"
)

const envPrefix = "DATATRADE"

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"connect_delay":     DefaultConnectDelay,
		"stage_delay":       DefaultStageDelay,
		"grace_delay":       DefaultGraceDelay,
		"settle_delay":      DefaultSettleDelay,
		"handshake_timeout": DefaultHandshakeTimeout,
		"stage_timeout":     DefaultStageTimeout,
		"settle_timeout":    DefaultSettleTimeout,
		"retries":           DefaultRetries,
		"max_file_size":     DefaultMaxFileSize,
		"wallet_address":    DefaultWalletAddress,
		"wallet_balance":    DefaultWalletBalance,
		"slippage":          DefaultSlippage,
		"log_file":          DefaultLogFile,
		"catalog_path":      "",
		"watch_catalog":     false,
		"debug_logging":     false,
	}
}

// LoadConfig reads the config file at path. An empty path or a missing file
// falls back to defaults plus environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		// built-in defaults are always valid; only a broken environment gets here
		panic(err)
	}
	return cfg
}

func validateConfig(cfg *Config) error {
	if err := validateDelays(cfg); err != nil {
		return err
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.MaxFileSize <= 0 {
		return errors.New("invalid max_file_size")
	}
	if cfg.WalletBalance != "" {
		if _, err := decimal.NewFromString(cfg.WalletBalance); err != nil {
			return fmt.Errorf("invalid wallet_balance: %w", err)
		}
	}
	slippage, err := decimal.NewFromString(cfg.Slippage)
	if err != nil {
		return fmt.Errorf("invalid slippage: %w", err)
	}
	if slippage.IsNegative() || slippage.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("slippage must be between 0 and 100")
	}
	if cfg.WatchCatalog && cfg.CatalogPath == "" {
		return errors.New("watch_catalog requires catalog_path")
	}
	return nil
}

func validateDelays(cfg *Config) error {
	delays := []struct {
		name  string
		value int
	}{
		{"connect_delay", cfg.ConnectDelay},
		{"stage_delay", cfg.StageDelay},
		{"grace_delay", cfg.GraceDelay},
		{"settle_delay", cfg.SettleDelay},
	}
	for _, d := range delays {
		if d.value < 0 {
			return fmt.Errorf("invalid %s", d.name)
		}
	}

	timeouts := []struct {
		name  string
		value int
	}{
		{"handshake_timeout", cfg.HandshakeTimeout},
		{"stage_timeout", cfg.StageTimeout},
		{"settle_timeout", cfg.SettleTimeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("invalid %s", t.name)
		}
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) ConnectDelayDuration() time.Duration     { return ms(c.ConnectDelay) }
func (c *Config) StageDelayDuration() time.Duration       { return ms(c.StageDelay) }
func (c *Config) GraceDelayDuration() time.Duration       { return ms(c.GraceDelay) }
func (c *Config) SettleDelayDuration() time.Duration      { return ms(c.SettleDelay) }
func (c *Config) HandshakeTimeoutDuration() time.Duration { return ms(c.HandshakeTimeout) }
func (c *Config) StageTimeoutDuration() time.Duration     { return ms(c.StageTimeout) }
func (c *Config) SettleTimeoutDuration() time.Duration    { return ms(c.SettleTimeout) }

// Balance returns the configured simulated wallet balance.
func (c *Config) Balance() decimal.Decimal {
	b, err := decimal.NewFromString(c.WalletBalance)
	if err != nil {
		return decimal.Zero
	}
	return b
}

// MaxTries is the number of attempts a retried step gets: the first one plus Retries.
func (c *Config) MaxTries() uint { return uint(c.Retries) + 1 }

// SlippagePercent returns the default slippage tolerance in percent.
func (c *Config) SlippagePercent() decimal.Decimal {
	return decimal.RequireFromString(c.Slippage)
}
