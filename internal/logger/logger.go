// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the rotated file sink.
type Config struct {
	LogFile    string
	MaxSize    int  // мегабайты
	MaxAge     int  // дни
	MaxBackups int  // количество файлов
	Compress   bool // сжимать ротированные файлы
	Debug      bool
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "logs/datatrade.log",
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

func (cfg *Config) level() zapcore.Level {
	if cfg.Debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (cfg *Config) rotator() (*lumberjack.Logger, error) {
	if cfg.LogFile == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

func jsonEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// New builds the CLI logger: pretty console output plus a rotated JSON file.
func New(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rotator, err := cfg.rotator()
	if err != nil {
		return nil, err
	}

	console := zapcore.NewCore(PrettyEncoder(), zapcore.AddSync(zapcore.Lock(os.Stdout)), cfg.level())
	file := zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), cfg.level())

	core := zapcore.NewTee(&FieldFilterCore{core: console, keepFields: cfg.Debug}, file)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// CreateFileLogger writes JSON entries to the rotated file only.
func CreateFileLogger(cfg *Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rotator, err := cfg.rotator()
	if err != nil {
		return nil, err
	}
	return zap.New(zapcore.NewCore(jsonEncoder(), zapcore.AddSync(rotator), cfg.level())), nil
}

// CreateTUILogger is a file logger; console output would corrupt the TUI.
func CreateTUILogger(cfg *Config) (*zap.Logger, error) {
	l, err := CreateFileLogger(cfg)
	if err != nil {
		return nil, err
	}
	return l.Named("tui"), nil
}

// WithOperation tags a logger with an operation name and a fresh correlation id.
func WithOperation(l *zap.Logger, operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
	)
}

// TrackPerformance logs how long an operation took when the returned func runs.
func TrackPerformance(l *zap.Logger, operation string) (end func()) {
	start := time.Now()
	return func() {
		l.Debug("Operation completed",
			zap.String("operation", operation),
			zap.Duration("duration", time.Since(start)))
	}
}

// Sync flushes the logger, ignoring the errors stdout/stderr return on some terminals.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && (err.Error() == "sync /dev/stdout: invalid argument" ||
		err.Error() == "sync /dev/stderr: inappropriate ioctl for device") {
		return nil
	}
	return err
}
