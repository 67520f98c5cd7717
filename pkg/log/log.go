// Package log holds the process-wide zap logger.
package log

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GlobalConfig is the logger configuration read from the service config.
type GlobalConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

var (
	_mu     sync.RWMutex
	_logger = zap.NewNop()
)

// InitLogger replaces the global logger according to cfg.
func InitLogger(cfg GlobalConfig) error {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
	}
	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch cfg.Format {
	case "", "json":
	case "console":
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return errors.Errorf("invalid log format %q", cfg.Format)
	}
	logger, err := zc.Build()
	if err != nil {
		return errors.Wrap(err, "failed to build logger")
	}
	SetLogger(logger)
	return nil
}

// SetLogger swaps the global logger.
func SetLogger(l *zap.Logger) {
	_mu.Lock()
	defer _mu.Unlock()
	_logger = l
}

// L returns the global logger.
func L() *zap.Logger {
	_mu.RLock()
	defer _mu.RUnlock()
	return _logger
}

// Logger returns a named child of the global logger.
func Logger(name string) *zap.Logger {
	return L().Named(name)
}
