package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/localnet/log"
)

const defaultLoggingLevel = zapcore.InfoLevel

// LoggerConfig holds the logging settings of the harness.
type LoggerConfig struct {
	Encoder string `mapstructure:"log-encoder"`
	Level   string `mapstructure:"log-level"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder: log.ConsoleEncoder,
		Level:   defaultLoggingLevel.String(),
	}
}
