// Package logging configures the process-wide zap logger.
package logging

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at level. Format "console" selects the development
// encoder, anything else the production JSON encoder.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, eris.Wrap(err, "logging: parse log level")
	}
	cfg.Level.SetLevel(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "logging: build logger")
	}
	return logger, nil
}

// Init builds a logger and installs it as the zap global.
func Init(level, format string) (*zap.Logger, error) {
	logger, err := New(level, format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
