// Package logging builds the zap logger used by the container and the
// application.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-inject/framework/config"
)

// New creates a logger appropriate for the environment.
// Production uses JSON output, everything else the development console
// encoder. cfg.Log overrides the level and the format.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.App.Env {
	case "production":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "logging: level %q", cfg.Log.Level)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	switch cfg.Log.Format {
	case "":
	case "json", "console":
		zc.Encoding = cfg.Log.Format
	default:
		return nil, errors.Errorf("logging: unknown format %q", cfg.Log.Format)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "logging: build")
	}
	return logger.Named(cfg.App.Name), nil
}
