package app

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/routing"
)

// ── ConfigModule ──────────────────────────────────────────────────────────────

// ConfigModule binds the loaded configuration and hands every provided
// value in cfg.Provided to the container as a marker.
//
// Bound types:
//   - *config.Config
//   - *config.AppConfig
type ConfigModule struct {
	container.BaseModule
	Config *config.Config
}

func (m *ConfigModule) Register(c *container.Container) error {
	if err := container.Bind(c, m.Config); err != nil {
		return err
	}
	if err := container.Bind(c, &m.Config.App); err != nil {
		return err
	}
	for name, value := range m.Config.Provided {
		if err := c.ProvideExternal(name, value); err != nil {
			return err
		}
	}
	return nil
}

// ── LoggingModule ─────────────────────────────────────────────────────────────

// LoggingModule binds the application logger.
//
// Bound types:
//   - *zap.Logger
//   - *zap.SugaredLogger
type LoggingModule struct {
	container.BaseModule
	Logger *zap.Logger
}

func (m *LoggingModule) Register(c *container.Container) error {
	if err := container.Bind(c, m.Logger); err != nil {
		return err
	}
	return container.Supply[*zap.SugaredLogger](c, func() *zap.SugaredLogger {
		return m.Logger.Sugar()
	})
}

// ── RoutingModule ─────────────────────────────────────────────────────────────

// RoutingModule registers the HTTP router as a provider so it is built
// lazily, once, with the application logger.
//
// Bound types:
//   - *routing.Router
type RoutingModule struct {
	container.BaseModule
}

func (m *RoutingModule) Register(c *container.Container) error {
	return container.Supply[*routing.Router](c, func() (*routing.Router, error) {
		log, err := container.Resolve[*zap.Logger](c)
		if err != nil {
			return nil, err
		}
		return routing.New(log), nil
	})
}

// Boot logs the mounted routes once every module is registered.
func (m *RoutingModule) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	routes, err := router.Routes()
	if err != nil {
		return err
	}
	c.Logger().Debug("routes ready", zap.Strings("routes", routes))
	return nil
}
