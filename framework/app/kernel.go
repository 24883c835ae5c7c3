package app

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
	"github.com/km-arc/go-inject/framework/handlers"
	"github.com/km-arc/go-inject/framework/logging"
	"github.com/km-arc/go-inject/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container so user code can call app.Constructor(),
// app.Instance() and friends directly, and exposes the stock handler set
// for bindings, markers and contextual rules.
type Application struct {
	*container.Container
	Modules  *container.Modules
	Handlers *handlers.Set

	cfg *config.Config
	log *zap.Logger
}

// New creates the application for cfg and registers the core modules.
func New(cfg *config.Config) (*Application, error) {
	log, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithLogger(cfg, log)
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, log *zap.Logger) (*Application, error) {
	set := handlers.NewSet(cfg.Inject.AllowedPackage)
	c, err := container.New(
		container.WithHandlers(set.Handlers()...),
		container.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Container: c,
		Modules:   container.NewModules(c),
		Handlers:  set,
		cfg:       cfg,
		log:       log,
	}

	for _, m := range []container.Module{
		&ConfigModule{Config: cfg},
		&LoggingModule{Logger: log},
		&RoutingModule{},
	} {
		if err := a.Modules.Register(m); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a Module to the application.
func (a *Application) Register(m container.Module) error {
	return a.Modules.Register(m)
}

// Boot runs the Boot phase on all modules.
func (a *Application) Boot() error {
	return a.Modules.Boot()
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Router resolves the *routing.Router.
func (a *Application) Router() (*routing.Router, error) {
	return container.Resolve[*routing.Router](a.Container)
}

// Mount resolves each controller type as a singleton and registers its
// routes.
//
//	app.Mount(container.TypeOf[*GreetingController]())
func (a *Application) Mount(types ...reflect.Type) error {
	router, err := a.Router()
	if err != nil {
		return err
	}
	for _, t := range types {
		v, err := a.GetSingleton(t)
		if err != nil {
			return err
		}
		ctl, ok := v.(routing.Controller)
		if !ok {
			return errors.Errorf("app: %s does not implement routing.Controller", t)
		}
		router.Mount(ctl)
		a.log.Debug("controller mounted", zap.Stringer("type", t))
	}
	return nil
}

// Handler boots the application (if needed) and returns the router.
func (a *Application) Handler() (http.Handler, error) {
	if !a.Modules.Booted() {
		if err := a.Boot(); err != nil {
			return nil, err
		}
	}
	return a.Router()
}

// Run serves HTTP on cfg.App.Port until ctx is cancelled, then shuts the
// server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	h, err := a.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("listening",
			zap.String("app", a.cfg.App.Name),
			zap.String("addr", srv.Addr),
			zap.String("env", a.cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }
