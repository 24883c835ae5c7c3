// Command injectdemo serves a small greeting API whose object graph is
// built entirely by the container.
//
//	GET /greet/            languages
//	GET /greet/{name}      greeting, ?lang=en|es
//	GET /singletons        types built so far
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-inject/framework/app"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/container"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config overlay")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintln(os.Stderr, "injectdemo:", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg := config.Load()
	if configFile != "" {
		if err := cfg.Overlay(configFile); err != nil {
			return err
		}
	}
	if cfg.Inject.AllowedPackage == "" {
		cfg.Inject.AllowedPackage = "main"
	}
	if _, ok := cfg.Provided["greeting_prefix"]; !ok {
		cfg.Provided["greeting_prefix"] = "Hello"
	}

	application, err := build(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = application.Logger().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}

func build(cfg *config.Config) (*app.Application, error) {
	application, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	application.Handlers.Bindings.Candidates(container.TypeOf[*systemClock]())

	if err := application.Register(&GreetingModule{}); err != nil {
		return nil, err
	}
	if err := application.Boot(); err != nil {
		return nil, err
	}
	if err := application.Mount(container.TypeOf[*GreetingController]()); err != nil {
		return nil, err
	}
	return application, nil
}
