package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewbaird/condexpr/internal/bootstrap"
	"github.com/matthewbaird/condexpr/internal/config"
	"github.com/matthewbaird/condexpr/internal/server"
	"github.com/matthewbaird/condexpr/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("opening catalog: %v", err)
	}
	defer backend.Close()
	if backend.Validator == nil {
		logger.Warn("no database configured, expression validation disabled")
	}

	bus, stopBus, err := bootstrap.Notifications(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("starting notifications: %v", err)
	}
	defer stopBus()

	sessions := session.NewManager(
		cfg.Session.MaxAge,
		cfg.Session.IdleTimeout,
		server.NewEditorFactory(backend.Catalog, backend.Validator, bus, logger),
	)

	if err := server.Run(ctx, server.Config{
		Port:             cfg.Server.Port,
		Catalog:          backend.Catalog,
		Validator:        backend.Validator,
		Sessions:         sessions,
		ValidateOnChange: cfg.Editor.ValidateOnChange,
		Logger:           logger,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
