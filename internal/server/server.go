// Package server assembles the HTTP and WebSocket handlers and starts the
// server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/editor"
	"github.com/matthewbaird/condexpr/internal/notify"
	"github.com/matthewbaird/condexpr/internal/options"
	"github.com/matthewbaird/condexpr/internal/session"
	"github.com/matthewbaird/condexpr/internal/validate"
	"github.com/matthewbaird/condexpr/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port      int
	Catalog   catalog.Adapter
	Validator validate.Validator // optional
	Sessions  *session.Manager
	// ValidateOnChange makes editor sessions validate after every edit.
	ValidateOnChange bool
	Logger           *slog.Logger
}

// NewEditorFactory returns a session editor factory whose change
// notifications are published on bus. bus may be nil.
func NewEditorFactory(cat catalog.Adapter, v validate.Validator, bus *notify.Bus, logger *slog.Logger) session.EditorFactory {
	return func(sessionID string) *editor.Editor {
		cfg := editor.Config{
			Catalog:   cat,
			Validator: v,
			Logger:    logger,
		}
		if bus != nil {
			cfg.OnChange = func(c editor.Change) {
				bus.Publish(notify.FromChange(sessionID, c))
			}
		}
		return editor.New(cfg)
	}
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger.With("component", "http")))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	api := &apiHandler{
		catalog:   cfg.Catalog,
		validator: cfg.Validator,
		options:   options.New(cfg.Catalog),
	}
	ws := wire.NewHandler(wire.Config{
		Sessions:         cfg.Sessions,
		Options:          api.options,
		ValidateOnChange: cfg.ValidateOnChange,
		Logger:           logger,
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/entities", api.listEntities)
		r.Get("/entities/{entity}/fields", api.listFields)
		r.Get("/entities/{entity}/fields/{field}/choices", api.listChoices)
		r.Get("/categories/{category}/operators", api.listOperators)
		r.Get("/date-literals", api.listDateLiterals)

		r.Post("/expressions/build", api.buildExpression)
		r.Post("/expressions/parse", api.parseExpression)
		r.Post("/expressions/validate", api.validateExpression)

		if cfg.Sessions != nil {
			r.Get("/editor/ws", ws.ServeHTTP)
		}
	})
	return r
}

// Run starts the HTTP server and shuts it down when ctx is done.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Sessions != nil {
		go cfg.Sessions.Run(ctx, time.Minute)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
