// Package bootstrap wires the catalog, validator and notification sinks
// from configuration. It is shared by the server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/catalog/sqlstore"
	"github.com/matthewbaird/condexpr/internal/config"
	"github.com/matthewbaird/condexpr/internal/notify"
	"github.com/matthewbaird/condexpr/internal/validate"
)

// ErrNoCatalog is returned when neither a catalog file nor a database is
// configured.
var ErrNoCatalog = errors.New("no catalog configured: set catalog.file or database.dsn")

// Backend holds the catalog and the optional validator.
type Backend struct {
	Catalog   catalog.Adapter
	Validator validate.Validator // nil without a database
	store     *sqlstore.Store
}

// Open builds the backend. With a database the catalog lives in its
// catalog tables, the catalog file (if any) is imported into them, and
// expressions are validated by trial counts. Without one the catalog file
// is served from memory and nothing validates.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var reg *catalog.Registry
	if cfg.Catalog.File != "" {
		var err error
		reg, err = catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		logger.Info("catalog loaded", "file", cfg.Catalog.File, "entities", len(reg.EntityNames()))
	}

	if cfg.Database.DSN == "" {
		if reg == nil {
			return nil, ErrNoCatalog
		}
		return &Backend{Catalog: reg}, nil
	}

	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		if err := store.Import(ctx, reg); err != nil {
			store.Close()
			return nil, fmt.Errorf("importing catalog: %w", err)
		}
	}

	opts := []validate.Option{validate.WithLogger(logger)}
	for entity, table := range cfg.Validator.Tables {
		opts = append(opts, validate.WithTable(entity, table))
	}
	return &Backend{
		Catalog:   store,
		Validator: validate.NewSQLValidator(store.DB(), store.Dialect(), store, opts...),
		store:     store,
	}, nil
}

// Close releases the database, if any.
func (b *Backend) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// Notifications returns a started bus with the log consumer and, when
// nats.url is set, a NATS publisher. The returned stop function drains
// the bus and closes the NATS connection.
func Notifications(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*notify.Bus, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	bus := notify.New(256, logger)
	bus.Subscribe("log", notify.NewLogConsumer(logger))

	var pub *notify.NATSPublisher
	if cfg.NATS.URL != "" {
		var err error
		pub, err = notify.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, nil, err
		}
		bus.Subscribe("nats", pub)
		logger.Info("publishing expression changes", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	bus.Start(ctx)
	return bus, func() {
		bus.Stop()
		if pub != nil {
			if err := pub.Flush(); err != nil {
				logger.Warn("flushing NATS", "error", err)
			}
			pub.Close()
		}
	}, nil
}
