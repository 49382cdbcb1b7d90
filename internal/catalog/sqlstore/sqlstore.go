// Package sqlstore implements catalog.Adapter backed by a SQL database.
//
// The schema is owned by embedded golang-migrate migrations and works on
// both SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/condexpr/internal/catalog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	fieldsTable  = "catalog_fields"
	choicesTable = "catalog_choices"
)

// Store reads field metadata from the catalog tables.
type Store struct {
	db      *sql.DB
	dialect string
}

var _ catalog.Adapter = (*Store)(nil)

// Open connects to the database, applies pending migrations and returns
// a store. driver is "sqlite" or "postgres".
func Open(driver, dsn string) (*Store, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(SQLDriver(d), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if d == dialect.SQLite {
		// A single connection keeps in-memory databases coherent.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(db, d), nil
}

// New wraps an already migrated database. dialectName is one of the
// entgo.io/ent/dialect names.
func New(db *sql.DB, dialectName string) *Store {
	return &Store{db: db, dialect: dialectName}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() string { return s.dialect }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded catalog migrations.
func Migrate(db *sql.DB, dialectName string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	var drv database.Driver
	switch dialectName {
	case dialect.SQLite:
		drv, err = sqlite.WithInstance(db, &sqlite.Config{})
	case dialect.Postgres:
		drv, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialectName)
	}
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialectName, drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// DialectFor maps a database/sql driver name to an ent dialect name.
func DialectFor(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return dialect.SQLite, nil
	case "postgres", "postgresql", "pgx":
		return dialect.Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// SQLDriver returns the registered database/sql driver name for an ent
// dialect.
func SQLDriver(dialectName string) string {
	if dialectName == dialect.Postgres {
		return "postgres"
	}
	return "sqlite"
}

// Fields implements catalog.Adapter.
func (s *Store) Fields(ctx context.Context, entity string) ([]catalog.FieldDescriptor, error) {
	query, args := entsql.Dialect(s.dialect).
		Select("api_name", "label", "data_type").
		From(entsql.Table(fieldsTable)).
		Where(entsql.EQ("entity_key", strings.ToLower(entity))).
		OrderBy("ordinal").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []catalog.FieldDescriptor
	for rows.Next() {
		var f catalog.FieldDescriptor
		var dt string
		if err := rows.Scan(&f.APIName, &f.Label, &dt); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.DataType = catalog.ParseDataType(dt)
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownEntity, entity)
	}
	return fields, nil
}

// ChoiceValues implements catalog.Adapter.
func (s *Store) ChoiceValues(ctx context.Context, entity, field string) ([]catalog.Choice, error) {
	fields, err := s.Fields(ctx, entity)
	if err != nil {
		return nil, err
	}
	fd, ok := catalog.NewFieldSet(fields).Lookup(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", catalog.ErrUnknownField, entity, field)
	}
	if !fd.DataType.IsChoiceList() {
		return nil, nil
	}

	query, args := entsql.Dialect(s.dialect).
		Select("label", "value").
		From(entsql.Table(choicesTable)).
		Where(entsql.And(
			entsql.EQ("entity_key", strings.ToLower(entity)),
			entsql.EQ("field_key", strings.ToLower(fd.APIName)),
		)).
		OrderBy("ordinal").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query choices: %w", err)
	}
	defer rows.Close()

	var choices []catalog.Choice
	for rows.Next() {
		var c catalog.Choice
		if err := rows.Scan(&c.Label, &c.Value); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// Entities returns the distinct entity names stored in the catalog.
func (s *Store) Entities(ctx context.Context) ([]string, error) {
	query, args := entsql.Dialect(s.dialect).
		Select("entity").
		Distinct().
		From(entsql.Table(fieldsTable)).
		OrderBy("entity").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Import replaces the stored fields and choices of every entity in reg.
// Entities not present in reg are left untouched.
func (s *Store) Import(ctx context.Context, reg *catalog.Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, name := range reg.EntityNames() {
		es := reg.Entity(name)
		if err := s.importEntity(ctx, tx, es); err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (s *Store) importEntity(ctx context.Context, tx *sql.Tx, es *catalog.EntitySchema) error {
	key := strings.ToLower(es.Name)
	b := entsql.Dialect(s.dialect)

	for _, table := range []string{choicesTable, fieldsTable} {
		query, args := b.Delete(table).Where(entsql.EQ("entity_key", key)).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if len(es.Fields) == 0 {
		return nil
	}

	ins := b.Insert(fieldsTable).Columns("entity_key", "entity", "api_name", "label", "data_type", "ordinal")
	for i, f := range es.Fields {
		ins.Values(key, es.Name, f.APIName, f.Label, string(f.DataType), i)
	}
	query, args := ins.Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert fields: %w", err)
	}

	for _, f := range es.Fields {
		choices := es.Choices[strings.ToLower(f.APIName)]
		if len(choices) == 0 {
			continue
		}
		ins := b.Insert(choicesTable).Columns("entity_key", "field_key", "label", "value", "ordinal")
		for i, c := range choices {
			ins.Values(key, strings.ToLower(f.APIName), c.Label, c.Value, i)
		}
		query, args := ins.Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert choices for %s: %w", f.APIName, err)
		}
	}
	return nil
}
