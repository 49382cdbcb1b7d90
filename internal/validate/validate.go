// Package validate checks filter expressions by running a trial count
// against a database.
package validate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/expr"
)

// Result is the outcome of validating an expression. An invalid
// expression is a normal result, not an error.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Count   int64  `json:"count"`
}

// Validator checks an expression for an entity.
type Validator interface {
	Validate(ctx context.Context, entity, expression string) (Result, error)
}

// Func adapts a function to the Validator interface.
type Func func(ctx context.Context, entity, expression string) (Result, error)

// Validate calls f.
func (f Func) Validate(ctx context.Context, entity, expression string) (Result, error) {
	return f(ctx, entity, expression)
}

// SQLValidator compiles expressions to SELECT COUNT(*) queries and runs
// them. Each entity maps to a table; by default the lower-cased entity
// name.
type SQLValidator struct {
	db      *sql.DB
	dialect string
	catalog catalog.Adapter
	tables  map[string]string
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a SQLValidator.
type Option func(*SQLValidator)

// WithClock sets the clock relative date literals resolve against.
func WithClock(now func() time.Time) Option {
	return func(v *SQLValidator) { v.now = now }
}

// WithTable maps an entity to a table name.
func WithTable(entity, table string) Option {
	return func(v *SQLValidator) { v.tables[strings.ToLower(entity)] = table }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *SQLValidator) { v.logger = l }
}

// NewSQLValidator creates a validator over db. dialectName is one of the
// entgo.io/ent/dialect names.
func NewSQLValidator(db *sql.DB, dialectName string, cat catalog.Adapter, opts ...Option) *SQLValidator {
	v := &SQLValidator{
		db:      db,
		dialect: dialectName,
		catalog: cat,
		tables:  make(map[string]string),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

var _ Validator = (*SQLValidator)(nil)

// Validate parses the expression against the entity's fields, compiles it
// and counts matching rows. Unparsable expressions, unknown fields and
// queries the database rejects are reported as invalid results.
func (v *SQLValidator) Validate(ctx context.Context, entity, expression string) (Result, error) {
	fields, err := v.catalog.Fields(ctx, entity)
	if errors.Is(err, catalog.ErrUnknownEntity) {
		return Result{Message: err.Error()}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading fields: %w", err)
	}
	fs := catalog.NewFieldSet(fields)

	res := expr.Parse(expression, fs)
	if res.Raw {
		return Result{Message: fmt.Sprintf("expression could not be parsed: %v", res.Err)}, nil
	}
	for _, c := range res.Conditions {
		if _, ok := fs.Lookup(c.Field); !ok {
			return Result{Message: fmt.Sprintf("unknown field %s on %s", c.Field, entity)}, nil
		}
	}

	query, args, err := v.CountQuery(entity, res)
	if err != nil {
		return Result{Message: err.Error()}, nil
	}

	var count int64
	if err := v.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		v.logger.Debug("trial count rejected", "component", "validate", "entity", entity, "error", err)
		return Result{Message: err.Error()}, nil
	}
	return Result{Valid: true, Count: count}, nil
}

// CountQuery builds the trial count for a parsed expression.
func (v *SQLValidator) CountQuery(entity string, res expr.Result) (string, []any, error) {
	pred, err := Compile(res.Conditions, v.now())
	if err != nil {
		return "", nil, err
	}
	sel := entsql.Dialect(v.dialect).
		Select(entsql.Count("*")).
		From(entsql.Table(v.table(entity)))
	if pred != nil {
		sel.Where(pred)
	}
	query, args := sel.Query()
	return query, args, nil
}

func (v *SQLValidator) table(entity string) string {
	if t, ok := v.tables[strings.ToLower(entity)]; ok {
		return t
	}
	return strings.ToLower(entity)
}
