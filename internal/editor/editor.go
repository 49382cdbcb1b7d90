// Package editor holds the translator state embedded in a filter form: the
// selected entity, its fields and the condition list, kept in sync with the
// stored expression.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/expr"
	"github.com/matthewbaird/condexpr/internal/validate"
)

var (
	ErrNoEntity         = errors.New("no entity selected")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrNoValidator      = errors.New("no validator configured")

	// ErrRawExpression is returned when a structured edit is attempted while
	// the list holds an unparsed expression. Remove or clear it first.
	ErrRawExpression = errors.New("expression is not editable as conditions")

	// ErrSuperseded is returned by a fetch whose entity was deselected while
	// it was in flight. Its result has been discarded.
	ErrSuperseded = errors.New("entity selection superseded")
)

// Change is emitted after every edit that rebuilds the expression. Seq
// increases by one per change of an editor; changes reach OnChange in Seq
// order.
type Change struct {
	Seq        uint64                `json:"seq"`
	Entity     string                `json:"entity"`
	Expression string                `json:"expression"`
	Conditions []condition.Condition `json:"conditions"`
}

// Config wires an Editor to its collaborators. Catalog is required.
// OnChange may read the editor but must not edit it.
type Config struct {
	Catalog   catalog.Adapter
	Validator validate.Validator
	OnChange  func(Change)
	Logger    *slog.Logger
}

// State is a snapshot of the editor.
type State struct {
	Entity     string                    `json:"entity"`
	Expression string                    `json:"expression"`
	Conditions []condition.Condition     `json:"conditions"`
	Fields     []catalog.FieldDescriptor `json:"fields"`
	Raw        bool                      `json:"raw"`
	FieldError string                    `json:"field_error,omitempty"`
}

// Editor is safe for concurrent use. Catalog fetches run without the lock
// held; a selection generation decides whether their result still applies.
type Editor struct {
	cfg Config
	log *slog.Logger

	// emitMu serialises delivery of pending changes. It is never acquired
	// while mu is held.
	emitMu sync.Mutex

	mu         sync.Mutex
	gen        uint64
	seq        uint64
	pending    []Change
	entity     string
	fields     *catalog.FieldSet
	fieldErr   error
	list       condition.List
	expression string
	choices    map[string][]catalog.Choice
}

// New creates an editor with no entity selected.
func New(cfg Config) *Editor {
	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Editor{
		cfg:     cfg,
		log:     l.With("component", "editor"),
		fields:  catalog.NewFieldSet(nil),
		choices: make(map[string][]catalog.Choice),
	}
}

// SelectEntity switches the editor to entity. Conditions are cleared since
// field identifiers are entity-scoped. The entity's fields are fetched once;
// if another selection happens before the fetch returns, this one returns
// ErrSuperseded and leaves the newer state alone. A catalog failure leaves
// the field options empty and is returned.
func (e *Editor) SelectEntity(ctx context.Context, entity string) error {
	_, err := e.selectEntity(ctx, entity)
	return err
}

func (e *Editor) selectEntity(ctx context.Context, entity string) (uint64, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return 0, ErrNoEntity
	}

	e.mu.Lock()
	e.gen++
	gen := e.gen
	hadExpression := e.expression != ""
	e.entity = entity
	e.fields = catalog.NewFieldSet(nil)
	e.fieldErr = nil
	e.list.Clear()
	e.expression = ""
	e.choices = make(map[string][]catalog.Choice)
	if hadExpression {
		e.queue(Change{Entity: entity})
	}
	e.mu.Unlock()
	e.flush()

	fields, err := e.cfg.Catalog.Fields(ctx, entity)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		e.log.Debug("discarding stale field fetch", "entity", entity)
		return gen, ErrSuperseded
	}
	if err != nil {
		e.fieldErr = err
		e.log.Warn("field fetch failed", "entity", entity, "error", err)
		return gen, fmt.Errorf("fetching fields for %s: %w", entity, err)
	}
	e.fields = catalog.NewFieldSet(fields)
	return gen, nil
}

// Load selects entity and recovers the condition list from a stored
// expression. The stored text is kept verbatim as the expression until the
// first edit. Loading does not emit a change. If the field fetch failed the
// expression is still parsed, with every field degraded, and the fetch error
// is returned.
func (e *Editor) Load(ctx context.Context, entity, stored string) error {
	gen, fetchErr := e.selectEntity(ctx, entity)
	if errors.Is(fetchErr, ErrSuperseded) || errors.Is(fetchErr, ErrNoEntity) {
		return fetchErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return ErrSuperseded
	}
	if strings.TrimSpace(stored) == "" {
		return fetchErr
	}

	res := expr.Parse(stored, e.fields)
	if res.Raw {
		e.log.Info("stored expression kept raw", "entity", e.entity, "error", res.Err)
	}
	e.list.Set(res.Conditions)
	e.expression = stored
	return fetchErr
}

// Add appends a condition built from form input.
func (e *Editor) Add(in condition.Input) (condition.Condition, error) {
	e.mu.Lock()
	c, err := e.fromInput(in)
	if err != nil {
		e.mu.Unlock()
		return condition.Condition{}, err
	}
	e.list.Append(c)
	c, _ = e.list.Get(c.ID)
	e.rebuild()
	e.mu.Unlock()

	e.flush()
	return c, nil
}

// Update replaces the condition with the given ID, keeping its ID and, when
// the input names none, its connector.
func (e *Editor) Update(id string, in condition.Input) (condition.Condition, error) {
	e.mu.Lock()
	if _, ok := e.list.Get(id); !ok {
		e.mu.Unlock()
		return condition.Condition{}, fmt.Errorf("%w: %s", ErrUnknownCondition, id)
	}
	c, err := e.fromInput(in)
	if err != nil {
		e.mu.Unlock()
		return condition.Condition{}, err
	}
	e.list.Replace(id, c)
	c, _ = e.list.Get(id)
	e.rebuild()
	e.mu.Unlock()

	e.flush()
	return c, nil
}

// Remove deletes a condition. The next one becomes first and loses its
// connector. Removing a raw condition is how an unparsed expression is
// discarded.
func (e *Editor) Remove(id string) error {
	e.mu.Lock()
	if !e.list.Remove(id) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCondition, id)
	}
	e.rebuild()
	e.mu.Unlock()

	e.flush()
	return nil
}

// SetConnector changes how a condition joins the one before it.
func (e *Editor) SetConnector(id string, conn condition.Connector) error {
	e.mu.Lock()
	if _, ok := e.list.Get(id); !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCondition, id)
	}
	if err := e.list.SetConnector(id, conn); err != nil {
		e.mu.Unlock()
		return err
	}
	e.rebuild()
	e.mu.Unlock()

	e.flush()
	return nil
}

// Clear removes every condition.
func (e *Editor) Clear() {
	e.mu.Lock()
	e.list.Clear()
	e.rebuild()
	e.mu.Unlock()

	e.flush()
}

// ChoiceValues returns the allowed values of a choice-list field, fetched
// on first use and cached for the current selection. Other fields have no
// values. A fetch failure returns no values and the error; conditions are
// untouched.
func (e *Editor) ChoiceValues(ctx context.Context, field string) ([]catalog.Choice, error) {
	e.mu.Lock()
	entity, gen := e.entity, e.gen
	if entity == "" {
		e.mu.Unlock()
		return nil, ErrNoEntity
	}
	fd, ok := e.fields.Lookup(field)
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, entity, field)
	}
	if !fd.DataType.IsChoiceList() {
		e.mu.Unlock()
		return nil, nil
	}
	key := strings.ToLower(fd.APIName)
	if cached, ok := e.choices[key]; ok {
		e.mu.Unlock()
		return append([]catalog.Choice(nil), cached...), nil
	}
	e.mu.Unlock()

	choices, err := e.cfg.Catalog.ChoiceValues(ctx, entity, fd.APIName)
	if err != nil {
		e.log.Warn("choice fetch failed", "entity", entity, "field", fd.APIName, "error", err)
		return nil, fmt.Errorf("fetching choices for %s.%s: %w", entity, fd.APIName, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return nil, ErrSuperseded
	}
	e.choices[key] = choices
	return append([]catalog.Choice(nil), choices...), nil
}

// Validate hands the current expression to the validator and returns its
// verdict unchanged. Editor state is never rolled back.
func (e *Editor) Validate(ctx context.Context) (validate.Result, error) {
	if e.cfg.Validator == nil {
		return validate.Result{}, ErrNoValidator
	}
	e.mu.Lock()
	entity, expression := e.entity, e.expression
	e.mu.Unlock()
	if entity == "" {
		return validate.Result{}, ErrNoEntity
	}
	return e.cfg.Validator.Validate(ctx, entity, expression)
}

// State returns a snapshot.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Entity:     e.entity,
		Expression: e.expression,
		Conditions: e.list.Items(),
		Fields:     append([]catalog.FieldDescriptor(nil), e.fields.All()...),
		Raw:        e.list.HasRaw(),
	}
	if e.fieldErr != nil {
		s.FieldError = e.fieldErr.Error()
	}
	return s
}

// Field resolves a field of the selected entity.
func (e *Editor) Field(name string) (catalog.FieldDescriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fields.Lookup(name)
}

// Entity returns the selected entity.
func (e *Editor) Entity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entity
}

// Expression returns the current stored expression.
func (e *Editor) Expression() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expression
}

// fromInput must be called with e.mu held.
func (e *Editor) fromInput(in condition.Input) (condition.Condition, error) {
	if e.entity == "" {
		return condition.Condition{}, ErrNoEntity
	}
	if e.list.HasRaw() {
		return condition.Condition{}, ErrRawExpression
	}
	fd, ok := e.fields.Lookup(in.Field)
	if !ok {
		return condition.Condition{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, e.entity, in.Field)
	}
	c, err := condition.FromInput(fd, in)
	if err != nil {
		return condition.Condition{}, err
	}
	return expr.Render(c), nil
}

// rebuild must be called with e.mu held.
func (e *Editor) rebuild() {
	items := e.list.Items()
	e.expression = expr.Build(items)
	e.queue(Change{Entity: e.entity, Expression: e.expression, Conditions: items})
}

// queue stamps c and holds it for the next flush. e.mu must be held.
func (e *Editor) queue(c Change) {
	if e.cfg.OnChange == nil {
		return
	}
	e.seq++
	c.Seq = e.seq
	e.pending = append(e.pending, c)
}

// flush delivers queued changes in order. Concurrent edits may flush each
// other's changes; none is delivered twice or out of order.
func (e *Editor) flush() {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, c := range pending {
		e.cfg.OnChange(c)
	}
}
