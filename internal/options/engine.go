// Package options provides the dropdown lists of the condition editor:
// entities, fields, the operators of a field's category and the values
// a field offers.
package options

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
)

// Item is a single option.
type Item struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Kind   string `json:"kind"` // "entity", "field", "operator", "value", "date_literal"
	Detail string `json:"detail,omitempty"`
	// Parametrised date literals take an N.
	TakesN bool `json:"takes_n,omitempty"`
}

// Engine builds option lists from a field catalog.
type Engine struct {
	catalog catalog.Adapter
}

// New creates an engine backed by the given catalog.
func New(cat catalog.Adapter) *Engine {
	return &Engine{catalog: cat}
}

// Entities lists entity names when the catalog can enumerate them.
func (e *Engine) Entities(ctx context.Context, partial string) ([]Item, error) {
	lister, ok := e.catalog.(catalog.EntityLister)
	if !ok {
		return nil, nil
	}
	names, err := lister.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	return filterItems(names, partial, "entity"), nil
}

// Fields lists an entity's fields in catalog order. Partial filters by
// prefix of the API name or label.
func (e *Engine) Fields(ctx context.Context, entity, partial string) ([]Item, error) {
	fields, err := e.catalog.Fields(ctx, entity)
	if err != nil {
		return nil, err
	}
	return FieldItems(fields, partial), nil
}

// FieldItems turns field descriptors into options.
func FieldItems(fields []catalog.FieldDescriptor, partial string) []Item {
	partial = strings.ToLower(partial)
	items := make([]Item, 0, len(fields))
	for _, f := range fields {
		if !matches(partial, f.APIName, f.Label) {
			continue
		}
		items = append(items, Item{
			Label:  f.Label,
			Value:  f.APIName,
			Kind:   "field",
			Detail: string(condition.Classify(f.DataType)),
		})
	}
	return items
}

// Operators lists the operators of a category in display order.
func (e *Engine) Operators(cat condition.Category) []Item {
	ops := condition.OperatorsFor(cat)
	items := make([]Item, len(ops))
	for i, op := range ops {
		items[i] = Item{Label: op.Label, Value: string(op.Code), Kind: "operator", Detail: op.Code.Symbol()}
	}
	return items
}

// Values lists what can be picked as a value for a field and operator:
// choice-list values, true/false, or the date literals. Other fields are
// free text and have no options. Operators without a value have none.
func (e *Engine) Values(ctx context.Context, entity string, field catalog.FieldDescriptor, op condition.Operator, partial string) ([]Item, error) {
	if op != "" && !op.TakesValue() {
		return nil, nil
	}
	cat := condition.Classify(field.DataType)
	switch {
	case cat == condition.CategoryPicklist:
		choices, err := e.catalog.ChoiceValues(ctx, entity, field.APIName)
		if err != nil {
			return nil, err
		}
		return ChoiceItems(choices, partial), nil
	case cat == condition.CategoryBoolean:
		return filterItems([]string{"true", "false"}, partial, "value"), nil
	case cat.Temporal():
		return DateLiteralItems(partial), nil
	}
	return nil, nil
}

// ChoiceItems turns choice-list values into options.
func ChoiceItems(choices []catalog.Choice, partial string) []Item {
	partial = strings.ToLower(partial)
	var items []Item
	for _, c := range choices {
		if !matches(partial, c.Value, c.Label) {
			continue
		}
		items = append(items, Item{Label: c.Label, Value: c.Value, Kind: "value"})
	}
	return items
}

// DateLiteralItems lists the date literals in display order.
func DateLiteralItems(partial string) []Item {
	partial = strings.ToLower(partial)
	var items []Item
	for _, d := range condition.DateLiterals() {
		if !matches(partial, string(d.Literal), d.Label) {
			continue
		}
		items = append(items, Item{
			Label:  d.Label,
			Value:  string(d.Literal),
			Kind:   "date_literal",
			TakesN: d.Parametrised,
		})
	}
	return items
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func filterItems(candidates []string, partial, kind string) []Item {
	partial = strings.ToLower(partial)
	var items []Item
	for _, c := range candidates {
		if partial == "" || strings.HasPrefix(strings.ToLower(c), partial) {
			items = append(items, Item{Label: c, Value: c, Kind: kind})
		}
	}
	return items
}

func matches(partial string, candidates ...string) bool {
	if partial == "" {
		return true
	}
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), partial) {
			return true
		}
	}
	return false
}
