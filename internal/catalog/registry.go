package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// EntitySchema holds the field metadata for one entity.
type EntitySchema struct {
	Name    string              // entity API name as declared (e.g. "Case")
	Label   string              // display label
	Fields  []FieldDescriptor   // fields in catalog order
	Choices map[string][]Choice // lower-cased field API name -> allowed values
}

// Registry is an in-memory Adapter. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	entities    map[string]*EntitySchema // lower-cased name -> schema
	entityOrder []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntitySchema),
	}
}

// Register adds or replaces an entity schema.
func (r *Registry) Register(es *EntitySchema) {
	key := strings.ToLower(es.Name)
	if es.Label == "" {
		es.Label = es.Name
	}
	if es.Choices == nil {
		es.Choices = make(map[string][]Choice)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[key]; !exists {
		r.entityOrder = append(r.entityOrder, es.Name)
		sort.Strings(r.entityOrder)
	}
	r.entities[key] = es
}

// Entity returns the schema for a named entity, or nil if not found.
// Lookup is case-insensitive.
func (r *Registry) Entity(name string) *EntitySchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entities[strings.ToLower(name)]
}

// EntityNames returns all registered entity names in sorted order.
func (r *Registry) EntityNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entityOrder))
	copy(names, r.entityOrder)
	return names
}

// Entities implements EntityLister.
func (r *Registry) Entities(context.Context) ([]string, error) {
	return r.EntityNames(), nil
}

// Fields implements Adapter.
func (r *Registry) Fields(_ context.Context, entity string) ([]FieldDescriptor, error) {
	es := r.Entity(entity)
	if es == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	fields := make([]FieldDescriptor, len(es.Fields))
	copy(fields, es.Fields)
	return fields, nil
}

// ChoiceValues implements Adapter. Fields that are not choice lists have
// no values.
func (r *Registry) ChoiceValues(_ context.Context, entity, field string) ([]Choice, error) {
	es := r.Entity(entity)
	if es == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	fd, ok := NewFieldSet(es.Fields).Lookup(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, es.Name, field)
	}
	if !fd.DataType.IsChoiceList() {
		return nil, nil
	}
	choices := es.Choices[strings.ToLower(fd.APIName)]
	out := make([]Choice, len(choices))
	copy(out, choices)
	return out, nil
}
