// Package catalog provides entity field metadata to the condition translator.
//
// A catalog is consumed, never owned, by the translator: the editor asks an
// Adapter for an entity's fields once per entity selection and for a
// choice-list field's allowed values lazily, when such a field is picked.
package catalog

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownEntity is returned when an adapter has no fields for an entity.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrUnknownField is returned when a field is not part of an entity.
var ErrUnknownField = errors.New("unknown field")

// DataType is the raw data type reported by the field catalog.
type DataType string

const (
	TypeString        DataType = "STRING"
	TypeTextArea      DataType = "TEXTAREA"
	TypeEmail         DataType = "EMAIL"
	TypePhone         DataType = "PHONE"
	TypeURL           DataType = "URL"
	TypePicklist      DataType = "PICKLIST"
	TypeMultiPicklist DataType = "MULTIPICKLIST"
	TypeBoolean       DataType = "BOOLEAN"
	TypeInteger       DataType = "INTEGER"
	TypeDouble        DataType = "DOUBLE"
	TypeCurrency      DataType = "CURRENCY"
	TypePercent       DataType = "PERCENT"
	TypeDate          DataType = "DATE"
	TypeDateTime      DataType = "DATETIME"
	TypeID            DataType = "ID"
	TypeReference     DataType = "REFERENCE"
)

// DataTypes lists every data type the catalog recognises.
var DataTypes = []DataType{
	TypeString, TypeTextArea, TypeEmail, TypePhone, TypeURL,
	TypePicklist, TypeMultiPicklist, TypeBoolean,
	TypeInteger, TypeDouble, TypeCurrency, TypePercent,
	TypeDate, TypeDateTime, TypeID, TypeReference,
}

// ParseDataType normalises a data type name. Unrecognised names are kept
// as-is so the classifier can apply its default.
func ParseDataType(s string) DataType {
	return DataType(strings.ToUpper(strings.TrimSpace(s)))
}

// IsChoiceList reports whether values for this type come from a fixed list.
func (dt DataType) IsChoiceList() bool {
	return dt == TypePicklist || dt == TypeMultiPicklist
}

// FieldDescriptor describes one field of an entity.
type FieldDescriptor struct {
	APIName  string   `json:"api_name"`
	Label    string   `json:"label"`
	DataType DataType `json:"data_type"`
}

// Choice is one allowed value of a choice-list field.
type Choice struct {
	Label string `json:"label" yaml:"label" toml:"label"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// Adapter supplies field metadata for entities.
type Adapter interface {
	// Fields returns the fields of an entity in catalog order.
	Fields(ctx context.Context, entity string) ([]FieldDescriptor, error)

	// ChoiceValues returns the allowed values of a choice-list field.
	ChoiceValues(ctx context.Context, entity, field string) ([]Choice, error)
}

// EntityLister is implemented by adapters that can enumerate their entities.
type EntityLister interface {
	Entities(ctx context.Context) ([]string, error)
}

// FieldSet is a case-insensitive lookup over an entity's fields.
// The zero value and a nil *FieldSet are both empty sets.
type FieldSet struct {
	order  []FieldDescriptor
	byName map[string]FieldDescriptor
}

// NewFieldSet indexes fields by lower-cased API name. Later duplicates
// are ignored.
func NewFieldSet(fields []FieldDescriptor) *FieldSet {
	s := &FieldSet{byName: make(map[string]FieldDescriptor, len(fields))}
	for _, f := range fields {
		key := strings.ToLower(f.APIName)
		if _, dup := s.byName[key]; dup {
			continue
		}
		s.byName[key] = f
		s.order = append(s.order, f)
	}
	return s
}

// Lookup resolves an API name case-insensitively.
func (s *FieldSet) Lookup(apiName string) (FieldDescriptor, bool) {
	if s == nil || s.byName == nil {
		return FieldDescriptor{}, false
	}
	f, ok := s.byName[strings.ToLower(apiName)]
	return f, ok
}

// All returns the fields in catalog order.
func (s *FieldSet) All() []FieldDescriptor {
	if s == nil {
		return nil
	}
	return s.order
}

// Len returns the number of fields in the set.
func (s *FieldSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
