package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/idgen"
)

// ErrIllegalOperator is returned when an operator is not legal for a
// field's category.
var ErrIllegalOperator = errors.New("illegal operator")

// ErrInvalidConnector is returned for connectors other than AND and OR.
var ErrInvalidConnector = errors.New("invalid connector")

// RawLabel is the field label shown for a raw condition.
const RawLabel = "Raw expression"

// Connector joins a condition to the one before it.
type Connector string

const (
	ConnectorNone Connector = ""
	ConnectorAnd  Connector = "AND"
	ConnectorOr   Connector = "OR"
)

// ParseConnector accepts AND/OR in any case, and "" for the first
// condition.
func ParseConnector(s string) (Connector, error) {
	switch c := Connector(strings.ToUpper(strings.TrimSpace(s))); c {
	case ConnectorNone, ConnectorAnd, ConnectorOr:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidConnector, s)
}

// Condition is one (field, operator, value) clause plus its connector.
type Condition struct {
	ID            string
	Field         string
	FieldLabel    string
	Category      Category
	Operator      Operator
	OperatorLabel string
	Value         Value
	DisplayValue  string
	Connector     Connector
	// Fragment is the rendered expression for this condition alone. For a
	// raw condition it is the verbatim stored expression.
	Fragment string
	Raw      bool
}

// New builds a condition on a catalog field, enforcing operator legality
// and the value variant of the field's category.
func New(field catalog.FieldDescriptor, op Operator, v Value, conn Connector) (Condition, error) {
	cat := Classify(field.DataType)
	if !Allows(cat, op) {
		return Condition{}, fmt.Errorf("%w: %s is not available for %s field %s", ErrIllegalOperator, op, cat, field.APIName)
	}
	c, err := build(field.APIName, field.Label, cat, op, v, conn)
	if err != nil {
		return Condition{}, fmt.Errorf("field %s: %w", field.APIName, err)
	}
	return c, nil
}

// NewDegraded builds a condition on a field the catalog does not know.
// The raw token serves as identifier and label, and operator legality is
// not checked because the field's real type is unknown.
func NewDegraded(apiName string, cat Category, op Operator, v Value, conn Connector) (Condition, error) {
	if !op.Valid() {
		return Condition{}, fmt.Errorf("%w: %q", ErrIllegalOperator, op)
	}
	return build(apiName, apiName, cat, op, v, conn)
}

// FromInput converts form input on a catalog field into a condition.
func FromInput(field catalog.FieldDescriptor, in Input) (Condition, error) {
	cat := Classify(field.DataType)
	if !Allows(cat, in.Operator) {
		return Condition{}, fmt.Errorf("%w: %s is not available for %s field %s", ErrIllegalOperator, in.Operator, cat, field.APIName)
	}
	v, err := ValueFromInput(cat, in.Operator, in)
	if err != nil {
		return Condition{}, fmt.Errorf("field %s: %w", field.APIName, err)
	}
	return New(field, in.Operator, v, in.Connector)
}

// NewRaw wraps an expression that could not be parsed.
func NewRaw(expression string) Condition {
	return Condition{
		ID:         newID(),
		FieldLabel: RawLabel,
		Fragment:   expression,
		Raw:        true,
	}
}

func build(apiName, label string, cat Category, op Operator, v Value, conn Connector) (Condition, error) {
	if err := checkValue(cat, op, v); err != nil {
		return Condition{}, err
	}
	conn, err := ParseConnector(string(conn))
	if err != nil {
		return Condition{}, err
	}
	c := Condition{
		ID:            newID(),
		Field:         apiName,
		FieldLabel:    label,
		Category:      cat,
		Operator:      op,
		OperatorLabel: op.Label(),
		Value:         v,
		Connector:     conn,
	}
	if v != nil {
		c.DisplayValue = v.Display()
	}
	return c, nil
}

func newID() string {
	id, err := idgen.Condition()
	if err != nil {
		return idgen.ConditionPrefix + uuid.NewString()
	}
	return id
}

// Equivalent reports whether two conditions mean the same thing: same
// field (case-insensitive), operator, value and connector. IDs, labels
// and fragments are ignored.
func (c Condition) Equivalent(o Condition) bool {
	if c.Raw || o.Raw {
		return c.Raw == o.Raw && c.Fragment == o.Fragment && c.Connector == o.Connector
	}
	return strings.EqualFold(c.Field, o.Field) &&
		c.Category == o.Category &&
		c.Operator == o.Operator &&
		c.Connector == o.Connector &&
		ValuesEqual(c.Value, o.Value)
}

type conditionJSON struct {
	ID            string    `json:"id"`
	Field         string    `json:"field,omitempty"`
	FieldLabel    string    `json:"field_label"`
	Category      Category  `json:"category,omitempty"`
	Operator      Operator  `json:"operator,omitempty"`
	OperatorLabel string    `json:"operator_label,omitempty"`
	ValueKind     ValueKind `json:"value_kind,omitempty"`
	Value         any       `json:"value,omitempty"`
	DisplayValue  string    `json:"display_value"`
	Connector     Connector `json:"connector"`
	Fragment      string    `json:"fragment"`
	Raw           bool      `json:"raw,omitempty"`
}

// MarshalJSON encodes the value variant alongside its kind.
func (c Condition) MarshalJSON() ([]byte, error) {
	out := conditionJSON{
		ID:            c.ID,
		Field:         c.Field,
		FieldLabel:    c.FieldLabel,
		Category:      c.Category,
		Operator:      c.Operator,
		OperatorLabel: c.OperatorLabel,
		Value:         valueJSON(c.Value),
		DisplayValue:  c.DisplayValue,
		Connector:     c.Connector,
		Fragment:      c.Fragment,
		Raw:           c.Raw,
	}
	if c.Value != nil {
		out.ValueKind = c.Value.Kind()
	}
	return json.Marshal(out)
}
