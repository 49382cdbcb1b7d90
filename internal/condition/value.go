package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a value does not fit its category or
// operator.
var ErrInvalidValue = errors.New("invalid value")

// ValueKind tags the variants of Value.
type ValueKind string

const (
	KindText   ValueKind = "text"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindDate   ValueKind = "date"
	KindList   ValueKind = "list"
	KindExpr   ValueKind = "expr"
)

// Value is the payload of a condition. The concrete type is one of Text,
// Number, Bool, Date, ListValue or Expr; null checks carry no value (nil).
type Value interface {
	Kind() ValueKind
	// Display renders the value for humans.
	Display() string
	isValue()
}

// Text is a string value, rendered single-quoted.
type Text string

// Number is a numeric literal kept exactly as written.
type Number string

// Bool is a boolean value.
type Bool bool

// Date is a date literal. N is set for the parametrised literals and Raw
// for SPECIFIC.
type Date struct {
	Literal DateLiteral `json:"literal"`
	N       int         `json:"n,omitempty"`
	Raw     string      `json:"raw,omitempty"`
}

// ListValue holds the items of a choice-list IN / NOT IN.
type ListValue []string

// Expr is the verbatim inner text of an IN (...) over a field that is not
// a choice list.
type Expr string

func (Text) Kind() ValueKind      { return KindText }
func (Number) Kind() ValueKind    { return KindNumber }
func (Bool) Kind() ValueKind      { return KindBool }
func (Date) Kind() ValueKind      { return KindDate }
func (ListValue) Kind() ValueKind { return KindList }
func (Expr) Kind() ValueKind      { return KindExpr }

func (Text) isValue()      {}
func (Number) isValue()    {}
func (Bool) isValue()      {}
func (Date) isValue()      {}
func (ListValue) isValue() {}
func (Expr) isValue()      {}

func (v Text) Display() string      { return string(v) }
func (v Number) Display() string    { return string(v) }
func (v Bool) Display() string      { return strconv.FormatBool(bool(v)) }
func (v ListValue) Display() string { return strings.Join(v, ", ") }
func (v Expr) Display() string      { return string(v) }

func (v Date) Display() string {
	switch {
	case v.Literal == DateSpecific:
		return v.Raw
	case v.Literal.Parametrised():
		return strings.Replace(v.Literal.Label(), "N", strconv.Itoa(v.N), 1)
	default:
		return v.Literal.Label()
	}
}

// Token renders the date as it appears in an expression.
func (v Date) Token() string {
	switch {
	case v.Literal == DateSpecific:
		return v.Raw
	case v.Literal.Parametrised():
		return string(v.Literal) + ":" + strconv.Itoa(v.N)
	default:
		return string(v.Literal)
	}
}

var numberLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// IsNumber reports whether s is a numeric literal.
func IsNumber(s string) bool { return numberLiteral.MatchString(s) }

// NewTextValue returns a text value.
func NewTextValue(s string) Text { return Text(s) }

// NewNumberValue validates a numeric literal. Surrounding whitespace is
// dropped, everything else is kept as written.
func NewNumberValue(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if !IsNumber(s) {
		return "", fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	return Number(s), nil
}

// NewBoolValue returns a boolean value.
func NewBoolValue(b bool) Bool { return Bool(b) }

// ParseBool accepts true/false in any case.
func ParseBool(s string) (Bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
}

// NewDateValue validates a date literal and its parameter.
func NewDateValue(lit DateLiteral, n int, raw string) (Date, error) {
	switch {
	case !lit.Valid():
		return Date{}, fmt.Errorf("%w: unknown date literal %q", ErrInvalidValue, lit)
	case lit == DateSpecific:
		raw = strings.TrimSpace(raw)
		if !IsDateValue(raw) && !IsDateTimeValue(raw) {
			return Date{}, fmt.Errorf("%w: %q is not a date", ErrInvalidValue, raw)
		}
		return Date{Literal: lit, Raw: raw}, nil
	case lit.Parametrised():
		if n < 0 {
			return Date{}, fmt.Errorf("%w: %s needs a non-negative N", ErrInvalidValue, lit)
		}
		return Date{Literal: lit, N: n}, nil
	default:
		return Date{Literal: lit}, nil
	}
}

// NewListValue returns a list of choice-list items. At least one item is
// required.
func NewListValue(items ...string) (ListValue, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: list needs at least one item", ErrInvalidValue)
	}
	l := make(ListValue, len(items))
	copy(l, items)
	return l, nil
}

// NewExprValue returns the verbatim inner text of an IN list.
func NewExprValue(s string) (Expr, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: empty IN list", ErrInvalidValue)
	}
	return Expr(s), nil
}

// Input is a condition as entered in the editor form. N is required for
// the parametrised date literals; nil means it was not given.
type Input struct {
	Field       string      `json:"field"`
	Operator    Operator    `json:"operator"`
	Value       string      `json:"value,omitempty"`
	Values      []string    `json:"values,omitempty"`
	DateLiteral DateLiteral `json:"date_literal,omitempty"`
	N           *int        `json:"n,omitempty"`
	Connector   Connector   `json:"connector,omitempty"`
}

// ValueFromInput converts form input into the value variant required by
// the category and operator.
func ValueFromInput(c Category, op Operator, in Input) (Value, error) {
	if !op.TakesValue() {
		return nil, nil
	}

	if op == OpIn || op == OpNotIn {
		if c == CategoryPicklist {
			items := in.Values
			if len(items) == 0 && in.Value != "" {
				items = []string{in.Value}
			}
			return NewListValue(items...)
		}
		return NewExprValue(in.Value)
	}

	switch {
	case c == CategoryBoolean:
		return ParseBool(in.Value)
	case c == CategoryNumber:
		return NewNumberValue(in.Value)
	case c.Temporal():
		lit := in.DateLiteral
		if lit == "" {
			lit = DateSpecific
		}
		if parsed, ok := ParseDateLiteral(string(lit)); ok {
			lit = parsed
		}
		var n int
		if lit.Parametrised() {
			if in.N == nil {
				return nil, fmt.Errorf("%w: %s needs N", ErrInvalidValue, lit)
			}
			n = *in.N
		}
		return NewDateValue(lit, n, in.Value)
	}

	if in.Value == "" {
		return nil, fmt.Errorf("%w: a value is required for %s", ErrInvalidValue, op.Label())
	}
	return NewTextValue(in.Value), nil
}

// checkValue verifies that v is the variant the category and operator
// render.
func checkValue(c Category, op Operator, v Value) error {
	want := expectedKind(c, op)
	if want == "" {
		if v != nil {
			return fmt.Errorf("%w: %s takes no value", ErrInvalidValue, op)
		}
		return nil
	}
	if v == nil {
		return fmt.Errorf("%w: %s needs a %s value", ErrInvalidValue, op, want)
	}
	if v.Kind() != want {
		return fmt.Errorf("%w: %s on %s needs a %s value, got %s", ErrInvalidValue, op, c, want, v.Kind())
	}
	return nil
}

func expectedKind(c Category, op Operator) ValueKind {
	switch {
	case !op.TakesValue():
		return ""
	case op == OpIn || op == OpNotIn:
		if c == CategoryPicklist {
			return KindList
		}
		return KindExpr
	case op == OpContains || op == OpStartsWith:
		return KindText
	case c == CategoryBoolean:
		return KindBool
	case c == CategoryNumber:
		return KindNumber
	case c.Temporal():
		return KindDate
	default:
		return KindText
	}
}

// ValuesEqual compares two values by variant and content.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if al, ok := a.(ListValue); ok {
		bl := b.(ListValue)
		if len(al) != len(bl) {
			return false
		}
		for i := range al {
			if al[i] != bl[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// valueJSON is the wire form of a Value.
func valueJSON(v Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Bool:
		return bool(v)
	case ListValue:
		return []string(v)
	case Date:
		return v
	default:
		return v.Display()
	}
}
