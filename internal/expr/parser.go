package expr

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
)

// Resolver looks up fields by API name, case-insensitively.
// *catalog.FieldSet implements it.
type Resolver interface {
	Lookup(apiName string) (catalog.FieldDescriptor, bool)
}

// Result is the outcome of parsing a stored expression.
type Result struct {
	Conditions []condition.Condition
	// Raw is set when the expression fell back to a single raw condition.
	Raw bool
	// Err says why the fallback happened.
	Err error
}

// Parse recovers the condition list of a stored expression. It is
// all-or-nothing: if any clause is not recognised the result is exactly
// one raw condition holding expr verbatim. Empty input yields an empty
// list. Parse never panics.
func Parse(expr string, fields Resolver) (res Result) {
	if strings.TrimSpace(expr) == "" {
		return Result{}
	}
	defer func() {
		if r := recover(); r != nil {
			res = rawResult(expr, newParseErrorf(expr, -1, "internal error: %v", r))
		}
	}()

	segs, err := SplitTopLevel(expr)
	if err != nil {
		return rawResult(expr, err)
	}

	out := make([]condition.Condition, 0, len(segs))
	for _, seg := range segs {
		c, err := ParseFragment(seg.Text, fields)
		if err != nil {
			return rawResult(expr, err)
		}
		c.Connector = seg.Connector
		out = append(out, c)
	}
	return Result{Conditions: out}
}

func rawResult(expr string, err error) Result {
	return Result{
		Conditions: []condition.Condition{condition.NewRaw(expr)},
		Raw:        true,
		Err:        err,
	}
}

// ParseFragment recognises a single clause. The returned condition has no
// connector and its Fragment holds the canonical rendering. Any failure,
// including an internal panic, is reported as an error matching
// ErrUnparsable.
func ParseFragment(text string, fields Resolver) (c condition.Condition, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = condition.Condition{}, newParseErrorf(text, -1, "internal error: %v", r)
		}
	}()

	c, err = recognise(text, fields)
	if err != nil {
		return condition.Condition{}, err
	}

	// The canonical text must read back as the same condition.
	canonical := BuildFragment(c)
	again, err := recognise(canonical, fields)
	if err != nil || !again.Equivalent(c) {
		return condition.Condition{}, newParseErrorf(text, -1, "clause does not survive re-rendering as %q", canonical)
	}
	c.Fragment = canonical
	return c, nil
}

func recognise(text string, fields Resolver) (condition.Condition, error) {
	frag := unwrap(text)
	if frag == "" {
		return condition.Condition{}, newParseError(text, -1, "empty clause")
	}
	segs, err := SplitTopLevel(frag)
	if err != nil {
		return condition.Condition{}, err
	}
	if len(segs) > 1 {
		return condition.Condition{}, newParseError(frag, -1, "nested AND/OR")
	}

	toks, err := tokenize(frag)
	if err != nil {
		return condition.Condition{}, err
	}
	if pos, name, ok := functionCall(toks); ok {
		return condition.Condition{}, newParseErrorf(frag, pos, "function call %s()", name)
	}

	for _, s := range shapes {
		m, ok := s.Match(frag, toks)
		if !ok {
			continue
		}
		c, err := resolve(m, fields)
		if err != nil {
			return condition.Condition{}, newParseErrorf(frag, -1, "%s clause: %v", s.Name, err)
		}
		return c, nil
	}
	return condition.Condition{}, newParseError(frag, -1, "unrecognised clause")
}

// functionCall finds a word directly followed by '(' that is not one of
// the IN / LIKE / NOT keywords.
func functionCall(toks []token) (int, string, bool) {
	for i := 0; i+1 < len(toks); i++ {
		t, next := toks[i], toks[i+1]
		if t.Kind != tokWord || next.Kind != tokLParen || next.Pos != t.End {
			continue
		}
		if t.is("IN") || t.is("LIKE") || t.is("NOT") {
			continue
		}
		return t.Pos, t.Text, true
	}
	return 0, "", false
}

// resolve turns a shape match into a condition. Catalog fields get their
// category's operator and value rules; unknown fields degrade to a
// condition whose category is inferred from the value.
func resolve(m match, fields Resolver) (condition.Condition, error) {
	var fd catalog.FieldDescriptor
	var found bool
	if fields != nil {
		fd, found = fields.Lookup(m.Field)
	}

	if !found {
		cat, v, err := inferValue(m)
		if err != nil {
			return condition.Condition{}, err
		}
		return condition.NewDegraded(m.Field, cat, m.Op, v, condition.ConnectorNone)
	}

	cat := condition.Classify(fd.DataType)
	v, err := valueFor(cat, m)
	if err != nil {
		return condition.Condition{}, err
	}
	return condition.New(fd, m.Op, v, condition.ConnectorNone)
}

// valueFor reads the matched value the way the field's category renders it.
func valueFor(cat condition.Category, m match) (condition.Value, error) {
	switch m.Kind {
	case matchNull:
		return nil, nil
	case matchLike:
		return condition.NewTextValue(m.Text), nil
	case matchIn:
		if cat != condition.CategoryPicklist {
			return condition.NewExprValue(m.Inner)
		}
		if m.Items == nil {
			return nil, fmt.Errorf("%w: choice-list IN needs quoted items", condition.ErrInvalidValue)
		}
		return condition.NewListValue(m.Items...)
	case matchQuoted:
		if cat.Textual() || cat == condition.CategoryPicklist {
			return condition.NewTextValue(m.Text), nil
		}
		return nil, fmt.Errorf("%w: quoted value on %s field", condition.ErrInvalidValue, cat)
	case matchDateN, matchDate:
		if !cat.Temporal() {
			return nil, fmt.Errorf("%w: date literal on %s field", condition.ErrInvalidValue, cat)
		}
		return condition.NewDateValue(m.Lit, m.N, "")
	case matchBare:
		switch {
		case cat == condition.CategoryBoolean:
			return condition.ParseBool(m.Text)
		case cat == condition.CategoryNumber:
			return condition.NewNumberValue(m.Text)
		case cat.Temporal():
			return condition.NewDateValue(condition.DateSpecific, 0, m.Text)
		}
		return nil, fmt.Errorf("%w: unquoted value %q on %s field", condition.ErrInvalidValue, m.Text, cat)
	}
	return nil, fmt.Errorf("unknown match kind %d", m.Kind)
}

// inferValue picks a category for a field the catalog does not know.
// Quoted, LIKE, IN and null clauses read as STRING; date literals as DATE;
// bare tokens by their shape.
func inferValue(m match) (condition.Category, condition.Value, error) {
	switch m.Kind {
	case matchNull:
		return condition.CategoryString, nil, nil
	case matchLike, matchQuoted:
		return condition.CategoryString, condition.NewTextValue(m.Text), nil
	case matchIn:
		v, err := condition.NewExprValue(m.Inner)
		return condition.CategoryString, v, err
	case matchDateN, matchDate:
		v, err := condition.NewDateValue(m.Lit, m.N, "")
		return condition.CategoryDate, v, err
	}

	switch {
	case strings.EqualFold(m.Text, "true") || strings.EqualFold(m.Text, "false"):
		v, err := condition.ParseBool(m.Text)
		return condition.CategoryBoolean, v, err
	case condition.IsNumber(m.Text):
		v, err := condition.NewNumberValue(m.Text)
		return condition.CategoryNumber, v, err
	case condition.IsDateValue(m.Text):
		v, err := condition.NewDateValue(condition.DateSpecific, 0, m.Text)
		return condition.CategoryDate, v, err
	case condition.IsDateTimeValue(m.Text):
		v, err := condition.NewDateValue(condition.DateSpecific, 0, m.Text)
		return condition.CategoryDateTime, v, err
	}
	return "", nil, fmt.Errorf("%w: cannot infer a type for %q", condition.ErrInvalidValue, m.Text)
}
