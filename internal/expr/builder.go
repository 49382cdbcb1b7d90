// Package expr translates between condition lists and flat filter
// expressions such as
//
//	Status = 'Open' OR Priority IN ('High', 'Medium') AND CreatedDate > LAST_N_DAYS:30
//
// Build renders conditions; Parse recovers them from stored text, falling
// back to a single raw condition when any clause is not recognised.
package expr

import (
	"strings"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// BuildFragment renders one condition. Values are inserted verbatim:
// quotes and % inside text values are not escaped.
func BuildFragment(c condition.Condition) string {
	if c.Raw {
		return c.Fragment
	}

	f := c.Field
	switch c.Operator {
	case condition.OpIsNull:
		return f + " = null"
	case condition.OpIsNotNull:
		return f + " != null"
	case condition.OpContains:
		return f + " LIKE '%" + text(c.Value) + "%'"
	case condition.OpStartsWith:
		return f + " LIKE '" + text(c.Value) + "%'"
	case condition.OpIn:
		return f + " IN (" + inList(c.Value) + ")"
	case condition.OpNotIn:
		return f + " NOT IN (" + inList(c.Value) + ")"
	}
	return f + " " + c.Operator.Symbol() + " " + literal(c.Value)
}

// Build joins the fragments of an ordered list with their connectors. The
// first connector is never emitted; a later condition without one joins
// with AND. Conditions that render to nothing are skipped.
func Build(cs []condition.Condition) string {
	var b strings.Builder
	for _, c := range cs {
		frag := BuildFragment(c)
		if strings.TrimSpace(frag) == "" {
			continue
		}
		if b.Len() > 0 {
			conn := c.Connector
			if conn == condition.ConnectorNone {
				conn = condition.ConnectorAnd
			}
			b.WriteString(" " + string(conn) + " ")
		}
		b.WriteString(frag)
	}
	return b.String()
}

// Render returns c with its Fragment set to the rendered text.
func Render(c condition.Condition) condition.Condition {
	if !c.Raw {
		c.Fragment = BuildFragment(c)
	}
	return c
}

func text(v condition.Value) string {
	if v == nil {
		return ""
	}
	return v.Display()
}

func inList(v condition.Value) string {
	switch v := v.(type) {
	case condition.ListValue:
		quoted := make([]string, len(v))
		for i, item := range v {
			quoted[i] = "'" + item + "'"
		}
		return strings.Join(quoted, ", ")
	case condition.Expr:
		return string(v)
	case nil:
		return ""
	default:
		return v.Display()
	}
}

func literal(v condition.Value) string {
	switch v := v.(type) {
	case condition.Text:
		return "'" + string(v) + "'"
	case condition.Date:
		return v.Token()
	case nil:
		return "null"
	default:
		// Number and Bool render unquoted.
		return v.Display()
	}
}
