package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// Compile turns a parsed condition list into a SQL predicate. AND binds
// tighter than OR, so the list becomes an OR of AND-chains. Relative date
// literals are resolved against now. An empty list compiles to nil.
func Compile(conds []condition.Condition, now time.Time) (*entsql.Predicate, error) {
	var groups [][]*entsql.Predicate
	for i, c := range conds {
		p, err := predicate(c, now)
		if err != nil {
			return nil, fmt.Errorf("condition %d (%s): %w", i+1, c.Field, err)
		}
		if i == 0 || c.Connector == condition.ConnectorOr {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], p)
	}

	ors := make([]*entsql.Predicate, 0, len(groups))
	for _, g := range groups {
		if len(g) == 1 {
			ors = append(ors, g[0])
			continue
		}
		ors = append(ors, entsql.And(g...))
	}
	switch len(ors) {
	case 0:
		return nil, nil
	case 1:
		return ors[0], nil
	}
	return entsql.Or(ors...), nil
}

func predicate(c condition.Condition, now time.Time) (*entsql.Predicate, error) {
	if c.Raw {
		return nil, fmt.Errorf("raw expression cannot be compiled")
	}
	col := c.Field

	switch c.Operator {
	case condition.OpIsNull:
		return entsql.IsNull(col), nil
	case condition.OpIsNotNull:
		return entsql.NotNull(col), nil
	case condition.OpContains:
		return entsql.Contains(col, c.Value.Display()), nil
	case condition.OpStartsWith:
		return entsql.HasPrefix(col, c.Value.Display()), nil
	case condition.OpIn, condition.OpNotIn:
		args, err := inArgs(c.Value)
		if err != nil {
			return nil, err
		}
		if c.Operator == condition.OpIn {
			return entsql.In(col, args...), nil
		}
		return entsql.NotIn(col, args...), nil
	}

	if d, ok := c.Value.(condition.Date); ok {
		return datePredicate(col, c.Category, c.Operator, d, now)
	}
	arg, err := scalarArg(c.Value)
	if err != nil {
		return nil, err
	}
	return compare(col, c.Operator, arg)
}

func compare(col string, op condition.Operator, arg any) (*entsql.Predicate, error) {
	switch op {
	case condition.OpEQ:
		return entsql.EQ(col, arg), nil
	case condition.OpNEQ:
		return entsql.NEQ(col, arg), nil
	case condition.OpGT:
		return entsql.GT(col, arg), nil
	case condition.OpGTE:
		return entsql.GTE(col, arg), nil
	case condition.OpLT:
		return entsql.LT(col, arg), nil
	case condition.OpLTE:
		return entsql.LTE(col, arg), nil
	}
	return nil, fmt.Errorf("operator %s cannot be compiled", op)
}

func scalarArg(v condition.Value) (any, error) {
	switch v := v.(type) {
	case condition.Text:
		return string(v), nil
	case condition.Bool:
		return bool(v), nil
	case condition.Number:
		return numberArg(string(v))
	}
	return nil, fmt.Errorf("value %v cannot be compared", v)
}

func numberArg(s string) (any, error) {
	if i, err := strconv.ParseInt(strings.TrimPrefix(s, "+"), 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}

// inArgs reads IN items: a choice-list ListValue directly, or the verbatim text
// of an Expr split on commas outside quotes.
func inArgs(v condition.Value) ([]any, error) {
	switch v := v.(type) {
	case condition.ListValue:
		args := make([]any, len(v))
		for i, item := range v {
			args[i] = item
		}
		return args, nil
	case condition.Expr:
		var args []any
		for _, item := range splitItems(string(v)) {
			item = strings.TrimSpace(item)
			switch {
			case len(item) >= 2 && item[0] == '\'' && item[len(item)-1] == '\'':
				args = append(args, item[1:len(item)-1])
			case condition.IsNumber(item):
				n, err := numberArg(item)
				if err != nil {
					return nil, err
				}
				args = append(args, n)
			default:
				return nil, fmt.Errorf("unsupported IN item %q", item)
			}
		}
		return args, nil
	}
	return nil, fmt.Errorf("IN needs a list value")
}

func splitItems(s string) []string {
	var items []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	return append(items, s[start:])
}

const dateLayout = "2006-01-02"

func datePredicate(col string, cat condition.Category, op condition.Operator, d condition.Date, now time.Time) (*entsql.Predicate, error) {
	format := func(t time.Time) string {
		if cat == condition.CategoryDate {
			return t.Format(dateLayout)
		}
		return t.UTC().Format(time.RFC3339)
	}

	if d.Literal == condition.DateSpecific {
		if t, err := time.Parse(time.RFC3339, d.Raw); err == nil {
			return compare(col, op, format(t))
		}
		day, err := time.ParseInLocation(dateLayout, d.Raw, now.Location())
		if err != nil || cat == condition.CategoryDate {
			return compare(col, op, d.Raw)
		}
		// A bare date on a date-time field covers the whole day.
		return rangePredicate(col, op, format(day), format(day.AddDate(0, 0, 1)))
	}

	start, end, err := DateRange(d.Literal, d.N, now)
	if err != nil {
		return nil, err
	}
	return rangePredicate(col, op, format(start), format(end))
}

// rangePredicate compares a column against the half-open range [start, end).
func rangePredicate(col string, op condition.Operator, start, end string) (*entsql.Predicate, error) {
	switch op {
	case condition.OpEQ:
		return entsql.And(entsql.GTE(col, start), entsql.LT(col, end)), nil
	case condition.OpNEQ:
		return entsql.Or(entsql.LT(col, start), entsql.GTE(col, end)), nil
	case condition.OpGT:
		return entsql.GTE(col, end), nil
	case condition.OpGTE:
		return entsql.GTE(col, start), nil
	case condition.OpLT:
		return entsql.LT(col, start), nil
	case condition.OpLTE:
		return entsql.LT(col, end), nil
	}
	return nil, fmt.Errorf("operator %s cannot be compiled for dates", op)
}
