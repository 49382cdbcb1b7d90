package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// parseCondition reads a --cond flag of the form
//
//	[AND|OR] <field> <operator> [value]
//
// The operator is a code (EQ, NOT_IN, STARTS_WITH) or a comparison symbol.
// IN lists are comma separated; date literals take N after a colon, as in
// LAST_N_DAYS:30. The value is the rest of the line, verbatim.
func parseCondition(s string) (condition.Input, error) {
	words := strings.Fields(s)
	var in condition.Input

	if len(words) > 0 {
		switch strings.ToUpper(words[0]) {
		case "AND", "OR":
			in.Connector = condition.Connector(strings.ToUpper(words[0]))
			words = words[1:]
		}
	}
	if len(words) < 2 {
		return condition.Input{}, fmt.Errorf("condition %q: want [AND|OR] <field> <operator> [value]", s)
	}

	in.Field = words[0]
	op, ok := condition.ParseOperator(words[1])
	if !ok {
		op, ok = condition.OperatorForSymbol(words[1])
	}
	if !ok {
		return condition.Input{}, fmt.Errorf("condition %q: unknown operator %q", s, words[1])
	}
	in.Operator = op

	in.Value = restAfter(s, 2+connectorWords(in))
	if op == condition.OpIn || op == condition.OpNotIn {
		for _, item := range strings.Split(in.Value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				in.Values = append(in.Values, item)
			}
		}
	}

	in.DateLiteral, in.N = dateLiteral(in.Value)
	return in, nil
}

func connectorWords(in condition.Input) int {
	if in.Connector != condition.ConnectorNone {
		return 1
	}
	return 0
}

// restAfter returns s with the first n words removed, keeping the inner
// spacing of the remainder.
func restAfter(s string, n int) string {
	rest := strings.TrimSpace(s)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}
	return rest
}

// dateLiteral recognises TODAY-style and LAST_N_DAYS:N values. Anything
// else is left for the field's category to interpret.
func dateLiteral(v string) (condition.DateLiteral, *int) {
	name, num, hasN := strings.Cut(v, ":")
	lit, ok := condition.ParseDateLiteral(name)
	if !ok || lit == condition.DateSpecific || lit.Parametrised() != hasN {
		return "", nil
	}
	if !hasN {
		return lit, nil
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return "", nil
	}
	return lit, &n
}
