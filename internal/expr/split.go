package expr

import (
	"strings"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// Segment is one top-level clause of an expression and the connector that
// preceded it. The first segment has no connector.
type Segment struct {
	Connector condition.Connector
	Text      string
}

// SplitTopLevel splits expr on AND / OR separators that sit outside quotes
// and parentheses. Separators match case-insensitively and must be
// surrounded by whitespace. Quoted and parenthesised text is copied
// through unchanged. Unbalanced parentheses, an unterminated quote or an
// empty clause is an error.
func SplitTopLevel(expr string) ([]Segment, error) {
	var segs []Segment
	conn := condition.ConnectorNone
	start := 0

	emit := func(end, pos int) error {
		text := strings.TrimSpace(expr[start:end])
		if text == "" {
			return newParseError(expr, pos, "empty clause")
		}
		segs = append(segs, Segment{Connector: conn, Text: text})
		return nil
	}

	inQuote := false
	depth := 0
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth < 0 {
				return nil, newParseError(expr, i, "unbalanced ')'")
			}
		case depth == 0 && isSpace(ch):
			kw, next := separatorAt(expr, i)
			if kw == condition.ConnectorNone {
				continue
			}
			if err := emit(i, i); err != nil {
				return nil, err
			}
			conn = kw
			start = next
			i = next - 1
		}
	}

	if inQuote {
		return nil, newParseError(expr, -1, "unterminated quote")
	}
	if depth != 0 {
		return nil, newParseError(expr, -1, "unbalanced '('")
	}
	if err := emit(len(expr), len(expr)); err != nil {
		return nil, err
	}
	return segs, nil
}

// separatorAt checks for whitespace, AND or OR, then whitespace starting at
// i. It returns the connector and the offset just past the keyword.
func separatorAt(s string, i int) (condition.Connector, int) {
	j := i
	for j < len(s) && isSpace(s[j]) {
		j++
	}
	for _, kw := range []condition.Connector{condition.ConnectorAnd, condition.ConnectorOr} {
		end := j + len(kw)
		if end < len(s) && strings.EqualFold(s[j:end], string(kw)) && isSpace(s[end]) {
			return kw, end
		}
	}
	return condition.ConnectorNone, i
}

// hasTopLevelConnector reports whether s splits into more than one clause.
// Text that cannot be split at all counts as having one.
func hasTopLevelConnector(s string) bool {
	segs, err := SplitTopLevel(s)
	return err != nil || len(segs) > 1
}

// closingParen returns the index of the ')' matching the '(' at open, or
// -1. Quotes are respected.
func closingParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '\'':
			inQuote = !inQuote
		case inQuote:
		case ch == '(':
			depth++
		case ch == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// unwrap strips parentheses that enclose the whole fragment, as long as
// what they enclose is a single clause.
func unwrap(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '(' && closingParen(s, 0) == len(s)-1 {
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" || hasTopLevelConnector(inner) {
			break
		}
		s = inner
	}
	return s
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
