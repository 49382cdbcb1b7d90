package expr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// matchKind says which value form a shape recognised.
type matchKind int

const (
	matchNull matchKind = iota
	matchLike
	matchIn
	matchQuoted
	matchDateN
	matchDate
	matchBare
)

// match is the field, operator and raw value recovered by a shape, before
// the field is resolved against the catalog.
type match struct {
	Kind  matchKind
	Field string
	Op    condition.Operator
	Text  string   // LIKE / quoted inner text, or the bare token
	Items []string // IN items when every item is quoted
	Inner string   // IN text between the parentheses, verbatim
	Lit   condition.DateLiteral
	N     int
}

// shape is one recognisable clause form.
type shape struct {
	Name  string
	Match func(src string, toks []token) (match, bool)
}

// shapes is tried in order and the first match wins. Order resolves the
// overlaps: CONTAINS before STARTS_WITH, and date literals before bare
// tokens.
var shapes = []shape{
	{"null", matchNullShape},
	{"contains", matchContainsShape},
	{"starts_with", matchStartsWithShape},
	{"in", matchInShape},
	{"quoted", matchQuotedShape},
	{"date_n", matchDateNShape},
	{"date", matchDateShape},
	{"bare", matchBareShape},
}

var (
	fieldName    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	paramLiteral = regexp.MustCompile(`^([A-Za-z_]+):(\d+)$`)
)

// fieldOpValue matches <field> <op> <value> <EOF> and returns the value
// token.
func fieldOpValue(toks []token, kind tokenKind) (field string, op condition.Operator, val token, ok bool) {
	if len(toks) != 4 || toks[3].Kind != tokEOF {
		return "", "", token{}, false
	}
	if toks[0].Kind != tokWord || !fieldName.MatchString(toks[0].Text) {
		return "", "", token{}, false
	}
	if toks[1].Kind != tokOp || toks[2].Kind != kind {
		return "", "", token{}, false
	}
	op, ok = condition.OperatorForSymbol(toks[1].Text)
	if !ok {
		return "", "", token{}, false
	}
	return toks[0].Text, op, toks[2], true
}

func matchNullShape(_ string, toks []token) (match, bool) {
	field, op, val, ok := fieldOpValue(toks, tokWord)
	if !ok || !val.is("null") {
		return match{}, false
	}
	switch op {
	case condition.OpEQ:
		return match{Kind: matchNull, Field: field, Op: condition.OpIsNull}, true
	case condition.OpNEQ:
		return match{Kind: matchNull, Field: field, Op: condition.OpIsNotNull}, true
	}
	return match{}, false
}

// likePattern matches <field> LIKE '<pattern>' and returns the pattern.
func likePattern(toks []token) (string, string, bool) {
	if len(toks) != 4 || toks[3].Kind != tokEOF {
		return "", "", false
	}
	if toks[0].Kind != tokWord || !fieldName.MatchString(toks[0].Text) {
		return "", "", false
	}
	if !toks[1].is("LIKE") || toks[2].Kind != tokString {
		return "", "", false
	}
	return toks[0].Text, toks[2].Text, true
}

func matchContainsShape(_ string, toks []token) (match, bool) {
	field, pat, ok := likePattern(toks)
	if !ok || len(pat) < 2 || pat[0] != '%' || pat[len(pat)-1] != '%' {
		return match{}, false
	}
	inner := pat[1 : len(pat)-1]
	if strings.HasPrefix(inner, "%") {
		return match{}, false
	}
	return match{Kind: matchLike, Field: field, Op: condition.OpContains, Text: inner}, true
}

func matchStartsWithShape(_ string, toks []token) (match, bool) {
	field, pat, ok := likePattern(toks)
	if !ok || pat == "" || pat[0] == '%' || pat[len(pat)-1] != '%' {
		return match{}, false
	}
	return match{Kind: matchLike, Field: field, Op: condition.OpStartsWith, Text: pat[:len(pat)-1]}, true
}

// matchInShape matches <field> [NOT] IN ( ... ). The parenthesised text is
// kept verbatim; Items is filled only when it is a comma list of quoted
// strings.
func matchInShape(src string, toks []token) (match, bool) {
	if len(toks) < 5 || toks[0].Kind != tokWord || !fieldName.MatchString(toks[0].Text) {
		return match{}, false
	}
	i := 1
	op := condition.OpIn
	if toks[i].is("NOT") {
		op = condition.OpNotIn
		i++
	}
	if !toks[i].is("IN") || toks[i+1].Kind != tokLParen {
		return match{}, false
	}
	open := toks[i+1]
	body := toks[i+2:]
	if len(body) < 2 || body[len(body)-1].Kind != tokEOF || body[len(body)-2].Kind != tokRParen {
		return match{}, false
	}
	closing := body[len(body)-2]
	body = body[:len(body)-2]
	if len(body) == 0 {
		return match{}, false
	}

	items, quoted := quotedItems(body)
	for _, t := range body {
		if t.Kind == tokLParen || t.Kind == tokRParen {
			return match{}, false
		}
	}
	m := match{
		Kind:  matchIn,
		Field: toks[0].Text,
		Op:    op,
		Inner: src[open.End:closing.Pos],
	}
	if quoted {
		m.Items = items
	}
	return m, true
}

// quotedItems reports whether toks is 'a', 'b', ... and returns the items.
func quotedItems(toks []token) ([]string, bool) {
	var items []string
	for i, t := range toks {
		if i%2 == 0 {
			if t.Kind != tokString {
				return nil, false
			}
			items = append(items, t.Text)
		} else if t.Kind != tokComma {
			return nil, false
		}
	}
	return items, len(toks)%2 == 1
}

func matchQuotedShape(_ string, toks []token) (match, bool) {
	field, op, val, ok := fieldOpValue(toks, tokString)
	if !ok {
		return match{}, false
	}
	return match{Kind: matchQuoted, Field: field, Op: op, Text: val.Text}, true
}

func matchDateNShape(_ string, toks []token) (match, bool) {
	field, op, val, ok := fieldOpValue(toks, tokWord)
	if !ok {
		return match{}, false
	}
	parts := paramLiteral.FindStringSubmatch(val.Text)
	if parts == nil {
		return match{}, false
	}
	lit, ok := condition.ParseDateLiteral(parts[1])
	if !ok || !lit.Parametrised() {
		return match{}, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return match{}, false
	}
	return match{Kind: matchDateN, Field: field, Op: op, Lit: lit, N: n}, true
}

func matchDateShape(_ string, toks []token) (match, bool) {
	field, op, val, ok := fieldOpValue(toks, tokWord)
	if !ok {
		return match{}, false
	}
	lit, ok := condition.ParseDateLiteral(val.Text)
	if !ok || lit.Parametrised() || lit == condition.DateSpecific {
		return match{}, false
	}
	return match{Kind: matchDate, Field: field, Op: op, Lit: lit}, true
}

func matchBareShape(_ string, toks []token) (match, bool) {
	field, op, val, ok := fieldOpValue(toks, tokWord)
	if !ok {
		return match{}, false
	}
	return match{Kind: matchBare, Field: field, Op: op, Text: val.Text}, true
}
