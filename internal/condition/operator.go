package condition

import "strings"

// Operator is a comparison operator code.
type Operator string

const (
	OpEQ         Operator = "EQ"
	OpNEQ        Operator = "NEQ"
	OpGT         Operator = "GT"
	OpGTE        Operator = "GTE"
	OpLT         Operator = "LT"
	OpLTE        Operator = "LTE"
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT_IN"
	OpIsNull     Operator = "IS_NULL"
	OpIsNotNull  Operator = "IS_NOT_NULL"
)

// OperatorOption is one entry of a category's operator dropdown.
type OperatorOption struct {
	Code  Operator `json:"code"`
	Label string   `json:"label"`
}

var operatorLabels = map[Operator]string{
	OpEQ:         "equals",
	OpNEQ:        "not equal to",
	OpGT:         "greater than",
	OpGTE:        "greater or equal",
	OpLT:         "less than",
	OpLTE:        "less or equal",
	OpContains:   "contains",
	OpStartsWith: "starts with",
	OpIn:         "in",
	OpNotIn:      "not in",
	OpIsNull:     "is null",
	OpIsNotNull:  "is not null",
}

var comparisonSymbols = map[Operator]string{
	OpEQ:  "=",
	OpNEQ: "!=",
	OpGT:  ">",
	OpGTE: ">=",
	OpLT:  "<",
	OpLTE: "<=",
}

// Ordered operator sets per category. Order is the dropdown order.
var operatorsByCategory = map[Category][]Operator{
	CategoryString: {
		OpEQ, OpNEQ, OpLT, OpGT, OpLTE, OpGTE,
		OpContains, OpStartsWith, OpIsNull, OpIsNotNull,
	},
	CategoryID:        {OpEQ, OpNEQ, OpContains, OpStartsWith, OpIsNull, OpIsNotNull},
	CategoryReference: {OpEQ, OpNEQ, OpContains, OpStartsWith, OpIsNull, OpIsNotNull},
	CategoryPicklist:  {OpEQ, OpNEQ, OpIn, OpNotIn, OpIsNull, OpIsNotNull},
	CategoryBoolean:   {OpEQ},
	CategoryNumber:    {OpEQ, OpNEQ, OpLT, OpGT, OpLTE, OpGTE, OpIsNull, OpIsNotNull},
	CategoryDate:      {OpEQ, OpNEQ, OpLT, OpGT, OpLTE, OpGTE, OpIsNull, OpIsNotNull},
	CategoryDateTime:  {OpEQ, OpNEQ, OpLT, OpGT, OpLTE, OpGTE, OpIsNull, OpIsNotNull},
}

// OperatorsFor returns the legal operators of a category, in order.
func OperatorsFor(c Category) []OperatorOption {
	ops := operatorsByCategory[c]
	out := make([]OperatorOption, len(ops))
	for i, op := range ops {
		out[i] = OperatorOption{Code: op, Label: op.Label()}
	}
	return out
}

// Allows reports whether op is legal for the category.
func Allows(c Category, op Operator) bool {
	for _, o := range operatorsByCategory[c] {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOperator resolves an operator code case-insensitively.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(strings.ToUpper(strings.TrimSpace(s)))
	if op.Valid() {
		return op, true
	}
	return "", false
}

// Valid reports whether op is a known operator code.
func (op Operator) Valid() bool {
	_, ok := operatorLabels[op]
	return ok
}

// Label returns the human-readable label, or the code for unknown operators.
func (op Operator) Label() string {
	if l, ok := operatorLabels[op]; ok {
		return l
	}
	return string(op)
}

// Symbol returns the comparison symbol for EQ/NEQ/GT/GTE/LT/LTE and "" for
// every other operator.
func (op Operator) Symbol() string {
	return comparisonSymbols[op]
}

// TakesValue is false for the null checks.
func (op Operator) TakesValue() bool {
	return op != OpIsNull && op != OpIsNotNull
}

// OperatorForSymbol maps a comparison symbol back to its code. "<>" is
// accepted as a synonym for "!=".
func OperatorForSymbol(sym string) (Operator, bool) {
	if sym == "<>" {
		return OpNEQ, true
	}
	for op, s := range comparisonSymbols {
		if s == sym {
			return op, true
		}
	}
	return "", false
}
