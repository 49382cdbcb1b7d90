package condition

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/condexpr/internal/catalog"
)

var (
	statusField  = catalog.FieldDescriptor{APIName: "Status", Label: "Status", DataType: catalog.TypePicklist}
	subjectField = catalog.FieldDescriptor{APIName: "Subject", Label: "Subject", DataType: catalog.TypeString}
	amountField  = catalog.FieldDescriptor{APIName: "Amount__c", Label: "Amount", DataType: catalog.TypeCurrency}
	createdField = catalog.FieldDescriptor{APIName: "CreatedDate", Label: "Created Date", DataType: catalog.TypeDateTime}
	flagField    = catalog.FieldDescriptor{APIName: "IsEscalated", Label: "Escalated", DataType: catalog.TypeBoolean}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in   catalog.DataType
		want Category
	}{
		{catalog.TypeString, CategoryString},
		{catalog.TypeTextArea, CategoryString},
		{catalog.TypeEmail, CategoryString},
		{catalog.TypePhone, CategoryString},
		{catalog.TypeURL, CategoryString},
		{catalog.TypePicklist, CategoryPicklist},
		{catalog.TypeMultiPicklist, CategoryPicklist},
		{catalog.TypeBoolean, CategoryBoolean},
		{catalog.TypeInteger, CategoryNumber},
		{catalog.TypeDouble, CategoryNumber},
		{catalog.TypeCurrency, CategoryNumber},
		{catalog.TypePercent, CategoryNumber},
		{catalog.TypeDate, CategoryDate},
		{catalog.TypeDateTime, CategoryDateTime},
		{catalog.TypeID, CategoryID},
		{catalog.TypeReference, CategoryReference},
		{"datetime", CategoryDateTime},
		{"GEOLOCATION", CategoryString},
		{"", CategoryString},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestOperatorsFor(t *testing.T) {
	codes := func(c Category) []Operator {
		var out []Operator
		for _, o := range OperatorsFor(c) {
			out = append(out, o.Code)
		}
		return out
	}

	assert.Equal(t, []Operator{OpEQ}, codes(CategoryBoolean))
	assert.Equal(t, []Operator{OpEQ, OpNEQ, OpIn, OpNotIn, OpIsNull, OpIsNotNull}, codes(CategoryPicklist))
	assert.Equal(t, []Operator{OpEQ, OpNEQ, OpContains, OpStartsWith, OpIsNull, OpIsNotNull}, codes(CategoryReference))

	for _, c := range Categories {
		assert.NotEmpty(t, OperatorsFor(c), c)
		for _, o := range OperatorsFor(c) {
			assert.NotEmpty(t, o.Label)
		}
	}
	assert.Empty(t, OperatorsFor("NOPE"))
}

func TestAllows(t *testing.T) {
	assert.True(t, Allows(CategoryString, OpContains))
	assert.True(t, Allows(CategoryID, OpStartsWith))
	assert.False(t, Allows(CategoryNumber, OpContains))
	assert.False(t, Allows(CategoryPicklist, OpContains))
	assert.False(t, Allows(CategoryString, OpIn))
	assert.False(t, Allows(CategoryBoolean, OpNEQ))
}

func TestOperatorSymbols(t *testing.T) {
	for _, op := range []Operator{OpEQ, OpNEQ, OpGT, OpGTE, OpLT, OpLTE} {
		got, ok := OperatorForSymbol(op.Symbol())
		require.True(t, ok)
		assert.Equal(t, op, got)
	}
	got, ok := OperatorForSymbol("<>")
	require.True(t, ok)
	assert.Equal(t, OpNEQ, got)

	_, ok = OperatorForSymbol("==")
	assert.False(t, ok)
	assert.Empty(t, OpContains.Symbol())
	assert.False(t, OpIsNull.TakesValue())
}

func TestDateLiterals(t *testing.T) {
	lits := DateLiterals()
	require.Len(t, lits, 20)
	assert.Equal(t, DateToday, lits[0].Literal)
	assert.Equal(t, DateSpecific, lits[len(lits)-1].Literal)

	lit, ok := ParseDateLiteral("last_n_days")
	require.True(t, ok)
	assert.Equal(t, DateLastNDays, lit)
	assert.True(t, lit.Parametrised())
	assert.False(t, DateThisQuarter.Parametrised())

	_, ok = ParseDateLiteral("LAST_FORTNIGHT")
	assert.False(t, ok)
}

func TestNewDateValue(t *testing.T) {
	d, err := NewDateValue(DateLastNDays, 30, "")
	require.NoError(t, err)
	assert.Equal(t, "LAST_N_DAYS:30", d.Token())
	assert.Equal(t, "Last 30 days", d.Display())

	d, err = NewDateValue(DateSpecific, 0, "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", d.Token())

	d, err = NewDateValue(DateSpecific, 0, "2024-01-31T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31T10:00:00Z", d.Display())

	d, err = NewDateValue(DateToday, 7, "ignored")
	require.NoError(t, err)
	assert.Equal(t, Date{Literal: DateToday}, d)

	_, err = NewDateValue(DateSpecific, 0, "yesterday-ish")
	assert.True(t, errors.Is(err, ErrInvalidValue))
	_, err = NewDateValue(DateNextNMonths, -1, "")
	assert.True(t, errors.Is(err, ErrInvalidValue))
	_, err = NewDateValue("SOMEDAY", 0, "")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestNewNumberValue(t *testing.T) {
	for _, s := range []string{"0", "-12", "+3", "3.14", ".5", "1e6", "2.5E-3", " 42 "} {
		_, err := NewNumberValue(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "abc", "1,000", "NaN", "0x1F", "1.2.3"} {
		_, err := NewNumberValue(s)
		assert.True(t, errors.Is(err, ErrInvalidValue), s)
	}
	n, err := NewNumberValue("1.50")
	require.NoError(t, err)
	assert.Equal(t, Number("1.50"), n, "literal kept exactly")
}

func intPtr(n int) *int { return &n }

func TestValueFromInput(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		in   Input
		want Value
	}{
		{"null", CategoryString, Input{Operator: OpIsNull, Value: "x"}, nil},
		{"text", CategoryString, Input{Operator: OpEQ, Value: "Acme"}, Text("Acme")},
		{"picklist single", CategoryPicklist, Input{Operator: OpIn, Value: "Open"}, ListValue{"Open"}},
		{"picklist many", CategoryPicklist, Input{Operator: OpNotIn, Values: []string{"New", "Open"}}, ListValue{"New", "Open"}},
		{"non-picklist in", CategoryString, Input{Operator: OpIn, Value: "'a', 'b'"}, Expr("'a', 'b'")},
		{"bool", CategoryBoolean, Input{Operator: OpEQ, Value: "TRUE"}, Bool(true)},
		{"number", CategoryNumber, Input{Operator: OpGT, Value: "100"}, Number("100")},
		{"date literal", CategoryDate, Input{Operator: OpEQ, DateLiteral: "this_month"}, Date{Literal: DateThisMonth}},
		{"date n", CategoryDateTime, Input{Operator: OpGT, DateLiteral: DateLastNDays, N: intPtr(30)}, Date{Literal: DateLastNDays, N: 30}},
		{"date n zero", CategoryDate, Input{Operator: OpEQ, DateLiteral: DateNextNDays, N: intPtr(0)}, Date{Literal: DateNextNDays}},
		{"date specific", CategoryDate, Input{Operator: OpLT, Value: "2024-05-01"}, Date{Literal: DateSpecific, Raw: "2024-05-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueFromInput(tt.cat, tt.in.Operator, tt.in)
			require.NoError(t, err)
			assert.True(t, ValuesEqual(tt.want, got), "got %#v", got)
		})
	}
}

func TestValueFromInput_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		in   Input
	}{
		{"empty text", CategoryString, Input{Operator: OpContains}},
		{"bad bool", CategoryBoolean, Input{Operator: OpEQ, Value: "yes"}},
		{"bad number", CategoryNumber, Input{Operator: OpEQ, Value: "ten"}},
		{"empty list", CategoryPicklist, Input{Operator: OpIn}},
		{"empty expr", CategoryNumber, Input{Operator: OpIn, Value: "  "}},
		{"missing date", CategoryDate, Input{Operator: OpEQ}},
		{"missing n", CategoryDateTime, Input{Operator: OpGT, DateLiteral: DateLastNDays}},
		{"negative n", CategoryDate, Input{Operator: OpGT, DateLiteral: DateLastNDays, N: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValueFromInput(tt.cat, tt.in.Operator, tt.in)
			assert.True(t, errors.Is(err, ErrInvalidValue), "got %v", err)
		})
	}
}

func TestNew_EnforcesOperatorAndValue(t *testing.T) {
	c, err := New(statusField, OpEQ, Text("Open"), ConnectorNone)
	require.NoError(t, err)
	assert.Equal(t, CategoryPicklist, c.Category)
	assert.Equal(t, "equals", c.OperatorLabel)
	assert.Equal(t, "Open", c.DisplayValue)
	assert.Regexp(t, `^cond-`, c.ID)

	_, err = New(amountField, OpContains, Text("1"), ConnectorNone)
	assert.True(t, errors.Is(err, ErrIllegalOperator))

	_, err = New(amountField, OpEQ, Text("1"), ConnectorNone)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = New(subjectField, OpIsNull, Text("x"), ConnectorNone)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = New(flagField, OpEQ, nil, ConnectorNone)
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = New(subjectField, OpEQ, Text("x"), "XOR")
	assert.True(t, errors.Is(err, ErrInvalidConnector))
}

func TestNewDegraded(t *testing.T) {
	c, err := NewDegraded("Legacy__c", CategoryString, OpIn, Expr("1, 2"), ConnectorOr)
	require.NoError(t, err)
	assert.Equal(t, "Legacy__c", c.Field)
	assert.Equal(t, "Legacy__c", c.FieldLabel)
	assert.Equal(t, ConnectorOr, c.Connector)

	_, err = NewDegraded("Legacy__c", CategoryString, "LIKE", Text("x"), ConnectorNone)
	assert.True(t, errors.Is(err, ErrIllegalOperator))
}

func TestFromInput(t *testing.T) {
	c, err := FromInput(createdField, Input{Operator: OpGT, DateLiteral: DateLastNDays, N: intPtr(30), Connector: "or"})
	require.NoError(t, err)
	assert.Equal(t, Date{Literal: DateLastNDays, N: 30}, c.Value)
	assert.Equal(t, ConnectorOr, c.Connector)

	_, err = FromInput(flagField, Input{Operator: OpNEQ, Value: "true"})
	assert.True(t, errors.Is(err, ErrIllegalOperator))
}

func TestNewRaw(t *testing.T) {
	c := NewRaw("foo(bar) AND x")
	assert.True(t, c.Raw)
	assert.Equal(t, RawLabel, c.FieldLabel)
	assert.Equal(t, "foo(bar) AND x", c.Fragment)
	assert.Empty(t, c.Category)
	assert.Empty(t, c.Operator)
	assert.Empty(t, c.DisplayValue)
}

func TestEquivalent(t *testing.T) {
	a, err := New(statusField, OpIn, ListValue{"New", "Open"}, ConnectorNone)
	require.NoError(t, err)
	b, err := New(catalog.FieldDescriptor{APIName: "status", DataType: catalog.TypePicklist}, OpIn, ListValue{"New", "Open"}, ConnectorNone)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Equivalent(b))

	b.Value = ListValue{"Open"}
	assert.False(t, a.Equivalent(b))
}

func TestCondition_MarshalJSON(t *testing.T) {
	c, err := New(createdField, OpGT, Date{Literal: DateLastNDays, N: 30}, ConnectorNone)
	require.NoError(t, err)
	c.Fragment = "CreatedDate > LAST_N_DAYS:30"

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "date", got["value_kind"])
	assert.Equal(t, map[string]any{"literal": "LAST_N_DAYS", "n": float64(30)}, got["value"])
	assert.Equal(t, "Last 30 days", got["display_value"])
	assert.Equal(t, "", got["connector"])

	f, err := New(flagField, OpEQ, Bool(false), ConnectorNone)
	require.NoError(t, err)
	data, err = json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value":false`)
}
