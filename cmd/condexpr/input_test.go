package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/condexpr/internal/condition"
)

func intPtr(n int) *int { return &n }

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want condition.Input
	}{
		{
			name: "code operator",
			in:   "Status EQ Open",
			want: condition.Input{Field: "Status", Operator: condition.OpEQ, Value: "Open"},
		},
		{
			name: "symbol operator and connector",
			in:   "or Amount >= 1000.50",
			want: condition.Input{Field: "Amount", Operator: condition.OpGTE, Value: "1000.50", Connector: condition.ConnectorOr},
		},
		{
			name: "value keeps inner spacing",
			in:   "AND Subject contains Printer  jam",
			want: condition.Input{Field: "Subject", Operator: condition.OpContains, Value: "Printer  jam", Connector: condition.ConnectorAnd},
		},
		{
			name: "null check has no value",
			in:   "Owner IS_NULL",
			want: condition.Input{Field: "Owner", Operator: condition.OpIsNull},
		},
		{
			name: "in list",
			in:   "Priority IN High, Low,",
			want: condition.Input{Field: "Priority", Operator: condition.OpIn, Value: "High, Low,", Values: []string{"High", "Low"}},
		},
		{
			name: "parametrised date literal",
			in:   "ClosedDate > LAST_N_DAYS:30",
			want: condition.Input{Field: "ClosedDate", Operator: condition.OpGT, Value: "LAST_N_DAYS:30", DateLiteral: condition.DateLastNDays, N: intPtr(30)},
		},
		{
			name: "plain date literal",
			in:   "DueDate = today",
			want: condition.Input{Field: "DueDate", Operator: condition.OpEQ, Value: "today", DateLiteral: condition.DateToday},
		},
		{
			name: "specific datetime",
			in:   "CreatedDate < 2024-05-01T10:00:00Z",
			want: condition.Input{Field: "CreatedDate", Operator: condition.OpLT, Value: "2024-05-01T10:00:00Z"},
		},
		{
			name: "literal missing N stays text",
			in:   "DueDate = NEXT_N_DAYS",
			want: condition.Input{Field: "DueDate", Operator: condition.OpEQ, Value: "NEXT_N_DAYS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCondition_Errors(t *testing.T) {
	for _, in := range []string{"", "Status", "OR Status", "Status LIKE Open"} {
		_, err := parseCondition(in)
		assert.Error(t, err, in)
	}
}
