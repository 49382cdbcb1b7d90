package options

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
)

func testRegistry() *catalog.Registry {
	reg := catalog.NewRegistry()
	reg.Register(&catalog.EntitySchema{
		Name: "Case",
		Fields: []catalog.FieldDescriptor{
			{APIName: "Subject", Label: "Subject", DataType: catalog.TypeString},
			{APIName: "Priority", Label: "Priority", DataType: catalog.TypePicklist},
			{APIName: "IsEscalated", Label: "Escalated", DataType: catalog.TypeBoolean},
			{APIName: "ClosedDate", Label: "Closed Date", DataType: catalog.TypeDateTime},
			{APIName: "Amount__c", Label: "Amount", DataType: catalog.TypeCurrency},
		},
		Choices: map[string][]catalog.Choice{
			"priority": {{Label: "Low", Value: "Low"}, {Label: "Medium", Value: "Medium"}, {Label: "High", Value: "High"}},
		},
	})
	reg.Register(&catalog.EntitySchema{Name: "Account"})
	return reg
}

func field(t *testing.T, reg *catalog.Registry, name string) catalog.FieldDescriptor {
	t.Helper()
	fields, err := reg.Fields(context.Background(), "Case")
	require.NoError(t, err)
	fd, ok := catalog.NewFieldSet(fields).Lookup(name)
	require.True(t, ok, name)
	return fd
}

func values(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Value)
	}
	return out
}

func TestEngine_Entities(t *testing.T) {
	e := New(testRegistry())

	items, err := e.Entities(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Account", "Case"}, values(items))

	items, err = e.Entities(context.Background(), "ca")
	require.NoError(t, err)
	assert.Equal(t, []string{"Case"}, values(items))
	assert.Equal(t, "entity", items[0].Kind)
}

type fieldsOnly struct{ catalog.Adapter }

func TestEngine_EntitiesWithoutLister(t *testing.T) {
	e := New(fieldsOnly{testRegistry()})
	items, err := e.Entities(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestEngine_Fields(t *testing.T) {
	e := New(testRegistry())

	items, err := e.Fields(context.Background(), "Case", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Subject", "Priority", "IsEscalated", "ClosedDate", "Amount__c"}, values(items))
	assert.Equal(t, "Closed Date", items[3].Label)
	assert.Equal(t, string(condition.CategoryDateTime), items[3].Detail)
	assert.Equal(t, string(condition.CategoryNumber), items[4].Detail)

	items, err = e.Fields(context.Background(), "Case", "esc")
	require.NoError(t, err)
	assert.Equal(t, []string{"IsEscalated"}, values(items), "matches on label too")

	_, err = e.Fields(context.Background(), "Widget", "")
	assert.ErrorIs(t, err, catalog.ErrUnknownEntity)
}

func TestEngine_Operators(t *testing.T) {
	e := New(testRegistry())

	items := e.Operators(condition.CategoryBoolean)
	require.Len(t, items, 1)
	assert.Equal(t, Item{Label: "equals", Value: string(condition.OpEQ), Kind: "operator", Detail: "="}, items[0])

	assert.Equal(t, []string{
		string(condition.OpEQ), string(condition.OpNEQ),
		string(condition.OpIn), string(condition.OpNotIn),
		string(condition.OpIsNull), string(condition.OpIsNotNull),
	}, values(e.Operators(condition.CategoryPicklist)))
}

func TestEngine_Values(t *testing.T) {
	reg := testRegistry()
	e := New(reg)
	ctx := context.Background()

	items, err := e.Values(ctx, "Case", field(t, reg, "Priority"), condition.OpIn, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "Medium", "High"}, values(items))

	items, err = e.Values(ctx, "Case", field(t, reg, "Priority"), condition.OpEQ, "h")
	require.NoError(t, err)
	assert.Equal(t, []string{"High"}, values(items))

	items, err = e.Values(ctx, "Case", field(t, reg, "IsEscalated"), condition.OpEQ, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"true", "false"}, values(items))

	items, err = e.Values(ctx, "Case", field(t, reg, "ClosedDate"), condition.OpGT, "")
	require.NoError(t, err)
	assert.Len(t, items, len(condition.DateLiterals()))

	items, err = e.Values(ctx, "Case", field(t, reg, "ClosedDate"), condition.OpGT, "last_n")
	require.NoError(t, err)
	assert.Equal(t, []string{"LAST_N_DAYS", "LAST_N_MONTHS"}, values(items))
	assert.True(t, items[0].TakesN)

	items, err = e.Values(ctx, "Case", field(t, reg, "Subject"), condition.OpEQ, "")
	require.NoError(t, err)
	assert.Nil(t, items)

	items, err = e.Values(ctx, "Case", field(t, reg, "Priority"), condition.OpIsNull, "")
	require.NoError(t, err)
	assert.Nil(t, items)
}
