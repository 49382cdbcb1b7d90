package validate

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/condition"
	"github.com/matthewbaird/condexpr/internal/expr"
)

// Wednesday.
var fixedNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ticketCatalog() *catalog.Registry {
	reg := catalog.NewRegistry()
	reg.Register(&catalog.EntitySchema{
		Name: "Ticket",
		Fields: []catalog.FieldDescriptor{
			{APIName: "Subject", Label: "Subject", DataType: catalog.TypeString},
			{APIName: "Status", Label: "Status", DataType: catalog.TypePicklist},
			{APIName: "Priority", Label: "Priority", DataType: catalog.TypePicklist},
			{APIName: "Amount", Label: "Amount", DataType: catalog.TypeCurrency},
			{APIName: "IsEscalated", Label: "Escalated", DataType: catalog.TypeBoolean},
			{APIName: "CreatedDate", Label: "Created", DataType: catalog.TypeDateTime},
			{APIName: "DueDate", Label: "Due", DataType: catalog.TypeDate},
			{APIName: "Missing", Label: "Not a column", DataType: catalog.TypeString},
		},
	})
	return reg
}

func openTicketDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE ticket (
		Subject TEXT, Status TEXT, Priority TEXT, Amount REAL,
		IsEscalated INTEGER, CreatedDate TEXT, DueDate TEXT)`)
	require.NoError(t, err)

	rows := []struct {
		subject, status, priority string
		amount                    float64
		escalated                 bool
		created, due              any
	}{
		{"Printer on fire", "Open", "High", 250, true, "2024-05-14T08:00:00Z", "2024-05-20"},
		{"Password reset", "New", "Low", 0, false, "2024-05-15T09:30:00Z", nil},
		{"Acme renewal", "Closed", "Medium", 1200, false, "2024-03-02T10:00:00Z", "2024-04-01"},
		{"Acme invoice", "Open", "Low", 99.5, false, "2023-12-30T23:00:00Z", "2024-05-15"},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO ticket VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.subject, r.status, r.priority, r.amount, r.escalated, r.created, r.due)
		require.NoError(t, err)
	}
	return db
}

func TestSQLValidator_Counts(t *testing.T) {
	v := NewSQLValidator(openTicketDB(t), dialect.SQLite, ticketCatalog(), WithClock(clock))

	tests := []struct {
		expr  string
		count int64
	}{
		{"", 4},
		{"Status = 'Open'", 2},
		{"Status IN ('Open', 'New') AND Amount > 100", 1},
		{"Status = 'Closed' OR Priority = 'High' AND IsEscalated = true", 2},
		{"Subject LIKE 'Acme%'", 2},
		{"Subject LIKE '%on%'", 1},
		{"DueDate = null", 1},
		{"DueDate != null", 3},
		{"Priority NOT IN ('Low')", 2},
		{"CreatedDate = LAST_N_DAYS:30", 2},
		{"CreatedDate = TODAY", 1},
		{"CreatedDate < THIS_YEAR", 1},
		{"CreatedDate = LAST_QUARTER", 1},
		{"DueDate >= 2024-05-15", 2},
		{"DueDate = THIS_WEEK", 1},
		{"CreatedDate = 2024-05-14", 1},
		{"Amount <= 99.5", 2},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res, err := v.Validate(context.Background(), "Ticket", tt.expr)
			require.NoError(t, err)
			require.True(t, res.Valid, res.Message)
			assert.Equal(t, tt.count, res.Count)
		})
	}
}

func TestSQLValidator_InvalidResults(t *testing.T) {
	v := NewSQLValidator(openTicketDB(t), dialect.SQLite, ticketCatalog(), WithClock(clock))

	tests := []struct {
		name, entity, expr, msg string
	}{
		{"unparsable", "Ticket", "Subject LIKE '%fire' AND Status = 'Open'", "could not be parsed"},
		{"unknown field", "Ticket", "Nope = 'x'", "unknown field Nope"},
		{"unknown entity", "Widget", "Status = 'Open'", "unknown entity"},
		{"database rejects", "Ticket", "Missing = 'x'", "Missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(context.Background(), tt.entity, tt.expr)
			require.NoError(t, err)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Message, tt.msg)
		})
	}
}

func TestSQLValidator_PostgresQuery(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		query string
		args  []driver.Value
	}{
		{
			name:  "true renders the bare column",
			expr:  "Status = 'Closed' OR Priority = 'High' AND IsEscalated = true",
			query: `SELECT COUNT(*) FROM "support_tickets" WHERE "Status" = $1 OR ("Priority" = $2 AND "IsEscalated")`,
			args:  []driver.Value{"Closed", "High"},
		},
		{
			name:  "false renders NOT column",
			expr:  "Priority = 'Low' AND IsEscalated = false",
			query: `SELECT COUNT(*) FROM "support_tickets" WHERE "Priority" = $1 AND NOT "IsEscalated"`,
			args:  []driver.Value{"Low"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			v := NewSQLValidator(db, dialect.Postgres, ticketCatalog(), WithClock(clock), WithTable("Ticket", "support_tickets"))

			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

			res, err := v.Validate(context.Background(), "Ticket", tt.expr)
			require.NoError(t, err)
			assert.True(t, res.Valid, res.Message)
			assert.Equal(t, int64(7), res.Count)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLValidator_CanceledContext(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	v := NewSQLValidator(db, dialect.Postgres, ticketCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = v.Validate(ctx, "Ticket", "Status = 'Open'")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountQuery_DateRanges(t *testing.T) {
	v := NewSQLValidator(nil, dialect.Postgres, ticketCatalog(), WithClock(clock))
	fields, err := ticketCatalog().Fields(context.Background(), "Ticket")
	require.NoError(t, err)

	res := expr.Parse("CreatedDate != THIS_MONTH AND DueDate > NEXT_N_DAYS:7", catalog.NewFieldSet(fields))
	require.False(t, res.Raw)

	query, args, err := v.CountQuery("Ticket", res)
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "ticket"`)
	assert.Equal(t, []any{
		"2024-05-01T00:00:00Z", "2024-06-01T00:00:00Z",
		"2024-05-23",
	}, args)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]condition.Condition{condition.NewRaw("x")}, fixedNow)
	assert.Error(t, err)

	c, err := condition.NewDegraded("Region", condition.CategoryString, condition.OpIn, condition.Expr("EU, US"), "")
	require.NoError(t, err)
	_, err = Compile([]condition.Condition{c}, fixedNow)
	assert.ErrorContains(t, err, "unsupported IN item")

	p, err := Compile(nil, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDateRange(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		lit        condition.DateLiteral
		n          int
		now        time.Time
		start, end time.Time
	}{
		{condition.DateToday, 0, fixedNow, day(2024, 5, 15), day(2024, 5, 16)},
		{condition.DateYesterday, 0, fixedNow, day(2024, 5, 14), day(2024, 5, 15)},
		{condition.DateTomorrow, 0, fixedNow, day(2024, 5, 16), day(2024, 5, 17)},
		{condition.DateThisWeek, 0, fixedNow, day(2024, 5, 12), day(2024, 5, 19)},
		{condition.DateLastWeek, 0, fixedNow, day(2024, 5, 5), day(2024, 5, 12)},
		{condition.DateNextWeek, 0, fixedNow, day(2024, 5, 19), day(2024, 5, 26)},
		{condition.DateThisMonth, 0, fixedNow, day(2024, 5, 1), day(2024, 6, 1)},
		{condition.DateLastMonth, 0, fixedNow, day(2024, 4, 1), day(2024, 5, 1)},
		{condition.DateNextMonth, 0, fixedNow, day(2024, 6, 1), day(2024, 7, 1)},
		{condition.DateThisQuarter, 0, fixedNow, day(2024, 4, 1), day(2024, 7, 1)},
		{condition.DateLastQuarter, 0, fixedNow, day(2024, 1, 1), day(2024, 4, 1)},
		{condition.DateNextQuarter, 0, fixedNow, day(2024, 7, 1), day(2024, 10, 1)},
		{condition.DateLastQuarter, 0, day(2024, 1, 10), day(2023, 10, 1), day(2024, 1, 1)},
		{condition.DateThisYear, 0, fixedNow, day(2024, 1, 1), day(2025, 1, 1)},
		{condition.DateLastYear, 0, fixedNow, day(2023, 1, 1), day(2024, 1, 1)},
		{condition.DateNextYear, 0, fixedNow, day(2025, 1, 1), day(2026, 1, 1)},
		{condition.DateLastNDays, 30, fixedNow, day(2024, 4, 15), day(2024, 5, 16)},
		{condition.DateNextNDays, 7, fixedNow, day(2024, 5, 16), day(2024, 5, 23)},
		{condition.DateLastNMonths, 2, fixedNow, day(2024, 3, 1), day(2024, 5, 1)},
		{condition.DateNextNMonths, 2, fixedNow, day(2024, 6, 1), day(2024, 8, 1)},
	}
	for _, tt := range tests {
		t.Run(string(tt.lit), func(t *testing.T) {
			start, end, err := DateRange(tt.lit, tt.n, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}

	_, _, err := DateRange(condition.DateSpecific, 0, fixedNow)
	assert.Error(t, err)
}
