package condition

import (
	"regexp"
	"strings"
)

// DateLiteral is a named relative date understood by the target query
// language, or SPECIFIC for a concrete date typed by the user.
type DateLiteral string

const (
	DateToday       DateLiteral = "TODAY"
	DateYesterday   DateLiteral = "YESTERDAY"
	DateTomorrow    DateLiteral = "TOMORROW"
	DateThisWeek    DateLiteral = "THIS_WEEK"
	DateLastWeek    DateLiteral = "LAST_WEEK"
	DateNextWeek    DateLiteral = "NEXT_WEEK"
	DateThisMonth   DateLiteral = "THIS_MONTH"
	DateLastMonth   DateLiteral = "LAST_MONTH"
	DateNextMonth   DateLiteral = "NEXT_MONTH"
	DateThisQuarter DateLiteral = "THIS_QUARTER"
	DateLastQuarter DateLiteral = "LAST_QUARTER"
	DateNextQuarter DateLiteral = "NEXT_QUARTER"
	DateThisYear    DateLiteral = "THIS_YEAR"
	DateLastYear    DateLiteral = "LAST_YEAR"
	DateNextYear    DateLiteral = "NEXT_YEAR"
	DateLastNDays   DateLiteral = "LAST_N_DAYS"
	DateNextNDays   DateLiteral = "NEXT_N_DAYS"
	DateLastNMonths DateLiteral = "LAST_N_MONTHS"
	DateNextNMonths DateLiteral = "NEXT_N_MONTHS"
	DateSpecific    DateLiteral = "SPECIFIC"
)

// DateLiteralOption is one entry of the date literal dropdown.
type DateLiteralOption struct {
	Literal      DateLiteral `json:"literal"`
	Label        string      `json:"label"`
	Parametrised bool        `json:"parametrised"`
}

var dateLiteralOptions = []DateLiteralOption{
	{DateToday, "Today", false},
	{DateYesterday, "Yesterday", false},
	{DateTomorrow, "Tomorrow", false},
	{DateThisWeek, "This week", false},
	{DateLastWeek, "Last week", false},
	{DateNextWeek, "Next week", false},
	{DateThisMonth, "This month", false},
	{DateLastMonth, "Last month", false},
	{DateNextMonth, "Next month", false},
	{DateThisQuarter, "This quarter", false},
	{DateLastQuarter, "Last quarter", false},
	{DateNextQuarter, "Next quarter", false},
	{DateThisYear, "This year", false},
	{DateLastYear, "Last year", false},
	{DateNextYear, "Next year", false},
	{DateLastNDays, "Last N days", true},
	{DateNextNDays, "Next N days", true},
	{DateLastNMonths, "Last N months", true},
	{DateNextNMonths, "Next N months", true},
	{DateSpecific, "Specific date", false},
}

var dateLiteralIndex = func() map[DateLiteral]DateLiteralOption {
	m := make(map[DateLiteral]DateLiteralOption, len(dateLiteralOptions))
	for _, o := range dateLiteralOptions {
		m[o.Literal] = o
	}
	return m
}()

// DateLiterals returns the literal set in dropdown order.
func DateLiterals() []DateLiteralOption {
	out := make([]DateLiteralOption, len(dateLiteralOptions))
	copy(out, dateLiteralOptions)
	return out
}

// ParseDateLiteral resolves a literal name case-insensitively.
func ParseDateLiteral(s string) (DateLiteral, bool) {
	d := DateLiteral(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := dateLiteralIndex[d]; ok {
		return d, true
	}
	return "", false
}

// Valid reports whether d is a known literal.
func (d DateLiteral) Valid() bool {
	_, ok := dateLiteralIndex[d]
	return ok
}

// Parametrised reports whether the literal carries an N parameter.
func (d DateLiteral) Parametrised() bool {
	return dateLiteralIndex[d].Parametrised
}

// Label returns the dropdown label.
func (d DateLiteral) Label() string {
	if o, ok := dateLiteralIndex[d]; ok {
		return o.Label
	}
	return string(d)
}

var (
	isoDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`)
)

// IsDateValue reports whether s is a concrete date (YYYY-MM-DD).
func IsDateValue(s string) bool { return isoDate.MatchString(s) }

// IsDateTimeValue reports whether s is a concrete ISO-8601 date-time.
func IsDateTimeValue(s string) bool { return isoDateTime.MatchString(s) }
