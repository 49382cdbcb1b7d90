package validate

import (
	"fmt"
	"time"

	"github.com/matthewbaird/condexpr/internal/condition"
)

// DateRange resolves a relative date literal to the half-open interval
// [start, end) around now, in now's location. Weeks start on Sunday and
// quarters are calendar quarters.
func DateRange(lit condition.DateLiteral, n int, now time.Time) (start, end time.Time, err error) {
	loc := now.Location()
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	month := func(offset int) time.Time {
		return time.Date(y, m+time.Month(offset), 1, 0, 0, 0, 0, loc)
	}
	week := day.AddDate(0, 0, -int(day.Weekday()))
	quarter := func(offset int) time.Time {
		first := (int(m)-1)/3*3 + 1
		return time.Date(y, time.Month(first+3*offset), 1, 0, 0, 0, 0, loc)
	}
	year := func(offset int) time.Time {
		return time.Date(y+offset, time.January, 1, 0, 0, 0, 0, loc)
	}

	switch lit {
	case condition.DateToday:
		return day, day.AddDate(0, 0, 1), nil
	case condition.DateYesterday:
		return day.AddDate(0, 0, -1), day, nil
	case condition.DateTomorrow:
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), nil
	case condition.DateThisWeek:
		return week, week.AddDate(0, 0, 7), nil
	case condition.DateLastWeek:
		return week.AddDate(0, 0, -7), week, nil
	case condition.DateNextWeek:
		return week.AddDate(0, 0, 7), week.AddDate(0, 0, 14), nil
	case condition.DateThisMonth:
		return month(0), month(1), nil
	case condition.DateLastMonth:
		return month(-1), month(0), nil
	case condition.DateNextMonth:
		return month(1), month(2), nil
	case condition.DateThisQuarter:
		return quarter(0), quarter(1), nil
	case condition.DateLastQuarter:
		return quarter(-1), quarter(0), nil
	case condition.DateNextQuarter:
		return quarter(1), quarter(2), nil
	case condition.DateThisYear:
		return year(0), year(1), nil
	case condition.DateLastYear:
		return year(-1), year(0), nil
	case condition.DateNextYear:
		return year(1), year(2), nil
	case condition.DateLastNDays:
		return day.AddDate(0, 0, -n), day.AddDate(0, 0, 1), nil
	case condition.DateNextNDays:
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, 1+n), nil
	case condition.DateLastNMonths:
		return month(-n), month(0), nil
	case condition.DateNextNMonths:
		return month(1), month(1 + n), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("no range for date literal %q", lit)
}
