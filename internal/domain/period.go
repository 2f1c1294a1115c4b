// internal/domain/period.go
package domain

import (
	"fmt"
	"time"
	_ "time/tzdata" // organizations may name any IANA zone
)

// LoadLocation resolves an IANA timezone name, falling back to UTC for empty or unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DailyPeriodKey formats t as YYYY-MM-DD in loc.
func DailyPeriodKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// MonthlyPeriodKey formats t as YYYY-MM in loc.
func MonthlyPeriodKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

// WeeklyPeriodKey formats the ISO-8601 week of t in loc as YYYY-Www.
// The year is the ISO week-numbering year, which differs from the calendar year around
// new year.
func WeeklyPeriodKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// PeriodKey dispatches on the period type.
func PeriodKey(periodType PeriodType, t time.Time, loc *time.Location) string {
	switch periodType {
	case PeriodMonthly:
		return MonthlyPeriodKey(t, loc)
	case PeriodWeekly:
		return WeeklyPeriodKey(t, loc)
	default:
		return DailyPeriodKey(t, loc)
	}
}

// LimitPeriods returns the daily and monthly buckets that a spend at t falls into.
func LimitPeriods(t time.Time, loc *time.Location) []CounterPeriod {
	return []CounterPeriod{
		{Type: PeriodDaily, Key: DailyPeriodKey(t, loc)},
		{Type: PeriodMonthly, Key: MonthlyPeriodKey(t, loc)},
	}
}
