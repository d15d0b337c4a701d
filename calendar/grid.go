// Package calendar builds month grids made of whole weeks.
package calendar

import (
	"errors"
	"time"
)

var (
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
	ErrInvalidYear      = errors.New("year must be between 1 and 9999")
	ErrInvalidWeekStart = errors.New("week start must be between 0 (Sunday) and 6 (Saturday)")
)

const (
	minYear = 1
	maxYear = 9999
)

// Month is a navigation target.
type Month struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Grid is the set of full weeks needed to display one month.
type Grid struct {
	Year      int
	Month     int
	MonthName string
	WeekStart time.Weekday
	// Weeks holds 7 consecutive dates each, at midnight UTC.
	Weeks [][]time.Time
	// Prev and Next are nil when they would fall outside years 1..9999.
	Prev *Month
	Next *Month
}

// Build returns the grid for year/month with weeks starting on weekStart.
func Build(year, month int, weekStart time.Weekday) (Grid, error) {
	if month < 1 || month > 12 {
		return Grid{}, ErrInvalidMonth
	}
	if year < minYear || year > maxYear {
		return Grid{}, ErrInvalidYear
	}
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Grid{}, ErrInvalidWeekStart
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	trail := (int(weekStart) + 6 - int(last.Weekday())) % 7
	start := first.AddDate(0, 0, -lead)
	end := last.AddDate(0, 0, trail)

	var weeks [][]time.Time
	week := make([]time.Time, 0, 7)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		week = append(week, d)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]time.Time, 0, 7)
		}
	}

	return Grid{
		Year:      year,
		Month:     month,
		MonthName: time.Month(month).String(),
		WeekStart: weekStart,
		Weeks:     weeks,
		Prev:      neighbour(year, month, -1),
		Next:      neighbour(year, month, 1),
	}, nil
}

// Shift moves a month by delta (-1 or 1), wrapping across year boundaries.
// ok is false when the target lies outside the years Build accepts.
func Shift(year, month, delta int) (m Month, ok bool) {
	switch {
	case delta < 0 && month == 1:
		m = Month{Year: year - 1, Month: 12}
	case delta > 0 && month == 12:
		m = Month{Year: year + 1, Month: 1}
	default:
		m = Month{Year: year, Month: month + delta}
	}
	return m, m.Year >= minYear && m.Year <= maxYear
}

func neighbour(year, month, delta int) *Month {
	m, ok := Shift(year, month, delta)
	if !ok {
		return nil
	}
	return &m
}

// Contains reports whether day falls in the grid's own month.
func (g Grid) Contains(day time.Time) bool {
	return day.Year() == g.Year && int(day.Month()) == g.Month
}
