package features

import (
	"fmt"
	"time"

	"salesfc/internal/config"
	"salesfc/pkg/contracts/domain"
)

// calendarFeature is one toggleable date-derived feature.
type calendarFeature struct {
	name    string
	enabled func(config.DateFeaturesConfig) bool
	value   func(time.Time, config.DateFeaturesConfig) float64
}

// calendarFeatures lists every calendar feature in output order. Booleans are
// encoded as 0/1 so the whole table stays numeric.
var calendarFeatures = []calendarFeature{
	{"year", func(c config.DateFeaturesConfig) bool { return c.Year },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64(d.Year()) }},
	{"quarter", func(c config.DateFeaturesConfig) bool { return c.Quarter },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64((int(d.Month())-1)/3 + 1) }},
	{"month", func(c config.DateFeaturesConfig) bool { return c.Month },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64(d.Month()) }},
	{"week", func(c config.DateFeaturesConfig) bool { return c.Week },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { _, w := d.ISOWeek(); return float64(w) }},
	{"day_of_week", func(c config.DateFeaturesConfig) bool { return c.DayOfWeek },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64(mondayIndexed(d)) }},
	{"day_of_month", func(c config.DateFeaturesConfig) bool { return c.DayOfMonth },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64(d.Day()) }},
	{"day_of_year", func(c config.DateFeaturesConfig) bool { return c.DayOfYear },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return float64(d.YearDay()) }},
	{"is_weekend", func(c config.DateFeaturesConfig) bool { return c.IsWeekend },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return boolToFloat(mondayIndexed(d) >= 5) }},
	{"is_month_end", func(c config.DateFeaturesConfig) bool { return c.IsMonthEnd },
		func(d time.Time, _ config.DateFeaturesConfig) float64 { return boolToFloat(d.AddDate(0, 0, 1).Day() == 1) }},
	{"is_payroll", func(c config.DateFeaturesConfig) bool { return c.IsPayroll },
		func(d time.Time, c config.DateFeaturesConfig) float64 { return boolToFloat(d.Day() == c.PayrollDay) }},
}

// mondayIndexed returns the weekday with Monday as 0 and Sunday as 6.
func mondayIndexed(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// eventWeekColumn flags the single configured anomaly week.
const eventWeekColumn = "is_event_week"

// applyCalendar attaches the enabled calendar features to every row of the
// table. The event-week flag covers the Monday through Sunday of the week
// containing the configured anchor date, both boundary days inclusive.
func applyCalendar(table *domain.Table, cfg config.DateFeaturesConfig) error {
	var active []calendarFeature
	for _, f := range calendarFeatures {
		if f.enabled(cfg) {
			if err := table.AddColumn(f.name); err != nil {
				return err
			}
			active = append(active, f)
		}
	}

	var eventStart, eventEnd time.Time
	hasEvent := cfg.EventDate != ""
	if hasEvent {
		anchor, err := time.Parse(domain.DateLayout, cfg.EventDate)
		if err != nil {
			return fmt.Errorf("bad event date %q: %w", cfg.EventDate, err)
		}
		anchor = domain.Day(anchor)
		eventStart = anchor.AddDate(0, 0, -mondayIndexed(anchor))
		eventEnd = eventStart.AddDate(0, 0, 6)
		if err := table.AddColumn(eventWeekColumn); err != nil {
			return err
		}
	}

	for i := range table.Rows {
		row := &table.Rows[i]
		for _, f := range active {
			row.Values[f.name] = f.value(row.Date, cfg)
		}
		if hasEvent {
			inWeek := !row.Date.Before(eventStart) && !row.Date.After(eventEnd)
			row.Values[eventWeekColumn] = boolToFloat(inWeek)
		}
	}
	return nil
}
