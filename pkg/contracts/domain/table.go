package domain

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the canonical date format used across all artifacts.
const DateLayout = "2006-01-02"

// TargetColumn is the forecast target of the pipeline.
const TargetColumn = "sales"

// Day truncates a timestamp to UTC midnight. All pipeline dates are daily.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Observation is one (entity, date) row of a flat table. Values holds every
// numeric column keyed by column name; the entity identifier and the date are
// kept out of the map so they can never be confused with model features.
type Observation struct {
	ID     string
	Date   time.Time
	Values map[string]float64
}

// Get returns the named value and whether the column is present on this row.
func (o Observation) Get(col string) (float64, bool) {
	v, ok := o.Values[col]
	return v, ok
}

// Table is a dense flat table keyed by (entity, date). Columns lists the value
// columns in a stable order; every row is expected to carry all of them once
// the table has been finalized.
type Table struct {
	Columns []string
	Rows    []Observation
}

// HasColumn reports whether the table declares the given value column.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// AddColumn appends a new value column declaration. It fails if the name
// collides with an existing column.
func (t *Table) AddColumn(col string) error {
	if t.HasColumn(col) {
		return fmt.Errorf("column %q already exists", col)
	}
	t.Columns = append(t.Columns, col)
	return nil
}

// EntityIDs returns the distinct entity identifiers in sorted order.
func (t *Table) EntityIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range t.Rows {
		if !seen[row.ID] {
			seen[row.ID] = true
			ids = append(ids, row.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// EntityRows returns the rows for one entity sorted ascending by date.
func (t *Table) EntityRows(id string) []Observation {
	var rows []Observation
	for _, row := range t.Rows {
		if row.ID == id {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// MaxDate returns the latest date present in the table.
func (t *Table) MaxDate() time.Time {
	var max time.Time
	for _, row := range t.Rows {
		if row.Date.After(max) {
			max = row.Date
		}
	}
	return max
}

// Sort orders rows by entity identifier, then date. Every keyed merge in the
// pipeline normalizes through this ordering so output is deterministic.
func (t *Table) Sort() {
	sort.Slice(t.Rows, func(i, j int) bool {
		if t.Rows[i].ID != t.Rows[j].ID {
			return t.Rows[i].ID < t.Rows[j].ID
		}
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})
}
