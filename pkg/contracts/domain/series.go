package domain

import (
	"sort"
	"time"
)

// Point is one daily observation of a single-valued series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is one entity's target history: a regular daily sequence of points
// with optional static (time-invariant) attributes attached.
type Series struct {
	ID     string
	Points []Point
	Static map[string]float64
}

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.Points) }

// StartDate returns the date of the first point, or the zero time if empty.
func (s *Series) StartDate() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// EndDate returns the date of the last point, or the zero time if empty.
func (s *Series) EndDate() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// ValueAt returns the value on the given date. The second return is false
// when the date falls outside the series range.
func (s *Series) ValueAt(date time.Time) (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	offset := int(date.Sub(s.Points[0].Date).Hours() / 24)
	if offset < 0 || offset >= len(s.Points) {
		return 0, false
	}
	return s.Points[offset].Value, true
}

// Values returns the raw value sequence in date order.
func (s *Series) Values() []float64 {
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vals[i] = p.Value
	}
	return vals
}

// Tail returns the last n points (or all points when fewer exist).
func (s *Series) Tail(n int) []Point {
	if n >= len(s.Points) {
		return s.Points
	}
	return s.Points[len(s.Points)-n:]
}

// Frame is one entity's multi-column series, used for covariate containers.
// Columns are ordered; Rows[i] holds one value per column for Dates[i].
type Frame struct {
	ID      string
	Columns []string
	Dates   []time.Time
	Rows    [][]float64
	Static  map[string]float64
}

// Len returns the number of dated rows in the frame.
func (f *Frame) Len() int { return len(f.Dates) }

// RowAt returns the row of covariate values for the given date. The second
// return is false when the date falls outside the frame range.
func (f *Frame) RowAt(date time.Time) ([]float64, bool) {
	if len(f.Dates) == 0 {
		return nil, false
	}
	offset := int(date.Sub(f.Dates[0]).Hours() / 24)
	if offset < 0 || offset >= len(f.Dates) {
		return nil, false
	}
	return f.Rows[offset], true
}

// SeriesSet maps entity identifiers to their target series.
type SeriesSet map[string]*Series

// IDs returns the entity identifiers in sorted order.
func (ss SeriesSet) IDs() []string {
	ids := make([]string, 0, len(ss))
	for id := range ss {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FrameSet maps entity identifiers to their covariate frames.
type FrameSet map[string]*Frame

// IDs returns the entity identifiers in sorted order.
func (fs FrameSet) IDs() []string {
	ids := make([]string, 0, len(fs))
	for id := range fs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
