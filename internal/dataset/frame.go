package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Series is a column of float64 values aligned to a frame's timestamps.
// Missing values are NaN, never zero.
type Series []float64

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Frame is an ordered, timestamp-indexed table of float64 columns.
// Timestamps are strictly increasing and unique. A frame is read-only
// once built; derived values live in caller-owned series.
type Frame struct {
	timestamps []time.Time
	columns    map[string]Series
	order      []string
}

// NewFrame builds a frame from timestamps and named columns. Every
// column must have the same length as the timestamp index, and the
// index must be strictly increasing.
func NewFrame(timestamps []time.Time, columns map[string]Series) (*Frame, error) {
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, fmt.Errorf("timestamps must be strictly increasing: index %d (%s) does not follow %s",
				i, timestamps[i].Format(time.RFC3339), timestamps[i-1].Format(time.RFC3339))
		}
	}

	order := make([]string, 0, len(columns))
	for name, col := range columns {
		if len(col) != len(timestamps) {
			return nil, fmt.Errorf("column %q has %d values for %d timestamps", name, len(col), len(timestamps))
		}
		order = append(order, name)
	}
	sort.Strings(order)

	return &Frame{timestamps: timestamps, columns: columns, order: order}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.timestamps)
}

// Timestamps returns the row index.
func (f *Frame) Timestamps() []time.Time {
	return f.timestamps
}

// Columns returns the column names in deterministic order.
func (f *Frame) Columns() []string {
	return f.order
}

// Column returns the named column by exact name.
func (f *Frame) Column(name string) (Series, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// Lookup returns the named column, trying an exact match first and a
// case-insensitive match second.
func (f *Frame) Lookup(name string) (Series, bool) {
	if col, ok := f.columns[name]; ok {
		return col, true
	}
	for _, candidate := range f.order {
		if strings.EqualFold(candidate, name) {
			return f.columns[candidate], true
		}
	}
	return nil, false
}

// Slice returns the rows with from <= timestamp <= to. A zero from or
// to leaves that side unbounded. Column data is shared with the parent.
func (f *Frame) Slice(from, to time.Time) *Frame {
	lo := 0
	if !from.IsZero() {
		lo = sort.Search(len(f.timestamps), func(i int) bool {
			return !f.timestamps[i].Before(from)
		})
	}
	hi := len(f.timestamps)
	if !to.IsZero() {
		hi = sort.Search(len(f.timestamps), func(i int) bool {
			return f.timestamps[i].After(to)
		})
	}
	if lo > hi {
		lo = hi
	}
	return f.window(lo, hi)
}

// Tail returns the last n rows, or the whole frame when it has fewer.
func (f *Frame) Tail(n int) *Frame {
	if n >= len(f.timestamps) {
		return f
	}
	return f.window(len(f.timestamps)-n, len(f.timestamps))
}

func (f *Frame) window(lo, hi int) *Frame {
	cols := make(map[string]Series, len(f.columns))
	for name, col := range f.columns {
		cols[name] = col[lo:hi]
	}
	return &Frame{
		timestamps: f.timestamps[lo:hi],
		columns:    cols,
		order:      f.order,
	}
}

// NaNCount reports how many values in the column are NaN. Unknown
// columns count as fully missing.
func (f *Frame) NaNCount(name string) int {
	col, ok := f.Lookup(name)
	if !ok {
		return len(f.timestamps)
	}
	n := 0
	for _, v := range col {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
