package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// Candle files are named {SYMBOL}_{interval}.csv, e.g. BTC_1d.csv.
var requiredColumns = []string{"open", "high", "low", "close", "volume"}

var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Loader reads candle CSV files from a data directory.
type Loader struct {
	dataDir string
	log     *logger.Logger
}

// NewLoader creates a loader rooted at dataDir.
func NewLoader(dataDir string, log *logger.Logger) *Loader {
	return &Loader{dataDir: dataDir, log: log}
}

// Catalog scans the data directory and returns the available intervals
// per symbol, both sorted.
func (l *Loader) Catalog() (map[string][]string, error) {
	entries, err := filepath.Glob(filepath.Join(l.dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan data directory: %w", err)
	}

	catalog := make(map[string][]string)
	for _, path := range entries {
		base := strings.TrimSuffix(filepath.Base(path), ".csv")
		idx := strings.LastIndex(base, "_")
		if idx <= 0 || idx == len(base)-1 {
			continue
		}
		symbol, interval := base[:idx], base[idx+1:]
		catalog[symbol] = append(catalog[symbol], interval)
	}

	for symbol := range catalog {
		sort.Strings(catalog[symbol])
	}

	return catalog, nil
}

// Load reads the candles for symbol/interval and returns the rows with
// from <= timestamp <= to. Zero bounds are unbounded.
func (l *Loader) Load(symbol, interval string, from, to time.Time) (*Frame, error) {
	frame, err := l.LoadAll(symbol, interval)
	if err != nil {
		return nil, err
	}
	return frame.Slice(from, to), nil
}

// LoadAll reads the full candle file for symbol/interval.
func (l *Loader) LoadAll(symbol, interval string) (*Frame, error) {
	path := filepath.Join(l.dataDir, fmt.Sprintf("%s_%s.csv", symbol, interval))

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no data for %s/%s: %w", symbol, interval, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	dateIdx := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if strings.EqualFold(header[i], "date") || strings.EqualFold(header[i], "timestamp") {
			dateIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%s has no date column", path)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	timestamps := make([]time.Time, 0, len(records))
	columns := make(map[string]Series, len(header)-1)
	for i, name := range header {
		if i != dateIdx {
			columns[name] = make(Series, 0, len(records))
		}
	}

	for line, record := range records {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", path, line+2, len(header), len(record))
		}

		ts, err := parseTime(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line+2, err)
		}
		timestamps = append(timestamps, ts)

		for i, field := range record {
			if i == dateIdx {
				continue
			}
			columns[header[i]] = append(columns[header[i]], parseFloat(field))
		}
	}

	sortRows(timestamps, columns)

	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Equal(timestamps[i-1]) {
			return nil, fmt.Errorf("%s has duplicate timestamp %s", path, timestamps[i].Format(time.RFC3339))
		}
	}

	for _, name := range requiredColumns {
		if _, ok := lookupFold(columns, name); !ok {
			return nil, fmt.Errorf("%s is missing required column %q", path, name)
		}
	}

	frame, err := NewFrame(timestamps, columns)
	if err != nil {
		return nil, fmt.Errorf("invalid data in %s: %w", path, err)
	}

	l.log.Debugf("loaded %d rows for %s/%s", frame.Len(), symbol, interval)
	return frame, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	// Unix seconds as a fallback
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

func parseFloat(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return math.NaN()
	}
	switch strings.ToLower(value) {
	case "nan", "null", "none":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func lookupFold(columns map[string]Series, name string) (Series, bool) {
	if col, ok := columns[name]; ok {
		return col, true
	}
	for candidate, col := range columns {
		if strings.EqualFold(candidate, name) {
			return col, true
		}
	}
	return nil, false
}

// sortRows orders all columns by ascending timestamp.
func sortRows(timestamps []time.Time, columns map[string]Series) {
	if sort.SliceIsSorted(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) }) {
		return
	}

	perm := make([]int, len(timestamps))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return timestamps[perm[i]].Before(timestamps[perm[j]])
	})

	sorted := make([]time.Time, len(timestamps))
	for i, p := range perm {
		sorted[i] = timestamps[p]
	}
	copy(timestamps, sorted)

	buf := make(Series, len(timestamps))
	for name, col := range columns {
		for i, p := range perm {
			buf[i] = col[p]
		}
		copy(col, buf)
		columns[name] = col
	}
}
