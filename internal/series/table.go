package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var ErrStatsNotComputed = errors.New("rolling stats not computed for metric")

const DefaultWindow = 7

// Row is one observation of one logical series. Keys partition independent
// series; Metrics holds any number of named numeric columns.
type Row struct {
	Key     string
	Date    time.Time
	Metrics map[string]float64
}

// Baseline is the trailing-window statistic attached to a row for one
// metric. Samples counts the rows that contributed; a single-row window has
// no defined standard deviation.
type Baseline struct {
	Mean    float64
	Std     float64
	Samples int
}

func (b Baseline) StdDefined() bool {
	return b.Samples >= 2 && !math.IsNaN(b.Std)
}

// Table holds the grouped time-series rows plus derived baselines per
// metric. Raw metric values are never mutated; recomputing stats for a
// metric overwrites the previous baselines.
type Table struct {
	rows      []Row
	baselines map[string][]Baseline
}

func NewTable(rows []Row) *Table {
	copied := make([]Row, len(rows))
	copy(copied, rows)
	return &Table{
		rows:      copied,
		baselines: make(map[string][]Baseline),
	}
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Rows() []Row {
	return t.rows
}

// Append adds rows after construction, invalidating previously computed
// baselines so a stale window cannot be read against new data.
func (t *Table) Append(rows ...Row) {
	t.rows = append(t.rows, rows...)
	t.baselines = make(map[string][]Baseline)
}

// Baseline returns the trailing stats of row i for metric, or an error if
// ComputeRollingStats has not run for that metric.
func (t *Table) Baseline(metric string, i int) (Baseline, error) {
	stats, ok := t.baselines[metric]
	if !ok {
		return Baseline{}, fmt.Errorf("%w: %s", ErrStatsNotComputed, metric)
	}
	if i < 0 || i >= len(stats) {
		return Baseline{}, fmt.Errorf("row index %d out of range", i)
	}
	return stats[i], nil
}

func (t *Table) HasStats(metric string) bool {
	_, ok := t.baselines[metric]
	return ok
}

// SetBaselines installs externally computed stats for a metric, one per row
// in table order. Used when baselines come from a prior run or a database
// instead of ComputeRollingStats.
func (t *Table) SetBaselines(metric string, stats []Baseline) error {
	if len(stats) != len(t.rows) {
		return fmt.Errorf("got %d baselines for %d rows", len(stats), len(t.rows))
	}
	copied := make([]Baseline, len(stats))
	copy(copied, stats)
	t.baselines[metric] = copied
	return nil
}

// ComputeRollingStats computes trailing mean and sample standard deviation
// per key for the named metric. Rows within a key are ordered by date
// (stable for ties) before windowing; the window covers the trailing
// `window` rows ending at each row, with a minimum of one row at the start
// of a series. Baselines never cross keys.
func (t *Table) ComputeRollingStats(metric string, window int) error {
	if window <= 0 {
		return fmt.Errorf("window must be positive, got %d", window)
	}
	stats := make([]Baseline, len(t.rows))

	for _, idx := range t.groupByKey() {
		sort.SliceStable(idx, func(a, b int) bool {
			return t.rows[idx[a]].Date.Before(t.rows[idx[b]].Date)
		})
		values := make([]float64, 0, len(idx))
		for _, ri := range idx {
			values = append(values, t.rows[ri].Metrics[metric])
			start := len(values) - window
			if start < 0 {
				start = 0
			}
			stats[ri] = computeBaseline(values[start:])
		}
	}

	t.baselines[metric] = stats
	return nil
}

func (t *Table) groupByKey() map[string][]int {
	groups := make(map[string][]int)
	for i, row := range t.rows {
		groups[row.Key] = append(groups[row.Key], i)
	}
	return groups
}

func computeBaseline(window []float64) Baseline {
	n := len(window)
	if n == 0 {
		return Baseline{}
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(n)
	if n < 2 {
		return Baseline{Mean: mean, Std: math.NaN(), Samples: n}
	}
	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	return Baseline{
		Mean:    mean,
		Std:     math.Sqrt(sq / float64(n-1)),
		Samples: n,
	}
}

// Day truncates a timestamp to calendar-day precision in UTC. All series
// dates are stored this way so window filters compare cleanly.
func Day(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
