package callout

import (
	"sort"
	"time"

	"lifetrack/internal/model"
	"lifetrack/internal/series"
)

// FilterWindow retains dated callouts whose date falls in [start, end]
// inclusive. Metric-only callouts carry no date and pass through.
func (e *Engine) FilterWindow(start, end time.Time) {
	start, end = series.Day(start), series.Day(end)
	kept := e.callouts[:0]
	for _, c := range e.callouts {
		if c.Kind == model.KindMetricOnly {
			kept = append(kept, c)
			continue
		}
		d := series.Day(c.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		kept = append(kept, c)
	}
	e.callouts = kept
}

// FilterLastWeek keeps the last calendar week excluding today.
func (e *Engine) FilterLastWeek(today time.Time) {
	today = series.Day(today)
	e.FilterWindow(today.AddDate(0, 0, -7), today.AddDate(0, 0, -1))
}

// FilterBufferedWeek keeps a week that ended bufferDays ago, for re-review
// after a grace period.
func (e *Engine) FilterBufferedWeek(today time.Time, bufferDays int) {
	today = series.Day(today)
	e.FilterWindow(today.AddDate(0, 0, -(bufferDays+7)), today.AddDate(0, 0, -bufferDays))
}

// Callouts sorts the working set and returns it. Dated callouts order by
// date descending with ties broken mildest-deviation-first; metric-only
// callouts order by metric ascending after the dated ones.
func (e *Engine) Callouts() []model.Callout {
	sort.SliceStable(e.callouts, func(i, j int) bool {
		return calloutLess(e.callouts[i], e.callouts[j])
	})
	out := make([]model.Callout, len(e.callouts))
	copy(out, e.callouts)
	return out
}

func calloutLess(a, b model.Callout) bool {
	aDated := a.Kind != model.KindMetricOnly
	bDated := b.Kind != model.KindMetricOnly
	switch {
	case aDated && bDated:
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Kind == model.KindDatedDeviation && b.Kind == model.KindDatedDeviation {
			return a.StdDevsAway < b.StdDevsAway
		}
		return false
	case aDated != bDated:
		return aDated
	default:
		return a.Metric < b.Metric
	}
}
