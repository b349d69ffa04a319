package callout

import (
	"testing"

	"lifetrack/internal/model"
)

func dated(d string, stdDevs float64) model.Callout {
	return model.Callout{
		Kind:        model.KindDatedDeviation,
		Key:         "k",
		Date:        day(d),
		Check:       "Spike in amount",
		StdDevsAway: stdDevs,
	}
}

func TestSortOrderContract(t *testing.T) {
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		dated("2024-01-02", 3.0),
		dated("2024-01-02", 1.0),
		dated("2024-01-01", 5.0),
	})
	got := eng.Callouts()
	want := []struct {
		date string
		std  float64
	}{
		{"2024-01-02", 1.0},
		{"2024-01-02", 3.0},
		{"2024-01-01", 5.0},
	}
	if len(got) != len(want) {
		t.Fatalf("count = %d", len(got))
	}
	for i, w := range want {
		if !got[i].Date.Equal(day(w.date)) || got[i].StdDevsAway != w.std {
			t.Fatalf("position %d: got (%s, %v), want (%s, %v)",
				i, got[i].Date.Format("2006-01-02"), got[i].StdDevsAway, w.date, w.std)
		}
	}
}

func TestMetricOnlySortAfterDated(t *testing.T) {
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		{Kind: model.KindMetricOnly, Metric: "savings rate", Check: "b"},
		dated("2024-01-01", 2.0),
		{Kind: model.KindMetricOnly, Metric: "groceries budget", Check: "a"},
	})
	got := eng.Callouts()
	if got[0].Kind != model.KindDatedDeviation {
		t.Fatalf("dated callout must sort first")
	}
	if got[1].Metric != "groceries budget" || got[2].Metric != "savings rate" {
		t.Fatalf("metric-only callouts not ordered by metric: %q, %q", got[1].Metric, got[2].Metric)
	}
}

func TestFilterWindowInclusive(t *testing.T) {
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		dated("2024-06-07", 1), // one before the window
		dated("2024-06-08", 1), // start bound
		dated("2024-06-11", 1),
		dated("2024-06-14", 1), // end bound
		dated("2024-06-15", 1), // after the window
	})
	eng.FilterWindow(day("2024-06-08"), day("2024-06-14"))
	got := eng.Callouts()
	if len(got) != 3 {
		t.Fatalf("count = %d, want 3", len(got))
	}
	for _, c := range got {
		if c.Date.Before(day("2024-06-08")) || c.Date.After(day("2024-06-14")) {
			t.Fatalf("date %s outside window", c.Date.Format("2006-01-02"))
		}
	}
}

func TestFilterLastWeek(t *testing.T) {
	today := day("2024-06-15")
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		dated("2024-06-07", 1), // eight days back, excluded
		dated("2024-06-08", 1), // seven days back, included
		dated("2024-06-14", 1), // yesterday, included
		dated("2024-06-15", 1), // today, excluded
	})
	eng.FilterLastWeek(today)
	got := eng.Callouts()
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day("2024-06-14")) || !got[1].Date.Equal(day("2024-06-08")) {
		t.Fatalf("wrong dates kept: %v, %v", got[0].Date, got[1].Date)
	}
}

func TestFilterBufferedWeek(t *testing.T) {
	today := day("2024-06-15")
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		dated("2024-06-04", 1), // eleven days back, excluded
		dated("2024-06-05", 1), // ten days back, start of window
		dated("2024-06-12", 1), // three days back, end of window
		dated("2024-06-13", 1), // two days back, excluded
	})
	eng.FilterBufferedWeek(today, 3)
	got := eng.Callouts()
	if len(got) != 2 {
		t.Fatalf("count = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day("2024-06-12")) || !got[1].Date.Equal(day("2024-06-05")) {
		t.Fatalf("wrong dates kept: %v, %v", got[0].Date, got[1].Date)
	}
}

func TestFilterKeepsMetricOnly(t *testing.T) {
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{
		dated("2020-01-01", 1),
		{Kind: model.KindMetricOnly, Metric: "runway", Check: "c"},
	})
	eng.FilterLastWeek(day("2024-06-15"))
	got := eng.Callouts()
	if len(got) != 1 || got[0].Kind != model.KindMetricOnly {
		t.Fatalf("metric-only callout must survive date filtering: %+v", got)
	}
}

func TestCalloutsReturnsCopy(t *testing.T) {
	eng := NewEngine(nil, nil)
	eng.Append([]model.Callout{dated("2024-01-01", 1)})
	out := eng.Callouts()
	out[0].Key = "mutated"
	if eng.Callouts()[0].Key != "k" {
		t.Fatalf("Callouts must not expose internal state")
	}
}
