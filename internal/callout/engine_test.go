package callout

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"lifetrack/internal/model"
	"lifetrack/internal/series"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func singleRowTable(t *testing.T, value float64, b series.Baseline) *series.Table {
	t.Helper()
	table := series.NewTable([]series.Row{
		{Key: "Food", Date: day("2024-01-10"), Metrics: map[string]float64{"amount": value}},
	})
	if err := table.SetBaselines("amount", []series.Baseline{b}); err != nil {
		t.Fatalf("set baselines: %v", err)
	}
	return table
}

func TestSpikeBoundaryStrict(t *testing.T) {
	baseline := series.Baseline{Mean: 10, Std: 2, Samples: 7}

	eng := NewEngine(singleRowTable(t, 14, baseline), nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	if eng.Size() != 0 {
		t.Fatalf("value exactly at bound must not trigger")
	}

	eng = NewEngine(singleRowTable(t, 14.01, baseline), nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	got := eng.Callouts()
	if len(got) != 1 {
		t.Fatalf("expected one callout, got %d", len(got))
	}
	c := got[0]
	if c.Kind != model.KindDatedDeviation {
		t.Fatalf("kind = %s", c.Kind)
	}
	if c.Key != "Food" || !c.Date.Equal(day("2024-01-10")) {
		t.Fatalf("wrong attribution: %+v", c)
	}
	if c.Value != "14.01" {
		t.Fatalf("value = %q", c.Value)
	}
	if !strings.Contains(c.Condition, "> 2 standard deviation from trailing average amount") {
		t.Fatalf("condition = %q", c.Condition)
	}
}

func TestStdDevsAwayRounded(t *testing.T) {
	baseline := series.Baseline{Mean: 10, Std: 3, Samples: 7}
	eng := NewEngine(singleRowTable(t, 17, baseline), nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	got := eng.Callouts()
	if len(got) != 1 {
		t.Fatalf("count = %d, want 1", len(got))
	}
	// (17-10)/3 = 2.333... rounds to two decimals
	if got[0].StdDevsAway != 2.33 {
		t.Fatalf("std_devs_away = %v, want 2.33", got[0].StdDevsAway)
	}
}

func TestDropSymmetric(t *testing.T) {
	baseline := series.Baseline{Mean: 10, Std: 2, Samples: 7}
	eng := NewEngine(singleRowTable(t, 5.5, baseline), nil)
	if err := eng.CheckDrop("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	got := eng.Callouts()
	if len(got) != 1 {
		t.Fatalf("expected one callout, got %d", len(got))
	}
	if got[0].StdDevsAway != -2.25 {
		t.Fatalf("std_devs_away = %v, want -2.25", got[0].StdDevsAway)
	}
	if !strings.HasPrefix(got[0].Check, "Drop in") {
		t.Fatalf("check = %q", got[0].Check)
	}
}

func TestSpikeFlagsOnlyExtremeRow(t *testing.T) {
	// flat series with one extreme high value
	values := []float64{10, 10, 10, 11, 9, 10, 100, 10, 10}
	first := day("2024-01-01")
	rows := make([]series.Row, 0, len(values))
	for i, v := range values {
		rows = append(rows, series.Row{
			Key:     "k",
			Date:    first.AddDate(0, 0, i),
			Metrics: map[string]float64{"amount": v},
		})
	}
	table := series.NewTable(rows)
	if err := table.ComputeRollingStats("amount", 7); err != nil {
		t.Fatalf("compute: %v", err)
	}

	eng := NewEngine(table, nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("spike: %v", err)
	}
	spikes := eng.Callouts()
	if len(spikes) != 1 {
		t.Fatalf("spike count = %d, want 1", len(spikes))
	}
	if !spikes[0].Date.Equal(first.AddDate(0, 0, 6)) {
		t.Fatalf("wrong spike date: %v", spikes[0].Date)
	}

	eng = NewEngine(table, nil)
	if err := eng.CheckDrop("amount", 2.0); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if n := len(eng.Callouts()); n != 0 {
		t.Fatalf("drop count = %d, want 0", n)
	}
}

func TestDegenerateStdNotFlagged(t *testing.T) {
	undefined := series.Baseline{Mean: 10, Std: math.NaN(), Samples: 1}
	eng := NewEngine(singleRowTable(t, 1000, undefined), nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	if eng.Size() != 0 {
		t.Fatalf("undefined std must not flag")
	}

	zero := series.Baseline{Mean: 10, Std: 0, Samples: 7}
	eng = NewEngine(singleRowTable(t, 1000, zero), nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("check: %v", err)
	}
	if eng.Size() != 0 {
		t.Fatalf("zero std must not flag")
	}
}

func TestCheckBeforeComputeFails(t *testing.T) {
	table := series.NewTable([]series.Row{
		{Key: "k", Date: day("2024-01-01"), Metrics: map[string]float64{"amount": 1}},
	})
	eng := NewEngine(table, nil)
	err := eng.CheckSpike("amount", 2.0)
	if !errors.Is(err, series.ErrStatsNotComputed) {
		t.Fatalf("err = %v, want stats-not-computed", err)
	}
}

func TestThresholdCheck(t *testing.T) {
	rows := []series.Row{
		{Key: "Sleep", Date: day("2024-01-01"), Metrics: map[string]float64{"hours": 7.5}},
		{Key: "Sleep", Date: day("2024-01-02"), Metrics: map[string]float64{"hours": 4}},
	}
	eng := NewEngine(series.NewTable(rows), nil)
	if err := eng.CheckThreshold("hours", "<", 6); err != nil {
		t.Fatalf("check: %v", err)
	}
	got := eng.Callouts()
	if len(got) != 1 {
		t.Fatalf("count = %d, want 1", len(got))
	}
	c := got[0]
	if c.Kind != model.KindDated {
		t.Fatalf("kind = %s", c.Kind)
	}
	if c.StdDevsAway != 0 {
		t.Fatalf("flat-threshold callout must not carry a deviation")
	}
	if c.Condition != "hours < 6" {
		t.Fatalf("condition = %q", c.Condition)
	}
	if c.MoreInfo != "Current value: 4" {
		t.Fatalf("more_info = %q", c.MoreInfo)
	}
}

func TestThresholdInvalidOperator(t *testing.T) {
	rows := []series.Row{
		{Key: "k", Date: day("2024-01-01"), Metrics: map[string]float64{"hours": 4}},
	}
	eng := NewEngine(series.NewTable(rows), nil)
	err := eng.CheckThreshold("hours", "=", 6)
	if !errors.Is(err, ErrInvalidOperator) {
		t.Fatalf("err = %v, want invalid operator", err)
	}
	if eng.Size() != 0 {
		t.Fatalf("invalid operator must produce no callouts")
	}
}

func TestMultipleChecksAccumulate(t *testing.T) {
	baseline := series.Baseline{Mean: 10, Std: 2, Samples: 7}
	table := singleRowTable(t, 50, baseline)
	eng := NewEngine(table, nil)
	if err := eng.CheckSpike("amount", 2.0); err != nil {
		t.Fatalf("spike: %v", err)
	}
	if err := eng.CheckThreshold("amount", ">", 40); err != nil {
		t.Fatalf("threshold: %v", err)
	}
	if eng.Size() != 2 {
		t.Fatalf("size = %d, want the same row flagged by both checks", eng.Size())
	}
}

func TestAppendMergesWithoutDedup(t *testing.T) {
	eng := NewEngine(nil, nil)
	batch := []model.Callout{
		{Kind: model.KindDated, Key: "a", Date: day("2024-01-01"), Check: "c"},
	}
	eng.Append(batch)
	eng.Append(batch)
	if eng.Size() != 2 {
		t.Fatalf("size = %d, want 2", eng.Size())
	}
}
