package budget

import (
	"fmt"
	"time"

	"lifetrack/internal/callout"
	"lifetrack/internal/config"
	"lifetrack/internal/model"
)

// Manager evaluates configured time/spend budgets against actuals. Budgets
// live in the config file and reload with it.
type Manager struct {
	budgets []config.BudgetConfig
}

func NewManager(budgets []config.BudgetConfig) *Manager {
	return &Manager{budgets: budgets}
}

func (m *Manager) Get(name string) (config.BudgetConfig, bool) {
	for _, b := range m.budgets {
		if b.Name == name {
			return b, true
		}
	}
	return config.BudgetConfig{}, false
}

func (m *Manager) All() []config.BudgetConfig {
	return m.budgets
}

// Active returns the budgets whose [start_date, end_date] range covers the
// given day.
func (m *Manager) Active(date time.Time) []config.BudgetConfig {
	var out []config.BudgetConfig
	for _, b := range m.budgets {
		start, end, err := b.Window()
		if err != nil {
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Progress computes pro-rata progress for one budget. The expected value
// scales the target by elapsed days; weekend days are excluded from both
// counts when the budget says so. Returns false when the budget is unknown
// or the date falls outside its window.
func (m *Manager) Progress(name string, actual float64, date time.Time) (model.BudgetProgress, bool) {
	b, ok := m.Get(name)
	if !ok {
		return model.BudgetProgress{}, false
	}
	start, end, err := b.Window()
	if err != nil {
		return model.BudgetProgress{}, false
	}
	if date.Before(start) || date.After(end) {
		return model.BudgetProgress{}, false
	}

	totalDays := int(end.Sub(start).Hours()/24) + 1
	daysPassed := int(date.Sub(start).Hours()/24) + 1
	if !b.IncludeWeekends {
		totalDays = countWeekdays(start, totalDays)
		daysPassed = countWeekdays(start, daysPassed)
	}

	expected := 0.0
	if totalDays > 0 {
		expected = b.Target / float64(totalDays) * float64(daysPassed)
	}

	var pct float64
	if b.Direction == config.BudgetLess {
		pct = 100
		if actual > 0 {
			pct = expected / actual * 100
		}
	} else {
		pct = 0
		if expected > 0 {
			pct = actual / expected * 100
		}
	}

	onTrack := pct >= 100
	if b.Direction == config.BudgetLess {
		onTrack = pct <= 100
	}
	return model.BudgetProgress{
		Name:       b.Name,
		Target:     b.Target,
		Actual:     actual,
		Expected:   expected,
		Percentage: pct,
		OnTrack:    onTrack,
	}, true
}

func countWeekdays(start time.Time, days int) int {
	count := 0
	for d := 0; d < days; d++ {
		wd := start.AddDate(0, 0, d).Weekday()
		if wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// Callouts converts off-track budgets into metric-only callout records.
// On-track budgets produce nothing.
func Callouts(progress []model.BudgetProgress) []model.Callout {
	var out []model.Callout
	for _, p := range progress {
		if p.OnTrack {
			continue
		}
		out = append(out, model.Callout{
			Kind:      model.KindMetricOnly,
			Metric:    p.Name,
			Check:     fmt.Sprintf("Off track on %s", p.Name),
			Condition: fmt.Sprintf("progress %.1f%% of pace", p.Percentage),
			MoreInfo: fmt.Sprintf("actual %s vs expected %s (target %s)",
				callout.FormatNumber(p.Actual), callout.FormatNumber(p.Expected), callout.FormatNumber(p.Target)),
			Value: fmt.Sprintf("%.2f", p.Actual),
		})
	}
	return out
}
