package runway

import (
	"fmt"
	"sort"

	"lifetrack/internal/model"
)

// wmaWeights favor recent months; the last len(window) weights apply when
// fewer than three months exist.
var wmaWeights = []float64{0.1, 0.3, 0.6}

type MonthBurn struct {
	Month    string  `json:"month"`
	Total    float64 `json:"total"`
	Weighted float64 `json:"weighted_moving_avg"`
}

type Liquidation struct {
	Percent float64 `json:"percent"`
	Months  float64 `json:"months"`
	Years   float64 `json:"years"`
}

type Metrics struct {
	AverageBurn  float64       `json:"average_burn"`
	Months       []MonthBurn   `json:"months"`
	Liquidations []Liquidation `json:"liquidations"`
}

// Compute derives monthly burn, a 3-month weighted moving average, and the
// runway in months for each liquidation percentage of net worth.
func Compute(entries []model.LedgerEntry, netWorth float64, percentages []float64) Metrics {
	totals := make(map[string]float64)
	for _, e := range entries {
		totals[e.Date.Format("2006-01")] += e.Amount.InexactFloat64()
	}
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)

	burns := make([]MonthBurn, 0, len(months))
	values := make([]float64, 0, len(months))
	for _, m := range months {
		values = append(values, totals[m])
		burns = append(burns, MonthBurn{
			Month:    m,
			Total:    totals[m],
			Weighted: weightedAverage(values),
		})
	}

	var avg float64
	if len(burns) > 0 {
		var sum float64
		for _, b := range burns {
			sum += b.Weighted
		}
		avg = sum / float64(len(burns))
	}

	if len(percentages) == 0 {
		percentages = []float64{1, 0.5, 0.25, 0.1}
	}
	liquidations := make([]Liquidation, 0, len(percentages))
	for _, pct := range percentages {
		var months float64
		if avg > 0 {
			months = netWorth * pct / avg
		}
		liquidations = append(liquidations, Liquidation{
			Percent: pct,
			Months:  months,
			Years:   months / 12,
		})
	}
	return Metrics{AverageBurn: avg, Months: burns, Liquidations: liquidations}
}

// weightedAverage applies the trailing weights to the last up-to-3 values.
func weightedAverage(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n > len(wmaWeights) {
		values = values[n-len(wmaWeights):]
		n = len(values)
	}
	weights := wmaWeights[len(wmaWeights)-n:]
	var sum float64
	for i, v := range values {
		sum += v * weights[i]
	}
	return sum
}

// FormatIndian renders an amount in the Indian numbering system for
// runway display strings.
func FormatIndian(number float64) string {
	switch {
	case number >= 1e7:
		return fmt.Sprintf("%.2f Cr", number/1e7)
	case number >= 1e5:
		return fmt.Sprintf("%.2f L", number/1e5)
	default:
		return fmt.Sprintf("%.2f K", number/1e3)
	}
}
