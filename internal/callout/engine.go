package callout

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lifetrack/internal/model"
	"lifetrack/internal/series"
)

var ErrInvalidOperator = errors.New(`operator must be ">" or "<"`)

// Engine runs threshold checks against a series table and accumulates the
// flagged rows into one append-only callout set. Checks run sequentially;
// the same row may be flagged by multiple check types.
type Engine struct {
	table    *series.Table
	logger   *slog.Logger
	callouts []model.Callout
}

// NewEngine binds an engine to a table. A nil table is allowed for an
// engine used only to collect, filter and sort batches from other engines.
func NewEngine(table *series.Table, logger *slog.Logger) *Engine {
	return &Engine{table: table, logger: logger}
}

// CheckSpike flags rows whose value exceeds the trailing mean by more than
// threshold standard deviations. Rows without a defined deviation cannot be
// flagged.
func (e *Engine) CheckSpike(metric string, threshold float64) error {
	return e.checkDeviation(metric, threshold, true)
}

// CheckDrop is the symmetric check below the trailing mean.
func (e *Engine) CheckDrop(metric string, threshold float64) error {
	return e.checkDeviation(metric, threshold, false)
}

func (e *Engine) checkDeviation(metric string, threshold float64, spike bool) error {
	if !e.table.HasStats(metric) {
		return fmt.Errorf("%w: %s", series.ErrStatsNotComputed, metric)
	}
	label := metricLabel(metric)
	flagged := 0
	for i, row := range e.table.Rows() {
		b, err := e.table.Baseline(metric, i)
		if err != nil {
			return err
		}
		if !b.StdDefined() || b.Std == 0 {
			continue
		}
		value := row.Metrics[metric]
		var bound float64
		var hit bool
		var check, condition, moreInfo string
		if spike {
			bound = b.Mean + threshold*b.Std
			hit = value > bound
			check = fmt.Sprintf("Spike in %s", label)
			condition = fmt.Sprintf("> %g standard deviation from trailing average %s", threshold, label)
			moreInfo = fmt.Sprintf("%s > %s (trailing avg: %s, trailing std dev: %s)",
				FormatNumber(value), FormatNumber(bound), FormatNumber(b.Mean), FormatNumber(b.Std))
		} else {
			bound = b.Mean - threshold*b.Std
			hit = value < bound
			check = fmt.Sprintf("Drop in %s", label)
			condition = fmt.Sprintf("< %g standard deviation from trailing average %s", threshold, label)
			moreInfo = fmt.Sprintf("%s < %s (trailing avg: %s, trailing std dev: %s)",
				FormatNumber(value), FormatNumber(bound), FormatNumber(b.Mean), FormatNumber(b.Std))
		}
		if !hit {
			continue
		}
		e.callouts = append(e.callouts, model.Callout{
			Kind:        model.KindDatedDeviation,
			Key:         row.Key,
			Date:        row.Date,
			Check:       check,
			Condition:   condition,
			MoreInfo:    moreInfo,
			Value:       rawValue(value),
			StdDevsAway: round2((value - b.Mean) / b.Std),
		})
		flagged++
	}
	if e.logger != nil {
		e.logger.Debug("deviation check complete", "metric", metric, "spike", spike, "flagged", flagged)
	}
	return nil
}

// CheckThreshold flags rows violating a flat comparison against threshold,
// independent of rolling statistics. op must be ">" or "<"; anything else
// is rejected before any rows are examined.
func (e *Engine) CheckThreshold(metric string, op string, threshold float64) error {
	if op != ">" && op != "<" {
		return fmt.Errorf("%w, got %q", ErrInvalidOperator, op)
	}
	label := metricLabel(metric)
	condText := fmt.Sprintf("%s %s", op, FormatNumber(threshold))
	flagged := 0
	for _, row := range e.table.Rows() {
		value := row.Metrics[metric]
		if op == ">" && !(value > threshold) {
			continue
		}
		if op == "<" && !(value < threshold) {
			continue
		}
		e.callouts = append(e.callouts, model.Callout{
			Kind:      model.KindDated,
			Key:       row.Key,
			Date:      row.Date,
			Check:     fmt.Sprintf("%s %s", label, condText),
			Condition: fmt.Sprintf("%s %s", label, condText),
			MoreInfo:  fmt.Sprintf("Current value: %s", FormatNumber(value)),
			Value:     rawValue(value),
		})
		flagged++
	}
	if e.logger != nil {
		e.logger.Debug("threshold check complete", "metric", metric, "op", op, "flagged", flagged)
	}
	return nil
}

// Append merges an externally produced batch into the working set. No
// deduplication: accumulation is a plain union.
func (e *Engine) Append(batch []model.Callout) {
	e.callouts = append(e.callouts, batch...)
}

func (e *Engine) Size() int {
	return len(e.callouts)
}

func metricLabel(metric string) string {
	return strings.ToLower(strings.ReplaceAll(metric, "_", " "))
}
