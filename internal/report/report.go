package report

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"lifetrack/internal/budget"
	"lifetrack/internal/callout"
	"lifetrack/internal/classify"
	"lifetrack/internal/config"
	"lifetrack/internal/feed"
	"lifetrack/internal/ingest"
	"lifetrack/internal/model"
	"lifetrack/internal/series"
	"lifetrack/internal/storage"
)

const (
	SeriesExpenses = "expenses"
	SeriesTime     = "time"

	MetricAmount = "amount"
	MetricHours  = "hours"
)

// Generator runs the whole report pipeline: ingest ledger entries and time
// blocks, build daily per-category tables, compute rolling stats, run the
// configured checks, fold in budget callouts, window-filter and sort, then
// publish to the feed and persistence.
type Generator struct {
	cfg      *config.Manager
	logger   *slog.Logger
	feed     *feed.Store
	snapshot *series.Snapshot
	store    storage.Store

	mu           sync.Mutex
	pushed       []model.MetricPoint
	unsavedFrom  int
	lastEntries  []model.LedgerEntry
	lastProgress []model.BudgetProgress
}

func NewGenerator(cfg *config.Manager, logger *slog.Logger, feedStore *feed.Store, snapshot *series.Snapshot, store storage.Store) *Generator {
	return &Generator{
		cfg:      cfg,
		logger:   logger,
		feed:     feedStore,
		snapshot: snapshot,
		store:    store,
	}
}

// Start consumes externally pushed metric points until ctx is done. Points
// are buffered and folded into the tables on the next Run.
func (g *Generator) Start(ctx context.Context, in <-chan model.MetricPoint) {
	go func() {
		for {
			select {
			case pt := <-in:
				g.AddPoint(pt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (g *Generator) AddPoint(pt model.MetricPoint) {
	if pt.Key == "" || pt.Metric == "" {
		return
	}
	g.mu.Lock()
	g.pushed = append(g.pushed, pt)
	g.mu.Unlock()
}

// Run generates one report as of today and returns the sorted callouts.
func (g *Generator) Run(ctx context.Context, today time.Time) ([]model.Callout, error) {
	cfg := g.cfg.Get()
	today = series.Day(today)

	entries, err := g.loadExpenses(cfg)
	if err != nil {
		return nil, err
	}
	blocks, err := g.loadTimeBlocks(cfg, today)
	if err != nil {
		return nil, err
	}

	pushed := g.pendingPoints()
	tables := map[string]*series.Table{
		SeriesExpenses: buildExpenseTable(entries, pointsFor(pushed, MetricAmount)),
		SeriesTime:     buildTimeTable(blocks, pointsFor(pushed, MetricHours)),
	}

	collected := callout.NewEngine(nil, g.logger)
	// fixed series order keeps same-date ties stable across runs
	for _, name := range []string{SeriesExpenses, SeriesTime} {
		table := tables[name]
		engine := callout.NewEngine(table, g.logger)
		if err := g.runChecks(cfg, name, table, engine); err != nil {
			return nil, err
		}
		collected.Append(engine.Callouts())
		g.publishSnapshot(name, table)
	}

	progress := g.budgetProgress(cfg, blocks, today)
	collected.Append(budget.Callouts(progress))

	switch cfg.Report.Window {
	case config.WindowBufferedWeek:
		collected.FilterBufferedWeek(today, cfg.Report.BufferDays)
	case config.WindowAll:
	default:
		collected.FilterLastWeek(today)
	}
	callouts := collected.Callouts()

	g.mu.Lock()
	g.lastEntries = entries
	g.lastProgress = progress
	g.mu.Unlock()

	if g.feed != nil {
		g.feed.Replace(callouts)
	}
	g.persist(ctx, callouts, pushed)

	if g.logger != nil {
		g.logger.Info("report generated",
			"as_of", today.Format("2006-01-02"),
			"entries", len(entries),
			"time_blocks", len(blocks),
			"pushed_points", len(pushed),
			"callouts", len(callouts),
		)
	}
	return callouts, nil
}

// LastEntries returns the filtered expense entries seen by the last Run,
// for runway calculation at the API boundary.
func (g *Generator) LastEntries() []model.LedgerEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.LedgerEntry, len(g.lastEntries))
	copy(out, g.lastEntries)
	return out
}

func (g *Generator) LastProgress() []model.BudgetProgress {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.BudgetProgress, len(g.lastProgress))
	copy(out, g.lastProgress)
	return out
}

func (g *Generator) loadExpenses(cfg *config.Config) ([]model.LedgerEntry, error) {
	if cfg.Ingest.LedgerPath == "" {
		return nil, nil
	}
	parser := ingest.NewLedgerParser(cfg.Ingest.CurrencySymbol)
	entries, err := parser.ParseFile(cfg.Ingest.LedgerPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if g.logger != nil {
				g.logger.Warn("ledger file missing, skipping expenses", "path", cfg.Ingest.LedgerPath)
			}
			return nil, nil
		}
		return nil, err
	}
	filter := ingest.ExpenseFilter{
		TopAccounts:       cfg.Ingest.Expense.TopAccounts,
		ExcludeCategories: cfg.Ingest.Expense.ExcludeCategories,
		IncludeCategories: cfg.Ingest.Expense.IncludeCategories,
		ExcludePairs:      toPairs(cfg.Ingest.Expense.Exclusions),
		HalveLoan:         cfg.Ingest.Expense.HalveHomeLoan,
	}
	return filter.Apply(entries), nil
}

func (g *Generator) loadTimeBlocks(cfg *config.Config, today time.Time) ([]model.TimeBlock, error) {
	if cfg.Ingest.DailyNotesDir == "" {
		return nil, nil
	}
	start := today.AddDate(0, 0, -90)
	if cfg.Ingest.StartDate != "" {
		if parsed, err := time.Parse("2006-01-02", cfg.Ingest.StartDate); err == nil {
			start = parsed
		}
	}
	blocks, err := ingest.WalkDailyNotes(cfg.Ingest.DailyNotesDir, start, today)
	if err != nil {
		return nil, err
	}
	classifier := classify.New(cfg.Activities)
	for i := range blocks {
		blocks[i].Category = classifier.Assign(blocks[i].Activity)
	}
	return blocks, nil
}

func (g *Generator) runChecks(cfg *config.Config, name string, table *series.Table, engine *callout.Engine) error {
	for _, check := range cfg.Checks {
		if check.Series != name {
			continue
		}
		switch check.Type {
		case config.CheckSpike, config.CheckDrop:
			if !table.HasStats(check.Metric) {
				if err := table.ComputeRollingStats(check.Metric, cfg.Series.Window); err != nil {
					return err
				}
			}
			if check.Type == config.CheckSpike {
				if err := engine.CheckSpike(check.Metric, check.Threshold); err != nil {
					return err
				}
			} else {
				if err := engine.CheckDrop(check.Metric, check.Threshold); err != nil {
					return err
				}
			}
		case config.CheckThreshold:
			if err := engine.CheckThreshold(check.Metric, check.Operator, check.Threshold); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Generator) budgetProgress(cfg *config.Config, blocks []model.TimeBlock, today time.Time) []model.BudgetProgress {
	mgr := budget.NewManager(cfg.Budgets)
	var out []model.BudgetProgress
	for _, b := range mgr.Active(today) {
		start, end, err := b.Window()
		if err != nil {
			continue
		}
		var actual float64
		for _, blk := range blocks {
			day := series.Day(blk.Date)
			if blk.Category == b.Name && !day.Before(start) && !day.After(end) {
				actual += blk.Hours()
			}
		}
		if p, ok := mgr.Progress(b.Name, actual, today); ok {
			out = append(out, p)
		}
	}
	return out
}

func (g *Generator) publishSnapshot(name string, table *series.Table) {
	if g.snapshot == nil {
		return
	}
	latest := make(map[string]int)
	for i, row := range table.Rows() {
		if prev, ok := latest[row.Key]; !ok || row.Date.After(table.Rows()[prev].Date) {
			latest[row.Key] = i
		}
	}
	for key, i := range latest {
		row := table.Rows()[i]
		var stats []series.KeyStats
		for metric := range row.Metrics {
			b, err := table.Baseline(metric, i)
			if err != nil {
				continue
			}
			// an undefined std is NaN, which JSON cannot carry
			std := b.Std
			if !b.StdDefined() {
				std = 0
			}
			stats = append(stats, series.KeyStats{
				Metric:  metric,
				Date:    row.Date,
				Value:   row.Metrics[metric],
				Mean:    b.Mean,
				Std:     std,
				Samples: b.Samples,
			})
		}
		if len(stats) > 0 {
			g.snapshot.Update(name+"/"+key, stats)
		}
	}
}

func (g *Generator) pendingPoints() []model.MetricPoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]model.MetricPoint, len(g.pushed))
	copy(out, g.pushed)
	return out
}

func (g *Generator) persist(ctx context.Context, callouts []model.Callout, pushed []model.MetricPoint) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveCallouts(ctx, callouts); err != nil && g.logger != nil {
		g.logger.Warn("persist callouts failed", "err", err)
	}
	g.mu.Lock()
	newPoints := pushed[g.unsavedFrom:]
	g.unsavedFrom = len(pushed)
	g.mu.Unlock()
	if err := g.store.SaveMetricPoints(ctx, newPoints); err != nil && g.logger != nil {
		g.logger.Warn("persist metric points failed", "err", err)
	}
}

func buildExpenseTable(entries []model.LedgerEntry, extra []model.MetricPoint) *series.Table {
	type cell struct {
		key  string
		date time.Time
	}
	totals := make(map[cell]float64)
	order := make([]cell, 0)
	add := func(key string, date time.Time, v float64) {
		c := cell{key: key, date: series.Day(date)}
		if _, ok := totals[c]; !ok {
			order = append(order, c)
		}
		totals[c] += v
	}
	for _, e := range entries {
		key := e.Account2
		if key == "" {
			key = "Uncategorized"
		}
		add(key, e.Date, e.Amount.InexactFloat64())
	}
	for _, pt := range extra {
		add(pt.Key, pt.Date, pt.Value)
	}
	rows := make([]series.Row, 0, len(order))
	for _, c := range order {
		rows = append(rows, series.Row{
			Key:     c.key,
			Date:    c.date,
			Metrics: map[string]float64{MetricAmount: totals[c]},
		})
	}
	return series.NewTable(rows)
}

func buildTimeTable(blocks []model.TimeBlock, extra []model.MetricPoint) *series.Table {
	type cell struct {
		key  string
		date time.Time
	}
	totals := make(map[cell]float64)
	order := make([]cell, 0)
	add := func(key string, date time.Time, v float64) {
		c := cell{key: key, date: series.Day(date)}
		if _, ok := totals[c]; !ok {
			order = append(order, c)
		}
		totals[c] += v
	}
	for _, b := range blocks {
		key := b.Category
		if key == "" {
			key = classify.Fallback
		}
		add(key, b.Date, b.Hours())
	}
	for _, pt := range extra {
		add(pt.Key, pt.Date, pt.Value)
	}
	rows := make([]series.Row, 0, len(order))
	for _, c := range order {
		rows = append(rows, series.Row{
			Key:     c.key,
			Date:    c.date,
			Metrics: map[string]float64{MetricHours: totals[c]},
		})
	}
	return series.NewTable(rows)
}

func pointsFor(points []model.MetricPoint, metric string) []model.MetricPoint {
	var out []model.MetricPoint
	for _, pt := range points {
		if pt.Metric == metric {
			out = append(out, pt)
		}
	}
	return out
}

func toPairs(exclusions [][]string) [][2]string {
	out := make([][2]string, 0, len(exclusions))
	for _, pair := range exclusions {
		if len(pair) != 2 {
			continue
		}
		out = append(out, [2]string{pair[0], pair[1]})
	}
	return out
}
