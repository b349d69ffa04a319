package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
log_level: debug
ingest:
  ledger_path: /data/transactions.ledger
series:
  window: 14
checks:
  - series: time
    metric: hours
    type: threshold
    operator: "<"
    threshold: 6
report:
  window: all
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q", cfg.LogLevel)
	}
	if cfg.Series.Window != 14 {
		t.Fatalf("window = %d", cfg.Series.Window)
	}
	if cfg.Report.Window != WindowAll {
		t.Fatalf("report window = %q", cfg.Report.Window)
	}
	if len(cfg.Checks) != 1 || cfg.Checks[0].Operator != "<" {
		t.Fatalf("checks = %+v", cfg.Checks)
	}
	// untouched settings come from defaults
	if cfg.Feed.StoreLimit != 1000 {
		t.Fatalf("feed store_limit default = %d", cfg.Feed.StoreLimit)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"log_level": "warn", "report": {"window": "buffered_week", "buffer_days": 5}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Report.BufferDays != 5 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadWindow(t *testing.T) {
	path := writeConfig(t, "config.yaml", "report:\n  window: fortnight\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for unknown window")
	}
}

func TestLoadRejectsBadCheck(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
checks:
  - series: time
    metric: hours
    type: threshold
    operator: "="
    threshold: 6
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for operator")
	}
}

func TestLoadRejectsBadBudget(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
budgets:
  - name: Chess
    target: 30
    direction: sideways
    start_date: 2024-09-01
    end_date: 2024-09-30
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for budget direction")
	}
}

func TestStaticManager(t *testing.T) {
	m := NewStaticManager(nil)
	if m.Get() == nil {
		t.Fatalf("static manager must serve defaults")
	}
	needs, err := m.NeedsReload()
	if err != nil || needs {
		t.Fatalf("path-less manager never needs a reload: %v %v", needs, err)
	}
	if _, err := m.Reload(); err != nil {
		t.Fatalf("reload on a static manager: %v", err)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
