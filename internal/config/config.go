package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BudgetLess    = "less"
	BudgetGreater = "greater"

	CheckSpike     = "spike"
	CheckDrop      = "drop"
	CheckThreshold = "threshold"

	WindowLastWeek     = "last_week"
	WindowBufferedWeek = "buffered_week"
	WindowAll          = "all"
)

type Config struct {
	LogLevel   string              `json:"log_level" yaml:"log_level"`
	LogFormat  string              `json:"log_format" yaml:"log_format"`
	Ingest     IngestConfig        `json:"ingest" yaml:"ingest"`
	Series     SeriesConfig        `json:"series" yaml:"series"`
	Checks     []CheckConfig       `json:"checks" yaml:"checks"`
	Report     ReportConfig        `json:"report" yaml:"report"`
	Activities map[string][]string `json:"activities" yaml:"activities"`
	Budgets    []BudgetConfig      `json:"budgets" yaml:"budgets"`
	Runway     RunwayConfig        `json:"runway" yaml:"runway"`
	API        APIConfig           `json:"api" yaml:"api"`
	Storage    StorageConfig       `json:"storage" yaml:"storage"`
	Feed       FeedConfig          `json:"feed" yaml:"feed"`
}

type IngestConfig struct {
	LedgerPath     string        `json:"ledger_path" yaml:"ledger_path"`
	CurrencySymbol string        `json:"currency_symbol" yaml:"currency_symbol"`
	DailyNotesDir  string        `json:"daily_notes_dir" yaml:"daily_notes_dir"`
	StartDate      string        `json:"start_date" yaml:"start_date"`
	ChannelBuffer  int           `json:"channel_buffer" yaml:"channel_buffer"`
	Expense        ExpenseConfig `json:"expense" yaml:"expense"`
	Kafka          KafkaConfig   `json:"kafka" yaml:"kafka"`
}

type ExpenseConfig struct {
	TopAccounts       []string   `json:"top_accounts" yaml:"top_accounts"`
	ExcludeCategories []string   `json:"exclude_categories" yaml:"exclude_categories"`
	IncludeCategories []string   `json:"include_categories" yaml:"include_categories"`
	Exclusions        [][]string `json:"exclusions" yaml:"exclusions"`
	HalveHomeLoan     bool       `json:"halve_home_loan" yaml:"halve_home_loan"`
}

type KafkaConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	GroupID string   `json:"group_id" yaml:"group_id"`
}

type SeriesConfig struct {
	Window        int `json:"window" yaml:"window"`
	SnapshotLimit int `json:"snapshot_limit" yaml:"snapshot_limit"`
}

// CheckConfig is one threshold check to run per report. Series selects the
// table: "expenses" (daily amount per category) or "time" (daily hours per
// category).
type CheckConfig struct {
	Series    string  `json:"series" yaml:"series"`
	Metric    string  `json:"metric" yaml:"metric"`
	Type      string  `json:"type" yaml:"type"`
	Operator  string  `json:"operator" yaml:"operator"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

type ReportConfig struct {
	Window     string        `json:"window" yaml:"window"`
	BufferDays int           `json:"buffer_days" yaml:"buffer_days"`
	Interval   time.Duration `json:"interval" yaml:"interval"`
}

type BudgetConfig struct {
	Name            string  `json:"name" yaml:"name"`
	Target          float64 `json:"target" yaml:"target"`
	Unit            string  `json:"unit" yaml:"unit"`
	Direction       string  `json:"direction" yaml:"direction"`
	StartDate       string  `json:"start_date" yaml:"start_date"`
	EndDate         string  `json:"end_date" yaml:"end_date"`
	IncludeWeekends bool    `json:"include_weekends" yaml:"include_weekends"`
}

// Window parses the budget's inclusive date range.
func (b BudgetConfig) Window() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("budget %q start_date: %w", b.Name, err)
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("budget %q end_date: %w", b.Name, err)
	}
	return start, end, nil
}

type RunwayConfig struct {
	NetWorth            float64   `json:"net_worth" yaml:"net_worth"`
	LiquidationPercents []float64 `json:"liquidation_percents" yaml:"liquidation_percents"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type FeedConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Ingest: IngestConfig{
			LedgerPath:     "files/transactions.ledger",
			CurrencySymbol: "₹",
			DailyNotesDir:  "notes",
			StartDate:      "2024-07-01",
			ChannelBuffer:  10000,
			Expense: ExpenseConfig{
				TopAccounts:       []string{"Expenses", "Assets"},
				ExcludeCategories: []string{"Banking"},
			},
			Kafka: KafkaConfig{Enabled: false},
		},
		Series: SeriesConfig{Window: 7, SnapshotLimit: 1000},
		Checks: []CheckConfig{
			{Series: "expenses", Metric: "amount", Type: CheckSpike, Threshold: 2},
			{Series: "expenses", Metric: "amount", Type: CheckDrop, Threshold: 2},
			{Series: "time", Metric: "hours", Type: CheckSpike, Threshold: 2},
			{Series: "time", Metric: "hours", Type: CheckDrop, Threshold: 2},
		},
		Report: ReportConfig{Window: WindowLastWeek, BufferDays: 3, Interval: time.Hour},
		Activities: map[string][]string{
			"Sleep":           {"Sleep", "Nap", "Bed", "Wind Down"},
			"Admin":           {"Chores", "Prep", "Dishes", "Bath", "Breakfast", "Dinner", "Lunch", "Commute", "Travel", "Bus"},
			"Workout":         {"Workout", "Gym", "Stretch"},
			"Work":            {"Office", "Work"},
			"Projects":        {"Project", "Obsidian", "Ledger", "Life Admin", "Maintenance", "Push", "Grind"},
			"Learning":        {"Learning", "Learn"},
			"Reflection":      {"Journal", "Review", "Plan"},
			"Chill":           {"Chill", "YouTube", "Movie", "TV", "Standup", "Trip"},
			"Social":          {"Catchup", "Social"},
			"Chess":           {"Chess"},
			"Reading-Writing": {"Read", "Book", "Writing"},
			"Meditation":      {"Meditation", "Mindfulness"},
		},
		Runway:  RunwayConfig{NetWorth: 3_500_000, LiquidationPercents: []float64{1, 0.5, 0.25, 0.1}},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:lifetrack.db?_pragma=busy_timeout(5000)"},
		Feed:    FeedConfig{StoreLimit: 1000},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Series.Window <= 0 {
		cfg.Series.Window = 7
	}
	if cfg.Series.SnapshotLimit <= 0 {
		cfg.Series.SnapshotLimit = 1000
	}
	if cfg.Feed.StoreLimit <= 0 {
		cfg.Feed.StoreLimit = 1000
	}
	if cfg.Ingest.ChannelBuffer <= 0 {
		cfg.Ingest.ChannelBuffer = 10000
	}
	if cfg.Ingest.CurrencySymbol == "" {
		cfg.Ingest.CurrencySymbol = "₹"
	}
	if cfg.Report.Window == "" {
		cfg.Report.Window = WindowLastWeek
	}
	if cfg.Report.BufferDays <= 0 {
		cfg.Report.BufferDays = 3
	}
	if cfg.Report.Interval <= 0 {
		cfg.Report.Interval = time.Hour
	}
	if len(cfg.Runway.LiquidationPercents) == 0 {
		cfg.Runway.LiquidationPercents = []float64{1, 0.5, 0.25, 0.1}
	}
}

func Validate(cfg *Config) error {
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Ingest.Kafka.Enabled {
		if len(cfg.Ingest.Kafka.Brokers) == 0 || cfg.Ingest.Kafka.Topic == "" || cfg.Ingest.Kafka.GroupID == "" {
			return errors.New("ingest.kafka requires brokers, topic, group_id")
		}
	}
	if cfg.Ingest.StartDate != "" {
		if _, err := time.Parse("2006-01-02", cfg.Ingest.StartDate); err != nil {
			return fmt.Errorf("ingest.start_date: %w", err)
		}
	}
	switch cfg.Report.Window {
	case WindowLastWeek, WindowBufferedWeek, WindowAll:
	default:
		return fmt.Errorf("report.window must be %s, %s or %s", WindowLastWeek, WindowBufferedWeek, WindowAll)
	}
	for _, check := range cfg.Checks {
		if check.Metric == "" {
			return errors.New("checks entries require a metric")
		}
		switch check.Type {
		case CheckSpike, CheckDrop:
			if check.Threshold <= 0 {
				return fmt.Errorf("check %s/%s threshold must be > 0", check.Series, check.Metric)
			}
		case CheckThreshold:
			if check.Operator != ">" && check.Operator != "<" {
				return fmt.Errorf("check %s/%s operator must be > or <", check.Series, check.Metric)
			}
		default:
			return fmt.Errorf("unknown check type %q", check.Type)
		}
	}
	for _, b := range cfg.Budgets {
		if b.Direction != BudgetLess && b.Direction != BudgetGreater {
			return fmt.Errorf("budget %q direction must be %s or %s", b.Name, BudgetLess, BudgetGreater)
		}
		if _, _, err := b.Window(); err != nil {
			return err
		}
	}
	return nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an in-memory config with no backing file, for
// tests and one-shot runs.
func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if m.path != "" {
		if err := Save(m.path, cfg); err != nil {
			return err
		}
		if info, err := os.Stat(m.path); err == nil {
			m.modTime = info.ModTime()
		}
	}
	m.cfg.Store(cfg)
	return nil
}

func (m *Manager) NeedsReload() (bool, error) {
	if m.path == "" {
		return false, nil
	}
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
