package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lifetrack/internal/budget"
	"lifetrack/internal/config"
	"lifetrack/internal/feed"
	"lifetrack/internal/model"
	"lifetrack/internal/runway"
	"lifetrack/internal/series"
)

// ReportRunner triggers regeneration and exposes the last run's inputs.
type ReportRunner interface {
	Run(ctx context.Context, today time.Time) ([]model.Callout, error)
	LastEntries() []model.LedgerEntry
	LastProgress() []model.BudgetProgress
}

type Server struct {
	cfg      *config.Manager
	feed     *feed.Store
	snapshot *series.Snapshot
	runner   ReportRunner
	logger   *slog.Logger
	version  string
}

type statusResponse struct {
	Status     string               `json:"status"`
	Time       string               `json:"time"`
	Version    string               `json:"version"`
	ConfigPath string               `json:"config_path"`
	Report     reportStatus         `json:"report"`
	Ingest     ingestStatus         `json:"ingest"`
	API        apiStatus            `json:"api"`
	Checks     []config.CheckConfig `json:"checks"`
}

type reportStatus struct {
	Window     string `json:"window"`
	BufferDays int    `json:"buffer_days"`
}

type ingestStatus struct {
	Ledger     bool `json:"ledger"`
	DailyNotes bool `json:"daily_notes"`
	Kafka      bool `json:"kafka"`
}

type apiStatus struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

func Start(ctx context.Context, cfg *config.Manager, feedStore *feed.Store, snapshot *series.Snapshot, runner ReportRunner, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:      cfg,
		feed:     feedStore,
		snapshot: snapshot,
		runner:   runner,
		logger:   logger,
		version:  version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/callouts", server.handleCallouts)
	mux.HandleFunc("/series", server.handleSeries)
	mux.HandleFunc("/series/", server.handleSeries)
	mux.HandleFunc("/budgets", server.handleBudgets)
	mux.HandleFunc("/runway", server.handleRunway)
	mux.HandleFunc("/admin/clear", server.handleClear)
	mux.HandleFunc("/admin/reload", server.handleReload)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Report: reportStatus{
			Window:     cfg.Report.Window,
			BufferDays: cfg.Report.BufferDays,
		},
		Ingest: ingestStatus{
			Ledger:     cfg.Ingest.LedgerPath != "",
			DailyNotes: cfg.Ingest.DailyNotesDir != "",
			Kafka:      cfg.Ingest.Kafka.Enabled,
		},
		API:    apiStatus{Enabled: cfg.API.Enabled, Addr: cfg.API.Addr},
		Checks: cfg.Checks,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCallouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []model.Callout
	if sinceStr != "" {
		ts, err := time.Parse("2006-01-02", sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.feed.Since(ts)
	} else {
		list = s.feed.List(limit)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"callouts": list,
		"count":    len(list),
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/series")
	path = strings.TrimPrefix(path, "/")
	if path != "" {
		stats, updated, ok := s.snapshot.Get(path)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"key":        path,
			"updated_at": updated.Format(time.RFC3339Nano),
			"stats":      stats,
		})
		return
	}
	all := s.snapshot.GetAll()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"series": all,
		"count":  len(all),
	})
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	mgr := budget.NewManager(cfg.Budgets)
	var progress []model.BudgetProgress
	if s.runner != nil {
		progress = s.runner.LastProgress()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"budgets":  mgr.All(),
		"active":   mgr.Active(time.Now().UTC()),
		"progress": progress,
	})
}

func (s *Server) handleRunway(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	netWorth := cfg.Runway.NetWorth
	if v := r.URL.Query().Get("net_worth"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			netWorth = parsed
		}
	}
	var entries []model.LedgerEntry
	if s.runner != nil {
		entries = s.runner.LastEntries()
	}
	metrics := runway.Compute(entries, netWorth, cfg.Runway.LiquidationPercents)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"net_worth":            netWorth,
		"net_worth_display":    runway.FormatIndian(netWorth),
		"average_burn":         metrics.AverageBurn,
		"average_burn_display": runway.FormatIndian(metrics.AverageBurn),
		"months":               metrics.Months,
		"liquidations":         metrics.Liquidations,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.feed != nil {
		s.feed.Clear()
	}
	if s.snapshot != nil {
		s.snapshot.Clear()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.cfg.Reload(); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if s.runner != nil {
		callouts, err := s.runner.Run(r.Context(), time.Now().UTC())
		if err != nil {
			s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "callouts": len(callouts)})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && s.logger != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
