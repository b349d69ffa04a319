package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalloutKind discriminates the callout shapes. Dated callouts come out of
// the series checks; metric-only callouts come from budget tracking and
// carry no date.
type CalloutKind string

const (
	KindDatedDeviation CalloutKind = "dated_deviation"
	KindDated          CalloutKind = "dated"
	KindMetricOnly     CalloutKind = "metric_only"
)

type Callout struct {
	Kind        CalloutKind `json:"kind"`
	Key         string      `json:"key,omitempty"`
	Date        time.Time   `json:"date,omitzero"`
	Metric      string      `json:"metric,omitempty"`
	Check       string      `json:"check"`
	Condition   string      `json:"condition"`
	MoreInfo    string      `json:"more_info"`
	Value       string      `json:"value"`
	StdDevsAway float64     `json:"std_devs_away,omitempty"`
}

// LedgerEntry is one posting line of a ledger transaction, flattened with
// the transaction date and description.
type LedgerEntry struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Account1    string          `json:"account_1"`
	Account2    string          `json:"account_2"`
	Account3    string          `json:"account_3"`
}

// TimeBlock is a completed time block scraped from a daily note. Blocks
// crossing midnight end on the following day.
type TimeBlock struct {
	Date     time.Time     `json:"date"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Activity string        `json:"activity"`
	Category string        `json:"category,omitempty"`
}

func (b TimeBlock) Hours() float64 {
	return b.Duration.Hours()
}

// MetricPoint is a single externally supplied series observation, e.g. one
// pushed over Kafka by a phone automation.
type MetricPoint struct {
	Key    string    `json:"key"`
	Date   time.Time `json:"date"`
	Metric string    `json:"metric"`
	Value  float64   `json:"value"`
	Source string    `json:"source,omitempty"`
}

// BudgetProgress is the pro-rata status of one budget on a given day.
type BudgetProgress struct {
	Name       string  `json:"name"`
	Target     float64 `json:"target"`
	Actual     float64 `json:"actual"`
	Expected   float64 `json:"expected"`
	Percentage float64 `json:"progress_percentage"`
	OnTrack    bool    `json:"is_on_track"`
}
