package ingest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifetrack/internal/model"
)

var reTxnHeader = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2})\s+(.+)$`)

// LedgerParser reads plain-text ledger files: transactions separated by
// blank lines, a `YYYY/MM/DD Description` header line, then posting lines
// of `Account:Sub:Sub <symbol>1,234.56`.
type LedgerParser struct {
	rePosting *regexp.Regexp
}

func NewLedgerParser(currencySymbol string) *LedgerParser {
	if currencySymbol == "" {
		currencySymbol = "₹"
	}
	return &LedgerParser{
		rePosting: regexp.MustCompile(`^([\w:]+)\s+` + regexp.QuoteMeta(currencySymbol) + `([\d.,]+)`),
	}
}

func (p *LedgerParser) ParseFile(path string) ([]model.LedgerEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(string(content))
}

// Parse flattens each transaction into one entry per posting line. Blocks
// belonging to the "Starting Balances" section are skipped, as are blocks
// without a parseable header.
func (p *LedgerParser) Parse(content string) ([]model.LedgerEntry, error) {
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")
	var entries []model.LedgerEntry
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		if len(lines) == 0 || containsStartingBalances(lines) {
			continue
		}
		header := reTxnHeader.FindStringSubmatch(strings.TrimSpace(lines[0]))
		if header == nil {
			continue
		}
		date, err := time.Parse("2006/01/02", header[1])
		if err != nil {
			continue
		}
		description := strings.TrimSpace(header[2])
		for _, line := range lines[1:] {
			m := p.rePosting.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			amount, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
			if err != nil {
				return nil, fmt.Errorf("parse amount %q: %w", m[2], err)
			}
			a1, a2, a3 := splitAccount(m[1])
			entries = append(entries, model.LedgerEntry{
				Date:        date,
				Description: description,
				Amount:      amount,
				Account1:    a1,
				Account2:    a2,
				Account3:    a3,
			})
		}
	}
	return entries, nil
}

func containsStartingBalances(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(line, "Starting Balances") {
			return true
		}
	}
	return false
}

func splitAccount(account string) (string, string, string) {
	parts := strings.SplitN(account, ":", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// ExpenseFilter selects the subset of ledger entries that count as spend.
// All knobs come from config so category policy never lives in code.
type ExpenseFilter struct {
	TopAccounts       []string
	ExcludeCategories []string
	IncludeCategories []string
	ExcludePairs      [][2]string
	HalveLoan         bool
}

// Apply filters entries, optionally halving Home/Loan amounts for a shared
// mortgage. Entries are copied; the input is not mutated.
func (f ExpenseFilter) Apply(entries []model.LedgerEntry) []model.LedgerEntry {
	two := decimal.NewFromInt(2)
	out := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if len(f.TopAccounts) > 0 && !containsString(f.TopAccounts, e.Account1) {
			continue
		}
		if containsString(f.ExcludeCategories, e.Account2) {
			continue
		}
		if len(f.IncludeCategories) > 0 && !containsString(f.IncludeCategories, e.Account2) {
			continue
		}
		if excludedPair(f.ExcludePairs, e.Account2, e.Account3) {
			continue
		}
		if f.HalveLoan && e.Account2 == "Home" && e.Account3 == "Loan" {
			e.Amount = e.Amount.Div(two)
		}
		out = append(out, e)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func excludedPair(pairs [][2]string, category, subcategory string) bool {
	for _, p := range pairs {
		if p[0] == category && p[1] == subcategory {
			return true
		}
	}
	return false
}
