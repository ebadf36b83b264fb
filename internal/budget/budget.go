// Package budget implements active-budget selection and budget vs. spend
// aggregation. Budgets are append-only in the store: the most recently
// created record per (user, category) supersedes older ones.
package budget

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/neuralbudget/neural-budget/internal/domain"
)

// Active filters raw budget records down to the latest record per
// category, compared by CreatedAt. Older duplicates are superseded, not
// deleted, so they must be filtered on every read. Results are sorted
// by category for stable output.
func Active(all []domain.Budget) []domain.Budget {
	latest := make(map[string]domain.Budget, len(all))
	for _, b := range all {
		cat := strings.ToLower(strings.TrimSpace(b.Category))
		if cat == "" {
			continue
		}
		b.Category = cat
		cur, ok := latest[cat]
		if !ok || b.CreatedAt.After(cur.CreatedAt) {
			latest[cat] = b
		}
	}

	out := make([]domain.Budget, 0, len(latest))
	for _, b := range latest {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// CategoryStatus is one row of the budget analysis.
type CategoryStatus struct {
	Category string          `json:"category"`
	Budget   decimal.Decimal `json:"budget"`
	Spent    decimal.Decimal `json:"spent"`
	Period   string          `json:"period"`
}

// Analysis aggregates budgets against spending.
type Analysis struct {
	TotalBudget decimal.Decimal  `json:"total_budget"`
	TotalSpent  decimal.Decimal  `json:"total_spent"`
	Categories  []CategoryStatus `json:"categories"`
}

// Analyze computes per-category spend against the active budgets.
// Category matching is case-insensitive. Expenses in categories without
// a budget contribute to TotalSpent only.
func Analyze(budgets []domain.Budget, expenses []domain.Expense) Analysis {
	active := Active(budgets)

	byCategory := make(map[string]*CategoryStatus, len(active))
	a := Analysis{Categories: make([]CategoryStatus, 0, len(active))}
	for _, b := range active {
		a.TotalBudget = a.TotalBudget.Add(b.Amount)
		byCategory[b.Category] = &CategoryStatus{
			Category: b.Category,
			Budget:   b.Amount,
			Period:   b.Period,
		}
	}

	for _, e := range expenses {
		a.TotalSpent = a.TotalSpent.Add(e.Amount)
		cat := strings.ToLower(strings.TrimSpace(e.Category))
		if row, ok := byCategory[cat]; ok {
			row.Spent = row.Spent.Add(e.Amount)
		}
	}

	for _, b := range active {
		a.Categories = append(a.Categories, *byCategory[b.Category])
	}
	return a
}
