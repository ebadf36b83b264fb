// Package insights produces AI-generated spending analysis: expenses are
// aggregated into monthly and per-category totals and handed to the
// language model for a forecast.
package insights

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/neuralbudget/neural-budget/internal/domain"
)

// The model sees the last six months of data when there is enough of it
// to detect a trend; sparse histories fall back to everything on record.
const (
	lookbackDays    = 180
	minRecentSample = 30
)

// MonthTotal is the spend total for one calendar month, keyed YYYY-MM.
type MonthTotal struct {
	Month string
	Total decimal.Decimal
}

// CategoryTotal is the spend total for one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Aggregates is the preprocessed input for the predictive analysis.
type Aggregates struct {
	Months     []MonthTotal
	Categories []CategoryTotal

	AverageMonthly decimal.Decimal
	LastMonth      decimal.Decimal
	Trend          string // "increasing" or "decreasing"

	Transactions int
}

// Aggregate buckets expenses by month and category. Expenses within the
// lookback window are preferred; when fewer than minRecentSample fall
// inside it, the full history is used instead. Ordering is deterministic:
// months ascending, categories alphabetical.
func Aggregate(expenses []domain.Expense, now time.Time) Aggregates {
	cutoff := civil.DateOf(now.AddDate(0, 0, -lookbackDays))

	recent := make([]domain.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.After(cutoff) {
			recent = append(recent, e)
		}
	}
	source := recent
	if len(recent) < minRecentSample {
		source = expenses
	}

	monthly := make(map[string]decimal.Decimal)
	byCategory := make(map[string]decimal.Decimal)
	for _, e := range source {
		month := fmt.Sprintf("%04d-%02d", e.Date.Year, e.Date.Month)
		monthly[month] = monthly[month].Add(e.Amount)

		category := e.Category
		if category == "" {
			category = "Uncategorized"
		}
		byCategory[category] = byCategory[category].Add(e.Amount)
	}

	agg := Aggregates{Transactions: len(source)}

	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)
	var sum decimal.Decimal
	for _, m := range months {
		agg.Months = append(agg.Months, MonthTotal{Month: m, Total: monthly[m]})
		sum = sum.Add(monthly[m])
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		agg.Categories = append(agg.Categories, CategoryTotal{Category: c, Total: byCategory[c]})
	}

	if len(months) > 0 {
		agg.AverageMonthly = sum.DivRound(decimal.NewFromInt(int64(len(months))), 2)
		agg.LastMonth = monthly[months[len(months)-1]]
	}
	agg.Trend = "decreasing"
	if agg.LastMonth.GreaterThan(agg.AverageMonthly) {
		agg.Trend = "increasing"
	}
	return agg
}
