package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/neuralbudget/neural-budget/internal/store"
)

// ErrNoData indicates the user has no expenses to analyze.
var ErrNoData = errors.New("no expense data to analyze")

// Generator is the boundary to the language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chart is one labeled value series, shaped for the client's chart
// rendering.
type Chart struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Analysis is the model's predictive output: a 30-day spend forecast and
// a per-category breakdown.
type Analysis struct {
	ForecastChart Chart `json:"forecast_chart"`
	CategoryChart Chart `json:"category_chart"`
}

// Service runs the predictive spending analysis.
type Service struct {
	store store.TransactionStore
	gen   Generator
	log   zerolog.Logger

	now func() time.Time
}

// NewService builds the insights service.
func NewService(st store.TransactionStore, gen Generator, log zerolog.Logger) *Service {
	return &Service{store: st, gen: gen, log: log, now: time.Now}
}

// PredictiveAnalysis aggregates the user's expenses and asks the model
// for a forecast. The model must reply with a single JSON object; fenced
// replies are tolerated and cleaned up.
func (s *Service) PredictiveAnalysis(ctx context.Context, userID string) (Analysis, error) {
	expenses, err := s.store.Expenses(ctx, userID)
	if err != nil {
		return Analysis{}, fmt.Errorf("PredictiveAnalysis: %w", err)
	}
	if len(expenses) == 0 {
		return Analysis{}, ErrNoData
	}

	agg := Aggregate(expenses, s.now())
	prompt := buildAnalysisPrompt(agg)

	s.log.Info().
		Str("user_id", userID).
		Int("transactions", agg.Transactions).
		Int("months", len(agg.Months)).
		Msg("Running predictive analysis")

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Analysis{}, fmt.Errorf("PredictiveAnalysis: %w", err)
	}

	var analysis Analysis
	clean := cleanModelJSON(text)
	if err := json.Unmarshal([]byte(clean), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("PredictiveAnalysis: unmarshal model reply: %w", err)
	}
	return analysis, nil
}

func buildAnalysisPrompt(agg Aggregates) string {
	var b strings.Builder

	b.WriteString("You are a financial data analyst for Neural Budget.\n")
	b.WriteString("Analyze the user's spending patterns and provide a predictive analysis.\n\n")
	b.WriteString("Your output must be a single, valid JSON object with two keys: \"forecast_chart\" and \"category_chart\".\n")
	b.WriteString("Do NOT wrap the response in code fences.\n\n")

	b.WriteString("1. \"forecast_chart\": predict the spending for the next 30 days from the monthly totals below.\n")
	b.WriteString("   Shape: {\"labels\": [\"Average Monthly Spend\", \"Last Month Spend\", \"Next 30 Days (Forecast)\"], \"values\": [<number>, <number>, <number>]}\n")
	fmt.Fprintf(&b, "   Context: average monthly spend = %s, last month spend = %s, trend = %s.\n\n",
		agg.AverageMonthly.String(), agg.LastMonth.String(), agg.Trend)

	b.WriteString("2. \"category_chart\": total spend per category.\n")
	b.WriteString("   Shape: {\"labels\": [<category>, ...], \"values\": [<amount>, ...]}\n\n")

	b.WriteString("Monthly totals:\n")
	for _, m := range agg.Months {
		fmt.Fprintf(&b, "%s: %s\n", m.Month, m.Total.String())
	}
	b.WriteString("\nCategory totals:\n")
	for _, c := range agg.Categories {
		fmt.Fprintf(&b, "%s: %s\n", c.Category, c.Total.String())
	}
	fmt.Fprintf(&b, "\nTransactions analyzed: %d\n", agg.Transactions)

	return b.String()
}

// cleanModelJSON strips Markdown fences the model sometimes adds despite
// instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
