package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/neuralbudget/neural-budget/internal/api/middleware"
	"github.com/neuralbudget/neural-budget/internal/budget"
	"github.com/neuralbudget/neural-budget/internal/chatbot"
	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/insights"
	"github.com/neuralbudget/neural-budget/internal/store"
)

// Asker answers a user's question about their finances.
type Asker interface {
	Ask(ctx context.Context, userID, message string) chatbot.Answer
}

// ChatbotHandler handles the conversational endpoint.
type ChatbotHandler struct {
	svc Asker
	log zerolog.Logger
}

// NewChatbotHandler creates a new chatbot handler.
func NewChatbotHandler(svc Asker, log zerolog.Logger) *ChatbotHandler {
	return &ChatbotHandler{svc: svc, log: log}
}

// Ask handles POST /api/chatbot
func (h *ChatbotHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	ans := h.svc.Ask(ctx, userID, req.Message)

	// Failures carry a user-displayable message; the HTTP status stays
	// 200 so the client renders the text like any other reply.
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"response": ans.Text,
		"state":    ans.State.String(),
	})
}

// TransactionsHandler handles expense and income endpoints.
type TransactionsHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(st store.TransactionStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: st, log: log}
}

// List handles GET /api/transactions?type=expenses|incomes
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	switch r.URL.Query().Get("type") {
	case "", "expenses":
		expenses, err := h.store.Expenses(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to list expenses")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
			return
		}
		if expenses == nil {
			expenses = []domain.Expense{}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": expenses,
			"count":        len(expenses),
		})
	case "incomes":
		incomes, err := h.store.Incomes(ctx, userID)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to list incomes")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to list incomes")
			return
		}
		if incomes == nil {
			incomes = []domain.Income{}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": incomes,
			"count":        len(incomes),
		})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "type must be expenses or incomes")
	}
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string `json:"type"`
		Name     string `json:"name"`
		Source   string `json:"source"`
		Category string `json:"category"`
		Amount   string `json:"amount"`
		Date     string `json:"date"`
		Status   string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	status := domain.Status(req.Status)
	if status == "" {
		status = domain.StatusCompleted
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	var id string
	switch req.Type {
	case "expense":
		if req.Name == "" || req.Category == "" {
			middleware.WriteError(w, http.StatusBadRequest, "name and category are required for an expense")
			return
		}
		id, err = h.store.AddExpense(ctx, domain.Expense{
			UserID:   userID,
			Name:     req.Name,
			Category: req.Category,
			Amount:   amount,
			Date:     date,
			Status:   status,
		})
	case "income":
		if req.Source == "" {
			middleware.WriteError(w, http.StatusBadRequest, "source is required for an income")
			return
		}
		id, err = h.store.AddIncome(ctx, domain.Income{
			UserID: userID,
			Source: req.Source,
			Amount: amount,
			Date:   date,
			Status: status,
		})
	default:
		middleware.WriteError(w, http.StatusBadRequest, "type must be expense or income")
		return
	}

	if err != nil {
		h.log.Error().Err(err).Str("type", req.Type).Msg("Failed to add transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Delete handles DELETE /api/transactions/{id}?type=expenses|incomes
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	var collection string
	switch r.URL.Query().Get("type") {
	case "", "expenses":
		collection = store.CollectionExpenses
	case "incomes":
		collection = store.CollectionIncomes
	default:
		middleware.WriteError(w, http.StatusBadRequest, "type must be expenses or incomes")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)

	if err := h.store.DeleteRecord(ctx, collection, id, userID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Record not found")
		case errors.Is(err, store.ErrForbidden):
			middleware.WriteError(w, http.StatusForbidden, "Record belongs to another user")
		default:
			h.log.Error().Err(err).Str("record_id", id).Msg("Failed to delete record")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete record")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	store store.TransactionStore
	log   zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(st store.TransactionStore, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{store: st, log: log}
}

// List handles GET /api/budgets. Only the latest budget per category is
// returned; older entries are kept in the store but superseded.
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	budgets, err := h.store.Budgets(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list budgets")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list budgets")
		return
	}

	active := budget.Active(budgets)
	if active == nil {
		active = []domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": active,
		"count":   len(active),
	})
}

// Create handles POST /api/budgets
func (h *BudgetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
		Period   string `json:"period"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Category is required")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	if req.Period == "" {
		req.Period = "monthly"
	}

	ctx := r.Context()
	id, err := h.store.AddBudget(ctx, domain.Budget{
		UserID:   middleware.UserID(ctx),
		Category: req.Category,
		Amount:   amount,
		Period:   req.Period,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to add budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add budget")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Analyzer runs the predictive spending analysis.
type Analyzer interface {
	PredictiveAnalysis(ctx context.Context, userID string) (insights.Analysis, error)
}

// InsightsHandler handles AI-generated insight endpoints.
type InsightsHandler struct {
	svc Analyzer
	log zerolog.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(svc Analyzer, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{svc: svc, log: log}
}

// Analysis handles GET /api/insights/analysis
func (h *InsightsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	analysis, err := h.svc.PredictiveAnalysis(ctx, userID)
	if err != nil {
		if errors.Is(err, insights.ErrNoData) {
			middleware.WriteError(w, http.StatusNotFound, "No transaction data found to generate an analysis")
			return
		}
		h.log.Error().Err(err).Msg("Predictive analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, "The analysis could not be generated. Please try again later.")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, analysis)
}

// Analysis handles GET /api/budgets/analysis
func (h *BudgetsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	budgets, err := h.store.Budgets(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load budgets for analysis")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to analyze budgets")
		return
	}
	expenses, err := h.store.Expenses(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load expenses for analysis")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to analyze budgets")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, budget.Analyze(budgets, expenses))
}
