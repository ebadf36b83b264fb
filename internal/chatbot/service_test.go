package chatbot

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/generate"
	"github.com/neuralbudget/neural-budget/internal/logger"
	"github.com/neuralbudget/neural-budget/internal/store"
	"github.com/neuralbudget/neural-budget/internal/vectorindex"
)

// fakeEmbedder produces a deterministic bag-of-words vector so related
// texts rank above unrelated ones.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%64]++
	}
	return vec, nil
}

// mockStore is a hand-written TransactionStore double.
type mockStore struct {
	ExpensesFunc func(ctx context.Context, userID string) ([]domain.Expense, error)
	IncomesFunc  func(ctx context.Context, userID string) ([]domain.Income, error)
}

func (m *mockStore) Expenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	if m.ExpensesFunc != nil {
		return m.ExpensesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) Incomes(ctx context.Context, userID string) ([]domain.Income, error) {
	if m.IncomesFunc != nil {
		return m.IncomesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockStore) Budgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	return nil, nil
}
func (m *mockStore) AddExpense(ctx context.Context, e domain.Expense) (string, error) {
	return "", nil
}
func (m *mockStore) AddIncome(ctx context.Context, in domain.Income) (string, error) {
	return "", nil
}
func (m *mockStore) AddBudget(ctx context.Context, b domain.Budget) (string, error) {
	return "", nil
}
func (m *mockStore) DeleteRecord(ctx context.Context, collection, id, userID string) error {
	return nil
}
func (m *mockStore) Close() error { return nil }

// mockGenerator records prompts and returns a scripted answer.
type mockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	prompts      []string
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "ok", nil
}

func newTestService(t *testing.T, st store.TransactionStore, gen AnswerGenerator) *Service {
	t.Helper()
	log := logger.NewWithWriter(os.Stderr)
	idx, err := vectorindex.LoadOrCreate(context.Background(), filepath.Join(t.TempDir(), "index.gob"), fakeEmbedder{}, log)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	return NewService(st, idx, NewRetriever(fakeEmbedder{}, idx), gen, 20, log)
}

func groceriesStore() *mockStore {
	return &mockStore{
		ExpensesFunc: func(ctx context.Context, userID string) ([]domain.Expense, error) {
			return []domain.Expense{
				{
					ID: "e1", UserID: userID, Name: "Weekly shop", Category: "Groceries",
					Amount: decimal.NewFromInt(500),
					Date:   civil.Date{Year: 2025, Month: 1, Day: 1},
					Status: domain.StatusCompleted,
				},
				{
					ID: "e2", UserID: userID, Name: "Vegetables", Category: "groceries",
					Amount: decimal.NewFromInt(300),
					Date:   civil.Date{Year: 2025, Month: 1, Day: 15},
					Status: domain.StatusCompleted,
				},
			}, nil
		},
	}
}

func TestAsk_GroceriesEndToEnd(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "You spent ₹800 on Groceries in January.", nil
		},
	}
	svc := newTestService(t, groceriesStore(), gen)

	ans := svc.Ask(context.Background(), "user-1", "How much did I spend on Groceries?")

	if ans.State != StateDone {
		t.Fatalf("Expected StateDone, got %v (%q)", ans.State, ans.Text)
	}
	if !strings.Contains(ans.Text, "₹800") {
		t.Errorf("Expected answer to contain ₹800, got %q", ans.Text)
	}
	if ans.Indexed != 2 || ans.Skipped != 0 {
		t.Errorf("Indexed/Skipped = %d/%d, want 2/0", ans.Indexed, ans.Skipped)
	}

	// Both case variants of the category must reach the model; the
	// case-insensitive match is a prompt-level instruction, not a
	// retrieval filter.
	if len(gen.prompts) != 1 {
		t.Fatalf("Expected exactly 1 generation, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "Weekly shop") || !strings.Contains(prompt, "Vegetables") {
		t.Errorf("Prompt missing retrieved entries:\n%s", prompt)
	}
	if !strings.Contains(prompt, "₹500") || !strings.Contains(prompt, "₹300") {
		t.Errorf("Prompt missing exact amounts:\n%s", prompt)
	}
}

func TestAsk_NoTransactionsShortCircuits(t *testing.T) {
	gen := &mockGenerator{}
	svc := newTestService(t, &mockStore{}, gen)

	ans := svc.Ask(context.Background(), "user-1", "What did I spend?")

	if ans.State != StateFailed {
		t.Errorf("Expected StateFailed, got %v", ans.State)
	}
	if ans.Text != MsgNoData {
		t.Errorf("Expected no-data message, got %q", ans.Text)
	}
	if len(gen.prompts) != 0 {
		t.Error("LLM must not be invoked for a user with no transactions")
	}
}

func TestAsk_MalformedRecordsSkippedNotFatal(t *testing.T) {
	st := &mockStore{
		ExpensesFunc: func(ctx context.Context, userID string) ([]domain.Expense, error) {
			return []domain.Expense{
				{ // valid
					ID: "e1", UserID: userID, Name: "Coffee", Category: "Dining",
					Amount: decimal.NewFromInt(120),
					Date:   civil.Date{Year: 2025, Month: 2, Day: 1},
					Status: domain.StatusCompleted,
				},
				{ID: "e2", UserID: userID, Name: "", Category: "Dining"}, // malformed
			}, nil
		},
	}
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "You spent ₹120 on coffee.", nil
	}}
	svc := newTestService(t, st, gen)

	ans := svc.Ask(context.Background(), "user-1", "coffee spend?")

	if ans.State != StateDone {
		t.Fatalf("Expected StateDone, got %v (%q)", ans.State, ans.Text)
	}
	if ans.Indexed != 1 || ans.Skipped != 1 {
		t.Errorf("Indexed/Skipped = %d/%d, want 1/1", ans.Indexed, ans.Skipped)
	}
}

func TestAsk_StoreFailure(t *testing.T) {
	st := &mockStore{
		ExpensesFunc: func(ctx context.Context, userID string) ([]domain.Expense, error) {
			return nil, fmt.Errorf("query expenses: %w", store.ErrUnavailable)
		},
	}
	gen := &mockGenerator{}
	svc := newTestService(t, st, gen)

	ans := svc.Ask(context.Background(), "user-1", "anything")

	if ans.State != StateFailed || ans.Text != MsgStoreFailure {
		t.Errorf("Expected store-failure message, got %v %q", ans.State, ans.Text)
	}
	if len(gen.prompts) != 0 {
		t.Error("LLM must not be invoked when the store is down")
	}
}

func TestAsk_TimeoutMessageDistinct(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", fmt.Errorf("%w: deadline exceeded", generate.ErrTimeout)
		},
	}
	svc := newTestService(t, groceriesStore(), gen)

	ans := svc.Ask(context.Background(), "user-1", "total?")

	if ans.Text != MsgTimeout {
		t.Errorf("Expected timeout message, got %q", ans.Text)
	}
}

func TestAsk_GenerationFailure(t *testing.T) {
	gen := &mockGenerator{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", fmt.Errorf("%w: model exploded", generate.ErrGeneration)
		},
	}
	svc := newTestService(t, groceriesStore(), gen)

	ans := svc.Ask(context.Background(), "user-1", "total?")

	if ans.Text != MsgFailure {
		t.Errorf("Expected generic failure message, got %q", ans.Text)
	}
	if strings.Contains(ans.Text, "exploded") {
		t.Error("Raw error text must never reach the user")
	}
}

func TestAsk_ReindexIsIdempotentAcrossQuestions(t *testing.T) {
	gen := &mockGenerator{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
		return "answer", nil
	}}
	svc := newTestService(t, groceriesStore(), gen)

	first := svc.Ask(context.Background(), "user-1", "groceries?")
	second := svc.Ask(context.Background(), "user-1", "groceries?")

	if first.Retrieved != second.Retrieved {
		t.Errorf("Retrieved set grew across identical re-indexes: %d then %d", first.Retrieved, second.Retrieved)
	}
	if second.Retrieved != 2 {
		t.Errorf("Expected 2 retrieved documents, got %d", second.Retrieved)
	}
}
