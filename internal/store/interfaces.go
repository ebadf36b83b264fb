package store

import (
	"context"

	"github.com/neuralbudget/neural-budget/internal/domain"
)

// TransactionStore is the boundary to the document database. It is the
// sole reader and writer of persisted records.
type TransactionStore interface {
	// Expenses returns every expense record owned by userID.
	Expenses(ctx context.Context, userID string) ([]domain.Expense, error)

	// Incomes returns every income record owned by userID.
	Incomes(ctx context.Context, userID string) ([]domain.Income, error)

	// Budgets returns every budget record owned by userID, including
	// superseded ones. Active filtering happens in the budget package.
	Budgets(ctx context.Context, userID string) ([]domain.Budget, error)

	// AddExpense persists a new expense and returns its document ID.
	AddExpense(ctx context.Context, e domain.Expense) (string, error)

	// AddIncome persists a new income and returns its document ID.
	AddIncome(ctx context.Context, in domain.Income) (string, error)

	// AddBudget persists a new budget record and returns its document ID.
	AddBudget(ctx context.Context, b domain.Budget) (string, error)

	// DeleteRecord deletes a record after verifying it belongs to userID.
	DeleteRecord(ctx context.Context, collection, id, userID string) error

	// Close releases the underlying client.
	Close() error
}
