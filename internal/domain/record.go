// Package domain holds the record types shared across the store, the
// indexing pipeline, and the HTTP layer.
package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// RecordType tags a transaction record as an expense or an income.
type RecordType string

const (
	TypeExpense RecordType = "expense"
	TypeIncome  RecordType = "income"
)

// Status of a transaction record.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusPending   Status = "Pending"
)

// Expense is a single spending record owned by a user.
// Fields may be zero-valued when the stored document was malformed;
// the normalizer decides whether such a record is usable.
type Expense struct {
	ID       string
	UserID   string
	Name     string
	Category string
	Amount   decimal.Decimal
	Date     civil.Date
	Status   Status
}

// Income is a single earning record owned by a user.
type Income struct {
	ID     string
	UserID string
	Source string
	Amount decimal.Decimal
	Date   civil.Date
	Status Status
}

// Budget is a per-category spending limit. Budgets are append-only:
// setting a budget for an existing category creates a newer record that
// supersedes the old one, selected by CreatedAt.
type Budget struct {
	ID        string
	UserID    string
	Category  string // stored lower-cased
	Amount    decimal.Decimal
	Period    string // e.g. "monthly"
	CreatedAt time.Time
}
