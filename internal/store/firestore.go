// Package store implements the transaction store adapter on Firestore.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/neuralbudget/neural-budget/internal/domain"
)

// Collection names. These partitions are shared with the web frontend,
// so the field names below must stay wire-compatible.
const (
	CollectionExpenses = "expenses"
	CollectionIncomes  = "incomes"
	CollectionBudgets  = "budgets"

	userField = "userId"
)

var (
	// ErrUnavailable wraps any failure to reach the document store.
	ErrUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden indicates the record exists but belongs to another user.
	ErrForbidden = errors.New("record owned by another user")
)

// FirestoreStore is the concrete TransactionStore backed by Firestore.
// It holds a shared client to avoid creating a new connection for each
// operation.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a store with a shared Firestore client.
// It assumes Application Default Credentials are configured.
func NewFirestoreStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewFirestoreStore: creating client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close closes the Firestore client connection.
func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Expenses implements TransactionStore.
func (s *FirestoreStore) Expenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	docs, err := s.userDocs(ctx, CollectionExpenses, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Expense, 0, len(docs))
	for id, data := range docs {
		out = append(out, decodeExpense(id, data))
	}
	return out, nil
}

// Incomes implements TransactionStore.
func (s *FirestoreStore) Incomes(ctx context.Context, userID string) ([]domain.Income, error) {
	docs, err := s.userDocs(ctx, CollectionIncomes, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Income, 0, len(docs))
	for id, data := range docs {
		out = append(out, decodeIncome(id, data))
	}
	return out, nil
}

// Budgets implements TransactionStore.
func (s *FirestoreStore) Budgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	docs, err := s.userDocs(ctx, CollectionBudgets, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Budget, 0, len(docs))
	for id, data := range docs {
		out = append(out, decodeBudget(id, data))
	}
	return out, nil
}

// AddExpense implements TransactionStore.
func (s *FirestoreStore) AddExpense(ctx context.Context, e domain.Expense) (string, error) {
	ref, _, err := s.client.Collection(CollectionExpenses).Add(ctx, map[string]interface{}{
		userField:  e.UserID,
		"name":     e.Name,
		"category": e.Category,
		"amount":   e.Amount.InexactFloat64(),
		"date":     e.Date.String(),
		"status":   string(e.Status),
	})
	if err != nil {
		return "", fmt.Errorf("AddExpense: %w: %v", ErrUnavailable, err)
	}
	return ref.ID, nil
}

// AddIncome implements TransactionStore.
func (s *FirestoreStore) AddIncome(ctx context.Context, in domain.Income) (string, error) {
	ref, _, err := s.client.Collection(CollectionIncomes).Add(ctx, map[string]interface{}{
		userField: in.UserID,
		"source":  in.Source,
		"amount":  in.Amount.InexactFloat64(),
		"date":    in.Date.String(),
		"status":  string(in.Status),
	})
	if err != nil {
		return "", fmt.Errorf("AddIncome: %w: %v", ErrUnavailable, err)
	}
	return ref.ID, nil
}

// AddBudget implements TransactionStore. Category is lower-cased before
// writing so active-budget lookups are case-insensitive.
func (s *FirestoreStore) AddBudget(ctx context.Context, b domain.Budget) (string, error) {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ref, _, err := s.client.Collection(CollectionBudgets).Add(ctx, map[string]interface{}{
		userField:    b.UserID,
		"category":   strings.ToLower(strings.TrimSpace(b.Category)),
		"budget":     b.Amount.InexactFloat64(),
		"period":     b.Period,
		"created_at": createdAt,
	})
	if err != nil {
		return "", fmt.Errorf("AddBudget: %w: %v", ErrUnavailable, err)
	}
	return ref.ID, nil
}

// DeleteRecord implements TransactionStore. The record is fetched first
// to verify ownership; deleting another user's record is ErrForbidden.
func (s *FirestoreStore) DeleteRecord(ctx context.Context, collection, id, userID string) error {
	ref := s.client.Collection(collection).Doc(id)
	snap, err := ref.Get(ctx)
	if snap != nil && !snap.Exists() {
		return fmt.Errorf("DeleteRecord %s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("DeleteRecord %s/%s: %w: %v", collection, id, ErrUnavailable, err)
	}
	owner, _ := snap.Data()[userField].(string)
	if owner != userID {
		return fmt.Errorf("DeleteRecord %s/%s: %w", collection, id, ErrForbidden)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("DeleteRecord %s/%s: %w: %v", collection, id, ErrUnavailable, err)
	}
	return nil
}

// userDocs streams every document in collection owned by userID.
func (s *FirestoreStore) userDocs(ctx context.Context, collection, userID string) (map[string]map[string]interface{}, error) {
	iter := s.client.Collection(collection).Where(userField, "==", userID).Documents(ctx)
	defer iter.Stop()

	out := make(map[string]map[string]interface{})
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s for user %s: %w: %v", collection, userID, ErrUnavailable, err)
		}
		out[snap.Ref.ID] = snap.Data()
	}
	return out, nil
}

// Decoding below is deliberately lenient: stored documents come from
// several writers (web forms, OCR extraction, data generation scripts)
// and may hold numbers as int64 or float64, dates as strings, or miss
// fields entirely. Zero values survive decoding; the normalizer decides
// whether the record is usable.

func decodeExpense(id string, data map[string]interface{}) domain.Expense {
	return domain.Expense{
		ID:       id,
		UserID:   asString(data[userField]),
		Name:     asString(data["name"]),
		Category: asString(data["category"]),
		Amount:   asDecimal(data["amount"]),
		Date:     asDate(data["date"]),
		Status:   domain.Status(asString(data["status"])),
	}
}

func decodeIncome(id string, data map[string]interface{}) domain.Income {
	return domain.Income{
		ID:     id,
		UserID: asString(data[userField]),
		Source: asString(data["source"]),
		Amount: asDecimal(data["amount"]),
		Date:   asDate(data["date"]),
		Status: domain.Status(asString(data["status"])),
	}
}

func decodeBudget(id string, data map[string]interface{}) domain.Budget {
	return domain.Budget{
		ID:        id,
		UserID:    asString(data[userField]),
		Category:  strings.ToLower(strings.TrimSpace(asString(data["category"]))),
		Amount:    asDecimal(data["budget"]),
		Period:    asString(data["period"]),
		CreatedAt: asTime(data["created_at"]),
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func asDate(v interface{}) civil.Date {
	switch d := v.(type) {
	case string:
		parsed, err := civil.ParseDate(strings.TrimSpace(d))
		if err != nil {
			return civil.Date{}
		}
		return parsed
	case time.Time:
		return civil.DateOf(d)
	default:
		return civil.Date{}
	}
}

func asTime(v interface{}) time.Time {
	t, _ := v.(time.Time)
	return t
}
