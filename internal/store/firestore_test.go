package store

import (
	"testing"
	"time"
)

func TestDecodeExpense(t *testing.T) {
	data := map[string]interface{}{
		"userId":   "user-1",
		"name":     "Big Bazaar",
		"category": "Groceries",
		"amount":   float64(500),
		"date":     "2025-01-01",
		"status":   "Completed",
	}

	e := decodeExpense("doc-1", data)

	if e.ID != "doc-1" || e.UserID != "user-1" {
		t.Errorf("Unexpected identity fields: %+v", e)
	}
	if e.Name != "Big Bazaar" || e.Category != "Groceries" {
		t.Errorf("Unexpected name/category: %+v", e)
	}
	if got := e.Amount.InexactFloat64(); got != 500 {
		t.Errorf("Expected amount 500, got %v", got)
	}
	if e.Date.String() != "2025-01-01" {
		t.Errorf("Expected date 2025-01-01, got %s", e.Date)
	}
}

func TestDecodeExpense_LenientTypes(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]interface{}
		wantAmount float64
		wantDate   string
	}{
		{
			name:       "int64 amount",
			data:       map[string]interface{}{"amount": int64(300), "date": "2025-01-15"},
			wantAmount: 300,
			wantDate:   "2025-01-15",
		},
		{
			name:       "string amount",
			data:       map[string]interface{}{"amount": " 42.50 ", "date": "2025-02-01"},
			wantAmount: 42.5,
			wantDate:   "2025-02-01",
		},
		{
			name:       "time date",
			data:       map[string]interface{}{"amount": 1.0, "date": time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)},
			wantAmount: 1,
			wantDate:   "2025-03-04",
		},
		{
			name:       "garbage survives as zero values",
			data:       map[string]interface{}{"amount": "not a number", "date": "yesterday"},
			wantAmount: 0,
			wantDate:   "0000-00-00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeExpense("id", tt.data)
			if got := e.Amount.InexactFloat64(); got != tt.wantAmount {
				t.Errorf("amount = %v, want %v", got, tt.wantAmount)
			}
			if got := e.Date.String(); got != tt.wantDate {
				t.Errorf("date = %q, want %q", got, tt.wantDate)
			}
		})
	}
}

func TestDecodeIncome(t *testing.T) {
	in := decodeIncome("inc-1", map[string]interface{}{
		"userId": "user-1",
		"source": "Pocket Money",
		"amount": float64(1000),
		"date":   "2025-08-27",
		"status": "Completed",
	})

	if in.Source != "Pocket Money" {
		t.Errorf("Expected source Pocket Money, got %q", in.Source)
	}
	if got := in.Amount.InexactFloat64(); got != 1000 {
		t.Errorf("Expected amount 1000, got %v", got)
	}
}

func TestDecodeBudget_NormalizesCategory(t *testing.T) {
	b := decodeBudget("b-1", map[string]interface{}{
		"userId":     "user-1",
		"category":   "  Groceries ",
		"budget":     float64(2000),
		"period":     "monthly",
		"created_at": time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	})

	if b.Category != "groceries" {
		t.Errorf("Expected lower-cased trimmed category, got %q", b.Category)
	}
	if b.CreatedAt.IsZero() {
		t.Error("Expected created_at to decode")
	}
}
