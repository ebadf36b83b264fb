package chatbot

import (
	"fmt"
	"strings"

	"github.com/neuralbudget/neural-budget/internal/domain"
)

// Normalization converts raw transaction records into the canonical
// text+metadata documents the vector index holds. It is deterministic:
// the same record always yields byte-identical text, so semantically
// identical records embed identically and retrieval stays stable.
//
// Records missing a required field (or holding an empty/zero
// placeholder) are skipped, never rejected with an error; the caller
// counts skips.

// NormalizeExpense builds a document from an expense record.
// Required: name, category, amount, date, status.
func NormalizeExpense(e domain.Expense) (domain.Document, bool) {
	if e.Name == "" || e.Category == "" || e.Status == "" ||
		e.Amount.IsZero() || !e.Date.IsValid() {
		return domain.Document{}, false
	}

	text := fmt.Sprintf(
		"Expense: %s Amount: ₹%s Category: %s Date: %s Status: %s Type: expense",
		e.Name, e.Amount.String(), e.Category, e.Date.String(), e.Status,
	)

	return domain.Document{
		Text: text,
		Meta: domain.Metadata{
			UserID:         e.UserID,
			SourceRecordID: e.ID,
			Type:           domain.TypeExpense,
			Amount:         e.Amount.InexactFloat64(),
			Date:           e.Date.String(),
			Category:       strings.ToLower(strings.TrimSpace(e.Category)),
			Name:           e.Name,
			Status:         string(e.Status),
		},
	}, true
}

// NormalizeIncome builds a document from an income record.
// Required: source, amount, date, status.
func NormalizeIncome(in domain.Income) (domain.Document, bool) {
	if in.Source == "" || in.Status == "" ||
		in.Amount.IsZero() || !in.Date.IsValid() {
		return domain.Document{}, false
	}

	text := fmt.Sprintf(
		"Income Source: %s Amount: ₹%s Date: %s Status: %s Type: income",
		in.Source, in.Amount.String(), in.Date.String(), in.Status,
	)

	return domain.Document{
		Text: text,
		Meta: domain.Metadata{
			UserID:         in.UserID,
			SourceRecordID: in.ID,
			Type:           domain.TypeIncome,
			Amount:         in.Amount.InexactFloat64(),
			Date:           in.Date.String(),
			Name:           in.Source,
			Status:         string(in.Status),
		},
	}, true
}
