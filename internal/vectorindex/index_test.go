package vectorindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/logger"
)

// fakeEmbedder produces a deterministic bag-of-words vector so that
// texts sharing words score higher than unrelated texts.
type fakeEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.EmbedFunc != nil {
		return f.EmbedFunc(ctx, text)
	}
	return bagOfWords(text), nil
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%64]++
	}
	return vec
}

func doc(userID, id, text string) domain.Document {
	return domain.Document{
		Text: text,
		Meta: domain.Metadata{UserID: userID, SourceRecordID: id, Type: domain.TypeExpense},
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := LoadOrCreate(context.Background(), filepath.Join(t.TempDir(), "index.gob"), &fakeEmbedder{}, logger.NewWithWriter(os.Stderr))
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	return idx
}

func TestLoadOrCreate_FreshIndexSeedsBootstrap(t *testing.T) {
	idx := newTestIndex(t)

	if idx.Len() != 1 {
		t.Fatalf("Expected 1 bootstrap entry, got %d", idx.Len())
	}
	if got := idx.Search(bagOfWords("initialization"), "user-1", 10); len(got) != 0 {
		t.Errorf("Bootstrap entry leaked into user results: %v", got)
	}
}

func TestSearch_CrossUserIsolation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, []domain.Document{
		doc("alice", "a1", "Expense: milk Amount: ₹50 Category: groceries"),
		doc("bob", "b1", "Expense: milk Amount: ₹60 Category: groceries"),
		doc("bob", "b2", "Expense: fuel Amount: ₹900 Category: transport"),
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results := idx.Search(bagOfWords("milk groceries"), "alice", 10)
	if len(results) != 1 {
		t.Fatalf("Expected exactly alice's 1 document, got %d", len(results))
	}
	for _, r := range results {
		if r.Doc.Meta.UserID != "alice" {
			t.Errorf("Result leaked from user %q", r.Doc.Meta.UserID)
		}
	}
}

func TestSearch_KIsSoftUpperBound(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, []domain.Document{
		doc("u", "1", "Expense: rice Category: groceries"),
		doc("u", "2", "Expense: dal Category: groceries"),
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if got := idx.Search(bagOfWords("groceries"), "u", 5); len(got) != 2 {
		t.Errorf("k=5 with 2 matches: expected 2 results, got %d", len(got))
	}
	if got := idx.Search(bagOfWords("groceries"), "u", 1); len(got) != 1 {
		t.Errorf("k=1: expected 1 result, got %d", len(got))
	}
	if got := idx.Search(bagOfWords("groceries"), "u", 0); len(got) != 0 {
		t.Errorf("k=0: expected no results, got %d", len(got))
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	// Identical texts embed identically, so scores tie exactly.
	if err := idx.Add(ctx, []domain.Document{
		doc("u", "first", "Expense: coffee"),
		doc("u", "second", "Expense: coffee"),
		doc("u", "third", "Expense: coffee"),
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results := idx.Search(bagOfWords("coffee"), "u", 3)
	want := []string{"first", "second", "third"}
	for i, r := range results {
		if r.Doc.Meta.SourceRecordID != want[i] {
			t.Errorf("Position %d: got %q, want %q", i, r.Doc.Meta.SourceRecordID, want[i])
		}
	}
}

func TestAdd_AllOrNothing(t *testing.T) {
	calls := 0
	failing := &fakeEmbedder{
		EmbedFunc: func(ctx context.Context, text string) ([]float32, error) {
			calls++
			if calls > 2 { // bootstrap + first doc succeed
				return nil, fmt.Errorf("quota exhausted")
			}
			return bagOfWords(text), nil
		},
	}

	idx, err := LoadOrCreate(context.Background(), filepath.Join(t.TempDir(), "index.gob"), failing, logger.NewWithWriter(os.Stderr))
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}

	err = idx.Add(context.Background(), []domain.Document{
		doc("u", "1", "Expense: rice"),
		doc("u", "2", "Expense: dal"),
	})
	if !errors.Is(err, ErrIndexWrite) {
		t.Fatalf("Expected ErrIndexWrite, got %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Partial batch committed: expected only bootstrap entry, got %d entries", idx.Len())
	}
}

func TestReindex_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := []domain.Document{
		doc("u", "1", "Expense: rice Category: groceries"),
		doc("u", "2", "Expense: dal Category: groceries"),
	}

	for i := 0; i < 2; i++ {
		idx.ClearUser("u")
		if err := idx.Add(ctx, docs); err != nil {
			t.Fatalf("Add round %d failed: %v", i, err)
		}
	}

	if got := idx.Search(bagOfWords("groceries"), "u", 10); len(got) != 2 {
		t.Errorf("Expected 2 documents after double re-index, got %d", len(got))
	}
	if idx.Len() != 3 { // bootstrap + 2
		t.Errorf("Expected 3 total entries, got %d", idx.Len())
	}
}

func TestClearUser(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, []domain.Document{
		doc("a", "1", "one"), doc("b", "2", "two"), doc("a", "3", "three"),
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if removed := idx.ClearUser("a"); removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if got := idx.Search(bagOfWords("two"), "b", 10); len(got) != 1 {
		t.Errorf("Other user's entries should survive, got %d", len(got))
	}
}

func TestPersist_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.gob")
	log := logger.NewWithWriter(os.Stderr)
	ctx := context.Background()

	idx, err := LoadOrCreate(ctx, path, &fakeEmbedder{}, log)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if err := idx.Add(ctx, []domain.Document{doc("u", "1", "Expense: rice Category: groceries")}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := idx.Persist(); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	reloaded, err := LoadOrCreate(ctx, path, &fakeEmbedder{}, log)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if reloaded.Len() != idx.Len() {
		t.Errorf("Reloaded entry count %d != original %d", reloaded.Len(), idx.Len())
	}
	if got := reloaded.Search(bagOfWords("groceries"), "u", 10); len(got) != 1 {
		t.Errorf("Expected 1 document after reload, got %d", len(got))
	}
}

func TestPersist_LogsSnapshotWrite(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	idx, err := LoadOrCreate(ctx, filepath.Join(t.TempDir(), "index.gob"), &fakeEmbedder{}, logger.NewWithWriter(&buf))
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if err := idx.Persist(); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	if !strings.Contains(buf.String(), "snapshot written") {
		t.Errorf("Expected a snapshot write log entry, got: %s", buf.String())
	}
}

func TestLoadOrCreate_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.gob")
	if err := os.WriteFile(path, []byte("not a gob stream"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx, err := LoadOrCreate(context.Background(), path, &fakeEmbedder{}, logger.NewWithWriter(os.Stderr))
	if err != nil {
		t.Fatalf("Expected fresh index despite corrupt snapshot, got error: %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("Expected bootstrap-only fresh index, got %d entries", idx.Len())
	}
}
