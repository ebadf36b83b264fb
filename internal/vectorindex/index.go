// Package vectorindex owns the in-memory vector index over normalized
// transaction documents and its on-disk snapshot. All mutating calls are
// serialized internally; the index is safe for concurrent use by the
// request handlers.
package vectorindex

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/embedding"
)

// ErrIndexWrite wraps embedding or insertion failures during Add.
// A failed batch commits nothing.
var ErrIndexWrite = errors.New("vector index write failed")

// BootstrapUserID is the reserved owner of the seed entry. The backend
// cannot answer queries over an empty index, so a fresh index always
// holds one entry under this id; the user filter keeps it out of every
// result set.
const BootstrapUserID = "_bootstrap"

const bootstrapText = "initialization"

// Entry pairs an embedding vector with its document. Exported fields
// only, for gob.
type Entry struct {
	Vector []float32
	Doc    domain.Document
}

// Result is one retrieved document with its similarity score.
type Result struct {
	Doc   domain.Document
	Score float64
}

// Index is the process-wide vector index.
type Index struct {
	mu       sync.Mutex
	embedder embedding.Embedder
	path     string
	log      zerolog.Logger
	entries  []Entry
}

// LoadOrCreate deserializes a previously persisted index from path, or
// builds a fresh one seeded with the bootstrap entry when the snapshot
// is missing or unreadable. A corrupt snapshot is logged and discarded,
// never fatal.
func LoadOrCreate(ctx context.Context, path string, embedder embedding.Embedder, log zerolog.Logger) (*Index, error) {
	idx := &Index{embedder: embedder, path: path, log: log}

	if entries, err := readSnapshot(path); err == nil {
		idx.entries = entries
		log.Info().Str("path", path).Int("entries", len(entries)).Msg("Loaded vector index snapshot")
		return idx, nil
	} else if !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("Could not load vector index snapshot, creating fresh index")
	}

	vec, err := embedder.Embed(ctx, bootstrapText)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: seeding fresh index: %w", err)
	}
	idx.entries = []Entry{{
		Vector: vec,
		Doc: domain.Document{
			Text: bootstrapText,
			Meta: domain.Metadata{UserID: BootstrapUserID},
		},
	}}
	log.Info().Str("path", path).Msg("Created fresh vector index")
	return idx, nil
}

// ClearUser removes every entry whose metadata user id matches, keeping
// insertion order for the rest. Returns the number of removed entries.
func (idx *Index) ClearUser(userID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	removed := 0
	for _, e := range idx.entries {
		if e.Doc.Meta.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = kept
	return removed
}

// Add embeds and appends the given documents. The batch is all-or-nothing:
// every text is embedded first, and nothing is committed if any embedding
// call fails.
func (idx *Index) Add(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	staged := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		vec, err := idx.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("%w: embedding %q: %v", ErrIndexWrite, doc.Meta.SourceRecordID, err)
		}
		staged = append(staged, Entry{Vector: vec, Doc: doc})
	}

	idx.mu.Lock()
	idx.entries = append(idx.entries, staged...)
	idx.mu.Unlock()
	return nil
}

// Search returns up to k documents owned by userID, most similar first
// by cosine similarity. The user filter is applied before ranking, so no
// other user's data can appear in the results. Ties keep insertion order.
func (idx *Index) Search(vector []float32, userID string, k int) []Result {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if k <= 0 {
		return nil
	}

	candidates := make([]Result, 0, k)
	for _, e := range idx.entries {
		if e.Doc.Meta.UserID != userID {
			continue
		}
		candidates = append(candidates, Result{Doc: e.Doc, Score: cosine(e.Vector, vector)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Len reports the total number of entries, bootstrap included.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// Persist serializes the index to its snapshot path via a temp-file
// rename. A failed persist leaves the previous snapshot intact; the
// in-memory index stays the source of truth either way.
func (idx *Index) Persist() error {
	idx.mu.Lock()
	entries := make([]Entry, len(idx.entries))
	copy(entries, idx.entries)
	idx.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("vectorindex: persist: %w", err)
	}

	tmp := idx.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("vectorindex: persist: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: persist: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: persist: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vectorindex: persist: %w", err)
	}
	idx.log.Debug().Str("path", idx.path).Int("entries", len(entries)).Msg("Vector index snapshot written")
	return nil
}

func readSnapshot(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(entries) == 0 {
		return nil, errors.New("empty snapshot")
	}
	return entries, nil
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
