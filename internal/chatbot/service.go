// Package chatbot implements the question-answering pipeline: re-index
// the user's current transactions, retrieve the most relevant ones,
// assemble a prompt, and generate an answer.
package chatbot

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/neuralbudget/neural-budget/internal/domain"
	"github.com/neuralbudget/neural-budget/internal/generate"
	"github.com/neuralbudget/neural-budget/internal/logger"
	"github.com/neuralbudget/neural-budget/internal/store"
	"github.com/neuralbudget/neural-budget/internal/vectorindex"
)

// State of the ask pipeline. Every question moves through these in
// order; Failed is terminal and reachable from any non-terminal state.
type State int

const (
	StateIdle State = iota
	StateReindexing
	StateRetrieving
	StateGenerating
	StateDone
	StateFailed
)

// String implements fmt.Stringer for log fields.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReindexing:
		return "reindexing"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Canned user-facing responses. Raw error text never reaches the user.
const (
	MsgNoData       = "I don't have enough information to answer that yet. Add some transactions and try again."
	MsgStoreFailure = "I couldn't retrieve your financial data. Please try again later."
	MsgTimeout      = "I'm experiencing a timeout. Please try again in a moment."
	MsgFailure      = "I encountered an error processing your request. Please try again later."
)

// AnswerGenerator is the boundary to the language model.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is the pipeline outcome. Text is always safe to show the user.
type Answer struct {
	Text      string
	State     State
	Indexed   int
	Skipped   int
	Retrieved int
}

// Service wires the store, index, retriever, and generator into the
// single ask-a-question operation.
type Service struct {
	store     store.TransactionStore
	index     *vectorindex.Index
	retriever *Retriever
	generator AnswerGenerator
	topK      int
	log       zerolog.Logger

	// Serializes the clear/add/persist sequence: the index guards its
	// own slices, but an interleaved re-index of the same user would
	// still double-apply clear+add.
	mu sync.Mutex
}

// NewService builds the orchestrator.
func NewService(st store.TransactionStore, index *vectorindex.Index, retriever *Retriever, gen AnswerGenerator, topK int, log zerolog.Logger) *Service {
	return &Service{
		store:     st,
		index:     index,
		retriever: retriever,
		generator: gen,
		topK:      topK,
		log:       log,
	}
}

// Ask answers a free-text question about the user's finances. Every call
// re-indexes the user's full current data before retrieving, trading
// latency for freshness. The returned Answer always carries displayable
// text; failures map to canned messages, never raw errors.
func (s *Service) Ask(ctx context.Context, userID, message string) Answer {
	log := logger.WithUser(s.log, userID)
	state := StateIdle

	fail := func(text string, ans Answer) Answer {
		log.Warn().Stringer("state", state).Msg("Chatbot pipeline failed")
		ans.Text = text
		ans.State = StateFailed
		return ans
	}

	// Reindexing: fetch, normalize, replace the user's index entries.
	state = StateReindexing
	ans := Answer{}

	expenses, err := s.store.Expenses(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch expenses")
		return fail(MsgStoreFailure, ans)
	}
	incomes, err := s.store.Incomes(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch incomes")
		return fail(MsgStoreFailure, ans)
	}

	docs := make([]domain.Document, 0, len(expenses)+len(incomes))
	for _, e := range expenses {
		if doc, ok := NormalizeExpense(e); ok {
			docs = append(docs, doc)
		} else {
			ans.Skipped++
			log.Warn().Str("record_id", e.ID).Msg("Skipping malformed expense record")
		}
	}
	for _, in := range incomes {
		if doc, ok := NormalizeIncome(in); ok {
			docs = append(docs, doc)
		} else {
			ans.Skipped++
			log.Warn().Str("record_id", in.ID).Msg("Skipping malformed income record")
		}
	}
	ans.Indexed = len(docs)

	if ans.Indexed == 0 {
		// Nothing to ground an answer in: short-circuit without
		// touching the model.
		log.Info().Int("skipped", ans.Skipped).Msg("No usable transactions, short-circuiting")
		return fail(MsgNoData, ans)
	}

	s.mu.Lock()
	s.index.ClearUser(userID)
	if err := s.index.Add(ctx, docs); err != nil {
		// Best-effort from here on: retrieval runs against whatever
		// the index still holds for this user.
		log.Warn().Err(err).Msg("Re-index failed, continuing with stale index")
	} else if err := s.index.Persist(); err != nil {
		log.Warn().Err(err).Msg("Index persist failed, in-memory index remains authoritative")
	}
	s.mu.Unlock()

	// Retrieving.
	state = StateRetrieving
	results, err := s.retriever.Retrieve(ctx, userID, message, s.topK)
	if err != nil {
		log.Error().Err(err).Msg("Retrieval failed")
		return fail(MsgFailure, ans)
	}
	ans.Retrieved = len(results)

	// Generating. Proceeds even with zero retrieved documents; the
	// prompt template handles empty context.
	state = StateGenerating
	prompt := AssemblePrompt(results, message)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Generation failed")
		if errors.Is(err, generate.ErrTimeout) {
			return fail(MsgTimeout, ans)
		}
		return fail(MsgFailure, ans)
	}

	state = StateDone
	log.Info().
		Int("indexed", ans.Indexed).
		Int("skipped", ans.Skipped).
		Int("retrieved", ans.Retrieved).
		Msg("Chatbot response generated")
	ans.Text = text
	ans.State = StateDone
	return ans
}
