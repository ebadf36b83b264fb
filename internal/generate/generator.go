// Package generate sends assembled prompts to a hosted language model
// and returns the completion, falling back across an ordered list of
// model configurations.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/neuralbudget/neural-budget/internal/config"
)

var (
	// ErrGeneration indicates every configured model attempt failed.
	// It wraps the last underlying error.
	ErrGeneration = errors.New("answer generation failed")

	// ErrTimeout indicates the last attempt hit the request timeout.
	// Callers show a different user-facing message for timeouts.
	ErrTimeout = errors.New("answer generation timed out")
)

// ModelConfig is one entry in the ordered fallback list.
type ModelConfig struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Caller performs a single completion call against one model.
// The Gemini implementation lives in gemini.go; tests supply fakes.
type Caller interface {
	Complete(ctx context.Context, cfg ModelConfig, prompt string) (string, error)
}

// Generator tries each model configuration in sequence and returns the
// first successful completion.
type Generator struct {
	caller  Caller
	configs []ModelConfig
	timeout time.Duration
	log     zerolog.Logger
}

// New builds a generator from configuration: a primary model and exactly
// one fallback, both with identical sampling parameters.
func New(caller Caller, cfg config.AIConfig, log zerolog.Logger) *Generator {
	return &Generator{
		caller: caller,
		configs: []ModelConfig{
			{Model: cfg.Model, Temperature: cfg.Temperature, MaxOutputTokens: cfg.MaxOutputTokens},
			{Model: cfg.FallbackModel, Temperature: cfg.Temperature, MaxOutputTokens: cfg.MaxOutputTokens},
		},
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		log:     log,
	}
}

// Generate runs the prompt through the model list. Each attempt gets its
// own request timeout and is timed and logged. If every attempt fails,
// the composite error classifies the last failure as ErrTimeout or
// ErrGeneration.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for _, cfg := range g.configs {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		start := time.Now()
		text, err := g.caller.Complete(attemptCtx, cfg, prompt)
		cancel()
		elapsed := time.Since(start)

		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("empty response from model")
		}
		if err == nil {
			g.log.Info().
				Str("model", cfg.Model).
				Dur("duration", elapsed).
				Msg("Completion succeeded")
			return strings.TrimSpace(text), nil
		}

		g.log.Warn().
			Err(err).
			Str("model", cfg.Model).
			Dur("duration", elapsed).
			Msg("Completion attempt failed")
		lastErr = err
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %v", ErrTimeout, lastErr)
	}
	return "", fmt.Errorf("%w: %v", ErrGeneration, lastErr)
}
