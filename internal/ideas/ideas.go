// Package ideas expands a synthesized brief into the final generated
// ideas, trying a primary model before falling over to a secondary one.
package ideas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
)

// Generation policy.
const (
	// MinBriefWords is the minimum brief length accepted, in
	// whitespace-delimited words.
	MinBriefWords = 50

	attemptsPerModel = 2
	baseDelay        = 1 * time.Second
	overallTimeout   = 20 * time.Second
)

// ErrGenerationFailed indicates every model in the chain was exhausted.
var ErrGenerationFailed = errors.New("idea generation failed")

// ValidationError reports a rejected input, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Result is the generation outcome. Structured is nil when no parseable
// JSON was found in the reply; parsing is best-effort and never fails
// the call.
type Result struct {
	Raw        string
	Structured json.RawMessage
	WordCount  int
	Model      string
}

// Generator runs the primary/fallback model chain.
type Generator struct {
	client   llm.Client
	primary  string
	fallback string
	logger   log.Logger
}

// NewGenerator creates an idea generator.
func NewGenerator(client llm.Client, primary, fallback string, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{client: client, primary: primary, fallback: fallback, logger: logger}
}

// Generate validates the brief and runs the model chain under one
// end-to-end budget. Each model gets attemptsPerModel attempts with
// exponential backoff; only timeout/network/503-class failures are
// retried. A confirmed rate-limit or quota error aborts the whole chain
// immediately so exhausted quota is not burned on billed retries.
func (g *Generator) Generate(ctx context.Context, domain prompt.Domain, briefText string) (*Result, error) {
	if strings.TrimSpace(string(domain)) == "" {
		return nil, &ValidationError{Field: "domain", Reason: "must not be empty"}
	}
	briefText = strings.TrimSpace(briefText)
	if briefText == "" {
		return nil, &ValidationError{Field: "brief", Reason: "must not be empty"}
	}
	if n := countWords(briefText); n < MinBriefWords {
		return nil, &ValidationError{
			Field:  "brief",
			Reason: fmt.Sprintf("must contain at least %d words, got %d", MinBriefWords, n),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, overallTimeout)
	defer cancel()

	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.GenerationSystem(domain)},
		{Role: llm.RoleUser, Content: "Project brief:\n\n" + briefText + "\n\nGenerate the ideas now."},
	}

	var lastErr error
	for _, model := range []string{g.primary, g.fallback} {
		raw, err := g.tryModel(ctx, model, msgs)
		if err == nil {
			return &Result{
				Raw:        raw,
				Structured: parseStructured(raw),
				WordCount:  countWords(raw),
				Model:      model,
			}, nil
		}
		if aborts(err) {
			return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		g.logger.Warn("model exhausted, falling over", "model", model, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: all models exhausted: %w", ErrGenerationFailed, lastErr)
}

// tryModel runs the bounded retry loop for one model.
func (g *Generator) tryModel(ctx context.Context, model string, msgs []llm.Message) (string, error) {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= attemptsPerModel; attempt++ {
		raw, err := g.client.Generate(ctx, model, msgs)

		switch {
		case err == nil && strings.TrimSpace(raw) != "":
			return raw, nil
		case err == nil:
			lastErr = errors.New("model returned empty output")
		case aborts(err) || !retryable(err):
			return "", err
		default:
			lastErr = err
		}

		if attempt == attemptsPerModel {
			break
		}

		select {
		case <-ctx.Done():
			return "", &llm.Error{Kind: llm.KindTimeout, Retryable: false, Err: ctx.Err()}
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", lastErr
}

// aborts reports errors that stop the whole chain, not just one model.
func aborts(err error) bool {
	switch llm.KindOf(err) {
	case llm.KindRateLimit, llm.KindMissingKey, llm.KindAuth:
		return true
	default:
		return false
	}
}

func retryable(err error) bool {
	switch llm.KindOf(err) {
	case llm.KindTimeout, llm.KindNetwork, llm.KindUnavailable:
		return true
	default:
		return false
	}
}

// countWords is a whitespace-delimited token count, used for the brief
// gate and for logging.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// parseStructured extracts structured output from a reply, best-effort.
// A fenced ```json block wins; otherwise the whole reply is tried. Nil
// means no valid JSON was found.
func parseStructured(raw string) json.RawMessage {
	if block, ok := fencedBlock(raw); ok {
		if json.Valid([]byte(block)) {
			return json.RawMessage(block)
		}
	}
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) && looksLikeJSON(trimmed) {
		return json.RawMessage(trimmed)
	}
	return nil
}

// fencedBlock returns the contents of the first ```json (or plain ```)
// fence in raw.
func fencedBlock(raw string) (string, bool) {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(raw, marker)
		if start < 0 {
			continue
		}
		rest := raw[start+len(marker):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end]), true
	}
	return "", false
}

// looksLikeJSON filters out bare scalars: a structured payload is an
// object or array.
func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
