// Package turn runs a single questioning turn: validate the user
// message, assemble the prompt, call the model with bounded retries, and
// degrade to a static fallback when the provider stays unreachable.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
)

// Limits and retry policy for one turn.
const (
	// MaxMessageLen bounds a single user message, in characters.
	MaxMessageLen = 5000

	// HistoryWindow is the number of trailing history messages sent per
	// call. Persistence keeps everything; this only bounds token usage.
	HistoryWindow = 10

	maxAttempts    = 2
	baseDelay      = 1 * time.Second
	maxDelay       = 3 * time.Second
	attemptTimeout = 8 * time.Second
)

// Validation errors.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = fmt.Errorf("message exceeds %d characters", MaxMessageLen)
	ErrBadHistory     = errors.New("malformed history")
)

// Result is the outcome of one processed turn.
type Result struct {
	Reply string

	// SuggestedTermination is set when the readiness policy matched the
	// reply. Advisory only.
	SuggestedTermination bool

	// FellBack is set when the reply is the static fallback sentence
	// rather than model output.
	FellBack bool
}

// Processor runs questioning turns against an llm.Client.
type Processor struct {
	client llm.Client
	model  string
	policy ReadinessPolicy
	logger log.Logger
}

// NewProcessor creates a turn processor. A nil policy gets the default
// keyword matcher.
func NewProcessor(client llm.Client, model string, policy ReadinessPolicy, logger log.Logger) *Processor {
	if policy == nil {
		policy = NewKeywordPolicy()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Processor{client: client, model: model, policy: policy, logger: logger}
}

// Process validates the input, sends [system, …history…, user] to the
// model, and returns the reply. Transient provider failures are retried
// with exponential backoff; after exhaustion the domain fallback
// sentence is returned instead of an error. Fatal provider failures
// (missing key, auth, confirmed rate limit) propagate immediately.
func (p *Processor) Process(ctx context.Context, domain prompt.Domain, intensity prompt.Intensity, history []llm.Message, userMessage string) (*Result, error) {
	userMessage = sanitize(userMessage)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(userMessage) > MaxMessageLen {
		return nil, ErrMessageTooLong
	}

	trimmed, err := sanitizeHistory(history)
	if err != nil {
		return nil, err
	}

	msgs := make([]llm.Message, 0, len(trimmed)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: prompt.System(domain, intensity)})
	msgs = append(msgs, trimmed...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: userMessage})

	reply, err := p.generateWithRetry(ctx, msgs)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		p.logger.Warn("turn degraded to fallback", "domain", domain, "error", err)
		return &Result{Reply: Fallback(domain), FellBack: true}, nil
	}

	return &Result{
		Reply:                reply,
		SuggestedTermination: p.policy.SuggestsReadiness(reply),
	}, nil
}

// generateWithRetry drives the bounded retry loop. An empty reply counts
// as a failure and consumes an attempt.
func (p *Processor) generateWithRetry(ctx context.Context, msgs []llm.Message) (string, error) {
	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		reply, err := p.client.Generate(attemptCtx, p.model, msgs)
		cancel()

		switch {
		case err == nil && strings.TrimSpace(reply) != "":
			return reply, nil
		case err == nil:
			lastErr = errors.New("model returned empty reply")
		case isFatal(err):
			return "", err
		default:
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		p.logger.Debug("turn attempt failed, backing off",
			"attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}

	return "", fmt.Errorf("turn failed after %d attempts: %w", maxAttempts, lastErr)
}

// isFatal reports failures that must never be retried at turn level:
// missing credentials, rejected credentials, and confirmed provider
// rate limits (retrying those just burns quota).
func isFatal(err error) bool {
	var e *llm.Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case llm.KindMissingKey, llm.KindAuth, llm.KindRateLimit, llm.KindInvalid:
		return true
	default:
		return false
	}
}

// sanitize strips null bytes and surrounding whitespace.
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// sanitizeHistory validates roles, sanitizes bodies, drops empty
// entries, and trims to the trailing window.
func sanitizeHistory(history []llm.Message) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return nil, fmt.Errorf("%w: unexpected role %q", ErrBadHistory, m.Role)
		}
		content := sanitize(m.Content)
		if content == "" {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: content})
	}
	if len(out) > HistoryWindow {
		out = out[len(out)-HistoryWindow:]
	}
	return out, nil
}
