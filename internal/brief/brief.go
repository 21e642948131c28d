// Package brief distills a session transcript into a written brief.
package brief

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
)

// Synthesis policy. Unlike a questioning turn there is no fallback text:
// generation must never proceed on a synthetic brief, so exhaustion
// raises.
const (
	// HistoryWindow bounds how much transcript is sent: the most recent
	// entries when the conversation is longer.
	HistoryWindow = 50

	maxAttempts    = 3
	baseDelay      = 1 * time.Second
	attemptTimeout = 6 * time.Second
)

// ErrSynthesisFailed indicates the brief could not be produced after all
// retries.
var ErrSynthesisFailed = errors.New("brief synthesis failed")

// Synthesizer turns a transcript into a 200-300 word brief.
type Synthesizer struct {
	client llm.Client
	model  string
	logger log.Logger
}

// NewSynthesizer creates a brief synthesizer.
func NewSynthesizer(client llm.Client, model string, logger log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Synthesizer{client: client, model: model, logger: logger}
}

// Synthesize produces the brief. An empty history is accepted and yields
// a best-effort brief. Only timeout/network/429/503-class failures are
// retried; anything else propagates immediately as a synthesis error.
func (s *Synthesizer) Synthesize(ctx context.Context, domain prompt.Domain, history []llm.Message) (string, error) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.SynthesisSystem(domain)},
		{Role: llm.RoleUser, Content: buildRequest(history)},
	}

	var lastErr error
	delay := baseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		reply, err := s.client.Generate(attemptCtx, s.model, msgs)
		cancel()

		switch {
		case err == nil && strings.TrimSpace(reply) != "":
			return strings.TrimSpace(reply), nil
		case err == nil:
			lastErr = errors.New("model returned empty brief")
		case !retryable(err):
			return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
		default:
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		s.logger.Debug("synthesis attempt failed, backing off",
			"attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrSynthesisFailed, maxAttempts, lastErr)
}

// retryable: the synthesis path retries provider rate limits too; with
// three slow attempts the extra call is cheaper than losing the whole
// generation request.
func retryable(err error) bool {
	switch llm.KindOf(err) {
	case llm.KindTimeout, llm.KindNetwork, llm.KindUnavailable, llm.KindRateLimit:
		return true
	default:
		return false
	}
}

// buildRequest renders the transcript as alternating "User:" and
// "Assistant:" lines, most recent HistoryWindow entries only.
func buildRequest(history []llm.Message) string {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var b strings.Builder
	b.WriteString("Here is the discovery conversation to distill:\n\n")
	if len(history) == 0 {
		b.WriteString("(no conversation recorded)\n")
	}
	for _, m := range history {
		label := "User"
		if m.Role == llm.RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nWrite the brief now.")
	return b.String()
}
