package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/elicitlabs/elicit/internal/log"
)

// Provider prefix for model names passed to Genkit.
const googleAIPrefix = "googleai/"

// Client-side pacing so retry loops upstream cannot hammer the provider.
const (
	requestsPerSecond = 2
	requestBurst      = 4
)

// GenkitClient implements Client on top of a Genkit instance with the
// googlegenai plugin.
type GenkitClient struct {
	g       *genkit.Genkit
	limiter *rate.Limiter
	logger  log.Logger
}

// NewGenkitClient wraps an initialized Genkit instance. The API key must
// already be present in the environment; this is checked here so the
// failure surfaces at startup, before any network call.
func NewGenkitClient(g *genkit.Genkit, logger log.Logger) (*GenkitClient, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, &Error{Kind: KindMissingKey, Err: errors.New("GEMINI_API_KEY is not set")}
	}
	return &GenkitClient{
		g:       g,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:  logger,
	}, nil
}

// Generate sends the conversation to the given model and returns the
// reply text. A leading system message is passed through as the system
// prompt; the rest become the conversation history.
func (c *GenkitClient) Generate(ctx context.Context, model string, msgs []Message) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", classify(fmt.Errorf("waiting for request slot: %w", err))
	}

	var system string
	conversation := make([]*ai.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleAssistant:
			conversation = append(conversation, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			conversation = append(conversation, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(qualifyModel(model)),
		ai.WithMessages(conversation...),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		c.logger.Debug("model call failed", "model", model, "error", err)
		return "", classify(err)
	}

	return resp.Text(), nil
}

// qualifyModel adds the provider prefix unless the caller already
// qualified the name.
func qualifyModel(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	return googleAIPrefix + model
}

// classify wraps a provider failure into *Error.
//
// This is the single place that inspects provider error text: the Genkit
// plugin does not expose structured status codes for every failure, so
// classification falls back to well-known substrings. Everything above
// this layer branches on Kind only.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Retryable: true, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "api key not found", "api key is missing", "missing api key"):
		return &Error{Kind: KindMissingKey, Err: err}
	case containsAny(msg, "api key not valid", "unauthenticated", "unauthorized", "permission denied", "401", "403"):
		return &Error{Kind: KindAuth, Err: err}
	case containsAny(msg, "429", "resource_exhausted", "resource exhausted", "quota exceeded", "rate limit"):
		return &Error{Kind: KindRateLimit, Err: err}
	case containsAny(msg, "deadline exceeded", "timeout", "timed out"):
		return &Error{Kind: KindTimeout, Retryable: true, Err: err}
	case containsAny(msg, "503", "unavailable", "overloaded", "try again later"):
		return &Error{Kind: KindUnavailable, Retryable: true, Err: err}
	case containsAny(msg, "connection refused", "connection reset", "no such host", "broken pipe", "eof"):
		return &Error{Kind: KindNetwork, Retryable: true, Err: err}
	case containsAny(msg, "invalid argument", "400"):
		return &Error{Kind: KindInvalid, Err: err}
	default:
		return &Error{Kind: KindUnknown, Retryable: true, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
