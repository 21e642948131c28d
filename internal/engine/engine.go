// Package engine orchestrates the discovery session lifecycle: session
// creation and loading, questioning turns, and the brief-synthesis plus
// idea-generation pipeline triggered by generateNow.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/elicitlabs/elicit/internal/ideas"
	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
	"github.com/elicitlabs/elicit/internal/session"
	"github.com/elicitlabs/elicit/internal/turn"
	"github.com/elicitlabs/elicit/internal/usage"
)

// MinQuestions is the number of assistant messages a session needs
// before generation may be triggered.
const MinQuestions = 3

// summaryMessage closes the transcript when a session completes, so the
// stored conversation is self-contained.
const summaryMessage = "Session complete. Your brief has been distilled from our conversation and the generated ideas are attached to this session."

// SessionStore is the persistence surface the engine needs.
// *session.Store satisfies it; engine tests use an in-memory fake.
type SessionStore interface {
	Create(ctx context.Context, ownerID string, domain prompt.Domain) (*session.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, expected, next session.Status) error
	SetBrief(ctx context.Context, id uuid.UUID, brief string) error
	SetOutput(ctx context.Context, id uuid.UUID, output []byte) error
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error)
	Messages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error)
}

// QuotaLimiter gates session creation. *usage.Limiter satisfies it.
type QuotaLimiter interface {
	Check(ctx context.Context, userID string) usage.Decision
	Increment(ctx context.Context, userID string) (*usage.Profile, error)
}

// TurnProcessor runs one questioning turn. *turn.Processor satisfies it.
type TurnProcessor interface {
	Process(ctx context.Context, domain prompt.Domain, intensity prompt.Intensity, history []llm.Message, userMessage string) (*turn.Result, error)
}

// BriefSynthesizer distills the transcript. *brief.Synthesizer satisfies it.
type BriefSynthesizer interface {
	Synthesize(ctx context.Context, domain prompt.Domain, history []llm.Message) (string, error)
}

// IdeaGenerator expands the brief. *ideas.Generator satisfies it.
type IdeaGenerator interface {
	Generate(ctx context.Context, domain prompt.Domain, briefText string) (*ideas.Result, error)
}

// Request is one elicitation step.
type Request struct {
	UserID      string
	SessionID   string // empty starts a new session
	Message     string
	Domain      string // required for new sessions
	Intensity   string // optional, defaults to basic
	GenerateNow bool
}

// FinalOutput is the completed-session payload.
type FinalOutput struct {
	Brief          string `json:"brief"`
	GeneratedIdeas any    `json:"generatedIdeas"` // parsed object when available, raw text otherwise
}

// Response is the outcome of a handled request.
type Response struct {
	SessionID            string
	ResponseMessage      string
	IsCompleted          bool
	Status               session.Status
	QuestionCount        int
	CanGenerate          bool
	SuggestedTermination bool
	FinalOutput          *FinalOutput
}

// Engine wires the components behind one Handle entry point.
type Engine struct {
	sessions SessionStore
	quota    QuotaLimiter
	turns    TurnProcessor
	briefs   BriefSynthesizer
	ideas    IdeaGenerator
	logger   log.Logger
}

// New creates the orchestrator.
func New(sessions SessionStore, quota QuotaLimiter, turns TurnProcessor, briefs BriefSynthesizer, generator IdeaGenerator, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		sessions: sessions,
		quota:    quota,
		turns:    turns,
		briefs:   briefs,
		ideas:    generator,
		logger:   logger,
	}
}

// Handle runs one request through the session lifecycle. All failures
// come back as *Error; a panic anywhere below is caught and reported as
// an internal error rather than crashing the request.
func (e *Engine) Handle(ctx context.Context, req Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in engine", "panic", r, "session", req.SessionID)
			resp = nil
			err = newError(CodeInternal, http.StatusInternalServerError,
				"internal error", fmt.Errorf("panic: %v", r))
		}
	}()

	if req.UserID == "" {
		return nil, newError(CodeUnauthenticated, http.StatusUnauthorized,
			"caller identity is required", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, validationError("message must not be empty", nil)
	}

	intensity, err := prompt.ParseIntensity(req.Intensity)
	if err != nil {
		return nil, validationError("intensity must be basic or deep", err)
	}

	sess, engErr := e.resolveSession(ctx, req)
	if engErr != nil {
		return nil, engErr
	}

	if _, err := e.sessions.AppendMessage(ctx, sess.ID, session.RoleUser, req.Message); err != nil {
		return nil, storeError("recording message failed", err)
	}

	history, err := e.sessions.Messages(ctx, sess.ID)
	if err != nil {
		return nil, newError(CodeHistoryRetrieval, http.StatusInternalServerError,
			"loading conversation history failed", err)
	}
	assistantCount := questionCount(history)

	if req.GenerateNow {
		return e.generate(ctx, sess, history, assistantCount)
	}
	return e.question(ctx, sess, intensity, history, assistantCount, req.Message)
}

// resolveSession creates a new session (quota-gated) or loads and guards
// an existing one.
func (e *Engine) resolveSession(ctx context.Context, req Request) (*session.Session, *Error) {
	if req.SessionID == "" {
		if strings.TrimSpace(req.Domain) == "" {
			return nil, newError(CodeDomainRequired, http.StatusBadRequest,
				"domain is required when starting a session", nil)
		}
		domain, err := prompt.ParseDomain(req.Domain)
		if err != nil {
			return nil, validationError("domain must be one of business, product, creative, research, coding", err)
		}

		// Quota check comes before any record is created.
		decision := e.quota.Check(ctx, req.UserID)
		if !decision.Allowed {
			return nil, rateLimitError(decision)
		}

		sess, err := e.sessions.Create(ctx, req.UserID, domain)
		if err != nil {
			return nil, storeError("creating session failed", err)
		}
		e.logger.Info("session started", "session", sess.ID, "domain", domain, "user", req.UserID)
		return sess, nil
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, validationError("sessionId must be a valid UUID", err)
	}

	sess, err := e.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, newError(CodeNotFound, http.StatusNotFound, "session not found", err)
		}
		return nil, storeError("loading session failed", err)
	}
	// Ownership failures look identical to missing sessions so session
	// IDs cannot be probed.
	if sess.OwnerID != req.UserID {
		return nil, newError(CodeNotFound, http.StatusNotFound, "session not found", nil)
	}

	switch sess.Status {
	case session.StatusCompleted:
		return nil, newError(CodeSessionCompleted, http.StatusBadRequest,
			"session is already completed", nil)
	case session.StatusGenerating:
		return nil, newError(CodeGenerationInProgress, http.StatusConflict,
			"generation is already in progress for this session", nil)
	}

	return sess, nil
}

// question runs one Q&A turn and appends the reply.
func (e *Engine) question(ctx context.Context, sess *session.Session, intensity prompt.Intensity, history []session.Message, assistantCount int, userMessage string) (*Response, error) {
	// History for the model excludes the just-appended user message;
	// the processor re-appends it as the live turn.
	llmHistory := toLLM(history[:len(history)-1])

	res, err := e.turns.Process(ctx, sess.Domain, intensity, llmHistory, userMessage)
	if err != nil {
		return nil, mapTurnError(err)
	}

	if _, err := e.sessions.AppendMessage(ctx, sess.ID, session.RoleAssistant, res.Reply); err != nil {
		return nil, storeError("recording reply failed", err)
	}

	qc := assistantCount + 1
	return &Response{
		SessionID:            sess.ID.String(),
		ResponseMessage:      res.Reply,
		Status:               session.StatusQuestioning,
		QuestionCount:        qc,
		CanGenerate:          qc >= MinQuestions,
		SuggestedTermination: res.SuggestedTermination,
	}, nil
}

// generate runs the synthesis and generation pipeline, guarded by the
// questioning → generating compare-and-swap.
func (e *Engine) generate(ctx context.Context, sess *session.Session, history []session.Message, assistantCount int) (*Response, error) {
	if assistantCount < MinQuestions {
		engErr := newError(CodeMinQuestionsNotMet, http.StatusBadRequest,
			fmt.Sprintf("at least %d questions must be answered before generating", MinQuestions), nil)
		engErr.Details = fmt.Sprintf("questionCount=%d", assistantCount)
		return nil, engErr
	}

	if err := e.sessions.TransitionStatus(ctx, sess.ID, session.StatusQuestioning, session.StatusGenerating); err != nil {
		switch {
		case errors.Is(err, session.ErrStatusConflict):
			return nil, newError(CodeGenerationInProgress, http.StatusConflict,
				"generation is already in progress for this session", err)
		case errors.Is(err, session.ErrNotFound):
			return nil, newError(CodeNotFound, http.StatusNotFound, "session not found", err)
		default:
			return nil, storeError("advancing session failed", err)
		}
	}

	briefText, err := e.briefs.Synthesize(ctx, sess.Domain, toLLM(history))
	if err != nil {
		return nil, newError(CodeSynthesisFailed, http.StatusInternalServerError,
			"distilling the conversation into a brief failed", err)
	}
	if err := e.sessions.SetBrief(ctx, sess.ID, briefText); err != nil {
		return nil, storeError("persisting brief failed", err)
	}

	result, err := e.ideas.Generate(ctx, sess.Domain, briefText)
	if err != nil {
		return nil, mapGenerationError(err)
	}

	output := &FinalOutput{Brief: briefText, GeneratedIdeas: result.Raw}
	if result.Structured != nil {
		output.GeneratedIdeas = result.Structured
	}
	payload, err := json.Marshal(output)
	if err != nil {
		return nil, newError(CodeInternal, http.StatusInternalServerError,
			"encoding final output failed", err)
	}
	if err := e.sessions.SetOutput(ctx, sess.ID, payload); err != nil {
		return nil, storeError("persisting final output failed", err)
	}

	if err := e.sessions.TransitionStatus(ctx, sess.ID, session.StatusGenerating, session.StatusCompleted); err != nil {
		return nil, storeError("completing session failed", err)
	}

	// Best-effort from here on: the session is already completed.
	if _, err := e.quota.Increment(ctx, sess.OwnerID); err != nil {
		e.logger.Error("usage increment failed", "user", sess.OwnerID, "session", sess.ID, "error", err)
	}
	if _, err := e.sessions.AppendMessage(ctx, sess.ID, session.RoleAssistant, summaryMessage); err != nil {
		e.logger.Warn("appending summary message failed", "session", sess.ID, "error", err)
	}

	e.logger.Info("session completed",
		"session", sess.ID, "model", result.Model, "words", result.WordCount)

	return &Response{
		SessionID:       sess.ID.String(),
		ResponseMessage: summaryMessage,
		IsCompleted:     true,
		Status:          session.StatusCompleted,
		QuestionCount:   assistantCount,
		CanGenerate:     true,
		FinalOutput:     output,
	}, nil
}

// questionCount counts assistant messages. It stands in for "questions
// asked"; a reply that is not a question still counts. A classifier
// could replace this without touching callers.
func questionCount(history []session.Message) int {
	n := 0
	for _, m := range history {
		if m.Role == session.RoleAssistant {
			n++
		}
	}
	return n
}

func toLLM(history []session.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == session.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}

// mapTurnError translates turn-processor failures. Validation failures
// map to 400; fatal provider failures keep their distinct codes so the
// caller can tell configuration problems from transient ones.
func mapTurnError(err error) *Error {
	switch {
	case errors.Is(err, turn.ErrEmptyMessage),
		errors.Is(err, turn.ErrMessageTooLong),
		errors.Is(err, turn.ErrBadHistory):
		return validationError(err.Error(), err)
	}

	switch llm.KindOf(err) {
	case llm.KindMissingKey:
		return newError(CodeMissingAPIKey, http.StatusInternalServerError,
			"model provider credentials are not configured", err)
	case llm.KindAuth:
		return newError(CodeAuthError, http.StatusInternalServerError,
			"model provider rejected the configured credentials", err)
	case llm.KindRateLimit:
		return newError(CodeProviderRateLimit, http.StatusInternalServerError,
			"model provider rate limit reached, try again shortly", err)
	default:
		return newError(CodeInternal, http.StatusInternalServerError,
			"processing the turn failed", err)
	}
}

// mapGenerationError translates output-generator failures. Timeouts get
// their own code and 408 mapping.
func mapGenerationError(err error) *Error {
	var ve *ideas.ValidationError
	if errors.As(err, &ve) {
		return validationError(ve.Error(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) || llm.KindOf(err) == llm.KindTimeout {
		return newError(CodeGenerationTimeout, http.StatusRequestTimeout,
			"idea generation exceeded its time budget", err)
	}

	switch llm.KindOf(err) {
	case llm.KindMissingKey:
		return newError(CodeMissingAPIKey, http.StatusInternalServerError,
			"model provider credentials are not configured", err)
	case llm.KindAuth:
		return newError(CodeAuthError, http.StatusInternalServerError,
			"model provider rejected the configured credentials", err)
	case llm.KindRateLimit:
		return newError(CodeProviderRateLimit, http.StatusInternalServerError,
			"model provider rate limit reached, try again shortly", err)
	default:
		return newError(CodeGenerationFailed, http.StatusInternalServerError,
			"generating ideas from the brief failed", err)
	}
}
