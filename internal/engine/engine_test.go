package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/elicitlabs/elicit/internal/brief"
	"github.com/elicitlabs/elicit/internal/ideas"
	"github.com/elicitlabs/elicit/internal/llm"
	"github.com/elicitlabs/elicit/internal/log"
	"github.com/elicitlabs/elicit/internal/prompt"
	"github.com/elicitlabs/elicit/internal/session"
	"github.com/elicitlabs/elicit/internal/turn"
	"github.com/elicitlabs/elicit/internal/usage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore is an in-memory SessionStore with the same status-transition
// semantics as the SQL-backed one.
type memStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
	messages map[uuid.UUID][]session.Message

	failCreate     error
	failAppend     error
	failMessages   error
	failSetBrief   error
	failSetOutput  error
	failTransition error

	// failAppendRole limits failAppend to one role, so the user append
	// can succeed while the assistant append fails.
	failAppendRole string
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uuid.UUID]*session.Session),
		messages: make(map[uuid.UUID][]session.Message),
	}
}

func (s *memStore) Create(_ context.Context, ownerID string, domain prompt.Domain) (*session.Session, error) {
	if s.failCreate != nil {
		return nil, s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session.Session{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Domain:  domain,
		Status:  session.StatusQuestioning,
	}
	s.sessions[sess.ID] = sess
	return cloneSession(sess), nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *memStore) TransitionStatus(_ context.Context, id uuid.UUID, expected, next session.Status) error {
	if s.failTransition != nil {
		return s.failTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	if !expected.CanAdvance(next) || sess.Status != expected {
		return session.ErrStatusConflict
	}
	sess.Status = next
	return nil
}

func (s *memStore) SetBrief(_ context.Context, id uuid.UUID, brief string) error {
	if s.failSetBrief != nil {
		return s.failSetBrief
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	sess.FinalBrief = brief
	return nil
}

func (s *memStore) SetOutput(_ context.Context, id uuid.UUID, output []byte) error {
	if s.failSetOutput != nil {
		return s.failSetOutput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	sess.FinalOutput = output
	return nil
}

func (s *memStore) AppendMessage(_ context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error) {
	if s.failAppend != nil && (s.failAppendRole == "" || s.failAppendRole == role) {
		return nil, s.failAppend
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, session.ErrNotFound
	}
	msg := session.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Sequence:  int32(len(s.messages[sessionID]) + 1),
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return &msg, nil
}

func (s *memStore) Messages(_ context.Context, sessionID uuid.UUID) ([]session.Message, error) {
	if s.failMessages != nil {
		return nil, s.failMessages
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]session.Message, len(s.messages[sessionID]))
	copy(out, s.messages[sessionID])
	return out, nil
}

func cloneSession(s *session.Session) *session.Session {
	c := *s
	return &c
}

type fakeQuota struct {
	decision   usage.Decision
	checked    []string
	increments []string
	incErr     error
}

func (q *fakeQuota) Check(_ context.Context, userID string) usage.Decision {
	q.checked = append(q.checked, userID)
	return q.decision
}

func (q *fakeQuota) Increment(_ context.Context, userID string) (*usage.Profile, error) {
	q.increments = append(q.increments, userID)
	if q.incErr != nil {
		return nil, q.incErr
	}
	return &usage.Profile{UserID: userID}, nil
}

func allowAll() *fakeQuota {
	return &fakeQuota{decision: usage.Decision{Allowed: true, Limit: 10, Remaining: 9, Tier: usage.TierFree}}
}

type fakeTurns struct {
	result  *turn.Result
	err     error
	history []llm.Message
	message string
	calls   int
}

func (f *fakeTurns) Process(_ context.Context, _ prompt.Domain, _ prompt.Intensity, history []llm.Message, userMessage string) (*turn.Result, error) {
	f.calls++
	f.history = history
	f.message = userMessage
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &turn.Result{Reply: "What problem are you solving?"}, nil
}

type fakeBriefs struct {
	text    string
	err     error
	history []llm.Message
	calls   int
}

func (f *fakeBriefs) Synthesize(_ context.Context, _ prompt.Domain, history []llm.Message) (string, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeIdeas struct {
	result *ideas.Result
	err    error
	brief  string
	calls  int
}

func (f *fakeIdeas) Generate(_ context.Context, _ prompt.Domain, briefText string) (*ideas.Result, error) {
	f.calls++
	f.brief = briefText
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ideas.Result{Raw: "idea one, idea two", WordCount: 4, Model: "primary"}, nil
}

type fixture struct {
	engine *Engine
	store  *memStore
	quota  *fakeQuota
	turns  *fakeTurns
	briefs *fakeBriefs
	ideas  *fakeIdeas
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		quota:  allowAll(),
		turns:  &fakeTurns{},
		briefs: &fakeBriefs{text: "a long enough brief"},
		ideas:  &fakeIdeas{},
	}
	f.engine = New(f.store, f.quota, f.turns, f.briefs, f.ideas, log.NewNop())
	return f
}

// seedSession creates a session with n completed question/answer rounds.
func (f *fixture) seedSession(t *testing.T, owner string, rounds int) *session.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.store.Create(ctx, owner, prompt.DomainBusiness)
	require.NoError(t, err)
	for i := range rounds {
		_, err = f.store.AppendMessage(ctx, sess.ID, session.RoleUser, fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
		_, err = f.store.AppendMessage(ctx, sess.ID, session.RoleAssistant, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}
	return sess
}

func requireCode(t *testing.T, err error, code string, status int) *Error {
	t.Helper()
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, code, engErr.Code)
	assert.Equal(t, status, engErr.HTTPStatus)
	return engErr
}

func TestHandleNewSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first message starts a session and asks a question", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		resp, err := f.engine.Handle(ctx, Request{
			UserID:  "user-1",
			Message: "I want to build a meal-planning app",
			Domain:  "product",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, resp.SessionID)
		assert.Equal(t, "What problem are you solving?", resp.ResponseMessage)
		assert.Equal(t, session.StatusQuestioning, resp.Status)
		assert.Equal(t, 1, resp.QuestionCount)
		assert.False(t, resp.CanGenerate)
		assert.False(t, resp.IsCompleted)
		assert.Nil(t, resp.FinalOutput)

		assert.Equal(t, []string{"user-1"}, f.quota.checked)

		id := uuid.MustParse(resp.SessionID)
		msgs, err := f.store.Messages(ctx, id)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, session.RoleUser, msgs[0].Role)
		assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	})

	t.Run("domain required for new sessions", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "hello"})
		requireCode(t, err, CodeDomainRequired, 400)
	})

	t.Run("unknown domain rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "hello", Domain: "finance"})
		requireCode(t, err, CodeValidation, 400)
	})

	t.Run("unknown intensity rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "hello", Domain: "business", Intensity: "extreme"})
		requireCode(t, err, CodeValidation, 400)
	})

	t.Run("missing identity rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{Message: "hello", Domain: "business"})
		requireCode(t, err, CodeUnauthenticated, 401)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "  \n ", Domain: "business"})
		requireCode(t, err, CodeValidation, 400)
	})

	t.Run("quota denial blocks session creation", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.quota.decision = usage.Decision{Allowed: false, Limit: 10, Remaining: 0, Tier: usage.TierFree}

		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "hello", Domain: "business"})
		engErr := requireCode(t, err, CodeRateLimitExceeded, 429)
		require.NotNil(t, engErr.Quota)
		assert.Equal(t, 10, engErr.Quota.Limit)
		assert.Zero(t, engErr.Quota.Remaining)
		assert.Empty(t, f.store.sessions, "denied request must not create a session")
	})

	t.Run("quota is not checked for existing sessions", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 1)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "more detail"})
		require.NoError(t, err)
		assert.Empty(t, f.quota.checked)
	})
}

func TestHandleExistingSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("continues the conversation with windowed history", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 2)

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "next answer"})
		require.NoError(t, err)

		assert.Equal(t, sess.ID.String(), resp.SessionID)
		assert.Equal(t, 3, resp.QuestionCount)
		assert.True(t, resp.CanGenerate)

		// The live user message goes to the processor separately, not
		// duplicated into history.
		assert.Equal(t, "next answer", f.turns.message)
		require.Len(t, f.turns.history, 4)
		assert.Equal(t, llm.RoleAssistant, f.turns.history[3].Role)
	})

	t.Run("malformed session id rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: "not-a-uuid", Message: "hi"})
		requireCode(t, err, CodeValidation, 400)
	})

	t.Run("unknown session id not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: uuid.NewString(), Message: "hi"})
		requireCode(t, err, CodeNotFound, 404)
	})

	t.Run("another user's session looks missing", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "owner", 1)

		_, err := f.engine.Handle(ctx, Request{UserID: "intruder", SessionID: sess.ID.String(), Message: "hi"})
		requireCode(t, err, CodeNotFound, 404)
	})

	t.Run("completed session rejects further messages", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 3)
		require.NoError(t, f.store.TransitionStatus(ctx, sess.ID, session.StatusQuestioning, session.StatusGenerating))
		require.NoError(t, f.store.TransitionStatus(ctx, sess.ID, session.StatusGenerating, session.StatusCompleted))

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "one more"})
		requireCode(t, err, CodeSessionCompleted, 400)
	})

	t.Run("generating session rejects concurrent messages", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 3)
		require.NoError(t, f.store.TransitionStatus(ctx, sess.ID, session.StatusQuestioning, session.StatusGenerating))

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "hello?"})
		requireCode(t, err, CodeGenerationInProgress, 409)
	})

	t.Run("fallback reply from the turn processor is passed through", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.turns.result = &turn.Result{Reply: turn.Fallback(prompt.DomainBusiness), FellBack: true}
		sess := f.seedSession(t, "u", 1)

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "answer"})
		require.NoError(t, err)
		assert.Equal(t, turn.Fallback(prompt.DomainBusiness), resp.ResponseMessage)
	})

	t.Run("readiness suggestion is surfaced", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.turns.result = &turn.Result{Reply: "I have enough information now.", SuggestedTermination: true}
		sess := f.seedSession(t, "u", 2)

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "answer"})
		require.NoError(t, err)
		assert.True(t, resp.SuggestedTermination)
	})
}

func TestHandleGenerate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("completes the session end to end", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.briefs.text = "a thorough project brief"
		f.ideas.result = &ideas.Result{
			Raw:        "```json\n{\"ideas\":[]}\n```",
			Structured: []byte(`{"ideas":[{"title":"T","description":"D"}]}`),
			WordCount:  3,
			Model:      "gemini-2.5-pro",
		}
		sess := f.seedSession(t, "u", 3)

		resp, err := f.engine.Handle(ctx, Request{
			UserID:      "u",
			SessionID:   sess.ID.String(),
			Message:     "generate now please",
			GenerateNow: true,
		})
		require.NoError(t, err)

		assert.True(t, resp.IsCompleted)
		assert.Equal(t, session.StatusCompleted, resp.Status)
		require.NotNil(t, resp.FinalOutput)
		assert.Equal(t, "a thorough project brief", resp.FinalOutput.Brief)

		stored, err := f.store.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StatusCompleted, stored.Status)
		assert.Equal(t, "a thorough project brief", stored.FinalBrief)
		assert.JSONEq(t,
			`{"brief":"a thorough project brief","generatedIdeas":{"ideas":[{"title":"T","description":"D"}]}}`,
			string(stored.FinalOutput))

		// Usage is charged exactly once, on completion.
		assert.Equal(t, []string{"u"}, f.quota.increments)

		// The brief generator received the full transcript including
		// the triggering message.
		assert.Len(t, f.briefs.history, 7)
		assert.Equal(t, "a thorough project brief", f.ideas.brief)

		// The closing summary lands in the transcript.
		msgs, err := f.store.Messages(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, summaryMessage, msgs[len(msgs)-1].Content)
	})

	t.Run("raw text used when no structured output", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.ideas.result = &ideas.Result{Raw: "plain prose ideas", WordCount: 3, Model: "m"}
		sess := f.seedSession(t, "u", 3)

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		require.NoError(t, err)
		assert.Equal(t, "plain prose ideas", resp.FinalOutput.GeneratedIdeas)
	})

	t.Run("too few questions leaves the session questioning", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 2)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		requireCode(t, err, CodeMinQuestionsNotMet, 400)

		stored, err := f.store.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, session.StatusQuestioning, stored.Status)
		assert.Empty(t, stored.FinalBrief)
		assert.Zero(t, f.briefs.calls)
		assert.Empty(t, f.quota.increments)
	})

	t.Run("lost transition race reports generation in progress", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 3)
		f.store.failTransition = session.ErrStatusConflict

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		requireCode(t, err, CodeGenerationInProgress, 409)
		assert.Zero(t, f.briefs.calls)
	})

	t.Run("synthesis failure keeps the session uncharged", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.briefs.err = fmt.Errorf("%w: model down", brief.ErrSynthesisFailed)
		sess := f.seedSession(t, "u", 3)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		requireCode(t, err, CodeSynthesisFailed, 500)
		assert.Empty(t, f.quota.increments)
	})

	t.Run("generation timeout maps to 408", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.ideas.err = fmt.Errorf("%w: %w", ideas.ErrGenerationFailed,
			&llm.Error{Kind: llm.KindTimeout, Err: context.DeadlineExceeded})
		sess := f.seedSession(t, "u", 3)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		requireCode(t, err, CodeGenerationTimeout, 408)
	})

	t.Run("short brief surfaces as validation", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.ideas.err = &ideas.ValidationError{Field: "brief", Reason: "must contain at least 50 words, got 12"}
		sess := f.seedSession(t, "u", 3)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		engErr := requireCode(t, err, CodeValidation, 400)
		assert.Contains(t, engErr.Message, "at least 50 words")
	})

	t.Run("provider quota error gets its own code", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.ideas.err = fmt.Errorf("%w: %w", ideas.ErrGenerationFailed,
			&llm.Error{Kind: llm.KindRateLimit, Err: errors.New("quota exceeded")})
		sess := f.seedSession(t, "u", 3)

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		requireCode(t, err, CodeProviderRateLimit, 500)
	})

	t.Run("usage increment failure does not fail the request", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.quota.incErr = errors.New("db down")
		sess := f.seedSession(t, "u", 3)

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		require.NoError(t, err)
		assert.True(t, resp.IsCompleted)
	})

	t.Run("summary append failure does not fail the request", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 3)
		f.store.failAppend = errors.New("disk full")
		f.store.failAppendRole = session.RoleAssistant

		resp, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "go", GenerateNow: true})
		require.NoError(t, err)
		assert.True(t, resp.IsCompleted)
	})
}

func TestHandleStoreFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("history load failure has its own code", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 1)
		f.store.failMessages = errors.New("connection lost")

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "hi"})
		requireCode(t, err, CodeHistoryRetrieval, 500)
	})

	t.Run("user message append failure is a store error", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		sess := f.seedSession(t, "u", 1)
		f.store.failAppend = errors.New("connection lost")

		_, err := f.engine.Handle(ctx, Request{UserID: "u", SessionID: sess.ID.String(), Message: "hi"})
		requireCode(t, err, CodeStoreError, 500)
	})

	t.Run("create failure is a store error", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.store.failCreate = errors.New("connection lost")

		_, err := f.engine.Handle(ctx, Request{UserID: "u", Message: "hi", Domain: "business"})
		requireCode(t, err, CodeStoreError, 500)
	})
}

func TestMapTurnError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"too long", turn.ErrMessageTooLong, CodeValidation, 400},
		{"empty", turn.ErrEmptyMessage, CodeValidation, 400},
		{"missing key", &llm.Error{Kind: llm.KindMissingKey, Err: errors.New("no key")}, CodeMissingAPIKey, 500},
		{"auth", &llm.Error{Kind: llm.KindAuth, Err: errors.New("401")}, CodeAuthError, 500},
		{"rate limit", &llm.Error{Kind: llm.KindRateLimit, Err: errors.New("429")}, CodeProviderRateLimit, 500},
		{"anything else", errors.New("boom"), CodeInternal, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			engErr := mapTurnError(tc.err)
			assert.Equal(t, tc.code, engErr.Code)
			assert.Equal(t, tc.status, engErr.HTTPStatus)
		})
	}
}

func TestQuestionCount(t *testing.T) {
	t.Parallel()

	history := []session.Message{
		{Role: session.RoleUser},
		{Role: session.RoleAssistant},
		{Role: session.RoleUser},
		{Role: session.RoleAssistant},
		{Role: session.RoleUser},
	}
	assert.Equal(t, 2, questionCount(history))
	assert.Zero(t, questionCount(nil))
}
