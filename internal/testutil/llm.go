package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/elicitlabs/elicit/internal/llm"
)

// FakeCall records a single Generate invocation.
type FakeCall struct {
	Model    string
	Messages []llm.Message
}

type fakeResult struct {
	text  string
	err   error
	delay time.Duration
}

// FakeClient is a scriptable llm.Client. Queued results are consumed in
// order; once the script is exhausted, the default text is returned.
// Thread-safe for concurrent use.
type FakeClient struct {
	mu          sync.Mutex
	script      []fakeResult
	defaultText string
	calls       []FakeCall
}

// NewFakeClient creates a fake client that answers defaultText when no
// scripted result is queued.
func NewFakeClient(defaultText string) *FakeClient {
	return &FakeClient{defaultText: defaultText}
}

// Queue appends a successful scripted reply.
func (f *FakeClient) Queue(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, fakeResult{text: text})
}

// QueueError appends a scripted failure.
func (f *FakeClient) QueueError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, fakeResult{err: err})
}

// QueueDelayed appends a reply that is only returned after d elapses. If
// the context expires first, a classified timeout error is returned, the
// same shape the real adapter produces.
func (f *FakeClient) QueueDelayed(text string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, fakeResult{text: text, delay: d})
}

// Generate implements llm.Client.
func (f *FakeClient) Generate(ctx context.Context, model string, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	recorded := FakeCall{Model: model, Messages: append([]llm.Message(nil), msgs...)}
	f.calls = append(f.calls, recorded)

	result := fakeResult{text: f.defaultText}
	if len(f.script) > 0 {
		result = f.script[0]
		f.script = f.script[1:]
	}
	f.mu.Unlock()

	if result.delay > 0 {
		select {
		case <-time.After(result.delay):
		case <-ctx.Done():
			return "", &llm.Error{Kind: llm.KindTimeout, Retryable: true, Err: ctx.Err()}
		}
	}

	if result.err != nil {
		return "", result.err
	}
	return result.text, nil
}

// Calls returns a copy of all recorded calls.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]FakeCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// CallCount returns how many times Generate was invoked.
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// LastCall returns the most recent call, or false when none happened.
func (f *FakeClient) LastCall() (FakeCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return FakeCall{}, false
	}
	return f.calls[len(f.calls)-1], true
}
