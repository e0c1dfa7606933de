package llm

import (
	"context"
	"sync"
)

// FakeProvider is an in-memory Provider used by tests across the pipeline.
// Responses are served in FIFO order when queued, otherwise the Default
// response repeats. Calls are recorded for assertion.
type FakeProvider struct {
	mu      sync.Mutex
	queue   []*Response
	Default *Response
	Err     error
	Calls   []Request
}

// NewFakeProvider returns a provider answering every call with a completed
// payload.
func NewFakeProvider(payload string) *FakeProvider {
	return &FakeProvider{
		Default: &Response{Status: StatusCompleted, JSON: []byte(payload)},
	}
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) Close() error { return nil }

// Enqueue adds a one-shot response ahead of the default.
func (f *FakeProvider) Enqueue(resp *Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, resp)
}

// CallCount returns how many structured calls were made.
func (f *FakeProvider) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeProvider) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.queue) > 0 {
		resp := f.queue[0]
		f.queue = f.queue[1:]
		return resp, nil
	}
	if f.Default != nil {
		return f.Default, nil
	}
	return &Response{Status: StatusUnknown, Detail: "no response configured"}, nil
}
