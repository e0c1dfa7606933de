package llm

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Summary    string  `json:"summary" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

var testSchema = Schema{Name: "test_payload", Raw: json.RawMessage(`{"type":"object"}`)}

func testRequest() Request {
	return Request{
		System: "analyze",
		User:   "the evidence",
		Schema: testSchema,
	}
}

func TestCallStructuredCompleted(t *testing.T) {
	fake := NewFakeProvider(`{"summary":"a letter","confidence":0.9}`)
	c := NewClientWithProvider(fake, "test-model", time.Minute)

	var out testPayload
	require.NoError(t, c.CallStructured(context.Background(), testRequest(), &out))
	assert.Equal(t, "a letter", out.Summary)
	assert.Equal(t, 1, fake.CallCount())
}

func TestCallStructuredStrictStates(t *testing.T) {
	cases := []struct {
		name     string
		resp     *Response
		sentinel error
	}{
		{"incomplete raises", &Response{Status: StatusIncomplete, Detail: "max tokens"}, ErrIncomplete},
		{"refused raises", &Response{Status: StatusRefused, Detail: "content filter"}, ErrRefused},
		{"unknown state raises", &Response{Status: StatusUnknown, Detail: "???"}, ErrFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &FakeProvider{}
			fake.Enqueue(tc.resp)
			c := NewClientWithProvider(fake, "test-model", time.Minute)

			var out testPayload
			err := c.CallStructured(context.Background(), testRequest(), &out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			// The output value must never be populated from a non-complete
			// response.
			assert.Empty(t, out.Summary)
		})
	}
}

func TestCallStructuredSchemaInvalidPayload(t *testing.T) {
	// Completed but missing the required field: raised, not defaulted.
	fake := NewFakeProvider(`{"confidence":0.5}`)
	c := NewClientWithProvider(fake, "test-model", time.Minute)

	var out testPayload
	err := c.CallStructured(context.Background(), testRequest(), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)
}

func TestCallStructuredMalformedJSON(t *testing.T) {
	fake := NewFakeProvider(`{"summary": truncated`)
	c := NewClientWithProvider(fake, "test-model", time.Minute)

	var out testPayload
	err := c.CallStructured(context.Background(), testRequest(), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)
}

func TestRetryOnTransientOnly(t *testing.T) {
	t.Run("transient retries then succeeds", func(t *testing.T) {
		calls := 0
		p := providerFunc(func(ctx context.Context, req Request) (*Response, error) {
			calls++
			if calls == 1 {
				return nil, &transientError{cause: errors.New("429 rate limited")}
			}
			return &Response{Status: StatusCompleted, JSON: []byte(`{"summary":"ok","confidence":1}`)}, nil
		})
		c := NewClientWithProvider(p, "test-model", time.Minute)

		var out testPayload
		require.NoError(t, c.CallStructured(context.Background(), testRequest(), &out))
		assert.Equal(t, 2, calls)
	})

	t.Run("non-transient fails fast", func(t *testing.T) {
		calls := 0
		p := providerFunc(func(ctx context.Context, req Request) (*Response, error) {
			calls++
			return nil, errors.New("401 invalid api key")
		})
		c := NewClientWithProvider(p, "test-model", time.Minute)

		var out testPayload
		err := c.CallStructured(context.Background(), testRequest(), &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFailed)
		assert.Equal(t, 1, calls)
	})
}

func TestPerCallTimeout(t *testing.T) {
	p := providerFunc(func(ctx context.Context, req Request) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := NewClientWithProvider(p, "test-model", 20*time.Millisecond)

	var out testPayload
	err := c.CallStructured(context.Background(), testRequest(), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestParentCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := NewFakeProvider(`{"summary":"ok","confidence":1}`)
	c := NewClientWithProvider(fake, "test-model", time.Minute)

	var out testPayload
	err := c.CallStructured(ctx, testRequest(), &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fake.CallCount())
}

func TestResponseCacheRoundTrip(t *testing.T) {
	cache, err := OpenResponseCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	req := testRequest()
	payload := []byte(`{"summary":"cached","confidence":0.7}`)

	_, ok := cache.Get("fake", "test-model", req)
	assert.False(t, ok)

	cache.Put("fake", "test-model", req, payload)
	got, ok := cache.Get("fake", "test-model", req)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(got))

	// A different request misses.
	other := req
	other.User = "different evidence"
	_, ok = cache.Get("fake", "test-model", other)
	assert.False(t, ok)
}

func TestCachedResponseSkipsProvider(t *testing.T) {
	cache, err := OpenResponseCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer cache.Close()

	fake := NewFakeProvider(`{"summary":"fresh","confidence":0.9}`)
	c := NewClientWithProvider(fake, "test-model", time.Minute)
	c.cache = cache

	var first testPayload
	require.NoError(t, c.CallStructured(context.Background(), testRequest(), &first))
	require.Equal(t, 1, fake.CallCount())

	var second testPayload
	require.NoError(t, c.CallStructured(context.Background(), testRequest(), &second))
	assert.Equal(t, 1, fake.CallCount(), "second call must be served from cache")
	assert.Equal(t, first.Summary, second.Summary)
}

// providerFunc adapts a function to the Provider interface.
type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Name() string { return "func" }
func (f providerFunc) Close() error { return nil }
func (f providerFunc) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
