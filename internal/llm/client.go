package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/casetrace/casetrace-go/internal/config"
	"github.com/casetrace/casetrace-go/internal/models"
)

// Client is the single entry point for structured LLM calls. It owns the
// strict completion-state policy: a payload is returned only for a
// completed, schema-conformant response. Incomplete and refused states are
// raised, never silently retried.
type Client struct {
	provider      Provider
	model         string
	modelRevision string
	timeout       time.Duration
	maxRetries    int
	limiter       *rate.Limiter
	cache         *ResponseCache
	logger        *slog.Logger
}

// NewClient builds a client for the configured provider.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	logger := slog.Default().With("component", "llm")

	var provider Provider
	var err error
	switch cfg.LLM.Provider {
	case "gemini":
		provider, err = newGeminiProvider(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		provider, err = newOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.Model)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLM.Provider, err)
	}

	var cache *ResponseCache
	if cfg.LLM.Cache {
		cache, err = OpenResponseCache(cfg.LLM.CachePath)
		if err != nil {
			// Cache is an optimization; run without it rather than fail.
			logger.Warn("llm response cache unavailable", "path", cfg.LLM.CachePath, "error", err)
			cache = nil
		}
	}

	rpm := cfg.LLM.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	logger.Info("llm client initialized",
		"provider", provider.Name(),
		"model", cfg.LLM.Model,
		"revision", cfg.LLM.ModelRevision,
		"cache", cache != nil,
	)

	return &Client{
		provider:      provider,
		model:         cfg.LLM.Model,
		modelRevision: cfg.LLM.ModelRevision,
		timeout:       cfg.LLM.Timeout,
		maxRetries:    cfg.LLM.MaxRetries,
		limiter:       rate.NewLimiter(rate.Limit(float64(rpm)/60.0), max(1, rpm/10)),
		cache:         cache,
		logger:        logger,
	}, nil
}

// NewClientWithProvider wires an explicit provider; used by tests and by
// callers that manage provider lifecycle themselves.
func NewClientWithProvider(p Provider, model string, timeout time.Duration) *Client {
	return &Client{
		provider:   p,
		model:      model,
		timeout:    timeout,
		maxRetries: 3,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     slog.Default().With("component", "llm"),
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// ModelRevision returns the opaque revision tag recorded in analyses.
func (c *Client) ModelRevision() string { return c.modelRevision }

// Close releases the provider and cache.
func (c *Client) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return c.provider.Close()
}

// CallStructured performs one structured call and unmarshals the completed
// payload into out, which is then schema-validated. Three-state handling:
// completed -> out populated; incomplete -> ErrIncomplete; refused/unknown
// -> ErrRefused/ErrFailed. Transient provider errors retry with jittered
// exponential backoff up to the configured attempt bound.
func (c *Client) CallStructured(ctx context.Context, req Request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.cache != nil {
		if hit, ok := c.cache.Get(c.provider.Name(), c.model, req); ok {
			if err := decodeAndValidate(hit, out); err == nil {
				c.logger.Debug("llm cache hit", "schema", req.Schema.Name)
				return nil
			}
			// A cached payload that no longer validates is dropped.
			c.cache.Delete(c.provider.Name(), c.model, req)
		}
	}

	resp, err := c.callWithRetry(ctx, req)
	if err != nil {
		return err
	}

	switch resp.Status {
	case StatusCompleted:
		if err := decodeAndValidate(resp.JSON, out); err != nil {
			return &FailedError{Reason: "schema-invalid payload", Cause: err}
		}
		if c.cache != nil {
			c.cache.Put(c.provider.Name(), c.model, req, resp.JSON)
		}
		c.logger.Debug("structured call completed",
			"schema", req.Schema.Name,
			"tokens", resp.Tokens,
			"response_bytes", len(resp.JSON),
		)
		return nil
	case StatusIncomplete:
		return &IncompleteError{Detail: resp.Detail}
	case StatusRefused:
		return &RefusedError{Reason: resp.Detail}
	default:
		return &FailedError{Reason: fmt.Sprintf("unknown completion state %q (%s)", resp.Status, resp.Detail)}
	}
}

func (c *Client) callWithRetry(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
			c.logger.Debug("retrying llm call", "attempt", attempt, "schema", req.Schema.Name)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		resp, err := c.provider.GenerateStructured(callCtx, req)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return resp, nil
		}

		// Parent cancellation propagates as-is; a per-call deadline
		// surfaces as ErrTimeout.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, req.Schema.Name, c.timeout)
		}

		if !isTransient(err) {
			return nil, &FailedError{Reason: "provider error", Cause: err}
		}
		lastErr = err
	}
	return nil, &FailedError{Reason: fmt.Sprintf("exhausted %d retries", c.maxRetries), Cause: lastErr}
}

// transientError marks provider errors that are safe to retry: rate limits
// and transient network failures. Completion-state problems are never
// wrapped this way.
type transientError struct{ cause error }

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }

func isTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepBackoff(ctx context.Context, attempt int) error {
	base := time.Second << (attempt - 1)
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	// Full jitter
	d := time.Duration(rand.Int63n(int64(base))) + base/2
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeAndValidate(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode structured response: %w", err)
	}
	return models.Validate(out)
}
