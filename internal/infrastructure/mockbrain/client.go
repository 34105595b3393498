// Package mockbrain simulates the generation backend: randomized
// latency, occasional overload failures, and placeholder results. The
// latency and outcome models are pluggable so a real backend client can
// replace this one without touching the retry orchestrator.
package mockbrain

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/basel-ax/restyle/internal/domain"
)

// LatencyFunc returns the simulated round-trip delay for one request.
type LatencyFunc func() time.Duration

// OutcomeFunc decides whether a request that survived the latency wait
// fails with an overload or succeeds (nil).
type OutcomeFunc func() error

// Client represents the mock generation backend client
type Client struct {
	latency LatencyFunc
	outcome OutcomeFunc
	now     func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithLatencyWindow draws each delay uniformly from [min, max). rng may
// be nil for the global source.
func WithLatencyWindow(min, max time.Duration, rng *rand.Rand) Option {
	return func(c *Client) { c.latency = randomLatency(min, max, rng) }
}

// WithLatency installs a custom latency model.
func WithLatency(fn LatencyFunc) Option {
	return func(c *Client) { c.latency = fn }
}

// WithOverloadProbability makes each request fail with the overload
// sentinel with probability p. rng may be nil for the global source.
func WithOverloadProbability(p float64, rng *rand.Rand) Option {
	return func(c *Client) { c.outcome = randomOutcome(p, rng) }
}

// WithOutcome installs a custom outcome model.
func WithOutcome(fn OutcomeFunc) Option {
	return func(c *Client) { c.outcome = fn }
}

// WithClock overrides the result timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a mock backend client with the default simulation
// model: 800-1600 ms latency and a 20% overload rate.
func NewClient(opts ...Option) *Client {
	c := &Client{
		latency: randomLatency(800*time.Millisecond, 1600*time.Millisecond, nil),
		outcome: randomOutcome(0.2, nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs one simulated generation attempt. The latency wait is
// interruptible: cancelling ctx resolves the call with a cancellation
// error before the backend "responds". A result that does come back
// carries a fresh id, the echoed prompt and style, a placeholder image
// reference derived from the request, and the completion timestamp.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := time.NewTimer(c.latency())
	select {
	case <-ctx.Done():
		t.Stop()
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	case <-t.C:
	}

	if err := c.outcome(); err != nil {
		return nil, err
	}

	return &domain.GenerationResult{
		ID:        uuid.NewString(),
		ImageURL:  placeholderURL(req),
		Prompt:    req.Prompt,
		Style:     req.Style,
		CreatedAt: c.now(),
	}, nil
}

func randomLatency(min, max time.Duration, rng *rand.Rand) LatencyFunc {
	return func() time.Duration {
		span := max - min
		if span <= 0 {
			return min
		}
		if rng != nil {
			return min + time.Duration(rng.Int63n(int64(span)))
		}
		return min + time.Duration(rand.Int63n(int64(span)))
	}
}

func randomOutcome(p float64, rng *rand.Rand) OutcomeFunc {
	return func() error {
		draw := rand.Float64()
		if rng != nil {
			draw = rng.Float64()
		}
		if draw < p {
			return domain.ErrOverloaded
		}
		return nil
	}
}

// placeholderURL derives a stable stock-image reference from the
// request, so the same prompt and style always preview the same
// picture.
func placeholderURL(req domain.GenerationRequest) string {
	h := fnv.New32a()
	h.Write([]byte(req.Prompt))
	h.Write([]byte(req.Style))
	return fmt.Sprintf("https://picsum.photos/seed/%x/1024/1024", h.Sum32())
}
