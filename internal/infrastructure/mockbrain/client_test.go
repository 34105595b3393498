package mockbrain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/basel-ax/restyle/internal/domain"
)

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		ImagePayload: "data:image/jpeg;base64,Zm9v",
		Prompt:       "warm portrait",
		Style:        domain.StyleEditorial,
	}
}

func instantClient(opts ...Option) *Client {
	base := []Option{
		WithLatency(func() time.Duration { return 0 }),
		WithOutcome(func() error { return nil }),
	}
	return NewClient(append(base, opts...)...)
}

func TestGenerateEchoesRequest(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := instantClient(WithClock(func() time.Time { return when }))

	req := validRequest()
	res, err := c.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.Equal(t, req.Prompt, res.Prompt)
	require.Equal(t, req.Style, res.Style)
	require.Equal(t, when, res.CreatedAt)
}

func TestGenerateIDsAreUnique(t *testing.T) {
	t.Parallel()

	c := instantClient()
	a, err := c.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestPlaceholderURLIsStablePerRequest(t *testing.T) {
	t.Parallel()

	c := instantClient()
	a, err := c.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	b, err := c.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, a.ImageURL, b.ImageURL)

	other := validRequest()
	other.Prompt = "cold landscape"
	d, err := c.Generate(context.Background(), other)
	require.NoError(t, err)
	require.NotEqual(t, a.ImageURL, d.ImageURL)
}

func TestGenerateOverloadIsRetryable(t *testing.T) {
	t.Parallel()

	c := instantClient(WithOutcome(func() error { return domain.ErrOverloaded }))
	_, err := c.Generate(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrOverloaded)
	require.True(t, domain.IsRetryable(err))
}

func TestOverloadProbabilityExtremes(t *testing.T) {
	t.Parallel()

	always := instantClient(WithOverloadProbability(1, nil))
	_, err := always.Generate(context.Background(), validRequest())
	require.ErrorIs(t, err, domain.ErrOverloaded)

	never := instantClient(WithOverloadProbability(0, nil))
	_, err = never.Generate(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestGenerateCancelledDuringLatencyWait(t *testing.T) {
	t.Parallel()

	c := NewClient(
		WithLatency(func() time.Duration { return time.Second }),
		WithOutcome(func() error { return nil }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Generate(ctx, validRequest())
	require.True(t, domain.IsCancelled(err))
	require.False(t, domain.IsRetryable(err), "cancellation is not a retry signal")
	require.Less(t, time.Since(start), 500*time.Millisecond, "cancellation must cut the latency wait short")
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	c := instantClient()

	req := validRequest()
	req.Prompt = "   "
	_, err := c.Generate(context.Background(), req)
	require.True(t, domain.IsValidation(err))

	req = validRequest()
	req.Style = "Cubist"
	_, err = c.Generate(context.Background(), req)
	require.True(t, domain.IsValidation(err))
}
