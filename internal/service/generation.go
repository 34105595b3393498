package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/basel-ax/restyle/internal/domain"
	"github.com/basel-ax/restyle/internal/imageprep"
	"github.com/basel-ax/restyle/internal/repository"
	"github.com/basel-ax/restyle/internal/retry"
)

// Generator issues one generation attempt. mockbrain.Client satisfies
// it; a real backend client can replace it without changing the retry
// or cancellation contract.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error)
}

// GenerationService runs the full styling flow: prepare the image,
// generate with retries, persist the result.
type GenerationService struct {
	client   Generator
	policy   retry.Policy
	history  repository.HistoryStore
	preparer *imageprep.Preparer
	log      *zap.SugaredLogger
	notify   func(attempt int)
}

// ServiceOption customizes the generation service.
type ServiceOption func(*GenerationService)

// WithAttemptObserver installs an observer called with each attempt
// number as it begins, for progress display.
func WithAttemptObserver(fn func(attempt int)) ServiceOption {
	return func(s *GenerationService) { s.notify = fn }
}

// NewGenerationService creates a new generation service
func NewGenerationService(client Generator, policy retry.Policy, history repository.HistoryStore, preparer *imageprep.Preparer, log *zap.SugaredLogger, opts ...ServiceOption) *GenerationService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &GenerationService{
		client:   client,
		policy:   policy,
		history:  history,
		preparer: preparer,
		log:      log,
	}
	s.notify = func(attempt int) {
		s.log.Infow("generation attempt", "attempt", attempt, "max", s.policy.MaxAttempts)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateFromFile prepares the image at path and runs the styled
// generation flow with it.
func (s *GenerationService) GenerateFromFile(ctx context.Context, path, prompt string, style domain.Style) (*domain.GenerationResult, error) {
	prep, err := s.preparer.PrepareFile(path)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, domain.GenerationRequest{
		ImagePayload: prep.Payload,
		Prompt:       prompt,
		Style:        style,
	})
}

// Generate runs the request through the retry orchestrator and records
// the result in history. A result that arrives after the flow's context
// has been cancelled is discarded, not persisted.
func (s *GenerationService) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*domain.GenerationResult, error) {
		return s.client.Generate(ctx, req)
	}, s.notify)
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		s.log.Infow("discarding result after cancellation", "id", res.ID)
		return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
	}

	s.history.Record(ctx, repository.EntryFromResult(res))
	return res, nil
}

// History exposes the service's history store.
func (s *GenerationService) History() repository.HistoryStore {
	return s.history
}
