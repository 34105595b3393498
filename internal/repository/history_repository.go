package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basel-ax/restyle/internal/domain"
)

// DefaultHistoryLimit bounds the persisted history log.
const DefaultHistoryLimit = 5

// HistoryEntry is the persisted record of one successful generation.
type HistoryEntry struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Prompt    string    `json:"prompt"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"createdAt"`
}

// EntryFromResult converts a generation result into its history record.
func EntryFromResult(res *domain.GenerationResult) HistoryEntry {
	return HistoryEntry{
		ID:        res.ID,
		ImageURL:  res.ImageURL,
		Prompt:    res.Prompt,
		Style:     string(res.Style),
		CreatedAt: res.CreatedAt,
	}
}

// HistoryStore keeps a bounded, most-recent-first log of generation
// results, deduplicated by id. Storage failures never reach the caller:
// operations degrade to empty reads or no-ops and report through the
// diagnostic log.
type HistoryStore interface {
	Record(ctx context.Context, entry HistoryEntry)
	List(ctx context.Context) []HistoryEntry
	Remove(ctx context.Context, id string)
	Clear(ctx context.Context)
}

// Blob is the single-key persistence seam under the history store.
type Blob interface {
	// Load returns the stored value, or ok=false when the key is absent.
	Load(ctx context.Context) (data []byte, ok bool, err error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

type blobHistoryStore struct {
	mu    sync.Mutex
	blob  Blob
	limit int
	log   *zap.SugaredLogger
}

// NewHistoryStore creates a history store over the given blob. A
// non-positive limit falls back to DefaultHistoryLimit.
func NewHistoryStore(blob Blob, limit int, log *zap.SugaredLogger) HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &blobHistoryStore{blob: blob, limit: limit, log: log}
}

// Record prepends entry, replacing any existing entry with the same id,
// and truncates the log to the configured limit before persisting.
func (s *blobHistoryStore) Record(ctx context.Context, entry HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := prependCapped(s.load(ctx), entry, s.limit)
	data, err := json.Marshal(entries)
	if err != nil {
		s.log.Warnw("failed to encode history", "error", err)
		return
	}
	if err := s.blob.Save(ctx, data); err != nil {
		s.log.Warnw("failed to persist history", "error", err)
	}
}

// List returns the persisted entries, most-recent-first. Missing or
// corrupt storage reads as empty.
func (s *blobHistoryStore) List(ctx context.Context) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Remove drops the entry with the given id if present.
func (s *blobHistoryStore) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return
	}
	data, err := json.Marshal(kept)
	if err != nil {
		s.log.Warnw("failed to encode history", "error", err)
		return
	}
	if err := s.blob.Save(ctx, data); err != nil {
		s.log.Warnw("failed to persist history", "error", err)
	}
}

// Clear removes all persisted entries.
func (s *blobHistoryStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blob.Delete(ctx); err != nil {
		s.log.Warnw("failed to clear history", "error", err)
	}
}

func (s *blobHistoryStore) load(ctx context.Context) []HistoryEntry {
	data, ok, err := s.blob.Load(ctx)
	if err != nil {
		s.log.Warnw("failed to read history, treating as empty", "error", err)
		return nil
	}
	if !ok || len(data) == 0 {
		return nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warnw("corrupt history blob, treating as empty", "error", err)
		return nil
	}
	return entries
}

// prependCapped puts entry at the front, dropping any older entry with
// the same id, and truncates to limit.
func prependCapped(entries []HistoryEntry, entry HistoryEntry, limit int) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries)+1)
	out = append(out, entry)
	for _, e := range entries {
		if e.ID != entry.ID {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
