package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mkEntry(id, prompt string) HistoryEntry {
	return HistoryEntry{
		ID:        id,
		ImageURL:  "https://example.test/" + id + ".jpg",
		Prompt:    prompt,
		Style:     "Editorial",
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T) HistoryStore {
	t.Helper()
	return NewHistoryStore(NewMemoryBlob(), 5, zap.NewNop().Sugar())
}

func TestRecordKeepsAtMostFiveMostRecentFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for i := 1; i <= 6; i++ {
		store.Record(ctx, mkEntry(fmt.Sprintf("id-%d", i), "p"))
	}

	entries := store.List(ctx)
	require.Len(t, entries, 5)
	for i, e := range entries {
		require.Equal(t, fmt.Sprintf("id-%d", 6-i), e.ID)
	}
}

func TestRecordReplacesDuplicateIDAtFront(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	store.Record(ctx, mkEntry("dup", "first"))
	store.Record(ctx, mkEntry("other", "middle"))
	store.Record(ctx, mkEntry("dup", "second"))

	entries := store.List(ctx)
	require.Len(t, entries, 2)
	require.Equal(t, "dup", entries[0].ID)
	require.Equal(t, "second", entries[0].Prompt)
	require.Equal(t, "other", entries[1].ID)
}

func TestListMissingBlobIsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.Empty(t, store.List(context.Background()))
}

func TestListCorruptBlobIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blob := NewMemoryBlob()
	require.NoError(t, blob.Save(ctx, []byte("{definitely not json")))

	store := NewHistoryStore(blob, 5, zap.NewNop().Sugar())
	require.Empty(t, store.List(ctx))

	// A corrupt blob must not poison subsequent writes.
	store.Record(ctx, mkEntry("fresh", "p"))
	require.Len(t, store.List(ctx), 1)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	store.Record(ctx, mkEntry("a", "p"))
	store.Record(ctx, mkEntry("b", "p"))

	store.Remove(ctx, "a")
	entries := store.List(ctx)
	require.Len(t, entries, 1)
	require.Equal(t, "b", entries[0].ID)

	// Removing an unknown id is a no-op.
	store.Remove(ctx, "nope")
	require.Len(t, store.List(ctx), 1)
}

func TestClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	store.Record(ctx, mkEntry("a", "p"))
	store.Clear(ctx)
	require.Empty(t, store.List(ctx))
}

// failingBlob errors on every operation.
type failingBlob struct{}

func (failingBlob) Load(ctx context.Context) ([]byte, bool, error) {
	return nil, false, errors.New("load failed")
}
func (failingBlob) Save(ctx context.Context, data []byte) error { return errors.New("save failed") }
func (failingBlob) Delete(ctx context.Context) error            { return errors.New("delete failed") }

func TestStorageFailuresAreAbsorbed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewHistoryStore(failingBlob{}, 5, zap.NewNop().Sugar())

	// None of these may panic or surface the storage error.
	store.Record(ctx, mkEntry("a", "p"))
	store.Remove(ctx, "a")
	store.Clear(ctx)
	require.Empty(t, store.List(ctx))
}

func TestPrependCapped(t *testing.T) {
	t.Parallel()

	var entries []HistoryEntry
	for i := 1; i <= 5; i++ {
		entries = prependCapped(entries, mkEntry(fmt.Sprintf("id-%d", i), "p"), 3)
	}
	require.Len(t, entries, 3)
	require.Equal(t, "id-5", entries[0].ID)
	require.Equal(t, "id-3", entries[2].ID)
}
