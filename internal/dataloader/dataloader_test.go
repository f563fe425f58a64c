package dataloader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/UkralStul/blog-state/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает обращения к BatchComments.
type countingStore struct {
	*inmemory.Store
	mu      sync.Mutex
	batches [][]string
}

func (s *countingStore) BatchComments(ctx context.Context, postIDs []string) (map[string][]*domain.Comment, error) {
	s.mu.Lock()
	s.batches = append(s.batches, append([]string{}, postIDs...))
	s.mu.Unlock()
	return s.Store.BatchComments(ctx, postIDs)
}

func newSeededStore(t *testing.T) *countingStore {
	store := &countingStore{Store: inmemory.New()}
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		_, err := store.CreatePost(ctx, &domain.Post{ID: id, Title: "post " + id})
		require.NoError(t, err)
		_, err = store.CreateComment(ctx, id, domain.CommentInput{Content: "comment on " + id})
		require.NoError(t, err)
	}
	return store
}

func TestLoader_BatchesConcurrentFetches(t *testing.T) {
	store := newSeededStore(t)
	loader := New(store, 20*time.Millisecond)

	var wg sync.WaitGroup
	results := make([]*storage.CommentsPage, 2)
	for i, id := range []string{"1", "2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			page, err := loader.FetchComments(context.Background(), id)
			assert.NoError(t, err)
			results[i] = page
		}(i, id)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, "comment on 1", results[0].Descendants[0].Content)
	assert.Equal(t, "comment on 2", results[1].Descendants[0].Content)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.batches, 1)
	assert.ElementsMatch(t, []string{"1", "2"}, store.batches[0])
}

func TestLoader_DoesNotCache(t *testing.T) {
	store := newSeededStore(t)
	loader := New(store, 0)
	ctx := context.Background()

	first, err := loader.FetchComments(ctx, "1")
	require.NoError(t, err)
	require.Len(t, first.Descendants, 1)

	_, err = store.CreateComment(ctx, "1", domain.CommentInput{Content: "later"})
	require.NoError(t, err)

	second, err := loader.FetchComments(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, second.Descendants, 2)
}

func TestLoader_UnknownPost(t *testing.T) {
	loader := New(newSeededStore(t), 0)

	_, err := loader.FetchComments(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
