package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// startContainer запускает Run и останавливает его по завершении теста.
func startContainer(t *testing.T, opts ...Option) *Container {
	t.Helper()

	container := NewContainer(New(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = container.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return container
}

func TestContainer_DispatchReturnsAppliedState(t *testing.T) {
	container := startContainer(t)
	ctx := context.Background()

	applied, err := container.Dispatch(ctx, SaveCurrentPost{PostID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "42", applied.ActivePostID())
	assert.Equal(t, "42", container.Snapshot().ActivePostID())
}

func TestContainer_PreservesIssueOrderPerWorkflow(t *testing.T) {
	container := startContainer(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			postID := fmt.Sprintf("p%d", w)
			for i := 0; i < 20; i++ {
				_, err := container.Dispatch(ctx, PushNewComment{
					PostID:  postID,
					Comment: domain.Comment{ID: fmt.Sprintf("%s-%02d", postID, i), PostID: postID},
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	snapshot := container.Snapshot()
	for w := 0; w < 4; w++ {
		postID := fmt.Sprintf("p%d", w)
		ids := snapshot.PostsByID[postID].CommentIDs
		require.Len(t, ids, 20)
		for i, id := range ids {
			assert.Equal(t, fmt.Sprintf("%s-%02d", postID, i), id)
		}
	}
}

func TestContainer_SnapshotIsIsolated(t *testing.T) {
	container := startContainer(t)
	ctx := context.Background()

	_, err := container.Dispatch(ctx, SavePostsList{Posts: []domain.Post{{ID: "1", CommentIDs: []string{"a"}}}})
	require.NoError(t, err)

	snapshot := container.Snapshot()
	snapshot.PostsList[0] = "mutated"
	snapshot.PostsByID["1"].CommentIDs[0] = "mutated"

	fresh := container.Snapshot()
	assert.Equal(t, []string{"1"}, fresh.PostsList)
	assert.Equal(t, []string{"a"}, fresh.PostsByID["1"].CommentIDs)
}

func TestContainer_SubscribeReceivesLatest(t *testing.T) {
	container := startContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := container.Subscribe(ctx)

	_, err := container.Dispatch(context.Background(), SaveCurrentPost{PostID: "1"})
	require.NoError(t, err)
	_, err = container.Dispatch(context.Background(), ShowEditor{})
	require.NoError(t, err)

	select {
	case snapshot := <-updates:
		assert.Equal(t, "1", snapshot.ActivePostID())
		assert.True(t, snapshot.Current.IsEditing)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	cancel()
	select {
	case _, ok := <-updates:
		assert.False(t, ok, "channel must be closed after unsubscribe")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel was not closed")
	}
}

func TestContainer_DispatchAfterStop(t *testing.T) {
	container := NewContainer(New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, container.Run(ctx))

	_, err := container.Dispatch(context.Background(), ShowEditor{})
	assert.ErrorIs(t, err, ErrContainerClosed)

	updates := container.Subscribe(context.Background())
	_, ok := <-updates
	assert.False(t, ok)
}

func TestContainer_DispatchRespectsContext(t *testing.T) {
	container := NewContainer(New(), WithQueueSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Заполняем очередь, чтобы осталась только ветка отмены ctx
	container.queue <- envelope{cmd: ShowEditor{}, reply: make(chan State, 1)}

	_, err := container.Dispatch(ctx, CloseEditor{})
	assert.ErrorIs(t, err, context.Canceled)
}
