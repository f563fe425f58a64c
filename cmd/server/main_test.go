package main

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/blog-state/internal/config"
	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/storage/inmemory"
	"github.com/rs/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillWithMockData(t *testing.T) {
	store := inmemory.New()
	ctx := context.Background()

	require.NoError(t, fillWithMockData(ctx, store, zerolog.Nop()))

	page, err := store.FetchPosts(ctx, domain.PageInfo{Limit: 5, Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "3", page.Data[0].ID, "newest first")
	assert.Len(t, page.Data[2].CommentIDs, 2)

	// повторное заполнение упирается в занятые id
	assert.Error(t, fillWithMockData(ctx, store, zerolog.Nop()))
}

func TestOpenStorageInMemory(t *testing.T) {
	store, err := openStorage(context.Background(), config.StorageConfig{Driver: config.DriverInMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &inmemory.Store{}, store)
}

func TestRootCommandRejectsUnknownStorage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BLOGSTATE_CONFIG", "")

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--storage", "sqlite"})
	cmd.SilenceErrors = true

	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BLOGSTATE_CONFIG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Log.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
