package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/state"
	"github.com/UkralStul/blog-state/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errRemote = errors.New("remote failure")

// fakeService - управляемый тестами сервис данных.
type fakeService struct {
	mu       sync.Mutex
	posts    func(domain.PageInfo) (*storage.PostsPage, error)
	content  map[string]*domain.PostContent
	comments map[string]*storage.CommentsPage
	gates    map[string]chan struct{} // FetchContent ждет закрытия канала
	created  *domain.Comment
	patched  *domain.Comment
	err      error
	deleted  []string
}

func newFakeService() *fakeService {
	return &fakeService{
		content:  map[string]*domain.PostContent{},
		comments: map[string]*storage.CommentsPage{},
		gates:    map[string]chan struct{}{},
	}
}

func (f *fakeService) gate(postID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[postID] = ch
	return ch
}

func (f *fakeService) FetchPosts(_ context.Context, page domain.PageInfo) (*storage.PostsPage, error) {
	return f.posts(page)
}

func (f *fakeService) FetchContent(ctx context.Context, postID string) (*domain.PostContent, error) {
	f.mu.Lock()
	gate := f.gates[postID]
	content := f.content[postID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return content, nil
}

func (f *fakeService) FetchComments(_ context.Context, postID string) (*storage.CommentsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[postID], nil
}

func (f *fakeService) CreateComment(_ context.Context, postID string, input domain.CommentInput) (*domain.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.created == nil {
		return nil, nil
	}
	created := *f.created
	created.PostID = postID
	created.Content = input.Content
	return &created, nil
}

func (f *fakeService) DeleteComment(_ context.Context, commentID string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, commentID)
	f.mu.Unlock()
	return nil
}

func (f *fakeService) PatchComment(_ context.Context, commentID, content string) (*domain.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.patched == nil {
		return nil, nil
	}
	patched := *f.patched
	patched.ID = commentID
	patched.Content = content
	return &patched, nil
}

// recordingNotifier запоминает уведомления.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) NotifySuccess(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.messages...)
}

type harness struct {
	service   *fakeService
	container *state.Container
	notifier  *recordingNotifier
	orch      *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		service:   newFakeService(),
		container: state.NewContainer(state.New()),
		notifier:  &recordingNotifier{},
	}
	h.orch = New(h.service, h.container, WithNotifier(h.notifier))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.container.Run(ctx)
	}()
	t.Cleanup(func() {
		h.orch.Wait()
		cancel()
		<-done
	})
	return h
}

func comment(id, postID, content string) *domain.Comment {
	return &domain.Comment{ID: id, PostID: postID, Content: content}
}

// === Fetch Workflows ===

func TestDisplayPost_UnseenPost(t *testing.T) {
	h := newHarness(t)
	h.service.content["p"] = &domain.PostContent{Content: "c"}
	h.service.comments["p"] = &storage.CommentsPage{Descendants: []*domain.Comment{comment("1", "p", "hi")}}

	require.NoError(t, h.orch.DisplayPost(context.Background(), "p"))

	current := h.container.Snapshot().Current.Post
	assert.Equal(t, "p", current.PostID)
	assert.Equal(t, "c", current.Content)
	assert.Equal(t, []domain.Comment{*comment("1", "p", "hi")}, current.Comments)
}

func TestDisplayPost_ClearsBeforeNewContentArrives(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.content["p1"] = &domain.PostContent{Content: "c1"}
	h.service.content["p2"] = &domain.PostContent{Content: "c2"}
	h.service.comments["p1"] = &storage.CommentsPage{Descendants: []*domain.Comment{comment("1", "p1", "old")}}
	require.NoError(t, h.orch.DisplayPost(ctx, "p1"))
	require.NoError(t, h.orch.ShowEditor(ctx))

	release := h.service.gate("p2")
	done := make(chan error, 1)
	go func() { done <- h.orch.DisplayPost(ctx, "p2") }()

	require.Eventually(t, func() bool {
		return h.container.Snapshot().ActivePostID() == "p2"
	}, 2*time.Second, 5*time.Millisecond)

	current := h.container.Snapshot().Current
	assert.Empty(t, current.Post.Content, "content of p1 must not leak into p2")
	assert.NotContains(t, current.Post.Comments, *comment("1", "p1", "old"))
	assert.False(t, current.IsEditing)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "c2", h.container.Snapshot().Current.Post.Content)
}

func TestDisplayPost_DiscardsStaleFanOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.content["p1"] = &domain.PostContent{Content: "slow c1"}
	h.service.content["p2"] = &domain.PostContent{Content: "c2"}

	release := h.service.gate("p1")
	first := make(chan error, 1)
	go func() { first <- h.orch.DisplayPost(ctx, "p1") }()

	require.Eventually(t, func() bool {
		return h.container.Snapshot().ActivePostID() == "p1"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, h.orch.DisplayPost(ctx, "p2"))
	close(release)
	require.NoError(t, <-first)

	current := h.container.Snapshot().Current.Post
	assert.Equal(t, "p2", current.PostID)
	assert.Equal(t, "c2", current.Content)
}

func TestFetchPostsList_ReplacesListMergesStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pages := map[int][]*domain.Post{
		1: {{ID: "1"}, {ID: "2"}},
		2: {{ID: "3"}},
	}
	h.service.posts = func(page domain.PageInfo) (*storage.PostsPage, error) {
		return &storage.PostsPage{Data: pages[page.Page], Paging: domain.Paging{Limit: page.Limit, Page: page.Page, Total: 3}}, nil
	}

	require.NoError(t, h.orch.FetchPostsList(ctx, domain.PageInfo{Limit: 2, Page: 1}))
	require.NoError(t, h.orch.FetchPostsList(ctx, domain.PageInfo{Limit: 2, Page: 2}))

	s := h.container.Snapshot()
	assert.Equal(t, []string{"3"}, s.PostsList)
	assert.Equal(t, domain.Paging{Limit: 2, Page: 2, Total: 3}, s.Paging)
	assert.Len(t, s.PostsByID, 3)
}

func TestEmptyResponses_AreNoOps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.posts = func(domain.PageInfo) (*storage.PostsPage, error) { return nil, nil }

	require.NoError(t, h.orch.FetchPostsList(ctx, domain.PageInfo{Limit: 5, Page: 1}))
	require.NoError(t, h.orch.DisplayPost(ctx, "p"))
	before := h.container.Snapshot()

	require.NoError(t, h.orch.FetchPostContent(ctx))
	require.NoError(t, h.orch.FetchPostComments(ctx))
	require.NoError(t, h.orch.CreateComment(ctx, domain.CommentInput{Content: "x"}))
	require.NoError(t, h.orch.PatchComment(ctx, "1", "x"))

	assert.Equal(t, before, h.container.Snapshot())
	assert.Empty(t, h.container.Snapshot().PostsList)
	assert.Empty(t, h.notifier.Messages())
}

func TestFetchPostContent_NoActivePost(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.orch.FetchPostContent(context.Background()))
	assert.Empty(t, h.container.Snapshot().Current.Post.Content)
}

// === Comment Workflows ===

func TestCreateDeleteRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.posts = func(domain.PageInfo) (*storage.PostsPage, error) {
		return &storage.PostsPage{Data: []*domain.Post{{ID: "p", CommentIDs: []string{"a"}}}}, nil
	}
	h.service.comments["p"] = &storage.CommentsPage{Descendants: []*domain.Comment{comment("a", "p", "first")}}
	h.service.created = &domain.Comment{ID: "x"}

	require.NoError(t, h.orch.FetchPostsList(ctx, domain.PageInfo{Limit: 5, Page: 1}))
	require.NoError(t, h.orch.DisplayPost(ctx, "p"))
	before := h.container.Snapshot()

	require.NoError(t, h.orch.CreateComment(ctx, domain.CommentInput{Content: "new"}))
	created := h.container.Snapshot()
	assert.Equal(t, []string{"a", "x"}, created.PostsByID["p"].CommentIDs)
	require.Len(t, created.Current.Post.Comments, 2)
	assert.Equal(t, "new", created.Current.Post.Comments[1].Content)

	require.NoError(t, h.orch.DeleteComment(ctx, "x"))
	after := h.container.Snapshot()
	assert.ElementsMatch(t, before.PostsByID["p"].CommentIDs, after.PostsByID["p"].CommentIDs)
	assert.Equal(t, before.Current.Post.Comments, after.Current.Post.Comments)

	assert.Equal(t, []string{MessageCommentCreated, MessageCommentDeleted}, h.notifier.Messages())
}

func TestCreateComment_NoActivePost(t *testing.T) {
	h := newHarness(t)

	err := h.orch.CreateComment(context.Background(), domain.CommentInput{Content: "x"})
	assert.ErrorIs(t, err, ErrNoActivePost)
	assert.Empty(t, h.notifier.Messages())
}

func TestDeleteComment_RemoteFailureKeepsLocalState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.comments["p"] = &storage.CommentsPage{Descendants: []*domain.Comment{comment("a", "p", "keep me")}}
	require.NoError(t, h.orch.DisplayPost(ctx, "p"))
	before := h.container.Snapshot()

	h.service.err = errRemote
	err := h.orch.DeleteComment(ctx, "a")

	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, before, h.container.Snapshot())
	assert.Empty(t, h.notifier.Messages())
}

func TestPatchComment_ReplacesByIDAndClosesEditor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.comments["p"] = &storage.CommentsPage{Descendants: []*domain.Comment{
		comment("1", "p", "a"),
		comment("2", "p", "b"),
	}}
	h.service.patched = &domain.Comment{PostID: "p"}
	require.NoError(t, h.orch.DisplayPost(ctx, "p"))
	require.NoError(t, h.orch.ShowEditor(ctx))

	require.NoError(t, h.orch.PatchComment(ctx, "2", "b edited"))

	current := h.container.Snapshot().Current
	assert.Equal(t, []domain.Comment{*comment("1", "p", "a"), *comment("2", "p", "b edited")}, current.Post.Comments)
	assert.False(t, current.IsEditing)
	assert.Equal(t, []string{MessageCommentUpdated}, h.notifier.Messages())
}

func TestPatchComment_RemoteFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.service.comments["p"] = &storage.CommentsPage{Descendants: []*domain.Comment{comment("1", "p", "a")}}
	require.NoError(t, h.orch.DisplayPost(ctx, "p"))
	require.NoError(t, h.orch.ShowEditor(ctx))
	before := h.container.Snapshot()

	h.service.err = errRemote
	assert.ErrorIs(t, h.orch.PatchComment(ctx, "1", "b"), errRemote)
	assert.Equal(t, before, h.container.Snapshot())
	assert.True(t, h.container.Snapshot().Current.IsEditing)
}

// === Dispatch ===

func TestDispatch_RunsTriggersAsync(t *testing.T) {
	h := newHarness(t)
	h.service.content["42"] = &domain.PostContent{Content: "answer"}

	h.orch.Dispatch(context.Background(), DisplayPost{PostID: "42"})
	h.orch.Wait()
	h.orch.Dispatch(context.Background(), ShowEditor{})
	h.orch.Wait()

	current := h.container.Snapshot().Current
	assert.Equal(t, "42", current.Post.PostID)
	assert.Equal(t, "answer", current.Post.Content)
	assert.True(t, current.IsEditing)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	h := newHarness(t)
	h.service.posts = func(domain.PageInfo) (*storage.PostsPage, error) {
		panic("backend exploded")
	}

	h.orch.Dispatch(context.Background(), FetchPostsList{Page: domain.PageInfo{Limit: 5, Page: 1}})
	h.orch.Wait()

	assert.Empty(t, h.container.Snapshot().PostsList)
}

type unknownTrigger struct{}

func (unknownTrigger) TriggerName() string { return "unknown" }

func TestRun_UnknownTrigger(t *testing.T) {
	h := newHarness(t)

	assert.Error(t, h.orch.Run(context.Background(), unknownTrigger{}))
}
