package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/oops"
	"github.com/UkralStul/blog-state/internal/state"
	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/rs/zerolog"
)

var ErrNoActivePost = errors.New("no active post")

// Orchestrator выполняет воркфлоу: запрос к сервису данных, затем
// упорядоченные команды в state.Container, затем уведомление об успехе.
type Orchestrator struct {
	service  storage.DataService
	state    *state.Container
	notifier Notifier
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

// New создает оркестратор поверх сервиса данных и контейнера состояния.
func New(service storage.DataService, container *state.Container, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:  service,
		state:    container,
		notifier: Notifiers{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dispatch запускает воркфлоу для trigger в отдельной горутине и сразу возвращается.
// Ошибки воркфлоу только логируются.
func (o *Orchestrator) Dispatch(ctx context.Context, trigger Trigger) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		name := trigger.TriggerName()
		err := runSafely(name, func() error {
			return o.Run(ctx, trigger)
		})
		if err != nil {
			o.log.Error().Stack().Err(err).Str("workflow", name).Msg("workflow failed")
		}
	}()
}

// Wait блокируется, пока не завершатся все воркфлоу, запущенные через Dispatch.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run синхронно выполняет воркфлоу для trigger.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) error {
	switch t := trigger.(type) {
	case FetchPostsList:
		return o.FetchPostsList(ctx, t.Page)
	case DisplayPost:
		return o.DisplayPost(ctx, t.PostID)
	case CreateComment:
		return o.CreateComment(ctx, t.Input)
	case DeleteComment:
		return o.DeleteComment(ctx, t.CommentID)
	case PatchComment:
		return o.PatchComment(ctx, t.CommentID, t.Content)
	case ShowEditor:
		return o.ShowEditor(ctx)
	case CloseEditor:
		return o.CloseEditor(ctx)
	default:
		return fmt.Errorf("unknown trigger %T", trigger)
	}
}

// === Fetch Workflows ===

func (o *Orchestrator) FetchPostsList(ctx context.Context, page domain.PageInfo) error {
	list, err := o.service.FetchPosts(ctx, page)
	if err != nil {
		return oops.New(err, "fetch posts page %d", page.Page)
	}
	if list == nil {
		return nil
	}

	posts := make([]domain.Post, 0, len(list.Data))
	for _, p := range list.Data {
		if p != nil {
			posts = append(posts, *p)
		}
	}
	if _, err := o.state.Dispatch(ctx, state.SavePostsList{Posts: posts, Paging: list.Paging}); err != nil {
		return oops.New(err, "save posts list")
	}
	return nil
}

// DisplayPost очищает текущий пост, делает postID активным и параллельно
// загружает текст и комментарии.
func (o *Orchestrator) DisplayPost(ctx context.Context, postID string) error {
	// Очистка должна быть применена до заполнения новыми полями
	if _, err := o.state.Dispatch(ctx, state.ClearCurrentPost{}); err != nil {
		return oops.New(err, "clear current post")
	}
	if _, err := o.state.Dispatch(ctx, state.SaveCurrentPost{PostID: postID}); err != nil {
		return oops.New(err, "save current post %s", postID)
	}

	tasks := []struct {
		name string
		run  func(context.Context) error
	}{
		{name: "fetchPostContent", run: o.FetchPostContent},
		{name: "fetchPostComments", run: o.FetchPostComments},
	}

	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = runSafely(task.name, func() error {
				return task.run(ctx)
			})
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// FetchPostContent загружает текст поста, активного в момент запуска.
func (o *Orchestrator) FetchPostContent(ctx context.Context) error {
	postID := o.state.Snapshot().ActivePostID()
	if postID == "" {
		return nil
	}

	content, err := o.service.FetchContent(ctx, postID)
	if err != nil {
		return oops.New(err, "fetch content of post %s", postID)
	}
	if content == nil {
		return nil
	}

	applied, err := o.state.Dispatch(ctx, state.SavePostContent{PostID: postID, Content: content.Content})
	if err != nil {
		return oops.New(err, "save content of post %s", postID)
	}
	o.logIfStale(applied, postID, "content")
	return nil
}

// FetchPostComments загружает комментарии поста, активного в момент запуска.
func (o *Orchestrator) FetchPostComments(ctx context.Context) error {
	postID := o.state.Snapshot().ActivePostID()
	if postID == "" {
		return nil
	}

	page, err := o.service.FetchComments(ctx, postID)
	if err != nil {
		return oops.New(err, "fetch comments of post %s", postID)
	}
	if page == nil {
		return nil
	}

	comments := make([]domain.Comment, 0, len(page.Descendants))
	for _, c := range page.Descendants {
		if c != nil {
			comments = append(comments, *c)
		}
	}
	applied, err := o.state.Dispatch(ctx, state.SaveComments{PostID: postID, Comments: comments})
	if err != nil {
		return oops.New(err, "save comments of post %s", postID)
	}
	o.logIfStale(applied, postID, "comments")
	return nil
}

// logIfStale отмечает результат, отброшенный из-за смены активного поста.
func (o *Orchestrator) logIfStale(applied state.State, postID, what string) {
	if active := applied.ActivePostID(); active != postID {
		o.log.Debug().
			Str("post_id", postID).
			Str("active_post", active).
			Msgf("discarded stale %s", what)
	}
}

// === Comment Workflows ===

func (o *Orchestrator) CreateComment(ctx context.Context, input domain.CommentInput) error {
	postID := o.state.Snapshot().ActivePostID()
	if postID == "" {
		return oops.New(ErrNoActivePost, "create comment")
	}

	newComment, err := o.service.CreateComment(ctx, postID, input)
	if err != nil {
		return oops.New(err, "create comment on post %s", postID)
	}
	if newComment == nil {
		return nil
	}

	if _, err := o.state.Dispatch(ctx, state.PushNewComment{PostID: postID, Comment: *newComment}); err != nil {
		return oops.New(err, "push comment %s", newComment.ID)
	}
	o.notifier.NotifySuccess(MessageCommentCreated)
	return nil
}

// DeleteComment удаляет комментарий удаленно и только после успеха - локально.
func (o *Orchestrator) DeleteComment(ctx context.Context, commentID string) error {
	ascendant := o.state.Snapshot().ActivePostID()

	if err := o.service.DeleteComment(ctx, commentID); err != nil {
		return oops.New(err, "delete comment %s", commentID)
	}

	if _, err := o.state.Dispatch(ctx, state.RemoveComment{Ascendant: ascendant, CommentID: commentID}); err != nil {
		return oops.New(err, "remove comment %s", commentID)
	}
	o.notifier.NotifySuccess(MessageCommentDeleted)
	return nil
}

func (o *Orchestrator) PatchComment(ctx context.Context, commentID, content string) error {
	updated, err := o.service.PatchComment(ctx, commentID, content)
	if err != nil {
		return oops.New(err, "patch comment %s", commentID)
	}
	if updated == nil {
		return nil
	}

	if _, err := o.state.Dispatch(ctx, state.SaveUpdatedComment{Comment: *updated}); err != nil {
		return oops.New(err, "save updated comment %s", commentID)
	}
	o.notifier.NotifySuccess(MessageCommentUpdated)
	return nil
}

// === Editor ===

func (o *Orchestrator) ShowEditor(ctx context.Context) error {
	if _, err := o.state.Dispatch(ctx, state.ShowEditor{}); err != nil {
		return oops.New(err, "show editor")
	}
	return nil
}

func (o *Orchestrator) CloseEditor(ctx context.Context) error {
	if _, err := o.state.Dispatch(ctx, state.CloseEditor{}); err != nil {
		return oops.New(err, "close editor")
	}
	return nil
}
