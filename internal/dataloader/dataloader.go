package dataloader

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/blog-state/internal/storage"
	"github.com/graph-gophers/dataloader"
)

// DefaultWait - окно, в течение которого одновременные запросы собираются в один батч.
const DefaultWait = time.Millisecond

// Loader оборачивает хранилище и группирует одновременные FetchComments
// (например, при быстрой навигации между постами) в один вызов BatchComments.
// Остальные методы DataService проксируются напрямую.
type Loader struct {
	storage.Storage
	comments *dataloader.Loader
}

// New создает Loader поверх хранилища.
func New(store storage.Storage, wait time.Duration) *Loader {
	if wait <= 0 {
		wait = DefaultWait
	}

	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := keys.Keys()

		// Вызываем метод хранилища, который делает ОДИН запрос
		commentsMap, err := store.BatchComments(ctx, postIDs)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, postID := range postIDs {
			comments, ok := commentsMap[postID]
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)}
				continue
			}
			results[i] = &dataloader.Result{Data: &storage.CommentsPage{Descendants: comments}}
		}
		return results
	}

	return &Loader{
		Storage: store,
		// Кэш отключен: каждый показ поста должен получать свежие комментарии
		comments: dataloader.NewBatchedLoader(batchFn,
			dataloader.WithWait(wait),
			dataloader.WithCache(&dataloader.NoCache{}),
		),
	}
}

// FetchComments загружает комментарии поста через батчер.
func (l *Loader) FetchComments(ctx context.Context, postID string) (*storage.CommentsPage, error) {
	data, err := l.comments.Load(ctx, dataloader.StringKey(postID))()
	if err != nil {
		return nil, err
	}
	page, ok := data.(*storage.CommentsPage)
	if !ok {
		return nil, fmt.Errorf("unexpected loader result %T", data)
	}
	return page, nil
}
