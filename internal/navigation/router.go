package navigation

import (
	"context"
	"net/url"
	"strings"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/workflow"
	"github.com/rs/zerolog"
)

const (
	// ListPath - путь списка постов; детальная страница - ListPath + "/{id}".
	ListPath        = "/posts"
	DefaultPageSize = 5
)

// Dispatcher принимает триггеры воркфлоу. Реализуется workflow.Orchestrator.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger workflow.Trigger)
}

// LocationSource выдает текущий путь при каждой навигации.
// Канал закрывается, когда источник больше не будет выдавать пути.
type LocationSource interface {
	Locations() <-chan string
}

// Router переводит смену пути в триггеры воркфлоу.
type Router struct {
	dispatcher Dispatcher
	pageSize   int
	log        zerolog.Logger
}

// Option настраивает Router.
type Option func(*Router)

func WithPageSize(size int) Option {
	return func(r *Router) {
		if size > 0 {
			r.pageSize = size
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Router) {
		r.log = log
	}
}

func NewRouter(dispatcher Dispatcher, opts ...Option) *Router {
	r := &Router{
		dispatcher: dispatcher,
		pageSize:   DefaultPageSize,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Navigate обрабатывает один путь (или URL) и сообщает, совпал ли он с маршрутом.
func (r *Router) Navigate(ctx context.Context, location string) bool {
	trigger, ok := r.Match(location)
	if !ok {
		r.log.Debug().Str("location", location).Msg("no route")
		return false
	}
	r.log.Debug().Str("location", location).Str("trigger", trigger.TriggerName()).Msg("route matched")
	r.dispatcher.Dispatch(ctx, trigger)
	return true
}

// Match возвращает триггер для пути без его запуска.
func (r *Router) Match(location string) (workflow.Trigger, bool) {
	// id остается в том виде, в каком пришел в пути, без декодирования
	path := location
	if u, err := url.Parse(location); err == nil {
		path = u.EscapedPath()
	}

	if path == ListPath {
		return workflow.FetchPostsList{Page: domain.PageInfo{Limit: r.pageSize, Page: 1}}, true
	}

	rest, found := strings.CutPrefix(path, ListPath+"/")
	if !found {
		return nil, false
	}
	postID := strings.TrimSuffix(rest, "/")
	if postID == "" || strings.Contains(postID, "/") {
		return nil, false
	}
	return workflow.DisplayPost{PostID: postID}, true
}

// Listen обрабатывает пути из source, пока он не закрыт или не отменен ctx.
func (r *Router) Listen(ctx context.Context, source LocationSource) error {
	locations := source.Locations()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case location, ok := <-locations:
			if !ok {
				return nil
			}
			r.Navigate(ctx, location)
		}
	}
}
