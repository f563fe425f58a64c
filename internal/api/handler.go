package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/UkralStul/blog-state/internal/domain"
	"github.com/UkralStul/blog-state/internal/navigation"
	"github.com/UkralStul/blog-state/internal/state"
	"github.com/UkralStul/blog-state/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Deps - зависимости HTTP-слоя.
type Deps struct {
	// Context живет дольше запроса: воркфлоу не должны обрываться вместе с ним.
	Context    context.Context
	Dispatcher navigation.Dispatcher
	Navigator  *navigation.Router
	State      *state.Container
	Hub        *Hub
	Log        zerolog.Logger
}

type handler struct {
	Deps
	upgrader websocket.Upgrader
}

// NewRouter собирает chi-роутер с маршрутами триггеров, чтения состояния и websocket.
func NewRouter(deps Deps) http.Handler {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	h := &handler{
		Deps: deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(deps.Log))
	router.Use(middleware.Recoverer)

	router.Get("/state", h.getState)
	router.Post("/navigate", h.navigate)
	router.Post("/triggers/posts", h.fetchPosts)

	router.Route("/comments", func(r chi.Router) {
		r.Post("/", h.createComment)
		r.Patch("/{commentID}", h.patchComment)
		r.Delete("/{commentID}", h.deleteComment)
	})

	router.Post("/editor/show", h.trigger(workflow.ShowEditor{}))
	router.Post("/editor/close", h.trigger(workflow.CloseEditor{}))

	router.Get("/ws", h.serveWS)

	return router
}

// === State ===

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.State.Snapshot())
}

// === Triggers ===

type navigateRequest struct {
	Path string `json:"path"`
}

func (h *handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.Navigator.Navigate(h.Context, req.Path) {
		writeError(w, http.StatusNotFound, "no route for "+req.Path)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) fetchPosts(w http.ResponseWriter, r *http.Request) {
	page := domain.PageInfo{Limit: navigation.DefaultPageSize, Page: 1}
	if !decode(w, r, &page) {
		return
	}
	if page.Limit <= 0 || page.Page <= 0 {
		writeError(w, http.StatusBadRequest, "limit and page must be positive")
		return
	}
	h.accept(w, workflow.FetchPostsList{Page: page})
}

func (h *handler) createComment(w http.ResponseWriter, r *http.Request) {
	var input domain.CommentInput
	if !decode(w, r, &input) {
		return
	}
	h.accept(w, workflow.CreateComment{Input: input})
}

type patchRequest struct {
	Content string `json:"content"`
}

func (h *handler) patchComment(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !decode(w, r, &req) {
		return
	}
	h.accept(w, workflow.PatchComment{CommentID: chi.URLParam(r, "commentID"), Content: req.Content})
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	h.accept(w, workflow.DeleteComment{CommentID: chi.URLParam(r, "commentID")})
}

func (h *handler) trigger(t workflow.Trigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.accept(w, t)
	}
}

func (h *handler) accept(w http.ResponseWriter, t workflow.Trigger) {
	h.Dispatcher.Dispatch(h.Context, t)
	w.WriteHeader(http.StatusAccepted)
}

// === Helpers ===

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogger пишет каждый запрос в zerolog вместе с request id от chi.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
