package navigation

import (
	"context"
	"errors"
	"sync"
)

var ErrHistoryClosed = errors.New("history closed")

// History - LocationSource в памяти: каждый Push выдает новый путь.
type History struct {
	mu        sync.Mutex
	closed    bool
	current   string
	locations chan string
}

// NewHistory создает историю с буфером на buffer путей.
func NewHistory(buffer int) *History {
	return &History{locations: make(chan string, buffer)}
}

// Push переходит на path. Если буфер заполнен, ждет читателя или отмены ctx.
func (h *History) Push(ctx context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHistoryClosed
	}
	select {
	case h.locations <- path:
		h.current = path
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current возвращает последний путь.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *History) Locations() <-chan string {
	return h.locations
}

// Close закрывает источник; уже отправленные пути остаются доступны.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		h.closed = true
		close(h.locations)
	}
}
