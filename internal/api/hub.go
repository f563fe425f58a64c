package api

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrHubClosed = errors.New("hub closed")

type hubClient struct {
	notifications chan string
	cancel        context.CancelFunc
}

// Hub хранит подключенных websocket-клиентов и рассылает им уведомления.
// Реализует workflow.Notifier.
type Hub struct {
	mu sync.RWMutex
	//      map[clientID] client
	clients map[string]*hubClient
	closed  bool
	wg      sync.WaitGroup
	log     zerolog.Logger
}

// NewHub - конструктор хаба.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*hubClient),
		log:     log,
	}
}

// NotifySuccess отправляет сообщение всем клиентам, не блокируясь на медленных.
func (h *Hub) NotifySuccess(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.clients {
		select {
		case c.notifications <- message:
		default:
			// Клиент не успевает читать, уведомление пропускаем
			h.log.Warn().Str("client", id).Msg("notification dropped")
		}
	}
}

// register добавляет клиента. Контекст клиента отменяется при unregister или Close.
func (h *Hub) register(ctx context.Context) (string, context.Context, <-chan string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", nil, nil, ErrHubClosed
	}

	id := uuid.NewString()
	clientCtx, cancel := context.WithCancel(ctx)
	c := &hubClient{notifications: make(chan string, 8), cancel: cancel}
	h.clients[id] = c
	h.wg.Add(1)

	return id, clientCtx, c.notifications, nil
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		c.cancel()
		h.wg.Done()
	}
}

// Close отключает всех клиентов и ждет завершения их обработчиков.
// После Close новые клиенты не принимаются.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for _, c := range h.clients {
		c.cancel()
	}
	h.mu.Unlock()

	h.wg.Wait()
}

// Len возвращает число подключенных клиентов.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
