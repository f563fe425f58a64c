package api

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/blog-state/internal/navigation"
	"github.com/UkralStul/blog-state/internal/state"
	"github.com/gorilla/websocket"
)

const (
	keepAlivePingInterval = 10 * time.Second
	pongWait              = 3 * keepAlivePingInterval
	writeWait             = 5 * time.Second
	historyBuffer         = 16
)

const (
	messageNavigate     = "navigate"
	messageState        = "state"
	messageNotification = "notification"
)

// inboundMessage - сообщение от клиента. Сейчас поддерживается только навигация.
type inboundMessage struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

type outboundMessage struct {
	Type    string       `json:"type"`
	State   *state.State `json:"state,omitempty"`
	Message string       `json:"message,omitempty"`
}

// serveWS - источник путей навигации и поток снимков состояния для одного клиента.
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID, clientCtx, notifications, err := h.Hub.register(h.Context)
	if err != nil {
		_ = writeClose(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.Hub.unregister(clientID)

	ctx, cancel := context.WithCancel(clientCtx)
	defer cancel()

	log := h.Log.With().Str("client", clientID).Logger()
	log.Debug().Msg("websocket client connected")

	// У каждого клиента своя история навигации
	history := navigation.NewHistory(historyBuffer)
	listenDone := make(chan struct{})
	go func() {
		defer close(listenDone)
		if err := h.Navigator.Listen(h.Context, history); err != nil {
			log.Debug().Err(err).Msg("navigation listener stopped")
		}
	}()

	updates := h.State.Subscribe(ctx)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		if err := h.writeLoop(ctx, conn, updates, notifications); err != nil {
			log.Debug().Err(err).Msg("websocket writer stopped")
		}
		// Разрываем соединение, чтобы readLoop тоже завершился
		conn.Close()
	}()

	err = h.readLoop(ctx, conn, history)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Debug().Err(err).Msg("websocket reader stopped")
	}
	history.Close()
	cancel()
	<-writerDone
	<-listenDone
	log.Debug().Str("location", history.Current()).Msg("websocket client disconnected")
}

// readLoop переводит history на пути из сообщений navigate до ошибки чтения или отмены ctx.
func (h *handler) readLoop(ctx context.Context, conn *websocket.Conn, history *navigation.History) error {
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Type != messageNavigate {
			h.Log.Debug().Str("type", msg.Type).Msg("unsupported websocket message")
			continue
		}
		if err := history.Push(ctx, msg.Path); err != nil {
			return err
		}
	}
}

// writeLoop - единственный писатель в соединение.
func (h *handler) writeLoop(ctx context.Context, conn *websocket.Conn, updates <-chan state.State, notifications <-chan string) error {
	ticker := time.NewTicker(keepAlivePingInterval)
	defer ticker.Stop()

	initial := h.State.Snapshot()
	if err := writeMessage(conn, outboundMessage{Type: messageState, State: &initial}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return writeClose(conn, websocket.CloseNormalClosure, "")
		case snapshot, ok := <-updates:
			// канал закрывается вместе с ctx или при остановке контейнера
			if !ok {
				return writeClose(conn, websocket.CloseNormalClosure, "")
			}
			if err := writeMessage(conn, outboundMessage{Type: messageState, State: &snapshot}); err != nil {
				return err
			}
		case message := <-notifications:
			if err := writeMessage(conn, outboundMessage{Type: messageNotification, Message: message}); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msg outboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func writeClose(conn *websocket.Conn, code int, text string) error {
	return conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait))
}
