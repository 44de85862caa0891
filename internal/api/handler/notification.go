package handler

import (
	"net/http"
	"time"

	"github.com/Rrens/workspace-sync/internal/api/middleware"
	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NotificationHandler streams notifications to the UI over a websocket
type NotificationHandler struct {
	subscriber domain.NotificationSubscriber
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(subscriber domain.NotificationSubscriber) *NotificationHandler {
	return &NotificationHandler{subscriber: subscriber}
}

// Stream upgrades the request and writes every notification of the caller as
// a JSON text frame until either side goes away
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Int64("uid", uid).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	notifications, cancel := h.subscriber.Subscribe(r.Context(), uid)
	defer cancel()

	// The read loop only handles control frames; it ends when the client leaves.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	log.Debug().Int64("uid", uid).Msg("Notification stream opened")

	for {
		select {
		case <-closed:
			log.Debug().Int64("uid", uid).Msg("Notification stream closed by client")
			return
		case n, ok := <-notifications:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				log.Warn().Err(err).Int64("uid", uid).Msg("Failed to write notification")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
