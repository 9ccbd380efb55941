package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-match-service/internal/notify"
)

// WSHandler streams match events (lifecycle transitions, scored
// answers, final scores) to websocket subscribers.
type WSHandler struct {
	hub      *notify.Hub
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *notify.Hub, log *zap.SugaredLogger) *WSHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards match events until the
// client disconnects. The channel is one-way: subscribers never feed
// decisions back into the engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	if matchID == "" {
		http.Error(w, "missing matchId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe(matchID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads so pings and close frames are processed.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debugw("ws write failed", "matchId", matchID, "error", err)
				return
			}
		case <-done:
			return
		}
	}
}
