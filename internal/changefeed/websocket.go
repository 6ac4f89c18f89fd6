package changefeed

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeWS upgrades the request and streams events matching filter as JSON
// text frames until the client goes away. Events are dropped for a client
// whose buffer is full; the next event still triggers its re-fetch.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, filter Filter) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan Event, sendBuffer)
	unsubscribe := h.Subscribe(filter, func(e Event) {
		select {
		case events <- e:
		default:
			slog.Debug("Dropping change event for slow client", "table", e.Table)
		}
	})
	defer unsubscribe()

	// Reader: only needed to process pongs and notice the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
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
	for {
		select {
		case <-done:
			return
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				slog.Debug("WebSocket write failed", "error", err)
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
