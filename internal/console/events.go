package console

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
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// Event is one message on the dashboard stream.
type Event struct {
	Type      string          `json:"type"`
	Dashboard Dashboard       `json:"dashboard"`
	Playback  []PlaybackEvent `json:"playback,omitempty"`
}

// Events handles GET /api/events: a websocket carrying the current dashboard
// on connect and again after every published snapshot, with the playback
// start/stop transitions for this viewer.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.AddEventSubscribers(1)
		defer h.metrics.AddEventSubscribers(-1)
	}

	snaps, unsubscribe := h.console.Subscribe()
	defer unsubscribe()
	tracker := h.console.NewPlaybackTracker()

	// The reader only services control frames and notices the peer leaving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("event write failed", slog.String("error", err.Error()))
			return false
		}
		return true
	}

	if snap, ok := h.console.Snapshot(); ok {
		if !send(Event{Type: "snapshot", Dashboard: h.console.DashboardFor(snap), Playback: tracker.Sync(snap)}) {
			return
		}
	} else if d, err := h.console.Dashboard(); err == nil {
		if !send(Event{Type: "status", Dashboard: d}) {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap := <-snaps:
			if !h.sessionLive(r) {
				closeLoggedOut(conn)
				return
			}
			if !send(Event{Type: "snapshot", Dashboard: h.console.DashboardFor(snap), Playback: tracker.Sync(snap)}) {
				return
			}
		case <-ticker.C:
			if !h.sessionLive(r) {
				closeLoggedOut(conn)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sessionLive(r *http.Request) bool {
	return h.sessions.FromRequest(r) && h.console.Authenticated()
}

func closeLoggedOut(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "logged out"),
		time.Now().Add(writeWait))
}
