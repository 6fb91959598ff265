package httpserver

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/GowthamiKadiyala/ai-interview-coach/internal/session"
)

// Event is one message pushed to UI subscribers.
type Event struct {
	Type      string             `json:"type"` // phase | utterance | audio | halt | report
	Phase     session.Phase      `json:"phase,omitempty"`
	Utterance *session.Utterance `json:"utterance,omitempty"`
	Report    *session.Report    `json:"report,omitempty"`
	// Audio carries the synthesized clip as a data URL, the same shape the
	// browser <audio> element plays directly.
	Audio string `json:"audio,omitempty"`
}

// Hub fans session events out to websocket subscribers. It doubles as the
// playback sink: synthesized audio is delivered to the browser through the
// same stream.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// browser demo; same posture as the HTTP CORS setup
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handle upgrades the request and keeps the connection registered until the
// client goes away.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("event subscriber connected", "subscribers", n)

	// Drain control frames; clients never send data.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// Broadcast sends the event to every subscriber. Writes are serialized by
// the hub mutex; a failed write drops the client.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	var dead []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteJSON(ev); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}

// PlayAudio implements tts.AudioSink.
func (h *Hub) PlayAudio(mime string, data []byte) {
	url := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
	h.Broadcast(Event{Type: "audio", Audio: url})
}

// HaltPlayback implements tts.AudioSink.
func (h *Hub) HaltPlayback() {
	h.Broadcast(Event{Type: "halt"})
}

// Listeners adapts the hub to the session event callbacks.
func (h *Hub) Listeners() session.Listeners {
	return session.Listeners{
		OnPhase: func(p session.Phase) {
			h.Broadcast(Event{Type: "phase", Phase: p})
		},
		OnUtterance: func(u session.Utterance) {
			h.Broadcast(Event{Type: "utterance", Utterance: &u})
		},
		OnReport: func(r session.Report) {
			h.Broadcast(Event{Type: "report", Report: &r})
		},
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}
