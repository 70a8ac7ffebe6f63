package sse

import (
	"net/http"
	"time"

	"github.com/isepctf/ctfportal/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Event is one named SSE message
type Event struct {
	Name string
	Data string
}

// Client represents a connected SSE client
type Client struct {
	hub         *Hub
	accountID   model.AccountID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client. accountID is empty for anonymous viewers.
func NewClient(hub *Hub, accountID model.AccountID) *Client {
	return &Client{
		hub:         hub,
		accountID:   accountID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams the hub's events to the client until it disconnects.
// The initial events are written first so a fresh page is never stale.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, accountID model.AccountID, initial ...Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(hub, accountID)
	if !hub.Register(client) {
		http.Error(w, "Stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	for _, ev := range initial {
		_, _ = w.Write(formatSSEMessage(ev.Name, ev.Data))
	}
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
