package sse

import (
	"context"
	"io"
	"log/slog"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/countdown"
)

// CountdownSource publishes countdown snapshots
type CountdownSource interface {
	Subscribe() (<-chan countdown.Snapshot, func())
}

// Broadcaster pushes state changes to the SSE hubs
type Broadcaster struct {
	hubManager *HubManager
	renderer   *Renderer
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Broadcaster{
		hubManager: hubManager,
		renderer:   NewRenderer(),
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Renderer returns the renderer used for broadcasts, so handlers can build
// matching initial events
func (b *Broadcaster) Renderer() *Renderer {
	return b.renderer
}

// RunCountdown forwards every countdown snapshot until ctx is done or the
// countdown closes its subscription
func (b *Broadcaster) RunCountdown(ctx context.Context, source CountdownSource) {
	snapshots, unsubscribe := source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			b.BroadcastCountdown(ctx, snap)
		}
	}
}

// BroadcastCountdown sends one snapshot to every countdown topic with listeners
func (b *Broadcaster) BroadcastCountdown(ctx context.Context, snap countdown.Snapshot) {
	if hub := b.hubManager.GetHub(TopicCountdown); hub != nil {
		ev, err := b.renderer.CountdownHTML(ctx, snap, false)
		b.send(hub, ev, err)
	}
	if hub := b.hubManager.GetHub(TopicAdmin); hub != nil {
		ev, err := b.renderer.CountdownHTML(ctx, snap, true)
		b.send(hub, ev, err)
	}
	if hub := b.hubManager.GetHub(TopicCountdownJSON); hub != nil {
		ev, err := b.renderer.CountdownJSON(snap)
		b.send(hub, ev, err)
	}
}

// BroadcastRoster sends an updated account roster to the admin panels
func (b *Broadcaster) BroadcastRoster(ctx context.Context, roster model.Roster) {
	hub := b.hubManager.GetHub(TopicAdmin)
	if hub == nil {
		return
	}
	ev, err := b.renderer.RosterHTML(ctx, roster)
	b.send(hub, ev, err)
}

func (b *Broadcaster) send(hub *Hub, ev Event, err error) {
	if err != nil {
		b.logger.Error("sse failed to render event",
			slog.String("event", ev.Name),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(ev.Name, ev.Data)
}
