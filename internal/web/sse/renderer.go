package sse

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/web/templates/components"
)

// Event names shared by the pages and the broadcaster
const (
	EventCountdown = "countdown"
	EventRoster    = "roster"
)

// Renderer converts state into SSE events
type Renderer struct{}

// NewRenderer creates a new Renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// CountdownHTML renders the clock as an out-of-band fragment.
// controls adds the admin toggle button.
func (r *Renderer) CountdownHTML(ctx context.Context, snap countdown.Snapshot, controls bool) (Event, error) {
	var buf bytes.Buffer
	if err := components.Countdown(snap, controls).Render(ctx, &buf); err != nil {
		return Event{}, err
	}
	return Event{Name: EventCountdown, Data: WrapForOOBSwap(components.CountdownSlotID, buf.String())}, nil
}

// CountdownJSON encodes the clock the way the API reports it
func (r *Renderer) CountdownJSON(snap countdown.Snapshot) (Event, error) {
	data, err := json.Marshal(response.CountdownFromSnapshot(snap))
	if err != nil {
		return Event{}, err
	}
	return Event{Name: EventCountdown, Data: string(data)}, nil
}

// RosterHTML renders the account table as an out-of-band fragment.
// Broadcasts go to every admin, so no row is marked as the viewer's own.
func (r *Renderer) RosterHTML(ctx context.Context, roster model.Roster) (Event, error) {
	var buf bytes.Buffer
	if err := components.Roster(roster, "").Render(ctx, &buf); err != nil {
		return Event{}, err
	}
	return Event{Name: EventRoster, Data: WrapForOOBSwap(components.RosterSlotID, buf.String())}, nil
}

// WrapForOOBSwap wraps HTML in a div with hx-swap-oob for out-of-band swaps
func WrapForOOBSwap(id, html string) string {
	return `<div id="` + id + `" hx-swap-oob="true">` + html + `</div>`
}
