package sse

import (
	"testing"
	"time"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "test-event",
			data:      "hello world",
			expected:  "event: test-event\ndata: hello world\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "roster",
			data:      "<table>\n  <tr>row</tr>\n</table>",
			expected:  "event: roster\ndata: <table>\ndata:   <tr>row</tr>\ndata: </table>\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "data with carriage returns",
			eventName: "test",
			data:      "line1\r\nline2",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatSSEMessage(tt.eventName, tt.data)
			if string(result) != tt.expected {
				t.Errorf("formatSSEMessage(%q, %q)\ngot:  %q\nwant: %q",
					tt.eventName, tt.data, string(result), tt.expected)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single line", input: "hello", expected: []string{"hello"}},
		{name: "two lines", input: "line1\nline2", expected: []string{"line1", "line2"}},
		{name: "trailing newline", input: "line1\n", expected: []string{"line1"}},
		{name: "empty string", input: "", expected: []string{""}},
		{name: "crlf line endings", input: "line1\r\nline2\r\n", expected: []string{"line1", "line2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitLines(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitLines(%q) returned %d lines, want %d", tt.input, len(result), len(tt.expected))
			}
			for i, line := range result {
				if line != tt.expected[i] {
					t.Errorf("splitLines(%q)[%d] = %q, want %q", tt.input, i, line, tt.expected[i])
				}
			}
		})
	}
}

// waitForClients polls until the hub has processed pending registrations
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub(TopicCountdown, nil)
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "acc-1")
	if !hub.Register(client) {
		t.Fatal("Register() on a running hub returned false")
	}
	waitForClients(t, hub, 1)

	hub.BroadcastEvent("test-event", "test data")

	if got := receive(t, client); got != "event: test-event\ndata: test data\n\n" {
		t.Errorf("client received %q", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(TopicAdmin, nil)
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "acc-1")
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Unregister(client)
	waitForClients(t, hub, 0)

	if _, ok := <-client.send; ok {
		t.Error("send channel still open after unregister")
	}
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub(TopicCountdown, nil)
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient(hub, "acc-1"), NewClient(hub, "acc-2"), NewClient(hub, "")}
	for _, c := range clients {
		hub.Register(c)
	}
	waitForClients(t, hub, 3)

	hub.BroadcastEvent("update", "data")

	for i, c := range clients {
		if got := receive(t, c); got != "event: update\ndata: data\n\n" {
			t.Errorf("client %d received %q", i+1, got)
		}
	}
}

func TestHub_RegisterAfterCloseFails(t *testing.T) {
	hub := NewHub(TopicCountdown, nil)
	go hub.Run()
	hub.Close()
	hub.Close()

	if hub.Register(NewClient(hub, "acc-1")) {
		t.Error("Register() on a closed hub returned true")
	}
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(TopicCountdown, nil)
	go hub.Run()

	client := NewClient(hub, "acc-1")
	hub.Register(client)
	waitForClients(t, hub, 1)

	hub.Close()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed channel, got a message")
		}
	case <-time.After(time.Second):
		t.Error("client channel not closed after hub shutdown")
	}
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(nil)
	defer manager.Close()

	hub1 := manager.GetOrCreateHub(TopicCountdown)
	if hub1 == nil {
		t.Fatal("GetOrCreateHub returned nil")
	}
	if hub2 := manager.GetOrCreateHub(TopicCountdown); hub1 != hub2 {
		t.Error("GetOrCreateHub returned different hub for same topic")
	}
	if hub3 := manager.GetOrCreateHub(TopicAdmin); hub3 == hub1 {
		t.Error("GetOrCreateHub returned same hub for different topic")
	}
}

func TestHubManager_GetHub(t *testing.T) {
	manager := NewHubManager(nil)
	defer manager.Close()

	if manager.GetHub(TopicAdmin) != nil {
		t.Error("GetHub returned non-nil before any subscription")
	}

	created := manager.GetOrCreateHub(TopicAdmin)
	if got := manager.GetHub(TopicAdmin); got != created {
		t.Error("GetHub returned different hub than GetOrCreateHub")
	}
}

func TestHubManager_Close(t *testing.T) {
	manager := NewHubManager(nil)
	hub := manager.GetOrCreateHub(TopicCountdown)

	manager.Close()

	if manager.GetHub(TopicCountdown) != nil {
		t.Error("hub still registered after Close")
	}
	if hub.Register(NewClient(hub, "")) {
		t.Error("hub still accepting clients after manager Close")
	}
}
