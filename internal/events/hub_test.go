package events

import (
	"encoding/json"
	"testing"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeCommandCompleted, CommandRecord{RequestID: "r1", Command: "manage_editor", Status: "success"})

	ev := <-ch
	if ev.Type != TypeCommandCompleted {
		t.Errorf("Type = %q", ev.Type)
	}
	var rec CommandRecord
	if err := json.Unmarshal(ev.Data, &rec); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if rec.RequestID != "r1" || rec.Command != "manage_editor" {
		t.Errorf("payload = %+v", rec)
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(4)
	_, cancel := h.Subscribe()
	defer cancel()

	// Never read from the channel; publishes must still return.
	for i := 0; i < 500; i++ {
		h.Publish(TypeConsoleEntry, map[string]any{"i": i})
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(4)
	for i := 0; i < 6; i++ {
		h.Publish(TypeCommandSubmitted, nil)
	}

	all := h.SnapshotSince(0)
	if len(all) != 4 {
		t.Fatalf("ring should hold 4 events, got %d", len(all))
	}
	// Oldest two were overwritten.
	if all[0].ID != 3 {
		t.Errorf("oldest retained ID = %d, want 3", all[0].ID)
	}

	tail := h.SnapshotSince(all[2].ID)
	if len(tail) != 1 || tail[0].ID != all[3].ID {
		t.Errorf("SnapshotSince returned %v", tail)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe()
	cancel()
	cancel() // second cancel is a no-op

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
}
