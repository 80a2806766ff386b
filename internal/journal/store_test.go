package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattjoyce/stagehand/internal/events"
	"github.com/mattjoyce/stagehand/internal/host"
	"github.com/mattjoyce/stagehand/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	m.Run()
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(context.Background(), dbPath, log.Get())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenBootstrapsTables(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	for _, table := range []string{"command_log", "console_log"} {
		var name string
		if err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", table).Scan(&name); err != nil {
			t.Fatalf("table %q missing: %v", table, err)
		}
	}
}

func TestRecordCommandUpsert(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	submitted := events.CommandRecord{RequestID: "req-1", Status: "submitted", Source: "tcp"}
	if err := store.RecordCommand(ctx, submitted, time.Now()); err != nil {
		t.Fatal(err)
	}

	final := events.CommandRecord{
		RequestID:  "req-1",
		Command:    "manage_scene",
		Status:     "success",
		Source:     "tcp",
		DurationMs: 12,
	}
	if err := store.RecordCommand(ctx, final, time.Now()); err != nil {
		t.Fatal(err)
	}

	got, err := store.RecentCommands(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected single row after upsert, got %d", len(got))
	}
	if got[0].Status != "success" || got[0].Command != "manage_scene" || got[0].DurationMs != 12 {
		t.Errorf("final record not preserved: %+v", got[0])
	}
}

func TestRecordCommandRequiresID(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if err := store.RecordCommand(context.Background(), events.CommandRecord{}, time.Now()); err == nil {
		t.Error("expected error for empty request id")
	}
}

func TestRecentCommandsOrderAndLimit(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	for i, id := range []string{"old", "mid", "new"} {
		rec := events.CommandRecord{RequestID: id, Status: "success"}
		if err := store.RecordCommand(ctx, rec, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.RecentCommands(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied: %d rows", len(got))
	}
	if got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("expected newest first, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestCommandCounts(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for i, status := range []string{"success", "success", "error"} {
		rec := events.CommandRecord{RequestID: string(rune('a' + i)), Status: status}
		if err := store.RecordCommand(ctx, rec, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := store.CommandCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["success"] != 2 || counts["error"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestConsoleRoundtrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	entries := []host.ConsoleEntry{
		{At: base, Level: "info", Source: "scenes", Message: "loaded scene Main"},
		{At: base.Add(time.Second), Level: "warn", Source: "assets", Message: "slow import: big.fbx"},
		{At: base.Add(2 * time.Second), Level: "info", Source: "play", Message: "entered play mode"},
	}
	for _, e := range entries {
		if err := store.AppendConsole(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ReadConsole(ctx, ConsoleQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].Message != "entered play mode" {
		t.Errorf("expected newest first, got %q", all[0].Message)
	}

	warns, err := store.ReadConsole(ctx, ConsoleQuery{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	if len(warns) != 1 || warns[0].Message != "slow import: big.fbx" {
		t.Errorf("level filter failed: %+v", warns)
	}

	scenes, err := store.ReadConsole(ctx, ConsoleQuery{Contains: "scene"})
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 1 {
		t.Errorf("contains filter matched %d entries", len(scenes))
	}

	limited, err := store.ReadConsole(ctx, ConsoleQuery{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit not applied: %d entries", len(limited))
	}

	since, err := store.ReadConsole(ctx, ConsoleQuery{Since: base.Add(1500 * time.Millisecond)})
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 1 || since[0].Message != "entered play mode" {
		t.Errorf("since filter failed: %+v", since)
	}
}

func TestConsoleContainsEscapesWildcards(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendConsole(ctx, host.ConsoleEntry{At: time.Now(), Level: "info", Message: "progress 100% done"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendConsole(ctx, host.ConsoleEntry{At: time.Now(), Level: "info", Message: "progress stalled"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.ReadConsole(ctx, ConsoleQuery{Contains: "100%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("literal %% should match exactly one entry, got %d", len(got))
	}
}

func TestClearConsole(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.AppendConsole(ctx, host.ConsoleEntry{At: time.Now(), Level: "info", Message: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.ClearConsole(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cleared %d rows, want 3", n)
	}

	left, err := store.ReadConsole(ctx, ConsoleQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("console not empty after clear: %d rows", len(left))
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := store.RecordCommand(ctx, events.CommandRecord{RequestID: "ancient", Status: "success"}, old); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordCommand(ctx, events.CommandRecord{RequestID: "fresh", Status: "success"}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendConsole(ctx, host.ConsoleEntry{At: old, Level: "info", Message: "ancient"}); err != nil {
		t.Fatal(err)
	}

	n, err := store.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d rows, want 2", n)
	}

	got, err := store.RecentCommands(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Errorf("prune kept wrong rows: %+v", got)
	}

	// Zero retention is a no-op.
	if n, err := store.Prune(ctx, 0); err != nil || n != 0 {
		t.Errorf("Prune(0) = (%d, %v)", n, err)
	}
}
