package broadcast

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"
)

// refTime is the fixed "now" used across tests.
var refTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, testLogger(), nil, 0), store
}

func seedChannel(t *testing.T, store Store, id ChannelID) {
	t.Helper()
	err := store.UpsertChannel(context.Background(), Channel{
		ID:      id,
		Name:    "Channel",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("seed channel %d: %v", id, err)
	}
}

func seedPrograms(t *testing.T, store Store, rows []Program) {
	t.Helper()
	if _, err := store.InsertPrograms(context.Background(), rows); err != nil {
		t.Fatalf("seed programs: %v", err)
	}
}

func prog(id ChannelID, start time.Time, durationSeconds float64, mediaRef string) Program {
	return Program{
		ChannelID:       id,
		Start:           start,
		DurationSeconds: durationSeconds,
		MediaRef:        mediaRef,
	}
}
