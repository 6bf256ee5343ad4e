package broadcast

import (
	"context"
	"testing"
	"time"
)

func TestGuide_now_next_later(t *testing.T) {
	svc, store := newTestService(t)
	seedChannel(t, store, 1)
	seedPrograms(t, store, []Program{
		prog(1, refTime.Add(-10*time.Minute), 1800, "current.mp4"),
		prog(1, refTime.Add(20*time.Minute), 1800, "next.mp4"),
		prog(1, refTime.Add(50*time.Minute), 1800, "later.mp4"),
		prog(1, refTime.Add(80*time.Minute), 1800, "beyond.mp4"),
	})

	guide, err := svc.Guide(context.Background(), 2*time.Hour, 6*time.Hour, refTime)
	if err != nil {
		t.Fatalf("Guide: %v", err)
	}
	if len(guide) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(guide))
	}

	entry := guide[0]
	if entry.Current == nil || entry.Current.MediaRef != "current.mp4" {
		t.Errorf("current = %+v, want current.mp4", entry.Current)
	}
	if entry.Next == nil || entry.Next.MediaRef != "next.mp4" {
		t.Errorf("next = %+v, want next.mp4", entry.Next)
	}
	if entry.Later == nil || entry.Later.MediaRef != "later.mp4" {
		t.Errorf("later = %+v, want later.mp4", entry.Later)
	}
}

func TestGuide_channel_order_numeric(t *testing.T) {
	svc, store := newTestService(t)
	for _, id := range []ChannelID{12, 3, 1} {
		seedChannel(t, store, id)
	}

	guide, err := svc.Guide(context.Background(), time.Hour, time.Hour, refTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(guide) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(guide))
	}
	for i, want := range []ChannelID{1, 3, 12} {
		if guide[i].Channel.ID != want {
			t.Errorf("position %d = channel %d, want %d", i, guide[i].Channel.ID, want)
		}
	}
}

func TestGuide_skips_disabled_channels(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedChannel(t, store, 1)
	if err := store.UpsertChannel(ctx, Channel{ID: 2, Name: "Off air", Enabled: false}); err != nil {
		t.Fatal(err)
	}

	guide, err := svc.Guide(ctx, time.Hour, time.Hour, refTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(guide) != 1 || guide[0].Channel.ID != 1 {
		t.Errorf("disabled channel should be skipped, got %v", guide)
	}
}

func TestGuide_always_live_channel(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	err := store.UpsertChannel(ctx, Channel{
		ID: 1, Name: "Live", AlwaysLive: true, LiveRef: "feed.m3u8", Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	guide, err := svc.Guide(ctx, time.Hour, time.Hour, refTime)
	if err != nil {
		t.Fatal(err)
	}
	entry := guide[0]
	if entry.Current == nil || entry.Current.MediaRef != "feed.m3u8" {
		t.Errorf("always-live current = %+v, want the external feed", entry.Current)
	}
	if entry.Next != nil || entry.Later != nil {
		t.Error("always-live channels have no next/later")
	}
}

func TestGuide_gap_channel_has_next_only(t *testing.T) {
	svc, store := newTestService(t)
	seedChannel(t, store, 1)
	seedPrograms(t, store, []Program{prog(1, refTime.Add(30*time.Minute), 1800, "soon.mp4")})

	guide, err := svc.Guide(context.Background(), time.Hour, time.Hour, refTime)
	if err != nil {
		t.Fatal(err)
	}
	entry := guide[0]
	if entry.Current != nil {
		t.Errorf("no row covers now and none started, current should be nil, got %+v", entry.Current)
	}
	if entry.Next == nil || entry.Next.MediaRef != "soon.mp4" {
		t.Errorf("next = %+v, want soon.mp4", entry.Next)
	}
}

func TestGuide_overlap_current_matches_resolver(t *testing.T) {
	svc, store := newTestService(t)
	seedChannel(t, store, 1)
	seedPrograms(t, store, []Program{
		prog(1, refTime.Add(-20*time.Minute), 3600, "under.mp4"),
		prog(1, refTime.Add(-5*time.Minute), 1800, "over.mp4"),
	})

	guide, err := svc.Guide(context.Background(), time.Hour, time.Hour, refTime)
	if err != nil {
		t.Fatal(err)
	}
	if guide[0].Current == nil || guide[0].Current.MediaRef != "over.mp4" {
		t.Errorf("guide and resolver must agree on overlaps, got %+v", guide[0].Current)
	}
}
