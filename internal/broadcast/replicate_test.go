package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"
)

func rollReq(replace bool) RollForwardRequest {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return RollForwardRequest{
		ChannelID: 1,
		From:      from,
		To:        from.Add(3 * time.Hour),
		AddDays:   7,
		Replace:   replace,
	}
}

func TestRollForward_preserves_relative_offsets(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	windowStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seedPrograms(t, store, []Program{
		prog(1, windowStart, 3600, "a.mp4"),
		prog(1, windowStart.Add(3600*time.Second), 3600, "b.mp4"),
		prog(1, windowStart.Add(7200*time.Second), 3600, "c.mp4"),
	})

	result, err := svc.RollForward(ctx, rollReq(false))
	if err != nil {
		t.Fatalf("RollForward: %v", err)
	}
	if result.Inserted != 3 {
		t.Errorf("inserted = %d, want 3", result.Inserted)
	}

	target := windowStart.AddDate(0, 0, 7)
	rows, _ := store.RangeAsc(ctx, 1, target, target.Add(3*time.Hour))
	if len(rows) != 3 {
		t.Fatalf("expected 3 translated rows, got %d", len(rows))
	}
	wantMedia := []string{"a.mp4", "b.mp4", "c.mp4"}
	for i, want := range []time.Duration{0, time.Hour, 2 * time.Hour} {
		if !rows[i].Start.Equal(target.Add(want)) {
			t.Errorf("row %d start = %v, want %v", i, rows[i].Start, target.Add(want))
		}
		if rows[i].MediaRef != wantMedia[i] {
			t.Errorf("row %d media = %q, want %q", i, rows[i].MediaRef, wantMedia[i])
		}
	}
}

func TestRollForward_empty_source_window(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.RollForward(context.Background(), rollReq(true))
	if err != nil {
		t.Fatalf("empty window should not error: %v", err)
	}
	if result.Inserted != 0 || len(result.Rows) != 0 {
		t.Errorf("empty window should insert nothing, got %+v", result)
	}
}

func TestRollForward_overwrite_is_idempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	windowStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seedPrograms(t, store, []Program{
		prog(1, windowStart, 3600, "a.mp4"),
		prog(1, windowStart.Add(time.Hour), 3600, "b.mp4"),
	})

	for i := 0; i < 2; i++ {
		if _, err := svc.RollForward(ctx, rollReq(true)); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	target := windowStart.AddDate(0, 0, 7)
	rows, _ := store.RangeAsc(ctx, 1, target, target.Add(3*time.Hour))
	if len(rows) != 2 {
		t.Errorf("overwrite rerun should leave 2 rows, got %d", len(rows))
	}
}

func TestRollForward_additive_duplicates(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	windowStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seedPrograms(t, store, []Program{prog(1, windowStart, 3600, "a.mp4")})

	for i := 0; i < 2; i++ {
		if _, err := svc.RollForward(ctx, rollReq(false)); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	target := windowStart.AddDate(0, 0, 7)
	rows, _ := store.RangeAsc(ctx, 1, target, target.Add(3*time.Hour))
	if len(rows) != 2 {
		t.Errorf("additive rerun should duplicate, got %d rows", len(rows))
	}
}

func TestRollForward_validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		mut   func(*RollForwardRequest)
		field string
	}{
		{"missing_channel", func(r *RollForwardRequest) { r.ChannelID = 0 }, "channelId"},
		{"missing_from", func(r *RollForwardRequest) { r.From = time.Time{} }, "from"},
		{"missing_to", func(r *RollForwardRequest) { r.To = time.Time{} }, "to"},
		{"non_positive_days", func(r *RollForwardRequest) { r.AddDays = 0 }, "addDays"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := rollReq(false)
			tc.mut(&req)
			_, err := svc.RollForward(ctx, req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("field = %q, want %q", verr.Field, tc.field)
			}
		})
	}
}
