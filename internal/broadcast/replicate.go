package broadcast

import (
	"context"
	"fmt"
	"time"
)

// RollForwardRequest copies the channel's schedule window [From, To] ahead
// by AddDays whole days. With Replace set, rows already in the target
// window are deleted first and the operation is idempotent; without it the
// copy is additive and can duplicate rows.
type RollForwardRequest struct {
	ChannelID ChannelID
	From      time.Time
	To        time.Time
	AddDays   int
	Replace   bool
}

// RollForwardResult reports what was written.
type RollForwardResult struct {
	Inserted int       `json:"insertedCount"`
	Rows     []Program `json:"rows"`
}

// RollForward translates every row in the source window forward by
// AddDays x 24h. This is a pure time translation, not a re-chain from
// durations: relative spacing, gaps, and overlaps in the source window are
// preserved exactly. An empty source window inserts nothing and is not an
// error.
func (s *Service) RollForward(ctx context.Context, req RollForwardRequest) (RollForwardResult, error) {
	if req.ChannelID == 0 {
		return RollForwardResult{}, &ValidationError{Field: "channelId"}
	}
	if req.From.IsZero() {
		return RollForwardResult{}, &ValidationError{Field: "from"}
	}
	if req.To.IsZero() {
		return RollForwardResult{}, &ValidationError{Field: "to"}
	}
	if req.AddDays <= 0 {
		return RollForwardResult{}, &ValidationError{Field: "addDays"}
	}

	source, err := s.store.RangeAsc(ctx, req.ChannelID, req.From, req.To)
	if err != nil {
		return RollForwardResult{}, fmt.Errorf("fetch source window: %w", err)
	}
	if len(source) == 0 {
		return RollForwardResult{}, nil
	}

	// Whole-day offset applied uniformly to every row.
	offset := time.Duration(req.AddDays) * 24 * time.Hour
	rows := make([]Program, len(source))
	for i, p := range source {
		p.ID = 0
		p.Start = p.Start.Add(offset)
		rows[i] = p
	}

	var inserted int
	if req.Replace {
		inserted, err = s.store.ReplaceRange(ctx, req.ChannelID, req.From.Add(offset), req.To.Add(offset), rows)
	} else {
		inserted, err = s.store.InsertPrograms(ctx, rows)
	}
	if err != nil {
		return RollForwardResult{}, fmt.Errorf("insert translated rows: %w", err)
	}

	if s.metrics != nil {
		s.metrics.AddReplicatedRows(inserted)
	}
	s.log.Info("schedule rolled forward",
		"channel_id", int64(req.ChannelID),
		"add_days", req.AddDays,
		"replace", req.Replace,
		"rows", inserted,
	)
	return RollForwardResult{Inserted: inserted, Rows: rows}, nil
}
