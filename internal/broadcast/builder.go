package broadcast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// SegmentInput is one authoring segment. MediaRef and DurationSeconds are
// pointers so a missing field can be told apart from a zero value; both
// are required.
type SegmentInput struct {
	Title           string   `json:"title"`
	MediaRef        *string  `json:"mediaRef"`
	DurationSeconds *float64 `json:"durationSeconds"`
	PosterRef       string   `json:"posterRef,omitempty"`
	SortIndex       *int     `json:"sortIndex,omitempty"`
}

// BuildRequest is the Schedule Builder input: an ordered list of segments
// whose start times are chained from Base for the given UTC day.
type BuildRequest struct {
	ChannelID ChannelID
	Day       time.Time
	Base      time.Time
	Segments  []SegmentInput
}

// BuildDay converts segments with known durations into absolute start
// times by chaining from the base instant, then atomically replaces all
// rows for the (channel, day). Returns the number of rows written.
//
// Chaining treats an invalid duration as 0 so the following segment starts
// at the same instant, but the raw value is stored untouched; coercion to
// the default duration happens at resolution time, not here.
func (s *Service) BuildDay(ctx context.Context, req BuildRequest) (int, error) {
	if req.ChannelID == 0 {
		return 0, &ValidationError{Field: "channelId"}
	}
	if req.Day.IsZero() {
		return 0, &ValidationError{Field: "day"}
	}
	if req.Base.IsZero() {
		return 0, &ValidationError{Field: "baseTimeUTC"}
	}
	if len(req.Segments) == 0 {
		return 0, &ValidationError{Field: "rows"}
	}
	for i, seg := range req.Segments {
		if seg.MediaRef == nil {
			return 0, &ValidationError{Field: fmt.Sprintf("rows[%d].mediaRef", i)}
		}
		if seg.DurationSeconds == nil {
			return 0, &ValidationError{Field: fmt.Sprintf("rows[%d].durationSeconds", i)}
		}
	}

	ordered := make([]SegmentInput, len(req.Segments))
	copy(ordered, req.Segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sortIndex(ordered[i]) < sortIndex(ordered[j])
	})

	clock := req.Base.UTC()
	rows := make([]Program, 0, len(ordered))
	for _, seg := range ordered {
		d := *seg.DurationSeconds
		rows = append(rows, Program{
			ChannelID:       req.ChannelID,
			Start:           clock,
			DurationSeconds: d,
			Title:           seg.Title,
			MediaRef:        *seg.MediaRef,
			PosterRef:       seg.PosterRef,
		})
		clock = clock.Add(time.Duration(chainSeconds(d) * float64(time.Second)))
	}

	n, err := s.store.ReplaceDay(ctx, req.ChannelID, req.Day, rows)
	if err != nil {
		return 0, fmt.Errorf("replace day: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AddScheduleRows(n)
	}
	s.log.Info("schedule day replaced",
		"channel_id", int64(req.ChannelID),
		"day", req.Day.UTC().Format("2006-01-02"),
		"rows", n,
	)
	return n, nil
}

func sortIndex(seg SegmentInput) int {
	if seg.SortIndex == nil {
		return 0
	}
	return *seg.SortIndex
}

// chainSeconds is the duration used to advance the running clock: invalid
// values contribute nothing to the chain.
func chainSeconds(d float64) float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 || d > MaxDurationSeconds {
		return 0
	}
	return d
}
