package broadcast

import (
	"context"
	"sort"
	"time"
)

// ChannelGuide is one row of the browsing grid: what a channel is showing
// now and the two programs after that. Any of the three may be nil.
type ChannelGuide struct {
	Channel Channel  `json:"channel"`
	Current *Program `json:"current,omitempty"`
	Next    *Program `json:"next,omitempty"`
	Later   *Program `json:"later,omitempty"`
}

// Guide projects the resolver's liveness logic breadth-first across all
// enabled channels over the window [now-lookBack, now+lookAhead].
// Channels are ordered by their numeric id. A failing row query skips that
// channel's programs rather than failing the whole grid.
func (s *Service) Guide(ctx context.Context, lookBack, lookAhead time.Duration, now time.Time) ([]ChannelGuide, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	lo := now.Add(-lookBack)
	hi := now.Add(lookAhead)

	out := make([]ChannelGuide, 0, len(channels))
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		entry := ChannelGuide{Channel: ch}
		if ch.AlwaysLive {
			p := liveProgram(ch, now)
			entry.Current = &p
			out = append(out, entry)
			continue
		}

		rows, err := s.channelWindow(ctx, ch.ID, lo, hi)
		if err != nil {
			s.log.Error("guide window query failed",
				"channel_id", int64(ch.ID),
				"error", err.Error(),
			)
			out = append(out, entry)
			continue
		}
		entry.Current, entry.Next, entry.Later = pickNowNextLater(s, rows, now)
		out = append(out, entry)
	}
	return out, nil
}

// channelWindow fetches the channel's rows in [lo, hi]. If the UTC-bounded
// query yields nothing, it retries with the bounds shifted by the server's
// local UTC offset, tolerating schedules authored from naive local
// timestamps.
func (s *Service) channelWindow(ctx context.Context, id ChannelID, lo, hi time.Time) ([]Program, error) {
	rows, err := s.store.RangeAsc(ctx, id, lo, hi)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	_, offset := time.Now().Zone()
	if offset == 0 {
		return rows, nil
	}
	shift := time.Duration(offset) * time.Second
	return s.store.RangeAsc(ctx, id, lo.Add(shift), hi.Add(shift))
}

// pickNowNextLater walks a channel's sorted rows and selects the row
// satisfying the shared liveness test (latest start wins, matching the
// resolver), the first row after it starting later than now, and the one
// after that.
func pickNowNextLater(s *Service, rows []Program, now time.Time) (current, next, later *Program) {
	for i := range rows {
		rows[i] = rows[i].normalized()
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })

	curIdx := -1
	for i := len(rows) - 1; i >= 0; i-- {
		if s.liveAt(rows[i], now) {
			curIdx = i
			break
		}
	}
	if curIdx < 0 {
		// Latest row at or before now.
		for i := len(rows) - 1; i >= 0; i-- {
			if !rows[i].Start.After(now) {
				curIdx = i
				break
			}
		}
	}
	if curIdx >= 0 {
		current = &rows[curIdx]
	}

	for i := curIdx + 1; i < len(rows); i++ {
		if !rows[i].Start.After(now) {
			continue
		}
		if next == nil {
			next = &rows[i]
			continue
		}
		later = &rows[i]
		break
	}
	return current, next, later
}
