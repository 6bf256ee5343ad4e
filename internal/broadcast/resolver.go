package broadcast

import (
	"context"
	"errors"
	"time"
)

// State is the client-observed condition a channel resolution lands in.
type State int

const (
	// StateLoading means no resolution has completed yet.
	StateLoading State = iota
	// StateLive means a row currently satisfies the liveness test.
	StateLive
	// StateNextScheduled means nothing covers now, so the next scheduled
	// row is shown early instead of going dark.
	StateNextScheduled
	// StateStaleFallback means only already-ended rows exist and the most
	// recent one is shown.
	StateStaleFallback
	// StateStandby means the synthetic standby clip is playing.
	StateStandby
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateNextScheduled:
		return "next-scheduled"
	case StateStaleFallback:
		return "stale-fallback"
	case StateStandby:
		return "standby"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state name on the wire.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Resolution is the answer to "what is on this channel right now".
// Degraded is set when a data-access failure forced a standby fallback;
// it is informational, never an error the viewer sees.
type Resolution struct {
	ChannelID  ChannelID `json:"channelId"`
	Program    Program   `json:"program"`
	State      State     `json:"state"`
	Degraded   bool      `json:"degraded,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// ResolveNow decides the single program airing on the channel at now.
//
// Always-live channels short-circuit: the schedule store is never queried
// and a synthetic long-duration program pointing at the external feed is
// returned unconditionally. Otherwise candidates are fetched in two
// bounded sets and the fallback ladder of candidate selection runs:
// currently-live (latest start wins on overlap), then next upcoming, then
// most recent started even if ended, then a non-empty-media rescue, then
// standby. Any store error degrades to standby so playback never halts.
func (s *Service) ResolveNow(ctx context.Context, id ChannelID, now time.Time) (Resolution, error) {
	ch, err := s.store.GetChannel(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			return Resolution{}, err
		}
		return s.degraded(id, now, err), nil
	}

	if ch.AlwaysLive {
		res := Resolution{
			ChannelID:  id,
			Program:    liveProgram(ch, now),
			State:      StateLive,
			ResolvedAt: now,
		}
		s.recordResolution(res)
		return res, nil
	}

	started, err := s.store.StartedBefore(ctx, id, now, startedFetchLimit)
	if err != nil {
		return s.degraded(id, now, err), nil
	}
	upcoming, err := s.store.UpcomingAfter(ctx, id, now, upcomingFetchLimit)
	if err != nil {
		return s.degraded(id, now, err), nil
	}

	for i := range started {
		started[i] = started[i].normalized()
	}
	for i := range upcoming {
		upcoming[i] = upcoming[i].normalized()
	}

	var chosen *Program

	// started is ordered by start descending, so on overlap the most
	// recently started row wins.
	for i := range started {
		if s.liveAt(started[i], now) {
			chosen = &started[i]
			break
		}
	}
	if chosen == nil && len(upcoming) > 0 {
		chosen = &upcoming[0]
	}
	if chosen == nil && len(started) > 0 {
		chosen = &started[0]
	}

	if chosen == nil || chosen.MediaRef == "" {
		if alt := firstPlayable(started, upcoming); alt != nil {
			chosen = alt
		}
	}

	if chosen == nil || chosen.MediaRef == "" {
		res := Resolution{
			ChannelID:  id,
			Program:    StandbyProgram(id, now),
			State:      StateStandby,
			ResolvedAt: now,
		}
		s.recordResolution(res)
		return res, nil
	}

	res := Resolution{
		ChannelID:  id,
		Program:    *chosen,
		State:      s.stateFor(*chosen, now),
		ResolvedAt: now,
	}
	s.recordResolution(res)
	return res, nil
}

// firstPlayable scans the started set then the upcoming set for the first
// row with a non-empty media reference.
func firstPlayable(started, upcoming []Program) *Program {
	for i := range started {
		if started[i].MediaRef != "" {
			return &started[i]
		}
	}
	for i := range upcoming {
		if upcoming[i].MediaRef != "" {
			return &upcoming[i]
		}
	}
	return nil
}

func (s *Service) stateFor(p Program, now time.Time) State {
	switch {
	case s.liveAt(p, now):
		return StateLive
	case p.Start.After(now):
		return StateNextScheduled
	default:
		return StateStaleFallback
	}
}

// degraded logs a data-access failure and falls back to standby. The
// viewer sees the standby clip, never the query error.
func (s *Service) degraded(id ChannelID, now time.Time, err error) Resolution {
	s.log.Error("resolution degraded to standby",
		"channel_id", int64(id),
		"error", err.Error(),
	)
	res := Resolution{
		ChannelID:  id,
		Program:    StandbyProgram(id, now),
		State:      StateStandby,
		Degraded:   true,
		ResolvedAt: now,
	}
	s.recordResolution(res)
	return res
}

func (s *Service) recordResolution(res Resolution) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncResolutions()
	if res.State == StateStandby {
		s.metrics.IncStandby()
	}
}
