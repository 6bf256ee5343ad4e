package broadcast

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Session tracks one viewer's observed state per channel: which program
// they believe is on air and which steady state the channel is in. It is
// the client-side half of the resolution engine.
//
// Overlapping resolution triggers for the same channel (a foreground tick
// firing while an end-of-media event fires) collapse into one store pass
// through a single-flight group, so a viewer never sees a double player
// reload. A resolution completing after the viewer tuned away is discarded
// via ErrStaleResolution instead of being applied to the new channel.
type Session struct {
	svc *Service
	sf  singleflight.Group
	now func() time.Time

	mu         sync.Mutex
	active     ChannelID
	foreground bool
	states     map[ChannelID]*viewState
}

type viewState struct {
	state   State
	program Program
	settled bool
}

// Update is the outcome of one resolution pass. Changed reports whether
// the program actually changed (by id and canonical media identity);
// re-resolving to the same program must not restart playback.
type Update struct {
	Resolution
	Changed bool
}

// NewSession returns a Session in the foreground with no channel tuned.
func NewSession(svc *Service) *Session {
	return &Session{
		svc:        svc,
		now:        time.Now,
		foreground: true,
		states:     make(map[ChannelID]*viewState),
	}
}

// Tune switches the session to the given channel and resolves it. The
// channel enters Loading until the resolution lands.
func (s *Session) Tune(ctx context.Context, id ChannelID) (Update, error) {
	s.mu.Lock()
	s.active = id
	s.states[id] = &viewState{state: StateLoading}
	s.mu.Unlock()

	return s.resolve(ctx, id)
}

// MediaEnded re-resolves the active channel immediately after the current
// media signals natural completion, so the next program starts without
// waiting for a timer.
func (s *Session) MediaEnded(ctx context.Context) (Update, error) {
	s.mu.Lock()
	id := s.active
	s.mu.Unlock()
	if id == 0 {
		return Update{}, ErrStaleResolution
	}
	return s.resolve(ctx, id)
}

// Tick is the periodic re-resolution hook. It is a no-op while the session
// is backgrounded; polling while hidden wastes store reads for a player
// nobody is watching. The second return reports whether a pass ran.
func (s *Session) Tick(ctx context.Context) (Update, bool, error) {
	s.mu.Lock()
	id := s.active
	fg := s.foreground
	s.mu.Unlock()
	if !fg || id == 0 {
		return Update{}, false, nil
	}
	up, err := s.resolve(ctx, id)
	return up, err == nil, err
}

// SetForeground records whether the consuming surface is visible.
func (s *Session) SetForeground(v bool) {
	s.mu.Lock()
	s.foreground = v
	s.mu.Unlock()
}

// Current returns the last applied resolution for the active channel.
func (s *Session) Current() (Program, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[s.active]
	if !ok || !st.settled {
		return Program{}, StateLoading, false
	}
	return st.program, st.state, true
}

func (s *Session) resolve(ctx context.Context, id ChannelID) (Update, error) {
	key := strconv.FormatInt(int64(id), 10)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		res, err := s.svc.ResolveNow(ctx, id, s.now())
		if err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return Update{}, err
	}
	res := v.(Resolution)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Guard by channel id, not a boolean: the viewer may have tuned away
	// while this resolution was in flight.
	if s.active != id {
		return Update{}, ErrStaleResolution
	}

	prev := s.states[id]
	changed := prev == nil || !prev.settled || !SameProgram(prev.program, res.Program)
	s.states[id] = &viewState{state: res.State, program: res.Program, settled: true}

	return Update{Resolution: res, Changed: changed}, nil
}
