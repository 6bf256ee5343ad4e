package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrChannelNotFound is returned when a channel id has no catalog entry.
var ErrChannelNotFound = errors.New("channel not found")

// Store is the persistence contract for channels and schedule rows.
// Schedule rows are only ever written wholesale: a full (channel, day)
// replace, a full range replace, or an additive batch insert. No method
// mutates a row in place, which keeps authoring and resolution free of
// partial-update races.
type Store interface {
	UpsertChannel(ctx context.Context, ch Channel) error
	GetChannel(ctx context.Context, id ChannelID) (Channel, error)
	ListChannels(ctx context.Context) ([]Channel, error)

	// ReplaceDay atomically deletes all rows for the channel whose start
	// falls within the UTC day containing day, then inserts rows. A reader
	// never observes the deleted-but-not-reinserted state.
	ReplaceDay(ctx context.Context, id ChannelID, day time.Time, rows []Program) (int, error)

	// ReplaceRange atomically deletes all rows for the channel with start
	// in [lo, hi], then inserts rows.
	ReplaceRange(ctx context.Context, id ChannelID, lo, hi time.Time, rows []Program) (int, error)

	// InsertPrograms adds rows without deleting anything. Callers are
	// responsible for the duplicates this can create.
	InsertPrograms(ctx context.Context, rows []Program) (int, error)

	// StartedBefore returns up to limit rows with start <= now, most
	// recently started first.
	StartedBefore(ctx context.Context, id ChannelID, now time.Time, limit int) ([]Program, error)

	// UpcomingAfter returns up to limit rows with start > now, soonest
	// first.
	UpcomingAfter(ctx context.Context, id ChannelID, now time.Time, limit int) ([]Program, error)

	// RangeAsc returns all rows with start in [lo, hi], ascending.
	RangeAsc(ctx context.Context, id ChannelID, lo, hi time.Time) ([]Program, error)
}

// MemoryStore is a concurrency-safe in-memory Store. It backs tests and
// single-process development; production uses SQLiteStore.
type MemoryStore struct {
	mu       sync.RWMutex
	channels map[ChannelID]Channel
	programs map[ChannelID][]Program
	nextID   int64
}

// NewMemoryStore returns a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		channels: make(map[ChannelID]Channel),
		programs: make(map[ChannelID][]Program),
	}
}

// UpsertChannel implements Store.UpsertChannel.
func (s *MemoryStore) UpsertChannel(_ context.Context, ch Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.channels[ch.ID]; ok {
		ch.CreatedAt = existing.CreatedAt
	} else {
		ch.CreatedAt = now
	}
	ch.UpdatedAt = now
	s.channels[ch.ID] = ch
	return nil
}

// GetChannel implements Store.GetChannel.
func (s *MemoryStore) GetChannel(_ context.Context, id ChannelID) (Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[id]
	if !ok {
		return Channel{}, ErrChannelNotFound
	}
	return ch, nil
}

// ListChannels implements Store.ListChannels, ordered by id.
func (s *MemoryStore) ListChannels(_ context.Context) ([]Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ReplaceDay implements Store.ReplaceDay.
func (s *MemoryStore) ReplaceDay(_ context.Context, id ChannelID, day time.Time, rows []Program) (int, error) {
	lo := day.UTC().Truncate(24 * time.Hour)
	hi := lo.Add(24 * time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.programs[id][:0:0]
	for _, p := range s.programs[id] {
		if p.Start.Before(lo) || !p.Start.Before(hi) {
			kept = append(kept, p)
		}
	}
	s.programs[id] = s.appendLocked(kept, id, rows)
	return len(rows), nil
}

// ReplaceRange implements Store.ReplaceRange.
func (s *MemoryStore) ReplaceRange(_ context.Context, id ChannelID, lo, hi time.Time, rows []Program) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.programs[id][:0:0]
	for _, p := range s.programs[id] {
		if p.Start.Before(lo) || p.Start.After(hi) {
			kept = append(kept, p)
		}
	}
	s.programs[id] = s.appendLocked(kept, id, rows)
	return len(rows), nil
}

// InsertPrograms implements Store.InsertPrograms.
func (s *MemoryStore) InsertPrograms(_ context.Context, rows []Program) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range rows {
		s.programs[p.ChannelID] = s.appendLocked(s.programs[p.ChannelID], p.ChannelID, []Program{p})
	}
	return len(rows), nil
}

// StartedBefore implements Store.StartedBefore.
func (s *MemoryStore) StartedBefore(_ context.Context, id ChannelID, now time.Time, limit int) ([]Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Program
	for _, p := range s.programs[id] {
		if !p.Start.After(now) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpcomingAfter implements Store.UpcomingAfter.
func (s *MemoryStore) UpcomingAfter(_ context.Context, id ChannelID, now time.Time, limit int) ([]Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Program
	for _, p := range s.programs[id] {
		if p.Start.After(now) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RangeAsc implements Store.RangeAsc.
func (s *MemoryStore) RangeAsc(_ context.Context, id ChannelID, lo, hi time.Time) ([]Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Program
	for _, p := range s.programs[id] {
		if !p.Start.Before(lo) && !p.Start.After(hi) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// appendLocked copies rows in with fresh ids and the channel id stamped.
// Caller must hold s.mu in write mode.
func (s *MemoryStore) appendLocked(dst []Program, id ChannelID, rows []Program) []Program {
	for _, p := range rows {
		s.nextID++
		p.ID = s.nextID
		p.ChannelID = id
		dst = append(dst, p)
	}
	return dst
}
