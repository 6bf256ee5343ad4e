// Package resume is a small client-resident position cache: it remembers
// how far into a piece of media a viewer got so playback can be restored
// after a reload. Records are keyed by canonical media identity only; they
// have no relationship to schedule rows, no durability guarantee, and no
// cross-device sync.
package resume

import (
	"math"
	"strings"
	"sync"
	"time"
)

// Record is the stored playback position for one canonical media identity.
type Record struct {
	OffsetSeconds   float64 `json:"offsetSeconds"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	SavedAtEpochMs  int64   `json:"savedAtEpochMs"`
}

// Store is the key-value namespace records live in. Implementations:
// MemoryStore (tests) and FileStore (per-origin persistent file).
type Store interface {
	Get(key string) (Record, bool, error)
	Put(key string, rec Record) error
	Delete(key string) error
}

const (
	// minResumeSeconds: offsets at or below this are not worth restoring.
	minResumeSeconds = 5.0

	// tailMarginSeconds: offsets inside this margin before the end count
	// as finished, not resumable.
	tailMarginSeconds = 3.0

	// saveInterval throttles progress persistence to once per interval of
	// elapsed playback, not every frame.
	saveInterval = 10 * time.Second
)

// CanonicalKey strips the query string and fragment from a media
// reference. Two signed URLs for the same base path share one record:
// "a.mp4?sig=xyz" and "a.mp4?sig=abc" both key "a.mp4".
func CanonicalKey(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// Tracker applies the resume policy over a Store.
type Tracker struct {
	store Store
	now   func() time.Time

	mu        sync.Mutex
	lastSaved map[string]time.Time
}

// NewTracker returns a Tracker over store.
func NewTracker(store Store) *Tracker {
	return &Tracker{
		store:     store,
		now:       time.Now,
		lastSaved: make(map[string]time.Time),
	}
}

// ResumeOffset returns the offset playback should seek to, if any. The
// stored offset qualifies when it is finite, above the minimum threshold,
// and not inside the trailing margin of the known duration. Pass a
// non-positive durationSeconds when the total duration is unknown; the
// record's own stored duration is used instead if it has one.
func (t *Tracker) ResumeOffset(mediaRef string, durationSeconds float64) (float64, bool) {
	rec, ok, err := t.store.Get(CanonicalKey(mediaRef))
	if err != nil || !ok {
		return 0, false
	}

	off := rec.OffsetSeconds
	if math.IsNaN(off) || math.IsInf(off, 0) || off <= minResumeSeconds {
		return 0, false
	}

	dur := durationSeconds
	if dur <= 0 {
		dur = rec.DurationSeconds
	}
	if dur > 0 && off >= dur-tailMarginSeconds {
		return 0, false
	}
	return off, true
}

// Progress persists the current offset, at most once per save interval per
// canonical key. Call it from the playback position callback; the
// throttling makes per-frame calls cheap.
func (t *Tracker) Progress(mediaRef string, offsetSeconds, durationSeconds float64) error {
	key := CanonicalKey(mediaRef)
	now := t.now()

	t.mu.Lock()
	if last, ok := t.lastSaved[key]; ok && now.Sub(last) < saveInterval {
		t.mu.Unlock()
		return nil
	}
	t.lastSaved[key] = now
	t.mu.Unlock()

	return t.put(key, offsetSeconds, durationSeconds, now)
}

// Pause persists the current offset immediately, bypassing the throttle.
func (t *Tracker) Pause(mediaRef string, offsetSeconds, durationSeconds float64) error {
	key := CanonicalKey(mediaRef)
	now := t.now()

	t.mu.Lock()
	t.lastSaved[key] = now
	t.mu.Unlock()

	return t.put(key, offsetSeconds, durationSeconds, now)
}

// Complete deletes the record after natural completion so the next watch
// starts from the beginning.
func (t *Tracker) Complete(mediaRef string) error {
	key := CanonicalKey(mediaRef)

	t.mu.Lock()
	delete(t.lastSaved, key)
	t.mu.Unlock()

	return t.store.Delete(key)
}

func (t *Tracker) put(key string, offsetSeconds, durationSeconds float64, now time.Time) error {
	if math.IsNaN(offsetSeconds) || math.IsInf(offsetSeconds, 0) || offsetSeconds < 0 {
		return nil
	}
	return t.store.Put(key, Record{
		OffsetSeconds:   offsetSeconds,
		DurationSeconds: durationSeconds,
		SavedAtEpochMs:  now.UnixMilli(),
	})
}
