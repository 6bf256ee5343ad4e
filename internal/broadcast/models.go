package broadcast

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ChannelID uniquely identifies a channel. Identifiers are numeric and
// stable for the lifetime of the channel.
type ChannelID int64

// Channel is a catalog entry viewers tune to. When AlwaysLive is set the
// schedule is bypassed entirely and LiveRef points at the external feed.
type Channel struct {
	ID         ChannelID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug,omitempty"`
	AlwaysLive bool      `json:"alwaysLive"`
	LiveRef    string    `json:"liveRef,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Program is one schedule row: a piece of pre-recorded content airing on a
// channel at an absolute instant. Rows are replaced wholesale per
// (channel, day); they are never mutated in place.
type Program struct {
	ID              int64     `json:"id"`
	ChannelID       ChannelID `json:"channelId"`
	Start           time.Time `json:"start"`
	DurationSeconds float64   `json:"durationSeconds"`
	Title           string    `json:"title,omitempty"`
	MediaRef        string    `json:"mediaRef"`
	PosterRef       string    `json:"posterRef,omitempty"`
}

// End returns the derived end instant, start + duration. Callers that need
// a trustworthy end time must normalize the duration first.
func (p Program) End() time.Time {
	return p.Start.Add(time.Duration(p.DurationSeconds * float64(time.Second)))
}

const (
	// DefaultDurationSeconds replaces any invalid stored duration at
	// resolution time.
	DefaultDurationSeconds = 1800.0

	// MaxDurationSeconds is the plausibility ceiling for a single row (24h).
	MaxDurationSeconds = 86400.0

	// StandbyDurationSeconds is the fixed length of the synthetic standby
	// program.
	StandbyDurationSeconds = 300.0

	// liveDurationSeconds is the length of the synthetic program returned
	// for always-live channels.
	liveDurationSeconds = 86400.0
)

// NormalizeDuration maps a stored duration onto the valid range (0, 86400].
// Non-finite, zero, negative, or implausibly large values become the
// default. Bad rows are normalized, never rejected: a broadcast must not go
// dark over malformed admin input.
func NormalizeDuration(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return DefaultDurationSeconds
	}
	if seconds <= 0 || seconds > MaxDurationSeconds {
		return DefaultDurationSeconds
	}
	return seconds
}

// normalized returns a copy of p with its duration passed through
// NormalizeDuration.
func (p Program) normalized() Program {
	p.DurationSeconds = NormalizeDuration(p.DurationSeconds)
	return p
}

// CanonicalMediaRef strips query and fragment from a media reference so
// that signed variants of the same underlying content compare equal.
// "a.mp4?sig=xyz" and "a.mp4?sig=abc" share one canonical identity.
func CanonicalMediaRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

// SameProgram reports whether two resolved rows represent the same airing:
// same stable identifier and same canonical media identity. A cosmetic
// change to a query parameter is not a program change.
func SameProgram(a, b Program) bool {
	return a.ID == b.ID && CanonicalMediaRef(a.MediaRef) == CanonicalMediaRef(b.MediaRef)
}

// StandbyProgram synthesizes the fallback row for a channel with nothing
// airable. It is never persisted; the media reference is derived
// deterministically from the channel id so every channel has a
// conventional standby clip.
func StandbyProgram(id ChannelID, now time.Time) Program {
	return Program{
		ChannelID:       id,
		Start:           now,
		DurationSeconds: StandbyDurationSeconds,
		Title:           "Standby",
		MediaRef:        fmt.Sprintf("standby/channel-%d.mp4", id),
	}
}

// liveProgram synthesizes the unconditional row for an always-live channel.
func liveProgram(ch Channel, now time.Time) Program {
	return Program{
		ChannelID:       ch.ID,
		Start:           now,
		DurationSeconds: liveDurationSeconds,
		Title:           ch.Name,
		MediaRef:        ch.LiveRef,
	}
}
