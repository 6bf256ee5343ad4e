package broadcast

import (
	"log/slog"
	"time"

	"telecast/internal/platform/metrics"
)

const (
	// DefaultDrift is the symmetric clock-skew tolerance applied to the
	// liveness test.
	DefaultDrift = 60 * time.Second

	// startedFetchLimit bounds the "already started" candidate fetch so
	// resolution stays O(1) regardless of catalog size.
	startedFetchLimit = 12

	// upcomingFetchLimit bounds the "upcoming" candidate fetch.
	upcomingFetchLimit = 6
)

// Service implements schedule authoring, roll-forward replication, live
// resolution, and guide projection over a Store.
type Service struct {
	store   Store
	log     *slog.Logger
	metrics *metrics.Metrics
	drift   time.Duration
}

// NewService returns a Service over store. Metrics may be nil to disable
// metric recording (e.g. in tests). If drift <= 0, DefaultDrift is used.
func NewService(store Store, log *slog.Logger, m *metrics.Metrics, drift time.Duration) *Service {
	if drift <= 0 {
		drift = DefaultDrift
	}
	return &Service{store: store, log: log, metrics: m, drift: drift}
}

// liveAt is the single liveness test shared by the resolver and the guide
// projector: a row is currently live iff now+drift >= start and
// now < end+drift. The duration must already be normalized.
func (s *Service) liveAt(p Program, now time.Time) bool {
	return !now.Add(s.drift).Before(p.Start) && now.Before(p.End().Add(s.drift))
}
