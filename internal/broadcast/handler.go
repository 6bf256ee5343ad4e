package broadcast

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"telecast/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	defaultGuideLookBack  = 2 * time.Hour
	defaultGuideLookAhead = 6 * time.Hour
)

// Handler exposes the schedule engine over HTTP using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording.
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// RequireAdmin returns middleware that rejects requests whose bearer token
// does not match the server-held secret. The comparison is constant time.
// An empty secret fails closed: no token can ever match.
func RequireAdmin(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if secret == "" || token == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing or invalid admin credential"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type upsertChannelRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	AlwaysLive bool   `json:"alwaysLive"`
	LiveRef    string `json:"liveRef"`
	Enabled    *bool  `json:"enabled"`
}

// UpsertChannel handles PUT /channels/{channel_id}.
func (h *Handler) UpsertChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := channelParam(w, r)
	if !ok {
		return
	}

	var req upsertChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required field: name", "field": "name"})
		return
	}

	ch := Channel{
		ID:         id,
		Name:       req.Name,
		Slug:       req.Slug,
		AlwaysLive: req.AlwaysLive,
		LiveRef:    req.LiveRef,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.svc.store.UpsertChannel(r.Context(), ch); err != nil {
		h.log.Error("upsert channel failed", slog.Int64("channel_id", int64(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Info("channel upserted", slog.Int64("channel_id", int64(id)), slog.String("name", req.Name))
	writeJSON(w, http.StatusOK, ch)
}

type buildScheduleRequest struct {
	Day         string         `json:"day"`
	BaseTimeUTC string         `json:"baseTimeUTC"`
	Rows        []SegmentInput `json:"rows"`
}

// BuildSchedule handles POST /channels/{channel_id}/schedule.
// Body: { "day": "2026-03-01", "baseTimeUTC": "2026-03-01T00:00:00Z",
// "rows": [{ "title": ..., "mediaRef": ..., "durationSeconds": ... }] }.
func (h *Handler) BuildSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := channelParam(w, r)
	if !ok {
		return
	}

	var req buildScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid schedule body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	build := BuildRequest{ChannelID: id, Segments: req.Rows}
	if req.Day != "" {
		day, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid day, want YYYY-MM-DD", "field": "day"})
			return
		}
		build.Day = day
	}
	if req.BaseTimeUTC != "" {
		base, err := time.Parse(time.RFC3339, req.BaseTimeUTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid baseTimeUTC, want RFC 3339", "field": "baseTimeUTC"})
			return
		}
		build.Base = base
	}

	n, err := h.svc.BuildDay(r.Context(), build)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		h.log.Error("build schedule failed", slog.Int64("channel_id", int64(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"rowsWritten": n})
}

type rollForwardRequest struct {
	From         string `json:"from"`
	To           string `json:"to"`
	AddDays      int    `json:"addDays"`
	ReplaceDates bool   `json:"replaceDates"`
}

// RollForward handles POST /channels/{channel_id}/rollforward.
func (h *Handler) RollForward(w http.ResponseWriter, r *http.Request) {
	id, ok := channelParam(w, r)
	if !ok {
		return
	}

	var req rollForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	roll := RollForwardRequest{ChannelID: id, AddDays: req.AddDays, Replace: req.ReplaceDates}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from, want RFC 3339", "field": "from"})
			return
		}
		roll.From = from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to, want RFC 3339", "field": "to"})
			return
		}
		roll.To = to
	}

	result, err := h.svc.RollForward(r.Context(), roll)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error(), "field": verr.Field})
			return
		}
		h.log.Error("roll forward failed", slog.Int64("channel_id", int64(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ResolveNow handles GET /channels/{channel_id}/now.
func (h *Handler) ResolveNow(w http.ResponseWriter, r *http.Request) {
	id, ok := channelParam(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ResolveNow(r.Context(), id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.log.Error("resolve failed", slog.Int64("channel_id", int64(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Guide handles GET /guide?look_back=2h&look_ahead=6h.
func (h *Handler) Guide(w http.ResponseWriter, r *http.Request) {
	lookBack, ok := durationQuery(w, r, "look_back", defaultGuideLookBack)
	if !ok {
		return
	}
	lookAhead, ok := durationQuery(w, r, "look_ahead", defaultGuideLookAhead)
	if !ok {
		return
	}

	guide, err := h.svc.Guide(r.Context(), lookBack, lookAhead, time.Now().UTC())
	if err != nil {
		h.log.Error("guide failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channels": guide})
}

func channelParam(w http.ResponseWriter, r *http.Request) (ChannelID, bool) {
	raw := chi.URLParam(r, "channel_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid channel id"})
		return 0, false
	}
	return ChannelID(id), true
}

func durationQuery(w http.ResponseWriter, r *http.Request, name string, fallback time.Duration) (time.Duration, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid duration: " + name})
		return 0, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
