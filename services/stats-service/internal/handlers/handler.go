package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/stats"
	"github.com/segmentio/kafka-go"
)

type Store interface {
	MonthDays(ctx context.Context, businessID string, from, to time.Time) ([]meeting.ScheduleDay, error)
	ChangedSince(ctx context.Context, businessID string, from, to, since time.Time) (bool, error)
	MonthStats(ctx context.Context, businessID string, month time.Time) (*stats.MonthStats, error)
	SaveMonthStats(ctx context.Context, businessID string, s stats.MonthStats) (stats.MonthStats, error)
	IncrementSiteVisit(ctx context.Context, businessID string, month time.Time) error
	IncrementNewCustomers(ctx context.Context, businessID string, month time.Time) error
}

type Config struct {
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.Stats
}

type Handler struct {
	store   Store
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Stats
}

func New(store Store, logger *slog.Logger, cfg Config) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{store: store, logger: logger, loc: cfg.Location, now: cfg.Now, metrics: cfg.Metrics}
}

// Month handles GET /api/v1/stats/month?date=&previous_call=.
//
// When previous_call is given, no day of the month changed after it and a stored record exists,
// the stored record is returned as is. Otherwise the month is recomputed and saved.
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz := strings.TrimSpace(r.Header.Get(httpx.BusinessIDHeader))
	q := r.URL.Query()

	month := stats.MonthStart(h.now().In(h.loc))
	if raw := q.Get("date"); raw != "" {
		d, err := parseDate(raw, h.loc)
		if err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, "invalid date")
			return
		}
		month = stats.MonthStart(d)
	}
	var since time.Time
	if raw := q.Get("previous_call"); raw != "" {
		t, err := parseInstant(raw)
		if err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, "invalid previous_call")
			return
		}
		since = t
	}

	ctx := r.Context()
	from, to := month, stats.MonthEnd(month)
	existing, err := h.store.MonthStats(ctx, biz, month)
	if err != nil {
		h.fail(w, "load month stats", err)
		return
	}
	if existing != nil && !since.IsZero() {
		changed, err := h.store.ChangedSince(ctx, biz, from, to, since)
		if err != nil {
			h.fail(w, "changed since", err)
			return
		}
		if !changed {
			h.metrics.CacheHit()
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "stats": existing, "fromMemory": true})
			return
		}
	}

	saved, err := h.recompute(ctx, biz, month, existing)
	h.metrics.ObserveAggregation(err)
	if err != nil {
		h.fail(w, "recompute month", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "stats": saved, "fromMemory": false})
}

func (h *Handler) recompute(ctx context.Context, biz string, month time.Time, existing *stats.MonthStats) (stats.MonthStats, error) {
	days, err := h.store.MonthDays(ctx, biz, month, stats.MonthEnd(month))
	if err != nil {
		return stats.MonthStats{}, err
	}
	previous, err := h.store.MonthStats(ctx, biz, stats.PreviousMonth(month))
	if err != nil {
		return stats.MonthStats{}, err
	}
	computed := stats.Merge(existing, stats.AggregateMonth(month, days, previous))
	return h.store.SaveMonthStats(ctx, biz, computed)
}

// SiteVisit handles POST /api/v1/public/site-visit?id=.
func (h *Handler) SiteVisit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz := strings.TrimSpace(r.URL.Query().Get("id"))
	if biz == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "id is required")
		return
	}
	err := h.store.IncrementSiteVisit(r.Context(), biz, h.now().In(h.loc))
	h.metrics.ObserveIncrement("site_visit", err)
	if err != nil {
		h.fail(w, "site visit", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CustomerCreated counts a new customer for the month the customer was created in.
// Undecodable events are logged and dropped.
func (h *Handler) CustomerCreated(ctx context.Context, msg kafka.Message) error {
	var evt events.CustomerCreated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger.Error("invalid customer.created payload", "err", err, "offset", msg.Offset)
		return nil
	}
	if evt.BusinessID == "" {
		h.logger.Error("customer.created without business_id", "offset", msg.Offset)
		return nil
	}
	at := evt.CreatedAt
	if at.IsZero() {
		at = h.now()
	}
	err := h.store.IncrementNewCustomers(ctx, evt.BusinessID, at.In(h.loc))
	h.metrics.ObserveIncrement("new_customers", err)
	return err
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("stats request failed", "op", op, "err", err)
	httpx.WriteFailure(w, http.StatusInternalServerError, "internal error")
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// parseInstant accepts RFC 3339 or Unix milliseconds.
func parseInstant(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse instant %q: %w", s, err)
	}
	return t, nil
}
