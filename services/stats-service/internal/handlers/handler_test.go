package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/stats"
	"github.com/segmentio/kafka-go"
)

type fakeStore struct {
	days       []meeting.ScheduleDay
	changed    bool
	stored     map[time.Time]*stats.MonthStats
	saved      []stats.MonthStats
	visits     []time.Time
	customers  []time.Time
	sinceCalls int
}

func (f *fakeStore) MonthDays(context.Context, string, time.Time, time.Time) ([]meeting.ScheduleDay, error) {
	return f.days, nil
}

func (f *fakeStore) ChangedSince(context.Context, string, time.Time, time.Time, time.Time) (bool, error) {
	f.sinceCalls++
	return f.changed, nil
}

func (f *fakeStore) MonthStats(_ context.Context, _ string, month time.Time) (*stats.MonthStats, error) {
	return f.stored[stats.MonthStart(month)], nil
}

func (f *fakeStore) SaveMonthStats(_ context.Context, _ string, s stats.MonthStats) (stats.MonthStats, error) {
	f.saved = append(f.saved, s)
	return s, nil
}

func (f *fakeStore) IncrementSiteVisit(_ context.Context, _ string, month time.Time) error {
	f.visits = append(f.visits, month)
	return nil
}

func (f *fakeStore) IncrementNewCustomers(_ context.Context, _ string, month time.Time) error {
	f.customers = append(f.customers, month)
	return nil
}

var testNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func newTestHandler(store Store) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger, Config{Location: time.UTC, Now: func() time.Time { return testNow }})
}

type monthResponse struct {
	Success    bool             `json:"success"`
	Stats      stats.MonthStats `json:"stats"`
	FromMemory bool             `json:"fromMemory"`
}

func getMonth(t *testing.T, h *Handler, target string) monthResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(httpx.BusinessIDHeader, "biz-1")
	rec := httptest.NewRecorder()
	h.Month(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var out monthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestMonthServesStoredRecordWhenUnchanged(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{stored: map[time.Time]*stats.MonthStats{
		march: {Date: march, Income: 42, SiteVisit: 5},
	}}
	h := newTestHandler(store)

	out := getMonth(t, h, "/api/v1/stats/month?date=2024-03-15&previous_call=2024-03-19T00:00:00Z")
	if !out.FromMemory || out.Stats.Income != 42 {
		t.Fatalf("response = %+v", out)
	}
	if len(store.saved) != 0 {
		t.Fatalf("stored record should not be rewritten")
	}
}

func TestMonthRecomputesAndKeepsCounters(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		changed: true,
		stored: map[time.Time]*stats.MonthStats{
			march: {Date: march, SiteVisit: 9, NewCustomers: 2},
			feb:   {Date: feb, Income: 100},
		},
		days: []meeting.ScheduleDay{{
			Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Meetings: []meeting.Meeting{
				{Start: "2024-03-04T09:00:00Z", DurationInMinutes: 30, Price: 120},
				{Start: "2024-03-04T00:00:00Z", DurationInMinutes: meeting.BlockOffDuration, Price: 999},
			},
		}},
	}
	h := newTestHandler(store)

	out := getMonth(t, h, "/api/v1/stats/month?date=2024-03-15&previous_call=1710806400000")
	if out.FromMemory {
		t.Fatalf("expected a recompute")
	}
	s := out.Stats
	if s.Income != 120 || s.MeetingNum != 1 || s.SiteVisit != 9 || s.NewCustomers != 2 {
		t.Fatalf("stats = %+v", s)
	}
	if len(s.Last5Month) != 1 || s.Last5Month[0].Income != 100 {
		t.Fatalf("last5month = %+v", s.Last5Month)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.saved))
	}
}

func TestMonthWithoutPreviousCallAlwaysRecomputes(t *testing.T) {
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{stored: map[time.Time]*stats.MonthStats{march: {Date: march}}}
	h := newTestHandler(store)

	out := getMonth(t, h, "/api/v1/stats/month")
	if out.FromMemory || store.sinceCalls != 0 {
		t.Fatalf("fromMemory=%v sinceCalls=%d", out.FromMemory, store.sinceCalls)
	}
	if !out.Stats.Date.Equal(march) {
		t.Fatalf("month = %v, want current month", out.Stats.Date)
	}
}

func TestMonthRejectsBadQuery(t *testing.T) {
	h := newTestHandler(&fakeStore{})
	for _, target := range []string{
		"/api/v1/stats/month?date=march",
		"/api/v1/stats/month?previous_call=yesterday",
	} {
		rec := httptest.NewRecorder()
		h.Month(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", target, rec.Code)
		}
	}
}

func TestSiteVisitIncrementsCurrentMonth(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	h.SiteVisit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/site-visit?id=biz-1", nil))
	if rec.Code != http.StatusOK || len(store.visits) != 1 || !store.visits[0].Equal(testNow) {
		t.Fatalf("status=%d visits=%v", rec.Code, store.visits)
	}

	rec = httptest.NewRecorder()
	h.SiteVisit(rec, httptest.NewRequest(http.MethodPost, "/api/v1/public/site-visit", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing id status = %d", rec.Code)
	}
}

func TestCustomerCreatedCountsEventMonth(t *testing.T) {
	store := &fakeStore{}
	h := newTestHandler(store)
	created := time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(events.CustomerCreated{BusinessID: "biz-1", CreatedAt: created})

	if err := h.CustomerCreated(context.Background(), kafka.Message{Value: payload}); err != nil {
		t.Fatalf("CustomerCreated: %v", err)
	}
	if len(store.customers) != 1 || !store.customers[0].Equal(created) {
		t.Fatalf("customers = %v", store.customers)
	}

	if err := h.CustomerCreated(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("bad payload should be dropped, got %v", err)
	}
	if len(store.customers) != 1 {
		t.Fatalf("bad payload was counted")
	}
}
