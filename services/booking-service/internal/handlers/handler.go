package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Store is the persistence the booking handlers need.
type Store interface {
	DayMeetings(ctx context.Context, businessID string, day time.Time) ([]meeting.Meeting, error)
	AddMeeting(ctx context.Context, businessID string, m meeting.Meeting, loc *time.Location) error
	DeleteMeeting(ctx context.Context, businessID string, start time.Time) (meeting.Meeting, error)
	ConfirmMeeting(ctx context.Context, businessID string, start time.Time) (meeting.Meeting, error)
	AddVacation(ctx context.Context, businessID string, from, to time.Time) (int, error)
	AddWebsiteMeeting(ctx context.Context, businessID string, m meeting.Meeting, loc *time.Location, tzOffsetMinutes int) (bool, error)
	Business(ctx context.Context, id string) (storage.Business, error)
	Services(ctx context.Context, businessID string) ([]storage.Service, error)
	AddContactMessage(ctx context.Context, msg storage.ContactMessage) error
	Notifications(ctx context.Context, businessID string) ([]storage.Notification, error)
}

type Config struct {
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.Booking
}

type Handler struct {
	store   Store
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
	metrics *metrics.Booking
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

type meetingRequest struct {
	Meeting meeting.Meeting `json:"meeting"`
}

// decodeMeeting reads {"meeting": {...}} and returns the meeting with its parsed start.
func (h *Handler) decodeMeeting(w http.ResponseWriter, r *http.Request) (meeting.Meeting, time.Time, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return meeting.Meeting{}, time.Time{}, false
	}
	var req meetingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return meeting.Meeting{}, time.Time{}, false
	}
	start, err := meeting.ParseStart(req.Meeting.Start, h.loc)
	if err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return meeting.Meeting{}, time.Time{}, false
	}
	return req.Meeting, start, true
}

func businessID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.BusinessIDHeader))
}

// writeStoreError maps storage errors to the response envelope.
func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrMeetingNotFound):
		httpx.WriteFailure(w, http.StatusNotFound, storage.ErrMeetingNotFound.Error())
	case errors.Is(err, storage.ErrNotFound):
		httpx.WriteFailure(w, http.StatusNotFound, "not found")
	case errors.Is(err, meeting.ErrInvalidStart):
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("booking store error", "op", op, "err", err)
		httpx.WriteFailure(w, http.StatusInternalServerError, "internal error")
	}
}
