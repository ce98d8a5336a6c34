package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Slots handles GET /api/v1/public/slots.
//
// Query: business_id, date, service_duration, and optionally start_time, end_time and is_active.
// Without start_time/end_time the business's stored hours for that weekday are used.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	biz := strings.TrimSpace(q.Get("business_id"))
	if biz == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "business_id is required")
		return
	}
	day, err := parseDay(q.Get("date"), h.loc)
	if err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid date")
		return
	}
	duration, err := strconv.Atoi(q.Get("service_duration"))
	if err != nil || duration <= 0 {
		httpx.WriteFailure(w, http.StatusBadRequest, "service_duration must be a positive integer")
		return
	}

	hours, err := h.openHours(r, biz, day.Weekday().String())
	if errors.Is(err, errBadQuery) {
		h.metrics.ObserveSlots("invalid", 0)
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.metrics.ObserveSlots("error", 0)
		h.writeStoreError(w, "slots", err)
		return
	}
	if !hours.IsActive {
		h.metrics.ObserveSlots("closed", 0)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "timeSlotList": []string{}})
		return
	}

	meetings, err := h.store.DayMeetings(r.Context(), biz, day)
	if err != nil {
		h.metrics.ObserveSlots("error", 0)
		h.writeStoreError(w, "slots", err)
		return
	}
	slots, err := availability.GenerateSlots(day, duration, hours, meetings, h.now())
	if err != nil {
		h.metrics.ObserveSlots("invalid", 0)
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.ObserveSlots("ok", len(slots))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "timeSlotList": slots})
}

var errBadQuery = errors.New("invalid query")

func (h *Handler) openHours(r *http.Request, biz, weekday string) (meeting.OpenHours, error) {
	q := r.URL.Query()
	if start, end := q.Get("start_time"), q.Get("end_time"); start != "" || end != "" {
		active := true
		if v := q.Get("is_active"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return meeting.OpenHours{}, fmt.Errorf("%w: is_active must be true or false", errBadQuery)
			}
			active = b
		}
		return meeting.OpenHours{StartTime: start, EndTime: end, DayOfWeek: weekday, IsActive: active}, nil
	}

	b, err := h.store.Business(r.Context(), biz)
	if err != nil {
		return meeting.OpenHours{}, err
	}
	for _, oh := range b.OpenHours {
		if strings.EqualFold(oh.DayOfWeek, weekday) {
			return oh, nil
		}
	}
	return meeting.OpenHours{DayOfWeek: weekday}, nil
}

type websiteMeetingRequest struct {
	BusinessID     string          `json:"business_id"`
	Meeting        meeting.Meeting `json:"meeting"`
	OffsetTimeZone int             `json:"offset_time_zone"`
}

// WebsiteMeeting handles POST /api/v1/public/meetings.
func (h *Handler) WebsiteMeeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req websiteMeetingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if req.BusinessID == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "business_id is required")
		return
	}
	if req.Meeting.DurationInMinutes <= 0 {
		httpx.WriteFailure(w, http.StatusBadRequest, "durationInMinutes must be positive")
		return
	}
	if _, err := meeting.ParseStart(req.Meeting.Start, h.loc); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Meeting.Confirmed = false

	created, err := h.store.AddWebsiteMeeting(r.Context(), req.BusinessID, req.Meeting, h.loc, req.OffsetTimeZone)
	h.metrics.ObserveWrite("website", err)
	if err != nil {
		h.writeStoreError(w, "website meeting", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "meeting was added!", "newCustomer": created})
}

// Website handles GET /api/v1/public/website?id=.
func (h *Handler) Website(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "id is required")
		return
	}
	b, err := h.store.Business(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteFailure(w, http.StatusNotFound, "business not found")
		return
	}
	if err != nil {
		h.writeStoreError(w, "website", err)
		return
	}
	services, err := h.store.Services(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "website services", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"business": b, "services": services},
	})
}

type contactRequest struct {
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Message    string `json:"message"`
}

// ContactUs handles POST /api/v1/public/contact.
func (h *Handler) ContactUs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req contactRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "message is required")
		return
	}
	err := h.store.AddContactMessage(r.Context(), storage.ContactMessage{
		BusinessID: strings.TrimSpace(req.BusinessID),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Message:    req.Message,
	})
	if err != nil {
		h.writeStoreError(w, "contact", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ContactUs from website was added!"})
}
