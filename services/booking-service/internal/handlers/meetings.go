package handlers

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
)

// AddMeeting handles POST /api/v1/meetings.
func (h *Handler) AddMeeting(w http.ResponseWriter, r *http.Request) {
	m, _, ok := h.decodeMeeting(w, r)
	if !ok {
		return
	}
	if m.DurationInMinutes <= 0 {
		httpx.WriteFailure(w, http.StatusBadRequest, "durationInMinutes must be positive")
		return
	}
	err := h.store.AddMeeting(r.Context(), businessID(r), m, h.loc)
	h.metrics.ObserveWrite("add", err)
	if err != nil {
		h.writeStoreError(w, "add", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteMeeting handles POST /api/v1/meetings/delete.
func (h *Handler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	_, start, ok := h.decodeMeeting(w, r)
	if !ok {
		return
	}
	_, err := h.store.DeleteMeeting(r.Context(), businessID(r), start)
	h.metrics.ObserveWrite("delete", err)
	if err != nil {
		h.writeStoreError(w, "delete", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ConfirmMeeting handles POST /api/v1/meetings/confirm.
func (h *Handler) ConfirmMeeting(w http.ResponseWriter, r *http.Request) {
	_, start, ok := h.decodeMeeting(w, r)
	if !ok {
		return
	}
	m, err := h.store.ConfirmMeeting(r.Context(), businessID(r), start)
	h.metrics.ObserveWrite("confirm", err)
	if err != nil {
		h.writeStoreError(w, "confirm", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "meeting": m})
}

type vacationRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// AddVacation handles POST /api/v1/vacations.
func (h *Handler) AddVacation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req vacationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseDay(req.StartDate, h.loc)
	if err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid start_date")
		return
	}
	to, err := parseDay(req.EndDate, h.loc)
	if err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, "invalid end_date")
		return
	}
	if to.Before(from) {
		httpx.WriteFailure(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}
	if to.Sub(from) > 366*24*time.Hour {
		httpx.WriteFailure(w, http.StatusBadRequest, "vacation longer than a year")
		return
	}

	days, err := h.store.AddVacation(r.Context(), businessID(r), from, to)
	h.metrics.ObserveWrite("vacation", err)
	if err != nil {
		h.writeStoreError(w, "vacation", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "days": days})
}

// Notifications handles GET /api/v1/notifications.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := h.store.Notifications(r.Context(), businessID(r))
	if err != nil {
		h.writeStoreError(w, "notifications", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "notifications": list})
}

// parseDay accepts a plain date or an RFC 3339 timestamp and returns its date in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	t, err := meeting.ParseStart(s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return meeting.DateOnly(t), nil
}
