package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/meeting"
	"github.com/md-rashed-zaman/slotbook/services/business-service/internal/storage"
)

type Store interface {
	Profile(ctx context.Context, businessID string) (storage.Profile, error)
	UpsertProfile(ctx context.Context, p storage.Profile) error
	CreateService(ctx context.Context, businessID string, s storage.Service) (string, error)
	ListServices(ctx context.Context, businessID string) ([]storage.Service, error)
	DeleteService(ctx context.Context, businessID, serviceID string) error
}

type Handler struct {
	repo   Store
	logger *slog.Logger
}

func New(repo Store, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func businessIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(httpx.BusinessIDHeader))
}

// Profile serves GET and PUT /api/v1/business/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := h.repo.Profile(r.Context(), businessID)
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteFailure(w, http.StatusNotFound, "business not found")
			return
		}
		if err != nil {
			h.logger.Error("load profile failed", "err", err, "business_id", businessID)
			http.Error(w, "failed to load profile", http.StatusInternalServerError)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "business": p})
	case http.MethodPut:
		var req storage.Profile
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		req.BusinessID = businessID
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			httpx.WriteFailure(w, http.StatusBadRequest, "businessName is required")
			return
		}
		if err := validateHours(req.OpenHours); err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.OpenHours == nil {
			req.OpenHours = []meeting.OpenHours{}
		}
		if err := h.repo.UpsertProfile(r.Context(), req); err != nil {
			h.logger.Error("update profile failed", "err", err, "business_id", businessID)
			http.Error(w, "failed to update profile", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

var weekdays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

func validateHours(hours []meeting.OpenHours) error {
	seen := map[string]bool{}
	for _, oh := range hours {
		day := strings.ToLower(oh.DayOfWeek)
		if !weekdays[day] {
			return errors.New("invalid dayOfWeek " + oh.DayOfWeek)
		}
		if seen[day] {
			return errors.New("duplicate dayOfWeek " + oh.DayOfWeek)
		}
		seen[day] = true
		if !oh.IsActive {
			continue
		}
		if _, _, err := meeting.ParseClock(oh.StartTime); err != nil {
			return err
		}
		if _, _, err := meeting.ParseClock(oh.EndTime); err != nil {
			return err
		}
	}
	return nil
}

// Services serves GET and POST /api/v1/business/services.
func (h *Handler) Services(w http.ResponseWriter, r *http.Request) {
	businessID := businessIDFromHeader(r)
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		services, err := h.repo.ListServices(r.Context(), businessID)
		if err != nil {
			h.logger.Error("list services failed", "err", err, "business_id", businessID)
			http.Error(w, "failed to list services", http.StatusInternalServerError)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "services": services})
	case http.MethodPost:
		var req storage.Service
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Description = strings.TrimSpace(req.Description)
		if req.Name == "" || req.DurationMinutes <= 0 {
			httpx.WriteFailure(w, http.StatusBadRequest, "name and durationInMinutes required")
			return
		}
		id, err := h.repo.CreateService(r.Context(), businessID, req)
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteFailure(w, http.StatusNotFound, "business profile missing")
			return
		}
		if err != nil {
			h.logger.Error("create service failed", "err", err, "business_id", businessID)
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// DeleteService serves POST /api/v1/business/services/delete?id=.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID := businessIDFromHeader(r)
	serviceID := strings.TrimSpace(r.URL.Query().Get("id"))
	if businessID == "" || serviceID == "" {
		http.Error(w, "missing business or service id", http.StatusBadRequest)
		return
	}
	err := h.repo.DeleteService(r.Context(), businessID, serviceID)
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteFailure(w, http.StatusNotFound, "service not found")
		return
	}
	if err != nil {
		h.logger.Error("delete service failed", "err", err, "business_id", businessID)
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
