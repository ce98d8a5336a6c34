package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type UserStore interface {
	CreateOwner(ctx context.Context, u storage.User, businessName string) error
	CreateStaff(ctx context.Context, u storage.User) error
	ByEmail(ctx context.Context, email string) (storage.User, error)
}

type TokenIssuer interface {
	Issue(userID, businessID, role string) (string, time.Time, error)
	JWKS() []map[string]any
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
	logger *slog.Logger
	cost   int
}

func NewAuthHandler(users UserStore, tokens TokenIssuer, logger *slog.Logger, bcryptCost int) *AuthHandler {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthHandler{users: users, tokens: tokens, logger: logger, cost: bcryptCost}
}

type credentials struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	BusinessName string `json:"business_name,omitempty"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	BusinessID  string    `json:"business_id"`
	Role        string    `json:"role"`
}

func (c *credentials) validate() error {
	c.Email = storage.NormalizeEmail(c.Email)
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return errors.New("valid email required")
	}
	if len(c.Password) < minPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Register opens a business and its owner account, then logs the owner in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentials
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	if req.BusinessName == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "business_name is required")
		return
	}

	user := storage.User{
		ID:         uuid.NewString(),
		BusinessID: uuid.NewString(),
		Email:      req.Email,
		Role:       storage.RoleOwner,
	}
	if !h.hash(w, &user, req.Password) {
		return
	}
	if err := h.users.CreateOwner(r.Context(), user, req.BusinessName); err != nil {
		h.writeCreateError(w, err)
		return
	}
	h.logger.Info("owner registered", "user_id", user.ID, "business_id", user.BusinessID)
	h.writeToken(w, http.StatusCreated, user)
}

// AddStaff creates a staff account in the caller's business. Mounted behind owner-only auth.
func (h *AuthHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	businessID := strings.TrimSpace(r.Header.Get(httpx.BusinessIDHeader))
	if businessID == "" {
		http.Error(w, "missing X-Business-Id", http.StatusBadRequest)
		return
	}
	var req credentials
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	user := storage.User{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Email:      req.Email,
		Role:       storage.RoleStaff,
	}
	if !h.hash(w, &user, req.Password) {
		return
	}
	if err := h.users.CreateStaff(r.Context(), user); err != nil {
		h.writeCreateError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "user_id": user.ID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentials
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = storage.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		httpx.WriteFailure(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.users.ByEmail(r.Context(), req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		httpx.WriteFailure(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("user lookup failed", "err", err)
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httpx.WriteFailure(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	h.writeToken(w, http.StatusOK, user)
}

// Me echoes the verified identity. Mounted behind RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":     claims.Subject,
		"business_id": claims.BusinessID,
		"role":        claims.Role,
	})
}

func (h *AuthHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	keys := h.tokens.JWKS()
	if len(keys) == 0 {
		http.Error(w, "jwks not available", http.StatusNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (h *AuthHandler) hash(w http.ResponseWriter, u *storage.User, password string) bool {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		h.logger.Error("hash password failed", "err", err)
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return false
	}
	u.PasswordHash = string(hash)
	return true
}

func (h *AuthHandler) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		httpx.WriteFailure(w, http.StatusConflict, "email already registered")
	case errors.Is(err, storage.ErrUnknownOwner):
		httpx.WriteFailure(w, http.StatusNotFound, "business not found")
	default:
		h.logger.Error("create user failed", "err", err)
		http.Error(w, "failed to create user", http.StatusInternalServerError)
	}
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, status int, u storage.User) {
	token, exp, err := h.tokens.Issue(u.ID, u.BusinessID, u.Role)
	if err != nil {
		h.logger.Error("issue token failed", "err", err, "user_id", u.ID)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}
	httpx.WriteJSON(w, status, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		BusinessID:  u.BusinessID,
		Role:        u.Role,
	})
}
