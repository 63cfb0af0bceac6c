package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/trust"
)

type VerifyRequest struct {
	Status string `json:"status"`
}

type Handler struct {
	repo    *Repository
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(repo *Repository, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, authSvc: authSvc, log: log}
}

// GetProfile returns a user's public profile, trust score included.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.actor(w, r); !ok {
		return
	}
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	user, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("get profile failed", "error", err)
		http.Error(w, "get profile failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(auth.UserToResponse(user))
}

// Verify sets a user's verification tier (admin only) and refreshes their
// trust score in the same transaction.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	_, role, ok := h.actor(w, r)
	if !ok {
		return
	}
	if role != models.RoleAdmin {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case models.VerificationUnverified, models.VerificationEmailVerified, models.VerificationFullyVerified:
	default:
		http.Error(w, "invalid verification status", http.StatusBadRequest)
		return
	}

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		h.log.Error("verify user failed", "error", err)
		http.Error(w, "verify user failed", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback(r.Context())

	user, err := h.repo.SetVerification(r.Context(), tx, userID, req.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.log.Error("verify user failed", "error", err)
		http.Error(w, "verify user failed", http.StatusInternalServerError)
		return
	}
	user.TrustScore = trust.Score(trust.StatsFor(user))
	if err := h.repo.SetTrustScore(r.Context(), tx, userID, user.TrustScore); err != nil {
		h.log.Error("verify user failed", "error", err)
		http.Error(w, "verify user failed", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		h.log.Error("verify user failed", "error", err)
		http.Error(w, "verify user failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(auth.UserToResponse(user))
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, "", false
	}
	id, role, err := h.authSvc.ValidateToken(r.Context(), strings.TrimSpace(authz[len(prefix):]))
	if err != nil || id == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, "", false
	}
	return id, role, true
}
