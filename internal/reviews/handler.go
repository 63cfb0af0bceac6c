package reviews

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/deals"
	"github.com/skillswap/backend/internal/models"
)

type AddReviewRequest struct {
	DealID  uuid.UUID `json:"deal_id"`
	Rating  int       `json:"rating"`
	Comment string    `json:"comment,omitempty"`
}

type ReviewResponse struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	RevieweeID uuid.UUID `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Handler struct {
	svc     Service
	authSvc auth.Service
	log     *slog.Logger
}

func NewHandler(svc Service, authSvc auth.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, authSvc: authSvc, log: log}
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AddReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.DealID == uuid.Nil {
		http.Error(w, "missing deal_id", http.StatusBadRequest)
		return
	}
	review, err := h.svc.AddReview(r.Context(), req.DealID, reviewerID, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewToResponse(review))
}

func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.svc.ListForUser(r.Context(), userID, limit)
	if err != nil {
		h.log.Error("list reviews failed", "error", err)
		http.Error(w, "list reviews failed", http.StatusInternalServerError)
		return
	}
	resp := make([]ReviewResponse, 0, len(list))
	for _, rv := range list {
		resp = append(resp, reviewToResponse(rv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRating):
		http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
	case errors.Is(err, ErrDealNotCompleted):
		http.Error(w, "deal is not completed", http.StatusConflict)
	case errors.Is(err, ErrDuplicateReview):
		http.Error(w, "deal already reviewed by this user", http.StatusConflict)
	case errors.Is(err, deals.ErrNotFound):
		http.Error(w, "deal not found", http.StatusNotFound)
	case errors.Is(err, deals.ErrForbidden):
		http.Error(w, "not a participant in this deal", http.StatusForbidden)
	default:
		h.log.Error("add review failed", "error", err)
		http.Error(w, "review operation failed", http.StatusInternalServerError)
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	id, _, err := h.authSvc.ValidateToken(r.Context(), strings.TrimSpace(authz[len(prefix):]))
	if err != nil || id == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func reviewToResponse(rv *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:         rv.ID,
		DealID:     rv.DealID,
		ReviewerID: rv.ReviewerID,
		RevieweeID: rv.RevieweeID,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
		CreatedAt:  rv.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
