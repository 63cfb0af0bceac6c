package deals

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/backend/internal/auth"
	"github.com/skillswap/backend/internal/ledger"
	"github.com/skillswap/backend/internal/models"
)

type OfferRequest struct {
	SkillID     *uuid.UUID `json:"skill_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
}

type ProposeRequest struct {
	ReceiverID    uuid.UUID           `json:"receiver_id"`
	ProposerOffer OfferRequest        `json:"proposer_offer"`
	ReceiverOffer OfferRequest        `json:"receiver_offer"`
	CoinTransfer  models.CoinTransfer `json:"coin_transfer"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type ResolveRequest struct {
	Outcome    string `json:"outcome"`
	Resolution string `json:"resolution"`
}

type DealResponse struct {
	ID                uuid.UUID           `json:"id"`
	ProposerID        uuid.UUID           `json:"proposer_id"`
	ReceiverID        uuid.UUID           `json:"receiver_id"`
	ProposerOffer     models.Offer        `json:"proposer_offer"`
	ReceiverOffer     models.Offer        `json:"receiver_offer"`
	CoinTransfer      models.CoinTransfer `json:"coin_transfer"`
	Status            string              `json:"status"`
	ProposerConfirmed bool                `json:"proposer_confirmed"`
	ReceiverConfirmed bool                `json:"receiver_confirmed"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
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

func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ReceiverID == uuid.Nil || req.ProposerOffer.Title == "" || req.ReceiverOffer.Title == "" {
		http.Error(w, "missing or invalid required fields", http.StatusBadRequest)
		return
	}
	deal, err := h.svc.Propose(r.Context(), actorID, req.ReceiverID,
		models.Offer(req.ProposerOffer), models.Offer(req.ReceiverOffer), req.CoinTransfer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dealToResponse(deal))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	dealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal id", http.StatusBadRequest)
		return
	}
	deal, err := h.svc.GetDeal(r.Context(), dealID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToResponse(deal))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListForUser(r.Context(), actorID, r.URL.Query().Get("status"))
	if err != nil {
		h.log.Error("list deals failed", "error", err)
		http.Error(w, "list deals failed", http.StatusInternalServerError)
		return
	}
	resp := make([]DealResponse, 0, len(list))
	for _, d := range list {
		resp = append(resp, dealToResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(dealID, actorID uuid.UUID) (*models.Deal, error) {
		return h.svc.Accept(r.Context(), dealID, actorID)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(dealID, actorID uuid.UUID) (*models.Deal, error) {
		return h.svc.Reject(r.Context(), dealID, actorID)
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(dealID, actorID uuid.UUID) (*models.Deal, error) {
		return h.svc.Start(r.Context(), dealID, actorID)
	})
}

func (h *Handler) ConfirmCompletion(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(dealID, actorID uuid.UUID) (*models.Deal, error) {
		return h.svc.ConfirmCompletion(r.Context(), dealID, actorID)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	dealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal id", http.StatusBadRequest)
		return
	}
	var req ReasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "Cancelled by user"
	}
	deal, err := h.svc.Cancel(r.Context(), dealID, actorID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToResponse(deal))
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	dealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal id", http.StatusBadRequest)
		return
	}
	var req ReasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "Disputed by user"
	}
	deal, err := h.svc.Dispute(r.Context(), dealID, actorID, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToResponse(deal))
}

// ResolveDispute is the arbiter surface; admin only.
func (h *Handler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	_, role, ok := h.actorWithRole(w, r)
	if !ok {
		return
	}
	if role != models.RoleAdmin {
		http.Error(w, "admin only", http.StatusForbidden)
		return
	}
	dealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal id", http.StatusBadRequest)
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Outcome != DisputeOutcomeCompleted && req.Outcome != DisputeOutcomeCancelled {
		http.Error(w, "outcome must be completed or cancelled", http.StatusBadRequest)
		return
	}
	deal, err := h.svc.ResolveDispute(r.Context(), dealID, req.Outcome, req.Resolution)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToResponse(deal))
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(dealID, actorID uuid.UUID) (*models.Deal, error)) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	dealID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid deal id", http.StatusBadRequest)
		return
	}
	deal, err := fn(dealID, actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dealToResponse(deal))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "deal not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "not allowed for this user", http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, "transition not allowed from current status", http.StatusConflict)
	case errors.Is(err, ErrInvalidParticipants):
		http.Error(w, "proposer and receiver must differ", http.StatusBadRequest)
	case errors.Is(err, ErrInvalidAmount):
		http.Error(w, "coin amounts must be non-negative", http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInsufficientBalance):
		// Confirmations are retained; the deal stays in_progress and the
		// confirmation can be retried once the payer has coins.
		http.Error(w, "insufficient SkillCoin balance; deal remains in progress", http.StatusConflict)
	default:
		h.log.Error("deal transition failed", "error", err)
		http.Error(w, "deal operation failed", http.StatusInternalServerError)
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, _, ok := h.actorWithRole(w, r)
	return id, ok
}

func (h *Handler) actorWithRole(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, "", false
	}
	token := strings.TrimSpace(authz[len(prefix):])
	id, role, err := h.authSvc.ValidateToken(r.Context(), token)
	if err != nil || id == uuid.Nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, "", false
	}
	return id, role, true
}

func dealToResponse(d *models.Deal) DealResponse {
	return DealResponse{
		ID:                d.ID,
		ProposerID:        d.ProposerID,
		ReceiverID:        d.ReceiverID,
		ProposerOffer:     d.ProposerOffer,
		ReceiverOffer:     d.ReceiverOffer,
		CoinTransfer:      d.CoinTransfer,
		Status:            d.Status,
		ProposerConfirmed: d.ProposerConfirmed,
		ReceiverConfirmed: d.ReceiverConfirmed,
		CompletedAt:       d.CompletedAt,
		CancelledAt:       d.CancelledAt,
		CreatedAt:         d.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
