package models

import (
	"time"

	"github.com/google/uuid"
)

// Deal status enums. completed, rejected and cancelled are terminal.
const (
	DealStatusPending    = "pending"
	DealStatusAccepted   = "accepted"
	DealStatusInProgress = "in_progress"
	DealStatusCompleted  = "completed"
	DealStatusRejected   = "rejected"
	DealStatusCancelled  = "cancelled"
	DealStatusDisputed   = "disputed"
)

// Offer is one side of a barter: what a participant brings to the deal.
// SkillID optionally links to the skill catalog; the engine never follows it.
type Offer struct {
	SkillID     *uuid.UUID `json:"skill_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
}

// CoinTransfer is the SkillCoin exchange fixed at proposal time.
// Both amounts are non-negative and immutable after creation.
type CoinTransfer struct {
	FromProposer int `json:"from_proposer"`
	FromReceiver int `json:"from_receiver"`
}

type Deal struct {
	ID                uuid.UUID    `json:"id"`
	ProposerID        uuid.UUID    `json:"proposer_id"`
	ReceiverID        uuid.UUID    `json:"receiver_id"`
	ProposerOffer     Offer        `json:"proposer_offer"`
	ReceiverOffer     Offer        `json:"receiver_offer"`
	CoinTransfer      CoinTransfer `json:"coin_transfer"`
	Status            string       `json:"status"`
	ProposerConfirmed bool         `json:"proposer_confirmed"`
	ReceiverConfirmed bool         `json:"receiver_confirmed"`

	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	DisputedBy        *uuid.UUID `json:"disputed_by,omitempty"`
	DisputeReason     string     `json:"dispute_reason,omitempty"`
	DisputeResolution string     `json:"dispute_resolution,omitempty"`
	DisputeResolvedAt *time.Time `json:"dispute_resolved_at,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsParticipant reports whether id is the proposer or the receiver.
func (d *Deal) IsParticipant(id uuid.UUID) bool {
	return id == d.ProposerID || id == d.ReceiverID
}

// IsTerminal reports whether the deal can never transition again.
func (d *Deal) IsTerminal() bool {
	switch d.Status {
	case DealStatusCompleted, DealStatusRejected, DealStatusCancelled:
		return true
	}
	return false
}

// OtherParticipant returns the counterparty of id. Callers must have
// checked IsParticipant first.
func (d *Deal) OtherParticipant(id uuid.UUID) uuid.UUID {
	if id == d.ProposerID {
		return d.ReceiverID
	}
	return d.ProposerID
}
