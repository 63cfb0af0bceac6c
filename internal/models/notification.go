package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type enums, one per deal transition the engine announces.
const (
	NotificationNewProposal      = "new_proposal"
	NotificationProposalAccepted = "proposal_accepted"
	NotificationProposalRejected = "proposal_rejected"
	NotificationDealCompleted    = "deal_completed"
	NotificationDealCancelled    = "deal_cancelled"
	NotificationDealDisputed     = "deal_disputed"
)

type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	ActorID     uuid.UUID  `json:"actor_id"`
	DealID      *uuid.UUID `json:"deal_id,omitempty"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
}
