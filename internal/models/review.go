package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one participant's rating of the other after a completed deal.
// The (deal_id, reviewer_id) pair is unique, so a deal admits at most two.
type Review struct {
	ID         uuid.UUID `json:"id"`
	DealID     uuid.UUID `json:"deal_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	RevieweeID uuid.UUID `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
