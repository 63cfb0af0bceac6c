package models

import (
	"time"

	"github.com/google/uuid"
)

// Verification status enums. Fully verified users get the largest trust bonus.
const (
	VerificationUnverified    = "unverified"
	VerificationEmailVerified = "email_verified"
	VerificationFullyVerified = "fully_verified"
)

// DefaultSkillCoins is the starting balance granted to every new user.
const DefaultSkillCoins = 100

// User role enums. Admins may resolve disputes and verify users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	SkillCoins         int       `json:"skill_coins"`
	TrustScore         int       `json:"trust_score"`
	AverageRating      float64   `json:"average_rating"`
	TotalRatings       int       `json:"total_ratings"`
	CompletedDeals     int       `json:"completed_deals"`
	CancelledDeals     int       `json:"cancelled_deals"`
	VerificationStatus string    `json:"verification_status"`
	Role               string    `json:"role"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
