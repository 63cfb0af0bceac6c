// Package trust computes a user's reputation score from their deal and
// rating history. Score is deterministic and side-effect free; the stored
// trust_score column is a cache of this function, never a source of truth.
package trust

import (
	"math"

	"github.com/skillswap/backend/internal/models"
)

// Stats is the snapshot of user history the score derives from.
type Stats struct {
	AverageRating      float64
	TotalRatings       int
	CompletedDeals     int
	CancelledDeals     int
	VerificationStatus string
}

// StatsFor extracts the scoring snapshot from a user record.
func StatsFor(u *models.User) Stats {
	return Stats{
		AverageRating:      u.AverageRating,
		TotalRatings:       u.TotalRatings,
		CompletedDeals:     u.CompletedDeals,
		CancelledDeals:     u.CancelledDeals,
		VerificationStatus: u.VerificationStatus,
	}
}

// CancellationRate returns the percentage of the user's closed deals that
// were cancelled, rounded to the nearest integer. No deals means 0.
func CancellationRate(completed, cancelled int) int {
	total := completed + cancelled
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(cancelled) / float64(total) * 100))
}

// Score computes the trust score in [0,100]:
//
//	rating component       (averageRating/5)*40, only once rated
//	completed component    min(completedDeals*2, 30)
//	reliability component  max(0, 20 - cancellationRate*0.2)
//	verification bonus     10 fully verified, 5 email verified
func Score(s Stats) int {
	score := 0.0

	if s.TotalRatings > 0 {
		score += (s.AverageRating / 5) * 40
	}

	dealScore := float64(s.CompletedDeals * 2)
	if dealScore > 30 {
		dealScore = 30
	}
	score += dealScore

	reliability := 20 - float64(CancellationRate(s.CompletedDeals, s.CancelledDeals))*0.2
	if reliability > 0 {
		score += reliability
	}

	switch s.VerificationStatus {
	case models.VerificationFullyVerified:
		score += 10
	case models.VerificationEmailVerified:
		score += 5
	}

	out := int(math.Round(score))
	if out < 0 {
		out = 0
	}
	if out > 100 {
		out = 100
	}
	return out
}
