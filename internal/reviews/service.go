// Package reviews folds post-deal ratings into a user's running average
// and keeps the trust score in step with it.
package reviews

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skillswap/backend/internal/deals"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/trust"
)

// ErrDuplicateReview is returned when the reviewer already reviewed this deal.
var ErrDuplicateReview = errors.New("review already exists for this deal and reviewer")

// ErrDealNotCompleted is returned when the deal has not reached completed.
var ErrDealNotCompleted = errors.New("deal is not completed")

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// DealGetter resolves the deal a review refers to.
type DealGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
}

// Store is the review persistence interface.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, rv *models.Review) error
	ListForUser(ctx context.Context, revieweeID uuid.UUID, limit int) ([]*models.Review, error)
}

// UserStore is the subset of user persistence the aggregator needs.
type UserStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	UpdateRating(ctx context.Context, tx pgx.Tx, id uuid.UUID, average float64, total int) error
	SetTrustScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, score int) error
}

type Service interface {
	AddReview(ctx context.Context, dealID, reviewerID uuid.UUID, rating int, comment string) (*models.Review, error)
	ListForUser(ctx context.Context, revieweeID uuid.UUID, limit int) ([]*models.Review, error)
}

type service struct {
	store Store
	dealz DealGetter
	users UserStore
}

func NewService(store Store, dealGetter DealGetter, users UserStore) Service {
	return &service{store: store, dealz: dealGetter, users: users}
}

var _ Service = (*service)(nil)

// AddReview records a rating of the reviewer's counterparty on a completed
// deal, recomputes the reviewee's running average (one decimal) and trust
// score. The duplicate check and the aggregate fold share a transaction,
// so a rejected duplicate never touches the average.
func (s *service) AddReview(ctx context.Context, dealID, reviewerID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	deal, err := s.dealz.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, deals.ErrNotFound
		}
		return nil, err
	}
	if !deal.IsParticipant(reviewerID) {
		return nil, deals.ErrForbidden
	}
	if deal.Status != models.DealStatusCompleted {
		return nil, ErrDealNotCompleted
	}

	review := &models.Review{
		ID:         uuid.New(),
		DealID:     dealID,
		ReviewerID: reviewerID,
		RevieweeID: deal.OtherParticipant(reviewerID),
		Rating:     rating,
		Comment:    comment,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	reviewee, err := s.users.GetForUpdate(ctx, tx, review.RevieweeID)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, tx, review); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateReview
		}
		return nil, err
	}

	newAverage, newTotal := foldRating(reviewee.AverageRating, reviewee.TotalRatings, rating)
	if err := s.users.UpdateRating(ctx, tx, reviewee.ID, newAverage, newTotal); err != nil {
		return nil, err
	}

	stats := trust.StatsFor(reviewee)
	stats.AverageRating = newAverage
	stats.TotalRatings = newTotal
	if err := s.users.SetTrustScore(ctx, tx, reviewee.ID, trust.Score(stats)); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *service) ListForUser(ctx context.Context, revieweeID uuid.UUID, limit int) ([]*models.Review, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ListForUser(ctx, revieweeID, limit)
}

// foldRating adds one rating to a running average, rounded to one decimal.
func foldRating(oldAverage float64, oldTotal, rating int) (float64, int) {
	total := oldTotal + 1
	average := (oldAverage*float64(oldTotal) + float64(rating)) / float64(total)
	return math.Round(average*10) / 10, total
}
