package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create relies on the unique (deal_id, reviewer_id) index to reject a
// second review from the same participant.
func (r *Repository) Create(ctx context.Context, tx pgx.Tx, rv *models.Review) error {
	return tx.QueryRow(ctx, `
		INSERT INTO reviews (id, deal_id, reviewer_id, reviewee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, rv.ID, rv.DealID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Comment).Scan(&rv.CreatedAt)
}

func (r *Repository) ListForUser(ctx context.Context, revieweeID uuid.UUID, limit int) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, deal_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews WHERE reviewee_id = $1 ORDER BY created_at DESC LIMIT $2
	`, revieweeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.DealID, &rv.ReviewerID, &rv.RevieweeID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rv)
	}
	return list, rows.Err()
}
