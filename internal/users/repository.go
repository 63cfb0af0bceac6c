// Package users is the user-account store. Balances are only ever written
// through the ledger, and counters/ratings/trust only through the methods
// here, so invariants cannot be bypassed by ad hoc field arithmetic.
package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

const userColumns = `id, email, name, username, password_hash, skill_coins,
	trust_score, average_rating, total_ratings, completed_deals, cancelled_deals,
	verification_status, role, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, username, password_hash, skill_coins, verification_status, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING trust_score, created_at, updated_at
	`, u.ID, u.Email, u.Name, u.Username, u.PasswordHash, u.SkillCoins, u.VerificationStatus, u.Role,
	).Scan(&u.TrustScore, &u.CreatedAt, &u.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetForUpdate locks the user row for the remainder of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

// LockPair takes row locks on both users in ascending UUID order, the same
// ordering the ledger uses, so deal settlements and cancellations touching
// the same users never deadlock.
func (r *Repository) LockPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error {
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
	}
	return nil
}

// BumpCompletedDeals increments the counter and returns the fresh row so
// the caller can recompute the trust score from the post-update snapshot.
func (r *Repository) BumpCompletedDeals(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET completed_deals = completed_deals + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id)
	return scanUser(row)
}

func (r *Repository) BumpCancelledDeals(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET cancelled_deals = cancelled_deals + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id)
	return scanUser(row)
}

// UpdateRating writes the folded rating aggregate for a user.
func (r *Repository) UpdateRating(ctx context.Context, tx pgx.Tx, id uuid.UUID, average float64, total int) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET average_rating = $2, total_ratings = $3, updated_at = now()
		WHERE id = $1
	`, id, average, total)
	return err
}

func (r *Repository) SetTrustScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, score int) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET trust_score = $2, updated_at = now()
		WHERE id = $1
	`, id, score)
	return err
}

func (r *Repository) SetVerification(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (*models.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET verification_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, status)
	return scanUser(row)
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Username, &u.PasswordHash, &u.SkillCoins,
		&u.TrustScore, &u.AverageRating, &u.TotalRatings, &u.CompletedDeals, &u.CancelledDeals,
		&u.VerificationStatus, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
