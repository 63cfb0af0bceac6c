package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ BalanceRepo = (*Repository)(nil)

// LockPair takes row locks on both user rows in ascending UUID order so
// concurrent settlements touching the same users acquire locks in the
// same sequence.
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

// Debit subtracts amount from the user's balance. The WHERE guard makes
// the non-negativity check and the subtraction a single atomic statement;
// zero rows affected means the balance was too low.
func (r *Repository) Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error {
	result, err := tx.Exec(ctx, `
		UPDATE users SET skill_coins = skill_coins - $1, updated_at = now()
		WHERE id = $2 AND skill_coins >= $1
	`, amount, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error {
	result, err := tx.Exec(ctx, `
		UPDATE users SET skill_coins = skill_coins + $1, updated_at = now()
		WHERE id = $2
	`, amount, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
