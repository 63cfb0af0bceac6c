package deals

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillswap/backend/internal/models"
)

const dealColumns = `id, proposer_id, receiver_id,
	proposer_skill_id, proposer_offer_title, proposer_offer_description,
	receiver_skill_id, receiver_offer_title, receiver_offer_description,
	coins_from_proposer, coins_from_receiver, status,
	proposer_confirmed, receiver_confirmed,
	cancelled_by, cancellation_reason, cancelled_at,
	disputed_by, dispute_reason, dispute_resolution, dispute_resolved_at,
	completed_at, created_at, updated_at`

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

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, d *models.Deal) error {
	return tx.QueryRow(ctx, `
		INSERT INTO deals (id, proposer_id, receiver_id,
			proposer_skill_id, proposer_offer_title, proposer_offer_description,
			receiver_skill_id, receiver_offer_title, receiver_offer_description,
			coins_from_proposer, coins_from_receiver, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, d.ID, d.ProposerID, d.ReceiverID,
		d.ProposerOffer.SkillID, d.ProposerOffer.Title, d.ProposerOffer.Description,
		d.ReceiverOffer.SkillID, d.ReceiverOffer.Title, d.ReceiverOffer.Description,
		d.CoinTransfer.FromProposer, d.CoinTransfer.FromReceiver, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	return scanDeal(row)
}

// GetForUpdate locks the deal row for the remainder of the transaction,
// serializing concurrent transitions on the same deal.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deal, error) {
	row := tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id)
	return scanDeal(row)
}

// Update writes every mutable field. CoinTransfer and the participants are
// fixed at creation and deliberately not part of the statement.
func (r *Repository) Update(ctx context.Context, tx pgx.Tx, d *models.Deal) error {
	_, err := tx.Exec(ctx, `
		UPDATE deals SET status = $2,
			proposer_confirmed = $3, receiver_confirmed = $4,
			cancelled_by = $5, cancellation_reason = $6, cancelled_at = $7,
			disputed_by = $8, dispute_reason = $9, dispute_resolution = $10, dispute_resolved_at = $11,
			completed_at = $12, updated_at = now()
		WHERE id = $1
	`, d.ID, d.Status,
		d.ProposerConfirmed, d.ReceiverConfirmed,
		d.CancelledBy, d.CancellationReason, d.CancelledAt,
		d.DisputedBy, d.DisputeReason, d.DisputeResolution, d.DisputeResolvedAt,
		d.CompletedAt)
	return err
}

func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE (proposer_id = $1 OR receiver_id = $1)`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.ProposerID, &d.ReceiverID,
		&d.ProposerOffer.SkillID, &d.ProposerOffer.Title, &d.ProposerOffer.Description,
		&d.ReceiverOffer.SkillID, &d.ReceiverOffer.Title, &d.ReceiverOffer.Description,
		&d.CoinTransfer.FromProposer, &d.CoinTransfer.FromReceiver, &d.Status,
		&d.ProposerConfirmed, &d.ReceiverConfirmed,
		&d.CancelledBy, &d.CancellationReason, &d.CancelledAt,
		&d.DisputedBy, &d.DisputeReason, &d.DisputeResolution, &d.DisputeResolvedAt,
		&d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
