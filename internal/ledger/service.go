package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInsufficientBalance is returned when a debit would push a balance
// below zero. The caller's transaction should be rolled back; nothing is
// lost and the operation can be retried once the payer has coins.
var ErrInsufficientBalance = errors.New("insufficient SkillCoin balance")

// BalanceRepo is the minimal user-balance interface the ledger needs.
// All methods run inside the caller's transaction.
type BalanceRepo interface {
	LockPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error
	Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error
	Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) error
}

// Service moves SkillCoins between users. All balance mutation in the
// system goes through Transfer; nothing else writes skill_coins.
type Service interface {
	Transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int) error
}

type service struct {
	repo BalanceRepo
}

func NewService(repo BalanceRepo) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

// Transfer debits from and credits to by amount as one unit within the
// caller's transaction. Both rows are locked in deterministic order first
// so that two deals settling against the same users cannot deadlock.
// A zero amount succeeds without touching either row.
func (s *service) Transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative transfer amount %d", amount)
	}
	if amount == 0 {
		return nil
	}
	if err := s.repo.LockPair(ctx, tx, from, to); err != nil {
		return err
	}
	if err := s.repo.Debit(ctx, tx, from, amount); err != nil {
		return err
	}
	return s.repo.Credit(ctx, tx, to, amount)
}
