// Package deals owns the barter deal lifecycle: proposal, acceptance,
// dual-confirmation completion, cancellation and disputes. Every
// transition runs as a single-writer critical section on the deal row
// (SELECT ... FOR UPDATE inside one transaction), so two participants
// racing on the same deal are serialized and settlement fires exactly once.
package deals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillswap/backend/internal/ledger"
	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/notify"
	"github.com/skillswap/backend/internal/trust"
)

// Store is the deal persistence interface. GetForUpdate must take a row
// lock that is held until the transaction ends.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, d *models.Deal) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Deal, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Deal, error)
	Update(ctx context.Context, tx pgx.Tx, d *models.Deal) error
	ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*models.Deal, error)
}

// UserStore is the subset of user persistence the engine needs. Counter
// bumps return the fresh user row so the trust score can be recomputed
// from the post-update snapshot.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error
	BumpCompletedDeals(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	BumpCancelledDeals(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	SetTrustScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, score int) error
}

// EnqueueDealEventTxFunc enqueues a deal event within the given transaction.
// Provided by main using river.Client.InsertTx.
type EnqueueDealEventTxFunc func(ctx context.Context, tx pgx.Tx, args notify.DealEventArgs) error

// Dispute outcomes an arbiter may apply.
const (
	DisputeOutcomeCompleted = models.DealStatusCompleted
	DisputeOutcomeCancelled = models.DealStatusCancelled
)

type Service interface {
	Propose(ctx context.Context, proposerID, receiverID uuid.UUID, proposerOffer, receiverOffer models.Offer, coins models.CoinTransfer) (*models.Deal, error)
	Accept(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error)
	Reject(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error)
	Start(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error)
	ConfirmCompletion(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error)
	Cancel(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Deal, error)
	Dispute(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Deal, error)
	ResolveDispute(ctx context.Context, dealID uuid.UUID, outcome, resolution string) (*models.Deal, error)
	GetDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*models.Deal, error)
}

type service struct {
	store   Store
	users   UserStore
	ledger  ledger.Service
	enqueue EnqueueDealEventTxFunc
}

// NewService creates the deal engine. enqueue is typically a closure over
// river.Client.InsertTx; it may be nil, which disables event emission.
func NewService(store Store, users UserStore, ledgerSvc ledger.Service, enqueue EnqueueDealEventTxFunc) Service {
	return &service{store: store, users: users, ledger: ledgerSvc, enqueue: enqueue}
}

var _ Service = (*service)(nil)

func (s *service) Propose(ctx context.Context, proposerID, receiverID uuid.UUID, proposerOffer, receiverOffer models.Offer, coins models.CoinTransfer) (*models.Deal, error) {
	if proposerID == receiverID {
		return nil, ErrInvalidParticipants
	}
	if coins.FromProposer < 0 || coins.FromReceiver < 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("receiver %s: %w", receiverID, ErrNotFound)
		}
		return nil, err
	}

	deal := &models.Deal{
		ID:            uuid.New(),
		ProposerID:    proposerID,
		ReceiverID:    receiverID,
		ProposerOffer: proposerOffer,
		ReceiverOffer: receiverOffer,
		CoinTransfer:  coins,
		Status:        models.DealStatusPending,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.store.Create(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, deal, notify.EventProposed, proposerID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) Accept(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error) {
	return s.respond(ctx, dealID, actorID, models.DealStatusAccepted, notify.EventAccepted)
}

func (s *service) Reject(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error) {
	return s.respond(ctx, dealID, actorID, models.DealStatusRejected, notify.EventRejected)
}

// respond handles the receiver's answer to a pending proposal.
func (s *service) respond(ctx context.Context, dealID, actorID uuid.UUID, newStatus, event string) (*models.Deal, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if actorID != deal.ReceiverID {
		return nil, ErrForbidden
	}
	if deal.Status != models.DealStatusPending {
		return nil, ErrInvalidTransition
	}

	deal.Status = newStatus
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, deal, event, actorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) Start(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsParticipant(actorID) {
		return nil, ErrForbidden
	}
	if deal.Status != models.DealStatusAccepted {
		return nil, ErrInvalidTransition
	}

	deal.Status = models.DealStatusInProgress
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

// ConfirmCompletion records the actor's completion confirmation. Repeated
// calls by the same actor are no-ops. Once both participants have
// confirmed, settlement runs in the same transaction: coin transfer in
// both directions, completed-deal counters, trust recompute, status flip.
// If the transfer fails on balance, the transaction is rolled back and
// only the confirmation flags are persisted, so the deal stays
// in_progress and the call can be retried later.
func (s *service) ConfirmCompletion(ctx context.Context, dealID, actorID uuid.UUID) (*models.Deal, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsParticipant(actorID) {
		return nil, ErrForbidden
	}

	// A participant confirming a deal that already completed lost the race
	// against the other confirmation; report success, change nothing.
	if deal.Status == models.DealStatusCompleted && confirmedBy(deal, actorID) {
		return deal, nil
	}
	if deal.Status != models.DealStatusInProgress {
		return nil, ErrInvalidTransition
	}

	if confirmedBy(deal, actorID) && !(deal.ProposerConfirmed && deal.ReceiverConfirmed) {
		// Idempotent repeat of the actor's own confirmation.
		return deal, nil
	}
	setConfirmed(deal, actorID)

	// With both flags set the deal settles below. A deal can already carry
	// both flags here when an earlier settlement aborted on balance; the
	// repeated confirmation then retries it.
	if !deal.ProposerConfirmed || !deal.ReceiverConfirmed {
		if err := s.store.Update(ctx, tx, deal); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return deal, nil
	}

	if err := s.settle(ctx, tx, deal, actorID); err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			tx.Rollback(ctx)
			if recErr := s.recordConfirmation(ctx, dealID, actorID); recErr != nil {
				return nil, recErr
			}
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

// settle applies the completion side effects inside tx. Caller holds the
// deal row lock; both user rows are locked here before any mutation.
func (s *service) settle(ctx context.Context, tx pgx.Tx, deal *models.Deal, actorID uuid.UUID) error {
	if err := s.users.LockPair(ctx, tx, deal.ProposerID, deal.ReceiverID); err != nil {
		return err
	}
	if err := s.ledger.Transfer(ctx, tx, deal.ProposerID, deal.ReceiverID, deal.CoinTransfer.FromProposer); err != nil {
		return err
	}
	if err := s.ledger.Transfer(ctx, tx, deal.ReceiverID, deal.ProposerID, deal.CoinTransfer.FromReceiver); err != nil {
		return err
	}
	for _, id := range []uuid.UUID{deal.ProposerID, deal.ReceiverID} {
		u, err := s.users.BumpCompletedDeals(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.users.SetTrustScore(ctx, tx, id, trust.Score(trust.StatsFor(u))); err != nil {
			return err
		}
	}

	now := time.Now()
	deal.Status = models.DealStatusCompleted
	deal.CompletedAt = &now
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return err
	}
	return s.emit(ctx, tx, deal, notify.EventCompleted, actorID)
}

// recordConfirmation persists only the actor's confirmation flag in a
// fresh transaction, used after a settlement attempt aborted on balance.
func (s *service) recordConfirmation(ctx context.Context, dealID, actorID uuid.UUID) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return err
	}
	if deal.Status != models.DealStatusInProgress || confirmedBy(deal, actorID) {
		return nil
	}
	setConfirmed(deal, actorID)
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Cancel closes the deal from pending, accepted or in_progress. Both
// participants take the cancelled-deal penalty regardless of who called;
// cancellation carries no fault attribution.
func (s *service) Cancel(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Deal, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsParticipant(actorID) {
		return nil, ErrForbidden
	}
	switch deal.Status {
	case models.DealStatusPending, models.DealStatusAccepted, models.DealStatusInProgress:
	default:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	deal.Status = models.DealStatusCancelled
	deal.CancelledBy = &actorID
	deal.CancellationReason = reason
	deal.CancelledAt = &now

	if err := s.penalizeCancellation(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, deal, notify.EventCancelled, actorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) penalizeCancellation(ctx context.Context, tx pgx.Tx, deal *models.Deal) error {
	if err := s.users.LockPair(ctx, tx, deal.ProposerID, deal.ReceiverID); err != nil {
		return err
	}
	for _, id := range []uuid.UUID{deal.ProposerID, deal.ReceiverID} {
		u, err := s.users.BumpCancelledDeals(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.users.SetTrustScore(ctx, tx, id, trust.Score(trust.StatsFor(u))); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Dispute(ctx context.Context, dealID, actorID uuid.UUID, reason string) (*models.Deal, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if !deal.IsParticipant(actorID) {
		return nil, ErrForbidden
	}
	if deal.Status != models.DealStatusInProgress {
		return nil, ErrInvalidTransition
	}

	deal.Status = models.DealStatusDisputed
	deal.DisputedBy = &actorID
	deal.DisputeReason = reason
	if err := s.store.Update(ctx, tx, deal); err != nil {
		return nil, err
	}
	if err := s.emit(ctx, tx, deal, notify.EventDisputed, actorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

// ResolveDispute applies an arbiter's terminal outcome to a disputed deal:
// completed settles exactly as dual confirmation would, cancelled applies
// the symmetric cancellation penalty. The arbiter itself is out of scope;
// authorization is the caller's concern.
func (s *service) ResolveDispute(ctx context.Context, dealID uuid.UUID, outcome, resolution string) (*models.Deal, error) {
	if outcome != DisputeOutcomeCompleted && outcome != DisputeOutcomeCancelled {
		return nil, fmt.Errorf("unknown dispute outcome %q", outcome)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	deal, err := s.loadForUpdate(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status != models.DealStatusDisputed {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	deal.DisputeResolution = resolution
	deal.DisputeResolvedAt = &now

	switch outcome {
	case DisputeOutcomeCompleted:
		deal.ProposerConfirmed = true
		deal.ReceiverConfirmed = true
		if err := s.settle(ctx, tx, deal, deal.ProposerID); err != nil {
			return nil, err
		}
	case DisputeOutcomeCancelled:
		deal.Status = models.DealStatusCancelled
		deal.CancellationReason = resolution
		deal.CancelledAt = &now
		if err := s.penalizeCancellation(ctx, tx, deal); err != nil {
			return nil, err
		}
		if err := s.store.Update(ctx, tx, deal); err != nil {
			return nil, err
		}
		if err := s.emit(ctx, tx, deal, notify.EventCancelled, deal.ProposerID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return deal, nil
}

func (s *service) GetDeal(ctx context.Context, dealID uuid.UUID) (*models.Deal, error) {
	deal, err := s.store.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deal, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, status string) ([]*models.Deal, error) {
	return s.store.ListForUser(ctx, userID, status)
}

func (s *service) loadForUpdate(ctx context.Context, tx pgx.Tx, dealID uuid.UUID) (*models.Deal, error) {
	deal, err := s.store.GetForUpdate(ctx, tx, dealID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return deal, nil
}

func (s *service) emit(ctx context.Context, tx pgx.Tx, deal *models.Deal, event string, actorID uuid.UUID) error {
	if s.enqueue == nil {
		return nil
	}
	return s.enqueue(ctx, tx, notify.DealEventArgs{
		DealID:     deal.ID,
		Event:      event,
		ActorID:    actorID,
		ProposerID: deal.ProposerID,
		ReceiverID: deal.ReceiverID,
	})
}

func confirmedBy(d *models.Deal, id uuid.UUID) bool {
	if id == d.ProposerID {
		return d.ProposerConfirmed
	}
	return d.ReceiverConfirmed
}

func setConfirmed(d *models.Deal, id uuid.UUID) {
	if id == d.ProposerID {
		d.ProposerConfirmed = true
	} else {
		d.ReceiverConfirmed = true
	}
}
