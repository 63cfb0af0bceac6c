// Package notify delivers deal-transition events to participants. Events
// are enqueued inside the same database transaction as the transition
// (river.Client.InsertTx), so a committed transition produces its event
// exactly once; delivery happens asynchronously and failures there never
// touch the deal.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/skillswap/backend/internal/models"
)

// Deal event tags, one per announced transition.
const (
	EventProposed  = "proposed"
	EventAccepted  = "accepted"
	EventRejected  = "rejected"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
	EventDisputed  = "disputed"
)

type DealEventArgs struct {
	DealID     uuid.UUID `json:"deal_id"`
	Event      string    `json:"event"`
	ActorID    uuid.UUID `json:"actor_id"`
	ProposerID uuid.UUID `json:"proposer_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
}

func (DealEventArgs) Kind() string { return "deal_event" }

// NotificationStore persists rendered notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// UserGetter resolves user names for notification messages.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type DealEventWorker struct {
	river.WorkerDefaults[DealEventArgs]
	store NotificationStore
	users UserGetter
}

func NewDealEventWorker(store NotificationStore, users UserGetter) *DealEventWorker {
	return &DealEventWorker{store: store, users: users}
}

func (w *DealEventWorker) Work(ctx context.Context, job *river.Job[DealEventArgs]) error {
	args := job.Args

	actorName := "A user"
	if actor, err := w.users.GetByID(ctx, args.ActorID); err == nil {
		actorName = actor.Name
	}

	for _, n := range buildNotifications(args, actorName) {
		if err := w.store.Create(ctx, &n); err != nil {
			return fmt.Errorf("create notification for %s: %w", n.RecipientID, err)
		}
	}
	return nil
}

// buildNotifications decides who hears about the event and with what
// message. Proposal responses go to the proposer, completions to both
// participants, everything else to the actor's counterparty.
func buildNotifications(args DealEventArgs, actorName string) []models.Notification {
	dealID := args.DealID
	note := func(recipient uuid.UUID, typ, message string) models.Notification {
		return models.Notification{
			ID:          uuid.New(),
			RecipientID: recipient,
			ActorID:     args.ActorID,
			DealID:      &dealID,
			Type:        typ,
			Message:     message,
		}
	}

	other := args.ProposerID
	if args.ActorID == args.ProposerID {
		other = args.ReceiverID
	}

	switch args.Event {
	case EventProposed:
		return []models.Notification{
			note(args.ReceiverID, models.NotificationNewProposal,
				fmt.Sprintf("%s sent you a barter proposal", actorName)),
		}
	case EventAccepted:
		return []models.Notification{
			note(args.ProposerID, models.NotificationProposalAccepted,
				fmt.Sprintf("%s accepted your barter proposal", actorName)),
		}
	case EventRejected:
		return []models.Notification{
			note(args.ProposerID, models.NotificationProposalRejected,
				fmt.Sprintf("%s declined your barter proposal", actorName)),
		}
	case EventCompleted:
		return []models.Notification{
			note(args.ProposerID, models.NotificationDealCompleted, "Your barter deal is complete"),
			note(args.ReceiverID, models.NotificationDealCompleted, "Your barter deal is complete"),
		}
	case EventCancelled:
		return []models.Notification{
			note(other, models.NotificationDealCancelled,
				fmt.Sprintf("%s cancelled your barter deal", actorName)),
		}
	case EventDisputed:
		return []models.Notification{
			note(other, models.NotificationDealDisputed,
				fmt.Sprintf("%s raised a dispute on your barter deal", actorName)),
		}
	}
	return nil
}
