package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/skillswap/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks for NotificationStore and UserGetter.
// ---------------------------------------------------------------------------

type mockStore struct {
	created []*models.Notification
}

func (m *mockStore) Create(_ context.Context, n *models.Notification) error {
	cp := *n
	m.created = append(m.created, &cp)
	return nil
}

type mockUsers struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// 1. TestBuildNotifications — recipient routing per event.
// ---------------------------------------------------------------------------

func TestBuildNotifications(t *testing.T) {
	proposer := uuid.New()
	receiver := uuid.New()
	dealID := uuid.New()

	args := func(event string, actor uuid.UUID) DealEventArgs {
		return DealEventArgs{
			DealID:     dealID,
			Event:      event,
			ActorID:    actor,
			ProposerID: proposer,
			ReceiverID: receiver,
		}
	}

	cases := []struct {
		name       string
		args       DealEventArgs
		recipients []uuid.UUID
		wantType   string
	}{
		{"proposed goes to receiver", args(EventProposed, proposer), []uuid.UUID{receiver}, models.NotificationNewProposal},
		{"accepted goes to proposer", args(EventAccepted, receiver), []uuid.UUID{proposer}, models.NotificationProposalAccepted},
		{"rejected goes to proposer", args(EventRejected, receiver), []uuid.UUID{proposer}, models.NotificationProposalRejected},
		{"completed goes to both", args(EventCompleted, receiver), []uuid.UUID{proposer, receiver}, models.NotificationDealCompleted},
		{"cancel by proposer notifies receiver", args(EventCancelled, proposer), []uuid.UUID{receiver}, models.NotificationDealCancelled},
		{"cancel by receiver notifies proposer", args(EventCancelled, receiver), []uuid.UUID{proposer}, models.NotificationDealCancelled},
		{"dispute notifies counterparty", args(EventDisputed, proposer), []uuid.UUID{receiver}, models.NotificationDealDisputed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			notes := buildNotifications(c.args, "Ada")
			if len(notes) != len(c.recipients) {
				t.Fatalf("notifications: got %d, want %d", len(notes), len(c.recipients))
			}
			for i, want := range c.recipients {
				if notes[i].RecipientID != want {
					t.Errorf("recipient %d: got %s, want %s", i, notes[i].RecipientID, want)
				}
				if notes[i].Type != c.wantType {
					t.Errorf("type: got %s, want %s", notes[i].Type, c.wantType)
				}
				if notes[i].DealID == nil || *notes[i].DealID != dealID {
					t.Error("notification should reference the deal")
				}
			}
		})
	}

	// Unknown events produce nothing.
	if notes := buildNotifications(args("vanished", proposer), "Ada"); len(notes) != 0 {
		t.Errorf("unknown event: got %d notifications, want 0", len(notes))
	}
}

// ---------------------------------------------------------------------------
// 2. TestWork — the worker resolves the actor name and persists.
// ---------------------------------------------------------------------------

func TestWork(t *testing.T) {
	proposer := uuid.New()
	receiver := uuid.New()

	store := &mockStore{}
	users := &mockUsers{users: map[uuid.UUID]*models.User{
		proposer: {ID: proposer, Name: "Grace"},
	}}
	worker := NewDealEventWorker(store, users)

	job := &river.Job[DealEventArgs]{Args: DealEventArgs{
		DealID:     uuid.New(),
		Event:      EventProposed,
		ActorID:    proposer,
		ProposerID: proposer,
		ReceiverID: receiver,
	}}
	if err := worker.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("created notifications: got %d, want 1", len(store.created))
	}
	if got := store.created[0].Message; got != "Grace sent you a barter proposal" {
		t.Errorf("message: got %q", got)
	}

	// Unknown actor falls back to a generic name rather than failing.
	job.Args.ActorID = uuid.New()
	if err := worker.Work(context.Background(), job); err != nil {
		t.Fatalf("Work with unknown actor: %v", err)
	}
	if got := store.created[1].Message; got != "A user sent you a barter proposal" {
		t.Errorf("fallback message: got %q", got)
	}
}
