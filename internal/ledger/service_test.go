package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ---------------------------------------------------------------------------
// In-memory mock for BalanceRepo. Lets us test Transfer logic without a
// database; LockPair calls are recorded to verify deterministic ordering.
// ---------------------------------------------------------------------------

type mockBalances struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
	lockLog  [][2]uuid.UUID
}

func newMockBalances() *mockBalances {
	return &mockBalances{balances: make(map[uuid.UUID]int)}
}

func (m *mockBalances) set(id uuid.UUID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[id] = n
}

func (m *mockBalances) get(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

func (m *mockBalances) LockPair(_ context.Context, _ pgx.Tx, a, b uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	m.lockLog = append(m.lockLog, [2]uuid.UUID{first, second})
	return nil
}

func (m *mockBalances) Debit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	if bal < amount {
		return ErrInsufficientBalance
	}
	m.balances[id] = bal - amount
	return nil
}

func (m *mockBalances) Credit(_ context.Context, _ pgx.Tx, id uuid.UUID, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[id]; !ok {
		return fmt.Errorf("user %s not found", id)
	}
	m.balances[id] += amount
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTransfer(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	repo := newMockBalances()
	repo.set(alice, 100)
	repo.set(bob, 40)
	svc := NewService(repo)

	ctx := context.Background()
	if err := svc.Transfer(ctx, nil, alice, bob, 30); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if got := repo.get(alice); got != 70 {
		t.Errorf("alice balance: got %d, want 70", got)
	}
	if got := repo.get(bob); got != 70 {
		t.Errorf("bob balance: got %d, want 70", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	repo := newMockBalances()
	repo.set(alice, 5)
	repo.set(bob, 0)
	svc := NewService(repo)

	err := svc.Transfer(context.Background(), nil, alice, bob, 10)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got: %v", err)
	}

	// Neither balance moves.
	if got := repo.get(alice); got != 5 {
		t.Errorf("alice balance: got %d, want 5", got)
	}
	if got := repo.get(bob); got != 0 {
		t.Errorf("bob balance: got %d, want 0", got)
	}
}

func TestTransferZeroIsNoOp(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	repo := newMockBalances()
	repo.set(alice, 10)
	repo.set(bob, 10)
	svc := NewService(repo)

	if err := svc.Transfer(context.Background(), nil, alice, bob, 0); err != nil {
		t.Fatalf("zero transfer should succeed: %v", err)
	}
	// No rows should even be locked for a zero transfer.
	if len(repo.lockLog) != 0 {
		t.Errorf("zero transfer locked rows: %v", repo.lockLog)
	}
	if repo.get(alice) != 10 || repo.get(bob) != 10 {
		t.Error("zero transfer changed balances")
	}
}

func TestTransferNegativeRejected(t *testing.T) {
	repo := newMockBalances()
	svc := NewService(repo)
	if err := svc.Transfer(context.Background(), nil, uuid.New(), uuid.New(), -1); err == nil {
		t.Fatal("negative transfer should fail")
	}
}

func TestTransferLockOrderIsDeterministic(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	repo := newMockBalances()
	repo.set(alice, 100)
	repo.set(bob, 100)
	svc := NewService(repo)

	ctx := context.Background()
	if err := svc.Transfer(ctx, nil, alice, bob, 1); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := svc.Transfer(ctx, nil, bob, alice, 1); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if len(repo.lockLog) != 2 {
		t.Fatalf("lock calls: got %d, want 2", len(repo.lockLog))
	}
	// Same pair locked in the same order regardless of transfer direction.
	if repo.lockLog[0] != repo.lockLog[1] {
		t.Errorf("lock order differs by direction: %v vs %v", repo.lockLog[0], repo.lockLog[1])
	}
}
