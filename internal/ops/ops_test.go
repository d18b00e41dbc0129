package ops

import (
	"testing"

	"github.com/hpungsan/keep/internal/config"
	"github.com/hpungsan/keep/internal/db"
)

// fakeClock is a settable time reference for tests.
type fakeClock struct {
	now int64
}

func (f *fakeClock) Now() int64 { return f.now }

// newTestLedger creates a Ledger over a fresh temp database with a fake
// clock starting at 1000 and the given system owner.
func newTestLedger(t *testing.T, owner string) (*Ledger, *fakeClock) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Owner = owner

	clock := &fakeClock{now: 1000}
	return New(database, cfg, clock), clock
}

// fund credits a principal's external account.
func fund(t *testing.T, l *Ledger, principal string, amount int64) {
	t.Helper()
	if _, err := l.Deposit(DepositInput{Caller: principal, Amount: amount}); err != nil {
		t.Fatalf("Deposit(%s, %d) failed: %v", principal, amount, err)
	}
}

// mustCreate creates a capsule and fails the test on error.
func mustCreate(t *testing.T, l *Ledger, input CreateInput) uint64 {
	t.Helper()
	out, err := l.Create(input)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return out.ID
}

// balanceOf reads a principal's external balance.
func balanceOf(t *testing.T, l *Ledger, principal string) int64 {
	t.Helper()
	out, err := l.Balance(BalanceInput{Principal: principal})
	if err != nil {
		t.Fatalf("Balance(%s) failed: %v", principal, err)
	}
	return out.Balance
}

// checkInvariant asserts that the tracked custodied total equals the sum of
// value over non-consumed capsules, and that escrow physically holds the
// tracked total plus the penalty pool.
func checkInvariant(t *testing.T, l *Ledger) {
	t.Helper()

	var sum int64
	if err := l.db.QueryRow(`SELECT COALESCE(SUM(value), 0) FROM capsules WHERE consumed = 0`).Scan(&sum); err != nil {
		t.Fatalf("sum unconsumed values: %v", err)
	}

	stats, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalValueLocked != sum {
		t.Errorf("tracked total = %d, sum of unconsumed values = %d", stats.TotalValueLocked, sum)
	}
	if stats.PenaltyPool < 0 {
		t.Errorf("penalty pool is negative: %d", stats.PenaltyPool)
	}

	escrow := balanceOf(t, l, db.EscrowAccount)
	if escrow != stats.TotalValueLocked+stats.PenaltyPool {
		t.Errorf("escrow balance = %d, want tracked %d + pool %d",
			escrow, stats.TotalValueLocked, stats.PenaltyPool)
	}
}

func stringPtr(s string) *string { return &s }
