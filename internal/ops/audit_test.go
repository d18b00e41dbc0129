package ops

import (
	"testing"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/errors"
)

// TestAudit_SingleSlot verifies the log keeps one entry per capsule, each
// action overwriting the last.
func TestAudit_SingleSlot(t *testing.T) {
	l, clock := newTestLedger(t, "")
	fund(t, l, "alice", 100)

	id := mustCreate(t, l, CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "p", Value: 100, Delay: 100,
	})

	entry, err := l.Audit(AuditInput{ID: id})
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if entry.Action != capsule.ActionCreated || entry.Actor != "alice" || entry.At != 1000 {
		t.Errorf("entry = %+v, want created by alice at 1000", entry)
	}

	clock.now += 50
	fund(t, l, "alice", 1)
	if _, err := l.AddFunds(AddFundsInput{Caller: "alice", ID: id, Amount: 1}); err != nil {
		t.Fatalf("AddFunds failed: %v", err)
	}

	entry, _ = l.Audit(AuditInput{ID: id})
	if entry.Action != capsule.ActionFundsAdded || entry.At != 1050 {
		t.Errorf("entry = %+v, want funds-added at 1050", entry)
	}

	clock.now += 50
	if _, err := l.Open(OpenInput{Caller: "bob", ID: id}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	entry, _ = l.Audit(AuditInput{ID: id})
	if entry.Action != capsule.ActionOpened || entry.Actor != "bob" {
		t.Errorf("entry = %+v, want opened by bob", entry)
	}
}

func TestAudit_NotFound(t *testing.T) {
	l, _ := newTestLedger(t, "")

	_, err := l.Audit(AuditInput{ID: 7})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}
