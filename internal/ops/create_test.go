package ops

import (
	"math"
	"strings"
	"testing"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

func TestCreate(t *testing.T) {
	l, clock := newTestLedger(t, "")
	fund(t, l, "alice", 1000)

	meta := "birthday"
	out, err := l.Create(CreateInput{
		Caller:    "alice",
		Recipient: "bob",
		Payload:   "open me in a year",
		Value:     400,
		Delay:     100,
		Kind:      "Gift",
		Public:    true,
		Metadata:  &meta,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if out.ID != 1 {
		t.Errorf("ID = %d, want 1", out.ID)
	}
	if out.UnlockTime != clock.now+100 {
		t.Errorf("UnlockTime = %d, want %d", out.UnlockTime, clock.now+100)
	}

	// Value moved into escrow
	if got := balanceOf(t, l, "alice"); got != 600 {
		t.Errorf("alice balance = %d, want 600", got)
	}
	if got := balanceOf(t, l, db.EscrowAccount); got != 400 {
		t.Errorf("escrow balance = %d, want 400", got)
	}

	// Record fields
	show, err := l.Show(ShowInput{ID: out.ID})
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if show.Creator != "alice" || show.Recipient != "bob" {
		t.Errorf("parties = %q/%q, want alice/bob", show.Creator, show.Recipient)
	}
	if show.Kind != "gift" {
		t.Errorf("Kind = %q, want normalized gift", show.Kind)
	}
	if !show.Public || !show.Locked || show.Consumed {
		t.Errorf("flags = public:%v locked:%v consumed:%v", show.Public, show.Locked, show.Consumed)
	}

	// Both parties indexed
	for _, p := range []string{"alice", "bob"} {
		list, err := l.List(ListInput{Principal: p})
		if err != nil {
			t.Fatalf("List(%s) failed: %v", p, err)
		}
		if len(list.Items) != 1 || list.Items[0].ID != out.ID {
			t.Errorf("List(%s) = %+v, want one entry for id %d", p, list.Items, out.ID)
		}
	}

	// Audit entry written
	audit, err := l.Audit(AuditInput{ID: out.ID})
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if audit.Action != capsule.ActionCreated || audit.Actor != "alice" {
		t.Errorf("audit = %+v, want created by alice", audit)
	}

	// Counters
	stats, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Nonce != 1 || stats.TotalCapsules != 1 || stats.TotalValueLocked != 400 {
		t.Errorf("stats = %+v", stats)
	}

	checkInvariant(t, l)
}

func TestCreate_ZeroValue(t *testing.T) {
	l, _ := newTestLedger(t, "")

	// No funds needed for a value-zero capsule
	out, err := l.Create(CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "just words", Delay: 10,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if out.ID != 1 {
		t.Errorf("ID = %d, want 1", out.ID)
	}
	checkInvariant(t, l)
}

func TestCreate_SelfRecipient(t *testing.T) {
	l, _ := newTestLedger(t, "")

	_, err := l.Create(CreateInput{
		Caller: "alice", Recipient: "alice", Payload: "to me", Delay: 10,
	})
	if !errors.Is(err, errors.ErrInvalidRecipient) {
		t.Errorf("error = %v, want INVALID_RECIPIENT", err)
	}
}

func TestCreate_InvalidInputs(t *testing.T) {
	l, _ := newTestLedger(t, "")

	cases := []struct {
		name  string
		input CreateInput
		code  errors.ErrorCode
	}{
		{"empty payload", CreateInput{Caller: "a", Recipient: "b", Payload: "", Delay: 10}, errors.ErrInvalidPayload},
		{"long payload", CreateInput{Caller: "a", Recipient: "b", Payload: strings.Repeat("x", capsule.MaxPayloadRunes+1), Delay: 10}, errors.ErrInvalidPayload},
		{"long metadata", CreateInput{Caller: "a", Recipient: "b", Payload: "p", Delay: 10, Metadata: stringPtr(strings.Repeat("m", capsule.MaxMetadataRunes+1))}, errors.ErrInvalidPayload},
		{"negative value", CreateInput{Caller: "a", Recipient: "b", Payload: "p", Value: -1, Delay: 10}, errors.ErrInvalidAmount},
		{"zero delay", CreateInput{Caller: "a", Recipient: "b", Payload: "p", Delay: 0}, errors.ErrInvalidUnlockTime},
		{"negative delay", CreateInput{Caller: "a", Recipient: "b", Payload: "p", Delay: -5}, errors.ErrInvalidUnlockTime},
		{"delay overflows unlock time", CreateInput{Caller: "a", Recipient: "b", Payload: "p", Delay: math.MaxInt64}, errors.ErrInvalidUnlockTime},
		{"missing recipient", CreateInput{Caller: "a", Recipient: "  ", Payload: "p", Delay: 10}, errors.ErrInvalidRecipient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Create(tc.input)
			if !errors.Is(err, tc.code) {
				t.Errorf("error = %v, want %s", err, tc.code)
			}
		})
	}
}

func TestCreate_InsufficientFunds(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 50)

	_, err := l.Create(CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "p", Value: 100, Delay: 10,
	})
	if !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want INSUFFICIENT_FUNDS", err)
	}

	// The failed call left no trace: no id burned, nothing indexed
	if got := balanceOf(t, l, "alice"); got != 50 {
		t.Errorf("alice balance = %d, want untouched 50", got)
	}
	id := mustCreate(t, l, CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "p", Value: 50, Delay: 10,
	})
	if id != 1 {
		t.Errorf("next id = %d, want 1 (failed create must not burn ids)", id)
	}
	checkInvariant(t, l)
}

func TestCreate_Paused(t *testing.T) {
	l, _ := newTestLedger(t, "owner")
	if _, err := l.TogglePause(TogglePauseInput{Caller: "owner"}); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}

	_, err := l.Create(CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "p", Delay: 10,
	})
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("error = %v, want UNAUTHORIZED while paused", err)
	}
}

func TestCreate_CapsuleLimit(t *testing.T) {
	l, _ := newTestLedger(t, "")

	// Fill alice's index to the cap with zero-value capsules
	for i := 0; i < capsule.MaxCapsulesPerCreator; i++ {
		mustCreate(t, l, CreateInput{
			Caller: "alice", Recipient: "bob", Payload: "p", Delay: 10,
		})
	}

	_, err := l.Create(CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "p", Delay: 10,
	})
	if !errors.Is(err, errors.ErrCapsuleLimitExceeded) {
		t.Errorf("error = %v, want CAPSULE_LIMIT_EXCEEDED", err)
	}

	// Bob is over the cap too: index entries count regardless of role
	_, err = l.Create(CreateInput{
		Caller: "bob", Recipient: "carol", Payload: "p", Delay: 10,
	})
	if !errors.Is(err, errors.ErrCapsuleLimitExceeded) {
		t.Errorf("bob error = %v, want CAPSULE_LIMIT_EXCEEDED", err)
	}

	// An uninvolved principal is unaffected
	if _, err := l.Create(CreateInput{
		Caller: "carol", Recipient: "dave", Payload: "p", Delay: 10,
	}); err != nil {
		t.Errorf("carol Create failed: %v", err)
	}
}
