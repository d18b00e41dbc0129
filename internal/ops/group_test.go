package ops

import (
	"math"
	"testing"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/errors"
)

// TestCreateGroup walks Scenario D: three recipients at 50 each cost the
// creator 150 in one intake and mint three sequential group capsules.
func TestCreateGroup(t *testing.T) {
	l, clock := newTestLedger(t, "")
	fund(t, l, "alice", 150)

	out, err := l.CreateGroup(CreateGroupInput{
		Caller:     "alice",
		Recipients: []string{"bob", "carol", "dave"},
		Payload:    "party time",
		Value:      50,
		Delay:      500,
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if out.BaseID != 0 || out.Count != 3 {
		t.Errorf("BaseID/Count = %d/%d, want 0/3", out.BaseID, out.Count)
	}

	if got := balanceOf(t, l, "alice"); got != 0 {
		t.Errorf("alice balance = %d, want 0", got)
	}

	wantRecipients := []string{"bob", "carol", "dave"}
	for i, recipient := range wantRecipients {
		id := out.BaseID + uint64(i) + 1
		show, err := l.Show(ShowInput{ID: id})
		if err != nil {
			t.Fatalf("Show(%d) failed: %v", id, err)
		}
		if show.Recipient != recipient {
			t.Errorf("capsule %d recipient = %q, want %q", id, show.Recipient, recipient)
		}
		if show.Kind != "group" {
			t.Errorf("capsule %d kind = %q, want group", id, show.Kind)
		}
		if show.Value != 50 {
			t.Errorf("capsule %d value = %d, want 50", id, show.Value)
		}
	}

	stats, _ := l.Stats()
	if stats.TotalCapsules != 3 || stats.TotalValueLocked != 150 {
		t.Errorf("counters = %d capsules / %d locked, want 3/150",
			stats.TotalCapsules, stats.TotalValueLocked)
	}
	checkInvariant(t, l)

	// Every recipient sees exactly their capsule; the creator sees all three
	for _, recipient := range wantRecipients {
		listed, err := l.List(ListInput{Principal: recipient})
		if err != nil {
			t.Fatalf("List(%s) failed: %v", recipient, err)
		}
		if len(listed.Items) != 1 {
			t.Errorf("List(%s) = %d items, want 1", recipient, len(listed.Items))
		}
	}
	listed, _ := l.List(ListInput{Principal: "alice"})
	if len(listed.Items) != 3 {
		t.Errorf("List(alice) = %d items, want 3", len(listed.Items))
	}

	// Each capsule opens independently
	clock.now += 500
	if _, err := l.Open(OpenInput{Caller: "carol", ID: out.BaseID + 2}); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := balanceOf(t, l, "carol"); got != 50 {
		t.Errorf("carol balance = %d, want 50", got)
	}
	checkInvariant(t, l)
}

// TestCreateGroup_RollsBack verifies that an aggregate funding failure mints
// nothing: the intake and every insert share one transaction.
func TestCreateGroup_RollsBack(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 149)

	_, err := l.CreateGroup(CreateGroupInput{
		Caller:     "alice",
		Recipients: []string{"bob", "carol", "dave"},
		Payload:    "p",
		Value:      50,
		Delay:      500,
	})
	if !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want INSUFFICIENT_FUNDS", err)
	}

	if got := balanceOf(t, l, "alice"); got != 149 {
		t.Errorf("alice balance = %d, want untouched 149", got)
	}
	stats, _ := l.Stats()
	if stats.Nonce != 0 || stats.TotalCapsules != 0 {
		t.Errorf("counters moved: nonce %d, capsules %d", stats.Nonce, stats.TotalCapsules)
	}
	checkInvariant(t, l)
}

// TestCreateGroup_SelfRecipient confirms the group path, unlike Create,
// allows the caller in the recipient list, with a single index entry.
func TestCreateGroup_SelfRecipient(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 100)

	out, err := l.CreateGroup(CreateGroupInput{
		Caller:     "alice",
		Recipients: []string{"alice", "bob"},
		Payload:    "p",
		Value:      50,
		Delay:      500,
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}

	// alice is creator of both and recipient of one: 2 index rows, not 3
	listed, err := l.List(ListInput{Principal: "alice"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed.Items) != 2 {
		t.Errorf("List(alice) = %d items, want 2", len(listed.Items))
	}
	checkInvariant(t, l)
}

// TestCreateGroup_BypassesCap documents that the group path does not
// re-check the per-creator capsule cap.
func TestCreateGroup_BypassesCap(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 1)

	for i := 0; i < capsule.MaxCapsulesPerCreator; i++ {
		mustCreate(t, l, CreateInput{
			Caller: "alice", Recipient: "bob", Payload: "p", Delay: 500,
		})
	}

	_, err := l.Create(CreateInput{Caller: "alice", Recipient: "bob", Payload: "p", Delay: 500})
	if !errors.Is(err, errors.ErrCapsuleLimitExceeded) {
		t.Fatalf("Create at cap = %v, want CAPSULE_LIMIT_EXCEEDED", err)
	}

	out, err := l.CreateGroup(CreateGroupInput{
		Caller:     "alice",
		Recipients: []string{"carol"},
		Payload:    "p",
		Delay:      500,
	})
	if err != nil {
		t.Fatalf("CreateGroup at cap failed: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}
}

func TestCreateGroup_Errors(t *testing.T) {
	l, _ := newTestLedger(t, "owner")
	fund(t, l, "alice", 1000)

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = string(rune('a' + i))
	}

	cases := []struct {
		name  string
		input CreateGroupInput
		code  errors.ErrorCode
	}{
		{"empty list", CreateGroupInput{Caller: "alice", Payload: "p", Delay: 1}, errors.ErrInvalidRecipient},
		{"too many", CreateGroupInput{Caller: "alice", Recipients: eleven, Payload: "p", Delay: 1}, errors.ErrInvalidRecipient},
		{"duplicate", CreateGroupInput{Caller: "alice", Recipients: []string{"bob", "bob"}, Payload: "p", Delay: 1}, errors.ErrInvalidRecipient},
		{"blank recipient", CreateGroupInput{Caller: "alice", Recipients: []string{"bob", "  "}, Payload: "p", Delay: 1}, errors.ErrInvalidRecipient},
		{"empty payload", CreateGroupInput{Caller: "alice", Recipients: []string{"bob"}, Payload: "  ", Delay: 1}, errors.ErrInvalidPayload},
		{"negative value", CreateGroupInput{Caller: "alice", Recipients: []string{"bob"}, Payload: "p", Value: -1, Delay: 1}, errors.ErrInvalidAmount},
		{"zero delay", CreateGroupInput{Caller: "alice", Recipients: []string{"bob"}, Payload: "p"}, errors.ErrInvalidUnlockTime},
		{"delay overflows unlock time", CreateGroupInput{Caller: "alice", Recipients: []string{"bob"}, Payload: "p", Delay: math.MaxInt64}, errors.ErrInvalidUnlockTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.CreateGroup(tc.input)
			if !errors.Is(err, tc.code) {
				t.Errorf("error = %v, want %s", err, tc.code)
			}
		})
	}

	if _, err := l.TogglePause(TogglePauseInput{Caller: "owner"}); err != nil {
		t.Fatalf("TogglePause failed: %v", err)
	}
	_, err := l.CreateGroup(CreateGroupInput{
		Caller: "alice", Recipients: []string{"bob"}, Payload: "p", Delay: 1,
	})
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("paused = %v, want UNAUTHORIZED", err)
	}
}

// TestCreateGroup_ValueOverflow covers a per-recipient value whose aggregate
// intake wraps negative, which would skip the escrow debit entirely and mint
// unbacked capsules.
func TestCreateGroup_ValueOverflow(t *testing.T) {
	l, _ := newTestLedger(t, "")

	recipients := make([]string, capsule.MaxGroupRecipients)
	for i := range recipients {
		recipients[i] = "r" + string(rune('a'+i))
	}

	_, err := l.CreateGroup(CreateGroupInput{
		Caller: "alice", Recipients: recipients, Payload: "p",
		Value: math.MaxInt64 / 2, Delay: 100,
	})
	if !errors.Is(err, errors.ErrInvalidAmount) {
		t.Fatalf("overflowing aggregate = %v, want INVALID_AMOUNT", err)
	}

	// Nothing minted, counters intact, Stats still readable.
	stats, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalCapsules != 0 || stats.TotalValueLocked != 0 {
		t.Errorf("counters = %d capsules / %d locked, want 0 / 0",
			stats.TotalCapsules, stats.TotalValueLocked)
	}
	checkInvariant(t, l)
}
