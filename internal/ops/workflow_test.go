package ops

import (
	"testing"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/errors"
	"github.com/stretchr/testify/require"
)

// TestFullWorkflow exercises the complete capsule lifecycle:
// deposit → create → add funds → update message → extend → open → re-open (conflict)
func TestFullWorkflow(t *testing.T) {
	l, clock := newTestLedger(t, "owner")

	// 1. Fund the creator
	depOut, err := l.Deposit(DepositInput{Caller: "alice", Amount: 500})
	require.NoError(t, err)
	require.Equal(t, int64(500), depOut.Balance)

	// 2. Create
	createOut, err := l.Create(CreateInput{
		Caller:    "alice",
		Recipient: "bob",
		Payload:   "see you in the future",
		Value:     300,
		Delay:     100,
		Kind:      "letter",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), createOut.ID)
	require.Equal(t, int64(1100), createOut.UnlockTime)
	id := createOut.ID

	// 3. Top up the deposit
	addOut, err := l.AddFunds(AddFundsInput{Caller: "alice", ID: id, Amount: 200})
	require.NoError(t, err)
	require.Equal(t, int64(500), addOut.NewValue)

	// 4. Rewrite the message while still locked
	_, err = l.UpdateMessage(UpdateMessageInput{Caller: "alice", ID: id, Payload: "see you soon"})
	require.NoError(t, err)

	// 5. Push the unlock out
	extOut, err := l.Extend(ExtendInput{Caller: "alice", ID: id, Delay: 50})
	require.NoError(t, err)
	require.Equal(t, int64(1150), extOut.UnlockTime)

	// 6. Too early: the recipient is held off
	clock.now = 1100
	_, err = l.Open(OpenInput{Caller: "bob", ID: id})
	require.True(t, errors.Is(err, errors.ErrStillLocked))

	// 7. At the extended unlock, the open releases the edited payload and
	// the topped-up deposit
	clock.now = 1150
	openOut, err := l.Open(OpenInput{Caller: "bob", ID: id})
	require.NoError(t, err)
	require.Equal(t, "see you soon", openOut.Payload)
	require.Equal(t, int64(500), openOut.Value)

	bal, err := l.Balance(BalanceInput{Principal: "bob"})
	require.NoError(t, err)
	require.Equal(t, int64(500), bal.Balance)

	// 8. Terminal: a second open conflicts
	_, err = l.Open(OpenInput{Caller: "bob", ID: id})
	require.True(t, errors.Is(err, errors.ErrAlreadyConsumed))

	// The audit slot holds only the final action
	audit, err := l.Audit(AuditInput{ID: id})
	require.NoError(t, err)
	require.Equal(t, capsule.ActionOpened, audit.Action)

	// Nothing is left in custody
	stats, err := l.Stats()
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalValueLocked)
	require.Equal(t, int64(1), stats.TotalOpened)
	checkInvariant(t, l)
}
