package ops

import (
	"database/sql"
	"math"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// AddFundsInput contains parameters for the AddFunds operation.
type AddFundsInput struct {
	Caller string
	ID     uint64
	Amount int64
}

// AddFundsOutput contains the result of the AddFunds operation.
type AddFundsOutput struct {
	ID       uint64 `json:"id"`
	NewValue int64  `json:"new_value"`
}

// AddFunds lets the creator top up a capsule's custodied value before it is
// consumed.
func (l *Ledger) AddFunds(input AddFundsInput) (*AddFundsOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	now := l.clock.Now()
	var output *AddFundsOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Creator {
			return errors.NewUnauthorized("only the creator may add funds")
		}
		if err := requireNotPaused(tx); err != nil {
			return err
		}
		if c.Consumed {
			return errors.NewAlreadyConsumed(c.ID)
		}
		if input.Amount <= 0 {
			return errors.NewInvalidAmount("amount must be positive")
		}
		if input.Amount > math.MaxInt64-c.Value {
			return errors.NewInvalidAmount("capsule value would overflow")
		}

		if err := db.Transfer(tx, caller, db.EscrowAccount, input.Amount); err != nil {
			return err
		}
		if err := db.AddCapsuleValue(tx, c.ID, input.Amount); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionFundsAdded,
		}); err != nil {
			return err
		}

		if err := db.AddCounters(tx, 0, 0, input.Amount); err != nil {
			return err
		}

		output = &AddFundsOutput{ID: c.ID, NewValue: c.Value + input.Amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
