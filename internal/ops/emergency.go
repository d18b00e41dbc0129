package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// EmergencyWithdrawInput contains parameters for the EmergencyWithdraw operation.
type EmergencyWithdrawInput struct {
	Caller string
	ID     uint64
}

// EmergencyWithdrawOutput contains the result of the EmergencyWithdraw operation.
type EmergencyWithdrawOutput struct {
	ID       uint64 `json:"id"`
	Refunded int64  `json:"refunded"`
}

// EmergencyWithdraw lets the creator recover the full deposit, but only
// through a deliberately narrow gate: the unlock must still be more than
// FarFutureThreshold away AND the capsule must have been created less than
// FreshWindow ago. Both conditions are required; the gate exists to undo a
// fat-fingered far-future lock right after creation, nothing more.
// This path is not gated by the pause flag.
func (l *Ledger) EmergencyWithdraw(input EmergencyWithdrawInput) (*EmergencyWithdrawOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	now := l.clock.Now()
	var output *EmergencyWithdrawOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Creator {
			return errors.NewUnauthorized("only the creator may emergency-withdraw")
		}
		if c.Consumed {
			return errors.NewAlreadyConsumed(c.ID)
		}
		if c.Value <= 0 {
			return errors.NewInvalidAmount("capsule holds no value")
		}

		remaining := c.UnlockTime - now
		elapsed := now - c.CreatedAt
		if remaining <= FarFutureThreshold || elapsed >= FreshWindow {
			return errors.NewUnauthorized("emergency withdrawal requires a far-future unlock and a freshly created capsule")
		}

		if err := db.Transfer(tx, db.EscrowAccount, c.Creator, c.Value); err != nil {
			return err
		}

		if err := db.MarkConsumed(tx, c.ID, now, true); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionEmergencyWithdraw,
		}); err != nil {
			return err
		}

		if err := db.AddCounters(tx, 0, 0, -c.Value); err != nil {
			return err
		}

		output = &EmergencyWithdrawOutput{ID: c.ID, Refunded: c.Value}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
