package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// CancelInput contains parameters for the Cancel operation.
type CancelInput struct {
	Caller string
	ID     uint64
}

// CancelOutput contains the result of the Cancel operation.
type CancelOutput struct {
	ID      uint64 `json:"id"`
	Refund  int64  `json:"refund"`
	Penalty int64  `json:"penalty"`
}

// Cancel lets the creator back out of a still-locked capsule for a 10%
// penalty. The refund leaves escrow; the penalty stays behind, dropping out
// of the tracked custodied total so it becomes harvestable surplus for
// WithdrawPenalties. Once a capsule has unlocked, only Open applies.
func (l *Ledger) Cancel(input CancelInput) (*CancelOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	now := l.clock.Now()
	var output *CancelOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Creator {
			return errors.NewUnauthorized("only the creator may cancel")
		}
		if err := requireNotPaused(tx); err != nil {
			return err
		}
		if c.Consumed {
			return errors.NewAlreadyConsumed(c.ID)
		}
		if !c.Locked(now) {
			return errors.NewStillLocked("capsule has already unlocked; it can only be opened")
		}

		penalty := c.Value / PenaltyDivisor
		refund := c.Value - penalty

		if refund > 0 {
			if err := db.Transfer(tx, db.EscrowAccount, c.Creator, refund); err != nil {
				return err
			}
		}

		// The value field is deliberately left as-is; consumption is
		// signalled by the consumed flag.
		if err := db.MarkConsumed(tx, c.ID, now, false); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionCancelled,
		}); err != nil {
			return err
		}

		// The full value leaves the tracked total even though only the
		// refund leaves escrow: the difference is the penalty pool.
		if err := db.AddCounters(tx, 0, 0, -c.Value); err != nil {
			return err
		}

		output = &CancelOutput{ID: c.ID, Refund: refund, Penalty: penalty}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
