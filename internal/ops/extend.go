package ops

import (
	"database/sql"
	"math"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// ExtendInput contains parameters for the Extend operation.
type ExtendInput struct {
	Caller string
	ID     uint64
	Delay  int64 // additional time units, must be positive
}

// ExtendOutput contains the result of the Extend operation.
type ExtendOutput struct {
	ID         uint64 `json:"id"`
	UnlockTime int64  `json:"unlock_time"`
}

// Extend pushes the unlock time further out. It can only move later, never
// earlier, and only while the capsule is still locked.
func (l *Ledger) Extend(input ExtendInput) (*ExtendOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)

	if input.Delay <= 0 {
		return nil, errors.NewInvalidUnlockTime("additional delay must be positive")
	}

	now := l.clock.Now()
	var output *ExtendOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Creator {
			return errors.NewUnauthorized("only the creator may extend the unlock time")
		}
		if err := requireNotPaused(tx); err != nil {
			return err
		}
		if c.Consumed {
			return errors.NewAlreadyConsumed(c.ID)
		}
		if !c.Locked(now) {
			return errors.NewStillLocked("capsule has already unlocked")
		}

		if input.Delay > math.MaxInt64-c.UnlockTime {
			return errors.NewInvalidUnlockTime("delay overflows the unlock time")
		}

		newUnlock := c.UnlockTime + input.Delay
		if err := db.SetUnlockTime(tx, c.ID, newUnlock); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionTimeExtended,
		}); err != nil {
			return err
		}

		output = &ExtendOutput{ID: c.ID, UnlockTime: newUnlock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
