package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// UpdateMessageInput contains parameters for the UpdateMessage operation.
type UpdateMessageInput struct {
	Caller  string
	ID      uint64
	Payload string
}

// UpdateMessageOutput contains the result of the UpdateMessage operation.
type UpdateMessageOutput struct {
	ID uint64 `json:"id"`
}

// UpdateMessage replaces the locked content. The check is strictly
// now < unlock_time: updates are disallowed the instant the unlock time is
// reached.
func (l *Ledger) UpdateMessage(input UpdateMessageInput) (*UpdateMessageOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)

	if err := capsule.ValidatePayload(input.Payload); err != nil {
		return nil, errors.NewInvalidPayload(err.Error())
	}

	now := l.clock.Now()
	var output *UpdateMessageOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Creator {
			return errors.NewUnauthorized("only the creator may update the message")
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

		if err := db.SetPayload(tx, c.ID, input.Payload); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionMessageUpdated,
		}); err != nil {
			return err
		}

		output = &UpdateMessageOutput{ID: c.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
