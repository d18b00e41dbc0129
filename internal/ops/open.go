package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// OpenInput contains parameters for the Open operation.
type OpenInput struct {
	Caller string
	ID     uint64
}

// OpenOutput contains the released content and deposit details.
type OpenOutput struct {
	ID        uint64  `json:"id"`
	Payload   string  `json:"payload"`
	Value     int64   `json:"value"`
	Creator   string  `json:"creator"`
	CreatedAt int64   `json:"created_at"`
	Kind      string  `json:"kind"`
	Metadata  *string `json:"metadata,omitempty"`
}

// Open releases a capsule to its recipient: the custodied value is paid out
// and the capsule reaches its terminal state. The stored value field is left
// untouched; consumption is signalled by the consumed flag and opened_at.
func (l *Ledger) Open(input OpenInput) (*OpenOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	now := l.clock.Now()
	var output *OpenOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Recipient {
			return errors.NewUnauthorized("only the recipient may open a capsule")
		}
		if err := requireNotPaused(tx); err != nil {
			return err
		}
		if c.Locked(now) {
			return errors.NewStillLocked("capsule is still locked")
		}
		if c.Consumed {
			return errors.NewAlreadyConsumed(c.ID)
		}

		if c.Value > 0 {
			if err := db.Transfer(tx, db.EscrowAccount, c.Recipient, c.Value); err != nil {
				return err
			}
		}

		if err := db.MarkConsumed(tx, c.ID, now, false); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionOpened,
		}); err != nil {
			return err
		}

		if err := db.AddCounters(tx, 0, 1, -c.Value); err != nil {
			return err
		}

		output = &OpenOutput{
			ID:        c.ID,
			Payload:   c.Payload,
			Value:     c.Value,
			Creator:   c.Creator,
			CreatedAt: c.CreatedAt,
			Kind:      c.Kind,
			Metadata:  c.Metadata,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
