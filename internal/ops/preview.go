package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// PreviewInput contains parameters for the Preview operation.
type PreviewInput struct {
	Caller string
	ID     uint64
}

// PreviewOutput mirrors OpenOutput but leaves the capsule untouched.
type PreviewOutput struct {
	ID        uint64  `json:"id"`
	Payload   string  `json:"payload"`
	Value     int64   `json:"value"`
	Creator   string  `json:"creator"`
	CreatedAt int64   `json:"created_at"`
	Kind      string  `json:"kind"`
	Metadata  *string `json:"metadata,omitempty"`
}

// Preview lets the recipient read an unlocked capsule without consuming it.
// It is a read in spirit but still overwrites the audit entry, works on
// consumed capsules, and is not gated by the pause flag.
func (l *Ledger) Preview(input PreviewInput) (*PreviewOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	now := l.clock.Now()
	var output *PreviewOutput

	err := l.withTx(func(tx *sql.Tx) error {
		c, err := db.GetCapsule(tx, input.ID)
		if err != nil {
			return err
		}

		if caller != c.Recipient {
			return errors.NewUnauthorized("only the recipient may preview a capsule")
		}
		if c.Locked(now) {
			return errors.NewStillLocked("capsule is still locked")
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: c.ID, Actor: caller, At: now, Action: capsule.ActionPreviewed,
		}); err != nil {
			return err
		}

		output = &PreviewOutput{
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
