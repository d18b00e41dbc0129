package ops

import (
	"database/sql"
	"math"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Caller    string
	Recipient string
	Payload   string
	Value     int64 // moved from the caller's account into escrow
	Delay     int64 // time units until unlock, must be positive
	Kind      string
	Public    bool
	Metadata  *string
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	ID         uint64 `json:"id"`
	UnlockTime int64  `json:"unlock_time"`
}

// Create mints a new capsule custodying Value for Recipient until the time
// reference reaches now + Delay.
func (l *Ledger) Create(input CreateInput) (*CreateOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	recipient := capsule.NormalizePrincipal(input.Recipient)

	if caller == "" || recipient == "" {
		return nil, errors.NewInvalidRecipient("caller and recipient are required")
	}
	if recipient == caller {
		return nil, errors.NewInvalidRecipient("cannot create a capsule for yourself")
	}
	if err := capsule.ValidatePayload(input.Payload); err != nil {
		return nil, errors.NewInvalidPayload(err.Error())
	}
	if err := capsule.ValidateMetadata(input.Metadata); err != nil {
		return nil, errors.NewInvalidPayload(err.Error())
	}
	if input.Value < 0 {
		return nil, errors.NewInvalidAmount("value must not be negative")
	}
	if input.Delay <= 0 {
		return nil, errors.NewInvalidUnlockTime("delay must be positive")
	}

	now := l.clock.Now()
	if input.Delay > math.MaxInt64-now {
		return nil, errors.NewInvalidUnlockTime("delay overflows the unlock time")
	}
	var output *CreateOutput

	err := l.withTx(func(tx *sql.Tx) error {
		if err := requireNotPaused(tx); err != nil {
			return err
		}

		count, err := db.IndexCount(tx, caller)
		if err != nil {
			return err
		}
		if count >= capsule.MaxCapsulesPerCreator {
			return errors.NewCapsuleLimitExceeded(caller, capsule.MaxCapsulesPerCreator)
		}

		// Escrow intake first: a failed transfer aborts everything.
		if input.Value > 0 {
			if err := db.Transfer(tx, caller, db.EscrowAccount, input.Value); err != nil {
				return err
			}
		}

		id, err := db.NextCapsuleID(tx)
		if err != nil {
			return err
		}

		c := &capsule.Capsule{
			ID:         id,
			Creator:    caller,
			Recipient:  recipient,
			Payload:    input.Payload,
			Value:      input.Value,
			UnlockTime: now + input.Delay,
			CreatedAt:  now,
			Kind:       capsule.NormalizeKind(input.Kind),
			Metadata:   input.Metadata,
			Public:     input.Public,
		}
		if err := db.InsertCapsule(tx, c); err != nil {
			return err
		}

		if err := db.AppendIndex(tx, caller, id); err != nil {
			return err
		}
		if err := db.AppendIndex(tx, recipient, id); err != nil {
			return err
		}

		if err := db.PutAudit(tx, &capsule.AuditEntry{
			CapsuleID: id, Actor: caller, At: now, Action: capsule.ActionCreated,
		}); err != nil {
			return err
		}

		if err := db.AddCounters(tx, 1, 0, input.Value); err != nil {
			return err
		}

		output = &CreateOutput{ID: id, UnlockTime: c.UnlockTime}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
