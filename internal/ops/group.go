package ops

import (
	"database/sql"
	"math"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// CreateGroupInput contains parameters for the CreateGroup operation.
type CreateGroupInput struct {
	Caller     string
	Recipients []string // up to MaxGroupRecipients distinct principals
	Payload    string   // shared by every minted capsule
	Value      int64    // per recipient
	Delay      int64
	Metadata   *string
}

// CreateGroupOutput contains the result of the CreateGroup operation.
// BaseID is the id immediately preceding the first minted capsule: the new
// ids are BaseID+1 through BaseID+Count. This mirrors the nonce-derived
// return contract of the original ledger.
type CreateGroupOutput struct {
	BaseID uint64 `json:"base_id"`
	Count  int    `json:"count"`
}

// CreateGroup mints one capsule per recipient with a shared payload and a
// per-recipient value, funded by a single aggregate escrow intake. The
// per-creator capsule cap is intentionally not re-checked on this path; see
// DESIGN.md for the reasoning.
func (l *Ledger) CreateGroup(input CreateGroupInput) (*CreateGroupOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	if caller == "" {
		return nil, errors.NewInvalidRecipient("caller is required")
	}

	if len(input.Recipients) == 0 {
		return nil, errors.NewInvalidRecipient("recipient list must not be empty")
	}
	if len(input.Recipients) > capsule.MaxGroupRecipients {
		return nil, errors.NewInvalidRecipient("too many recipients")
	}

	recipients := make([]string, 0, len(input.Recipients))
	seen := make(map[string]bool, len(input.Recipients))
	for _, r := range input.Recipients {
		r = capsule.NormalizePrincipal(r)
		if r == "" {
			return nil, errors.NewInvalidRecipient("recipient must not be empty")
		}
		if seen[r] {
			return nil, errors.NewInvalidRecipient("recipients must be distinct")
		}
		seen[r] = true
		recipients = append(recipients, r)
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
	if input.Value > math.MaxInt64/int64(len(recipients)) {
		return nil, errors.NewInvalidAmount("aggregate value overflows")
	}
	if input.Delay <= 0 {
		return nil, errors.NewInvalidUnlockTime("delay must be positive")
	}

	now := l.clock.Now()
	if input.Delay > math.MaxInt64-now {
		return nil, errors.NewInvalidUnlockTime("delay overflows the unlock time")
	}
	var output *CreateGroupOutput

	err := l.withTx(func(tx *sql.Tx) error {
		if err := requireNotPaused(tx); err != nil {
			return err
		}

		// One aggregate intake, then per-recipient capsule credits: a
		// failure anywhere rolls back every mint.
		total := input.Value * int64(len(recipients))
		if total > 0 {
			if err := db.Transfer(tx, caller, db.EscrowAccount, total); err != nil {
				return err
			}
		}

		counters, err := db.GetCounters(tx)
		if err != nil {
			return err
		}
		baseID := counters.Nonce

		for _, recipient := range recipients {
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
				Kind:       capsule.GroupKind,
				Metadata:   input.Metadata,
			}
			if err := db.InsertCapsule(tx, c); err != nil {
				return err
			}

			if err := db.AppendIndex(tx, caller, id); err != nil {
				return err
			}
			if recipient != caller {
				if err := db.AppendIndex(tx, recipient, id); err != nil {
					return err
				}
			}

			if err := db.PutAudit(tx, &capsule.AuditEntry{
				CapsuleID: id, Actor: caller, At: now, Action: capsule.ActionCreated,
			}); err != nil {
				return err
			}

			if err := db.AddCounters(tx, 1, 0, input.Value); err != nil {
				return err
			}
		}

		output = &CreateGroupOutput{BaseID: baseID, Count: len(recipients)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}
