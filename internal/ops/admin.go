package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// TogglePauseInput contains parameters for the TogglePause operation.
type TogglePauseInput struct {
	Caller string
}

// TogglePauseOutput contains the result of the TogglePause operation.
type TogglePauseOutput struct {
	Paused bool `json:"paused"`
}

// TogglePause flips the global pause flag. While paused, Create, Open,
// AddFunds, UpdateMessage, Extend, and Cancel are rejected;
// EmergencyWithdraw, Preview, and all reads remain available.
func (l *Ledger) TogglePause(input TogglePauseInput) (*TogglePauseOutput, error) {
	if err := l.requireOwner(input.Caller); err != nil {
		return nil, err
	}

	var output *TogglePauseOutput

	err := l.withTx(func(tx *sql.Tx) error {
		counters, err := db.GetCounters(tx)
		if err != nil {
			return err
		}

		paused := !counters.Paused
		if err := db.SetPaused(tx, paused); err != nil {
			return err
		}

		output = &TogglePauseOutput{Paused: paused}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// WithdrawPenaltiesInput contains parameters for the WithdrawPenalties operation.
type WithdrawPenaltiesInput struct {
	Caller string
	Amount int64
}

// WithdrawPenaltiesOutput contains the result of the WithdrawPenalties operation.
type WithdrawPenaltiesOutput struct {
	Withdrawn int64 `json:"withdrawn"`
	Remaining int64 `json:"remaining"`
}

// WithdrawPenalties pays the owner out of the escrow surplus: the portion of
// escrow's balance not backing the tracked custodied total (cancellation
// penalties and any reconciliation slack). Locked deposits are untouchable.
func (l *Ledger) WithdrawPenalties(input WithdrawPenaltiesInput) (*WithdrawPenaltiesOutput, error) {
	if err := l.requireOwner(input.Caller); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, errors.NewInvalidAmount("amount must be positive")
	}

	var output *WithdrawPenaltiesOutput

	err := l.withTx(func(tx *sql.Tx) error {
		escrowBalance, err := db.Balance(tx, db.EscrowAccount)
		if err != nil {
			return err
		}
		counters, err := db.GetCounters(tx)
		if err != nil {
			return err
		}

		surplus := escrowBalance - counters.TotalValueLocked
		if input.Amount > surplus {
			return errors.NewInvalidAmount("amount exceeds the penalty pool")
		}

		if err := db.Transfer(tx, db.EscrowAccount, l.cfg.Owner, input.Amount); err != nil {
			return err
		}

		output = &WithdrawPenaltiesOutput{
			Withdrawn: input.Amount,
			Remaining: surplus - input.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// requireOwner rejects callers other than the configured system owner.
func (l *Ledger) requireOwner(caller string) error {
	caller = capsule.NormalizePrincipal(caller)
	if l.cfg.Owner == "" || caller != l.cfg.Owner {
		return errors.NewUnauthorized("only the system owner may do this")
	}
	return nil
}
