package ops

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// DepositInput contains parameters for the Deposit operation.
type DepositInput struct {
	Caller string
	Amount int64
}

// DepositOutput contains the result of the Deposit operation.
type DepositOutput struct {
	Principal string `json:"principal"`
	Balance   int64  `json:"balance"`
}

// Deposit credits the caller's external account. Capsules custody value out
// of this balance; in a chain deployment the balance would come from the
// chain itself, here the account table stands in for it.
func (l *Ledger) Deposit(input DepositInput) (*DepositOutput, error) {
	caller := capsule.NormalizePrincipal(input.Caller)
	if caller == "" {
		return nil, errors.NewInvalidRequest("caller is required")
	}
	if caller == db.EscrowAccount {
		return nil, errors.NewInvalidRequest("cannot deposit into the escrow account")
	}
	if input.Amount <= 0 {
		return nil, errors.NewInvalidAmount("amount must be positive")
	}

	var output *DepositOutput

	err := l.withTx(func(tx *sql.Tx) error {
		if err := db.Credit(tx, caller, input.Amount); err != nil {
			return err
		}

		balance, err := db.Balance(tx, caller)
		if err != nil {
			return err
		}

		output = &DepositOutput{Principal: caller, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return output, nil
}

// BalanceInput contains parameters for the Balance operation.
type BalanceInput struct {
	Principal string
}

// BalanceOutput contains the result of the Balance operation.
type BalanceOutput struct {
	Principal string `json:"principal"`
	Balance   int64  `json:"balance"`
}

// Balance reads a principal's external account balance.
func (l *Ledger) Balance(input BalanceInput) (*BalanceOutput, error) {
	principal := capsule.NormalizePrincipal(input.Principal)
	if principal == "" {
		return nil, errors.NewInvalidRequest("principal is required")
	}

	balance, err := db.Balance(l.db, principal)
	if err != nil {
		return nil, err
	}

	return &BalanceOutput{Principal: principal, Balance: balance}, nil
}
