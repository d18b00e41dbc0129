package db

import (
	"database/sql"
	"math"
	"strings"

	"github.com/hpungsan/keep/internal/errors"
)

// Balance returns the balance of a principal's account.
// An account with no row has a balance of zero.
func Balance(q Querier, principal string) (int64, error) {
	var balance int64
	err := q.QueryRow(`SELECT balance FROM accounts WHERE principal = ?`, principal).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return balance, nil
}

// Credit adds amount to a principal's account, creating it if absent. A
// credit that would push the balance past the int64 range is rejected:
// SQLite would otherwise widen the sum to a float and corrupt the column.
func Credit(q Querier, principal string, amount int64) error {
	if amount < 0 {
		return errors.NewInternal(nil)
	}

	balance, err := Balance(q, principal)
	if err != nil {
		return err
	}
	if amount > math.MaxInt64-balance {
		return errors.NewInvalidAmount("balance would overflow")
	}

	query := `
		INSERT INTO accounts (principal, balance) VALUES (?, ?)
		ON CONFLICT(principal) DO UPDATE SET balance = balance + excluded.balance
	`

	if _, err := q.Exec(query, principal, amount); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Debit subtracts amount from a principal's account. A debit that would
// overdraw the account fails with INSUFFICIENT_FUNDS and changes nothing.
func Debit(q Querier, principal string, amount int64) error {
	if amount < 0 {
		return errors.NewInternal(nil)
	}

	result, err := q.Exec(
		`UPDATE accounts SET balance = balance - ? WHERE principal = ? AND balance >= ?`,
		amount, principal, amount,
	)
	if err != nil {
		// The CHECK constraint can also fire under concurrent writers.
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return errors.NewInsufficientFunds(principal, amount)
		}
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewInsufficientFunds(principal, amount)
	}
	return nil
}

// Transfer moves amount between accounts. It is atomic only when q is a
// transaction, which is how every operation invokes it.
func Transfer(q Querier, from, to string, amount int64) error {
	if amount == 0 {
		return nil
	}
	if err := Debit(q, from, amount); err != nil {
		return err
	}
	return Credit(q, to, amount)
}
