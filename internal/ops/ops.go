// Package ops implements the capsule state machine: every public operation
// runs as one SQLite transaction, so either all of its effects (record,
// index, audit, counters, value transfer) land or none do.
package ops

import (
	"database/sql"
	"time"

	"github.com/hpungsan/keep/internal/config"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Time thresholds for the emergency-withdraw gate, in time-reference units
// (seconds under the system clock).
const (
	FarFutureThreshold int64 = 365 * 24 * 60 * 60
	FreshWindow        int64 = 24 * 60 * 60
)

// PenaltyDivisor sets the cancellation penalty at value / PenaltyDivisor,
// rounded down.
const PenaltyDivisor = 10

// Clock is the external time reference: a monotonically non-decreasing
// integer read once at the start of each transaction, never supplied by
// the caller.
type Clock interface {
	Now() int64
}

type systemClock struct{}

func (systemClock) Now() int64 { return time.Now().Unix() }

// SystemClock returns a Clock backed by Unix seconds.
func SystemClock() Clock { return systemClock{} }

// Ledger owns the store, index, audit log, and counters. It is the sole
// mutation boundary: callers reach shared state only through its operations.
type Ledger struct {
	db    *sql.DB
	cfg   *config.Config
	clock Clock
}

// New creates a Ledger. A nil clock selects the system clock.
func New(database *sql.DB, cfg *config.Config, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock()
	}
	return &Ledger{db: database, cfg: cfg, clock: clock}
}

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampLimit applies list limit defaults and bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// withTx runs fn inside a transaction. Any error from fn rolls everything
// back, so a failed operation observes identical state to one never made.
func (l *Ledger) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := l.db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// requireNotPaused rejects pause-gated operations while the flag is set.
func requireNotPaused(q db.Querier) error {
	counters, err := db.GetCounters(q)
	if err != nil {
		return err
	}
	if counters.Paused {
		return errors.NewUnauthorized("ledger is paused")
	}
	return nil
}
