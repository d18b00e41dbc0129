package ops

import (
	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
)

// AuditInput contains parameters for the Audit operation.
type AuditInput struct {
	ID uint64
}

// Audit returns a capsule's most recent access event. The log keeps a
// single slot per capsule: each action overwrites the last.
func (l *Ledger) Audit(input AuditInput) (*capsule.AuditEntry, error) {
	return db.GetAudit(l.db, input.ID)
}
