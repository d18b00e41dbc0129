package ops

import (
	"github.com/hpungsan/keep/internal/db"
)

// StatsOutput is a snapshot of the global counters plus the penalty pool.
type StatsOutput struct {
	Nonce            uint64 `json:"nonce"`
	TotalCapsules    int64  `json:"total_capsules"`
	TotalValueLocked int64  `json:"total_value_locked"`
	TotalOpened      int64  `json:"total_opened"`
	Paused           bool   `json:"paused"`
	PenaltyPool      int64  `json:"penalty_pool"`
}

// Stats reports the ledger aggregates. PenaltyPool is escrow's actual
// balance minus the tracked custodied total.
func (l *Ledger) Stats() (*StatsOutput, error) {
	counters, err := db.GetCounters(l.db)
	if err != nil {
		return nil, err
	}

	escrowBalance, err := db.Balance(l.db, db.EscrowAccount)
	if err != nil {
		return nil, err
	}

	return &StatsOutput{
		Nonce:            counters.Nonce,
		TotalCapsules:    counters.TotalCapsules,
		TotalValueLocked: counters.TotalValueLocked,
		TotalOpened:      counters.TotalOpened,
		Paused:           counters.Paused,
		PenaltyPool:      escrowBalance - counters.TotalValueLocked,
	}, nil
}
