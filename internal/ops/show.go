package ops

import (
	"github.com/hpungsan/keep/internal/db"
)

// ShowInput contains parameters for the Show operation.
type ShowInput struct {
	ID uint64
}

// ShowOutput is a capsule record without its payload. The locked content is
// reachable only through Open and Preview.
type ShowOutput struct {
	ID         uint64  `json:"id"`
	Creator    string  `json:"creator"`
	Recipient  string  `json:"recipient"`
	Value      int64   `json:"value"`
	UnlockTime int64   `json:"unlock_time"`
	CreatedAt  int64   `json:"created_at"`
	OpenedAt   *int64  `json:"opened_at,omitempty"`
	Consumed   bool    `json:"consumed"`
	Kind       string  `json:"kind"`
	Metadata   *string `json:"metadata,omitempty"`
	Public     bool    `json:"public"`
	Locked     bool    `json:"locked"`
}

// Show retrieves a capsule's record fields. Anyone may call it; it writes
// nothing, not even an audit entry.
func (l *Ledger) Show(input ShowInput) (*ShowOutput, error) {
	c, err := db.GetCapsule(l.db, input.ID)
	if err != nil {
		return nil, err
	}

	return &ShowOutput{
		ID:         c.ID,
		Creator:    c.Creator,
		Recipient:  c.Recipient,
		Value:      c.Value,
		UnlockTime: c.UnlockTime,
		CreatedAt:  c.CreatedAt,
		OpenedAt:   c.OpenedAt,
		Consumed:   c.Consumed,
		Kind:       c.Kind,
		Metadata:   c.Metadata,
		Public:     c.Public,
		Locked:     c.Locked(l.clock.Now()),
	}, nil
}
