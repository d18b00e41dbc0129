package ops

import (
	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
)

// PublicInput contains parameters for the Public operation.
type PublicInput struct {
	Limit  int
	Offset int
}

// PublicOutput contains the result of the Public operation.
type PublicOutput struct {
	Items      []capsule.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// Public enumerates the capsules registered in the public-viewable set.
func (l *Ledger) Public(input PublicInput) (*PublicOutput, error) {
	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	items, total, err := db.ListPublic(l.db, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []capsule.Summary{}
	}

	return &PublicOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
