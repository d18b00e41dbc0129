package ops

import (
	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/db"
	"github.com/hpungsan/keep/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Principal string
	Limit     int // default: 20, max: 100
	Offset    int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []capsule.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
}

// List enumerates the capsules a principal is party to, in owner-index
// append order, without scanning the store.
func (l *Ledger) List(input ListInput) (*ListOutput, error) {
	principal := capsule.NormalizePrincipal(input.Principal)
	if principal == "" {
		return nil, errors.NewInvalidRequest("principal is required")
	}

	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	items, total, err := db.ListByPrincipal(l.db, principal, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []capsule.Summary{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
