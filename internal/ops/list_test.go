package ops

import (
	"fmt"
	"testing"

	"github.com/hpungsan/keep/internal/errors"
)

func TestList_Pagination(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 1)

	for i := 0; i < 5; i++ {
		mustCreate(t, l, CreateInput{
			Caller: "alice", Recipient: "bob", Payload: fmt.Sprintf("p%d", i), Delay: 500,
		})
	}

	out, err := l.List(ListInput{Principal: "alice", Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(out.Items))
	}
	// Index order is append order
	if out.Items[0].ID != 1 || out.Items[1].ID != 2 {
		t.Errorf("ids = %d,%d, want 1,2", out.Items[0].ID, out.Items[1].ID)
	}
	if !out.Pagination.HasMore || out.Pagination.Total != 5 {
		t.Errorf("pagination = %+v, want has_more with total 5", out.Pagination)
	}

	out, err = l.List(ListInput{Principal: "alice", Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != 5 {
		t.Fatalf("last page = %+v, want single item 5", out.Items)
	}
	if out.Pagination.HasMore {
		t.Error("last page should not report has_more")
	}
}

func TestList_Empty(t *testing.T) {
	l, _ := newTestLedger(t, "")

	out, err := l.List(ListInput{Principal: "nobody"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", out.Items)
	}

	_, err = l.List(ListInput{Principal: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank principal = %v, want INVALID_REQUEST", err)
	}
}

func TestList_LimitClamping(t *testing.T) {
	l, _ := newTestLedger(t, "")

	out, err := l.List(ListInput{Principal: "alice"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Limit != DefaultListLimit {
		t.Errorf("default limit = %d, want %d", out.Pagination.Limit, DefaultListLimit)
	}

	out, err = l.List(ListInput{Principal: "alice", Limit: 500, Offset: -3})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if out.Pagination.Limit != MaxListLimit || out.Pagination.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want %d/0",
			out.Pagination.Limit, out.Pagination.Offset, MaxListLimit)
	}
}

func TestPublic(t *testing.T) {
	l, _ := newTestLedger(t, "")
	fund(t, l, "alice", 1)

	mustCreate(t, l, CreateInput{Caller: "alice", Recipient: "bob", Payload: "hidden", Delay: 500})
	public := mustCreate(t, l, CreateInput{
		Caller: "alice", Recipient: "bob", Payload: "shown", Delay: 500, Public: true,
	})

	out, err := l.Public(PublicInput{})
	if err != nil {
		t.Fatalf("Public failed: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != public {
		t.Fatalf("items = %+v, want only capsule %d", out.Items, public)
	}
	if out.Pagination.Total != 1 {
		t.Errorf("total = %d, want 1", out.Pagination.Total)
	}
}
