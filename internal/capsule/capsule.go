package capsule

// Capsule is one custody record: a value deposit and a payload bound to a
// single recipient, releasable once the time reference reaches UnlockTime.
type Capsule struct {
	// ID is a strictly increasing integer assigned at creation, never reused
	ID uint64

	// Creator is the principal that created the capsule and funded it
	Creator string

	// Recipient is the only principal allowed to open or preview the capsule
	Recipient string

	// Payload is the locked content (at most MaxPayloadRunes code points)
	Payload string

	// Value is the custodied amount attributed to this capsule
	Value int64

	// UnlockTime is the absolute time-reference value gating Open/Preview
	UnlockTime int64

	// CreatedAt is the time-reference value at creation (immutable)
	CreatedAt int64

	// OpenedAt is set exactly once when the capsule reaches a terminal state
	OpenedAt *int64

	// Consumed marks the terminal state (opened, cancelled, or withdrawn)
	Consumed bool

	// Kind is a short informational category tag
	Kind string

	// Metadata is optional informational text (nullable)
	Metadata *string

	// Public records whether the id is registered in the public-viewable set
	Public bool
}

// Locked reports whether the capsule is still time-locked at now.
func (c *Capsule) Locked(now int64) bool {
	return now < c.UnlockTime
}

// Summary is the listing projection of a capsule, without the payload.
type Summary struct {
	ID         uint64 `json:"id"`
	Creator    string `json:"creator"`
	Recipient  string `json:"recipient"`
	Value      int64  `json:"value"`
	UnlockTime int64  `json:"unlock_time"`
	CreatedAt  int64  `json:"created_at"`
	Consumed   bool   `json:"consumed"`
	Kind       string `json:"kind"`
}

// Audit-log action kinds. Each capsule keeps only its latest action.
const (
	ActionCreated           = "created"
	ActionOpened            = "opened"
	ActionPreviewed         = "previewed"
	ActionFundsAdded        = "funds-added"
	ActionMessageUpdated    = "message-updated"
	ActionTimeExtended      = "time-extended"
	ActionEmergencyWithdraw = "emergency-withdraw"
	ActionCancelled         = "cancelled"
)

// AuditEntry is the latest recorded access for a capsule.
type AuditEntry struct {
	CapsuleID uint64 `json:"capsule_id"`
	Actor     string `json:"actor"`
	At        int64  `json:"at"`
	Action    string `json:"action"`
}
