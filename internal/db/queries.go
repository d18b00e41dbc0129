package db

import (
	"database/sql"

	"github.com/hpungsan/keep/internal/capsule"
	"github.com/hpungsan/keep/internal/errors"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so the helpers below
// compose inside a single transaction when an operation needs atomicity.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Counters holds the process-wide aggregates, stored as a single row.
type Counters struct {
	Nonce            uint64 `json:"nonce"`
	TotalCapsules    int64  `json:"total_capsules"`
	TotalValueLocked int64  `json:"total_value_locked"`
	TotalOpened      int64  `json:"total_opened"`
	Paused           bool   `json:"paused"`
}

// InsertCapsule stores a new capsule row with an explicit id.
func InsertCapsule(q Querier, c *capsule.Capsule) error {
	query := `
		INSERT INTO capsules (
			id, creator, recipient, payload, value, unlock_time,
			created_at, opened_at, consumed, kind, metadata, public
		) VALUES (?, ?, ?, ?, ?, ?, ?, NULL, 0, ?, ?, ?)
	`

	_, err := q.Exec(query,
		c.ID, c.Creator, c.Recipient, c.Payload, c.Value, c.UnlockTime,
		c.CreatedAt, c.Kind, toNullString(c.Metadata), boolToInt(c.Public),
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetCapsule retrieves a capsule by id.
func GetCapsule(q Querier, id uint64) (*capsule.Capsule, error) {
	query := `
		SELECT id, creator, recipient, payload, value, unlock_time,
			created_at, opened_at, consumed, kind, metadata, public
		FROM capsules
		WHERE id = ?
	`

	row := q.QueryRow(query, id)
	c, err := scanCapsule(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return c, nil
}

// SetPayload replaces the locked content of a capsule.
func SetPayload(q Querier, id uint64, payload string) error {
	return execOne(q, id, `UPDATE capsules SET payload = ? WHERE id = ?`, payload, id)
}

// SetUnlockTime moves a capsule's unlock time.
func SetUnlockTime(q Querier, id uint64, unlockTime int64) error {
	return execOne(q, id, `UPDATE capsules SET unlock_time = ? WHERE id = ?`, unlockTime, id)
}

// AddCapsuleValue increments a capsule's custodied value.
func AddCapsuleValue(q Querier, id uint64, delta int64) error {
	return execOne(q, id, `UPDATE capsules SET value = value + ? WHERE id = ?`, delta, id)
}

// MarkConsumed moves a capsule to its terminal state, recording opened_at.
// If zeroValue is true the capsule's value is also forced to 0 (the
// emergency-withdraw path); Open and Cancel leave the field untouched.
func MarkConsumed(q Querier, id uint64, openedAt int64, zeroValue bool) error {
	if zeroValue {
		return execOne(q, id,
			`UPDATE capsules SET consumed = 1, opened_at = ?, value = 0 WHERE id = ?`,
			openedAt, id)
	}
	return execOne(q, id,
		`UPDATE capsules SET consumed = 1, opened_at = ? WHERE id = ?`,
		openedAt, id)
}

// AppendIndex appends a capsule id to a principal's owner index.
// Positions are dense and start at 0; entries are never removed.
func AppendIndex(q Querier, principal string, capsuleID uint64) error {
	query := `
		INSERT INTO owner_index (principal, position, capsule_id)
		VALUES (?, (SELECT COUNT(*) FROM owner_index WHERE principal = ?), ?)
	`

	if _, err := q.Exec(query, principal, principal, capsuleID); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// IndexCount returns the number of index entries for a principal.
func IndexCount(q Querier, principal string) (int, error) {
	var count int
	err := q.QueryRow(`SELECT COUNT(*) FROM owner_index WHERE principal = ?`, principal).Scan(&count)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// IndexEntry returns the capsule id at a position in a principal's index.
// The second return value is false if the position is absent.
func IndexEntry(q Querier, principal string, position int) (uint64, bool, error) {
	var id uint64
	err := q.QueryRow(
		`SELECT capsule_id FROM owner_index WHERE principal = ? AND position = ?`,
		principal, position,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewInternal(err)
	}
	return id, true, nil
}

// ListByPrincipal returns capsule summaries for a principal's index entries,
// in append order, plus the total entry count.
func ListByPrincipal(q Querier, principal string, limit, offset int) ([]capsule.Summary, int, error) {
	total, err := IndexCount(q, principal)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT c.id, c.creator, c.recipient, c.value, c.unlock_time,
			c.created_at, c.consumed, c.kind
		FROM owner_index oi
		JOIN capsules c ON c.id = oi.capsule_id
		WHERE oi.principal = ?
		ORDER BY oi.position
		LIMIT ? OFFSET ?
	`

	rows, err := q.Query(query, principal, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// ListPublic returns summaries of capsules registered in the public set,
// in id order, plus the total public count.
func ListPublic(q Querier, limit, offset int) ([]capsule.Summary, int, error) {
	var total int
	if err := q.QueryRow(`SELECT COUNT(*) FROM capsules WHERE public = 1`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, creator, recipient, value, unlock_time,
			created_at, consumed, kind
		FROM capsules
		WHERE public = 1
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := q.Query(query, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// PutAudit writes the latest access event for a capsule, replacing any
// previous entry. The log holds at most one entry per capsule.
func PutAudit(q Querier, e *capsule.AuditEntry) error {
	query := `
		INSERT INTO audit_log (capsule_id, actor, at, action)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(capsule_id) DO UPDATE SET actor = excluded.actor,
			at = excluded.at, action = excluded.action
	`

	if _, err := q.Exec(query, e.CapsuleID, e.Actor, e.At, e.Action); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetAudit returns the latest access event for a capsule.
func GetAudit(q Querier, capsuleID uint64) (*capsule.AuditEntry, error) {
	var e capsule.AuditEntry
	err := q.QueryRow(
		`SELECT capsule_id, actor, at, action FROM audit_log WHERE capsule_id = ?`,
		capsuleID,
	).Scan(&e.CapsuleID, &e.Actor, &e.At, &e.Action)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(capsuleID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &e, nil
}

// GetCounters reads the single counters row.
func GetCounters(q Querier) (*Counters, error) {
	var (
		c      Counters
		paused int
	)
	err := q.QueryRow(
		`SELECT nonce, total_capsules, total_value_locked, total_opened, paused
		 FROM counters WHERE id = 1`,
	).Scan(&c.Nonce, &c.TotalCapsules, &c.TotalValueLocked, &c.TotalOpened, &paused)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	c.Paused = paused != 0
	return &c, nil
}

// NextCapsuleID increments the global nonce and returns the new id.
// Must run inside the operation's transaction so ids stay gapless under
// rollback.
func NextCapsuleID(q Querier) (uint64, error) {
	if _, err := q.Exec(`UPDATE counters SET nonce = nonce + 1 WHERE id = 1`); err != nil {
		return 0, errors.NewInternal(err)
	}

	var nonce uint64
	if err := q.QueryRow(`SELECT nonce FROM counters WHERE id = 1`).Scan(&nonce); err != nil {
		return 0, errors.NewInternal(err)
	}
	return nonce, nil
}

// AddCounters applies deltas to the aggregate counters.
func AddCounters(q Querier, capsulesDelta, openedDelta, lockedDelta int64) error {
	query := `
		UPDATE counters
		SET total_capsules = total_capsules + ?,
			total_opened = total_opened + ?,
			total_value_locked = total_value_locked + ?
		WHERE id = 1
	`

	if _, err := q.Exec(query, capsulesDelta, openedDelta, lockedDelta); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetPaused flips the global pause flag.
func SetPaused(q Querier, paused bool) error {
	if _, err := q.Exec(`UPDATE counters SET paused = ? WHERE id = 1`, boolToInt(paused)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// execOne runs an UPDATE that must affect exactly one capsule row.
func execOne(q Querier, id uint64, query string, args ...any) error {
	result, err := q.Exec(query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// scanCapsule scans a single row into a Capsule struct.
func scanCapsule(row *sql.Row) (*capsule.Capsule, error) {
	var (
		c        capsule.Capsule
		openedAt sql.NullInt64
		consumed int
		metadata sql.NullString
		public   int
	)

	err := row.Scan(
		&c.ID, &c.Creator, &c.Recipient, &c.Payload, &c.Value, &c.UnlockTime,
		&c.CreatedAt, &openedAt, &consumed, &c.Kind, &metadata, &public,
	)
	if err != nil {
		return nil, err
	}

	if openedAt.Valid {
		c.OpenedAt = &openedAt.Int64
	}
	c.Consumed = consumed != 0
	c.Metadata = fromNullString(metadata)
	c.Public = public != 0

	return &c, nil
}

// scanSummaries scans summary rows.
func scanSummaries(rows *sql.Rows) ([]capsule.Summary, error) {
	var summaries []capsule.Summary
	for rows.Next() {
		var (
			s        capsule.Summary
			consumed int
		)
		err := rows.Scan(&s.ID, &s.Creator, &s.Recipient, &s.Value,
			&s.UnlockTime, &s.CreatedAt, &consumed, &s.Kind)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Consumed = consumed != 0
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return summaries, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// boolToInt converts a bool to the 0/1 SQLite representation.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
