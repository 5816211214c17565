// Copyright 2025 Chainanchor
//
// RequestStore is the durable table of requests: creation, lookup, the
// atomic PENDING→READY promotion, and batch status updates.

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/model"
)

// RequestStore handles request persistence.
type RequestStore struct {
	client *Client
}

// NewRequestStore creates a RequestStore bound to client.
func NewRequestStore(client *Client) *RequestStore {
	return &RequestStore{client: client}
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting the same scan
// logic run inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *RequestStore) q() querier {
	return s.client.db
}

// CreateOrUpdate upserts by cid: a repeated submission for the same cid is a
// no-op on the row's lifecycle fields.
func (s *RequestStore) CreateOrUpdate(ctx context.Context, cid, streamID string) (*model.Request, error) {
	req := &model.Request{
		ID:        uuid.New(),
		Cid:       cid,
		StreamID:  streamID,
		Status:    model.RequestStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO requests (id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', false, 0, $5, $5)
		ON CONFLICT (cid) DO UPDATE SET stream_id = EXCLUDED.stream_id
		RETURNING id, status, message, pinned, attempts, created_at, updated_at`

	err := s.q().QueryRowContext(ctx, query, req.ID, req.Cid, req.StreamID, req.Status, req.CreatedAt).Scan(
		&req.ID, &req.Status, &req.Message, &req.Pinned, &req.Attempts, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create or update request: %w", err)
	}
	return req, nil
}

// FindByCid returns the request for cid, or ErrRequestNotFound.
func (s *RequestStore) FindByCid(ctx context.Context, cid string) (*model.Request, error) {
	query := `
		SELECT id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at
		FROM requests WHERE cid = $1`

	req := &model.Request{}
	err := s.q().QueryRowContext(ctx, query, cid).Scan(
		&req.ID, &req.Cid, &req.StreamID, &req.Status, &req.Message, &req.Pinned, &req.Attempts, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request by cid: %w", err)
	}
	return req, nil
}

// FindByStatus returns all requests currently in status, oldest created_at
// first, id lexicographic as a secondary tie-break.
func (s *RequestStore) FindByStatus(ctx context.Context, status model.RequestStatus) ([]*model.Request, error) {
	query := `
		SELECT id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at
		FROM requests WHERE status = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.q().QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("find requests by status: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// CountByStatus returns the number of requests currently in status.
func (s *RequestStore) CountByStatus(ctx context.Context, status model.RequestStatus) (int, error) {
	var count int
	err := s.q().QueryRowContext(ctx, `SELECT count(*) FROM requests WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count requests by status: %w", err)
	}
	return count, nil
}

// FindAndMarkReady atomically promotes PENDING rows to READY, gated on a
// minimum number of distinct streams, plus re-includes any READY row whose
// updatedAt is older than readyRetryInterval (a stale batch retry). limit==0
// means promote all eligible PENDING rows; a positive limit bounds the
// number of distinct streams promoted this call. The scan and update run
// inside one SERIALIZABLE transaction using SELECT ... FOR UPDATE SKIP
// LOCKED so two concurrent callers never select overlapping rows.
func (s *RequestStore) FindAndMarkReady(ctx context.Context, limit int, minStreamCount int, readyRetryInterval time.Duration) ([]*model.Request, error) {
	tx, err := s.client.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin serializable transaction: %w", err)
	}
	defer tx.Rollback()

	streamCount, err := countDistinctPendingStreams(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("count pending streams: %w", err)
	}

	var promoted []*model.Request
	if streamCount >= minStreamCount {
		promoted, err = promotePending(ctx, tx, limit)
		if err != nil {
			return nil, fmt.Errorf("promote pending requests: %w", err)
		}
	}

	stale, err := promoteStaleReady(ctx, tx, readyRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("promote stale ready requests: %w", err)
	}
	promoted = append(promoted, stale...)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ready promotion: %w", err)
	}
	return promoted, nil
}

func countDistinctPendingStreams(ctx context.Context, tx *sql.Tx) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT count(DISTINCT stream_id) FROM requests WHERE status = $1`, model.RequestStatusPending).Scan(&count)
	return count, err
}

func promotePending(ctx context.Context, tx *sql.Tx, limit int) ([]*model.Request, error) {
	query := `
		SELECT id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at
		FROM requests
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, model.RequestStatusPending)
	if err != nil {
		return nil, err
	}
	candidates, err := scanRequests(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		candidates = limitByDistinctStreams(candidates, limit)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(candidates))
	for i, r := range candidates {
		ids[i] = r.ID
		r.Status = model.RequestStatusReady
	}
	if err := execUpdateStatus(ctx, tx, ids, model.RequestStatusReady, ""); err != nil {
		return nil, err
	}
	return candidates, nil
}

// limitByDistinctStreams keeps the oldest requests until limit distinct
// streams have been seen, then stops — later requests on already-counted
// streams are included, ones on a new stream beyond the limit are dropped.
func limitByDistinctStreams(reqs []*model.Request, limit int) []*model.Request {
	seen := make(map[string]bool, limit)
	out := make([]*model.Request, 0, len(reqs))
	for _, r := range reqs {
		if !seen[r.StreamID] {
			if len(seen) >= limit {
				continue
			}
			seen[r.StreamID] = true
		}
		out = append(out, r)
	}
	return out
}

func promoteStaleReady(ctx context.Context, tx *sql.Tx, readyRetryInterval time.Duration) ([]*model.Request, error) {
	cutoff := time.Now().Add(-readyRetryInterval)

	query := `
		SELECT id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at
		FROM requests
		WHERE status = $1 AND updated_at < $2
		ORDER BY created_at ASC, id ASC
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, model.RequestStatusReady, cutoff)
	if err != nil {
		return nil, err
	}
	stale, err := scanRequests(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(stale))
	for i, r := range stale {
		ids[i] = r.ID
	}
	if _, err := tx.ExecContext(ctx, `UPDATE requests SET updated_at = now() WHERE id = ANY($1)`, uuidArray(ids)); err != nil {
		return nil, err
	}
	return stale, nil
}

// UpdateRequests applies update to reqs, skipping any row currently in a
// terminal status so a request can never leave COMPLETED or FAILED once set
// (at-most-once completion).
func (s *RequestStore) UpdateRequests(ctx context.Context, update model.StatusUpdate, reqs []uuid.UUID) error {
	if len(reqs) == 0 {
		return nil
	}
	return execUpdateStatus(ctx, s.client.db, reqs, update.Status, update.Message)
}

// IncrementAttempts bumps the retry counter for reqs, used when a cycle
// fails at the transaction step, or a leaf's emission fails, and requests
// are left in PROCESSING. It
// returns the post-increment rows so the caller can check each against
// maxProcessingAttempts.
func (s *RequestStore) IncrementAttempts(ctx context.Context, reqs []uuid.UUID) ([]*model.Request, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	query := `
		UPDATE requests SET attempts = attempts + 1, updated_at = now()
		WHERE id = ANY($1) AND status NOT IN ($2, $3)
		RETURNING id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at`

	rows, err := s.client.db.QueryContext(ctx, query, uuidArray(reqs), model.RequestStatusCompleted, model.RequestStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("increment attempts: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func execUpdateStatus(ctx context.Context, q querier, ids []uuid.UUID, status model.RequestStatus, message string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE requests SET status = $1, message = $2, updated_at = now()
		WHERE id = ANY($3) AND status NOT IN ($4, $5)`,
		status, message, uuidArray(ids), model.RequestStatusCompleted, model.RequestStatusFailed)
	if err != nil {
		return fmt.Errorf("update requests status: %w", err)
	}
	return nil
}

// MarkCompletedAndPinned marks reqs COMPLETED with message and pinned=true
// in one statement, used after a successful anchor emission.
func (s *RequestStore) MarkCompletedAndPinned(ctx context.Context, reqs []uuid.UUID, message string) error {
	if len(reqs) == 0 {
		return nil
	}
	_, err := s.client.db.ExecContext(ctx, `
		UPDATE requests SET status = $1, message = $2, pinned = true, updated_at = now()
		WHERE id = ANY($3) AND status NOT IN ($1, $4)`,
		model.RequestStatusCompleted, message, uuidArray(reqs), model.RequestStatusFailed)
	if err != nil {
		return fmt.Errorf("mark requests completed: %w", err)
	}
	return nil
}

// FindPinnedExpired returns COMPLETED, pinned requests whose updatedAt is
// older than the given cutoff — candidates for garbage collection.
func (s *RequestStore) FindPinnedExpired(ctx context.Context, cutoff time.Time) ([]*model.Request, error) {
	query := `
		SELECT id, cid, stream_id, status, message, pinned, attempts, created_at, updated_at
		FROM requests
		WHERE status = $1 AND pinned = true AND updated_at < $2
		ORDER BY created_at ASC, id ASC`

	rows, err := s.q().QueryContext(ctx, query, model.RequestStatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find pinned expired requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// MarkUnpinned clears pinned for a single request, used by the garbage
// collector after a successful unpinStream call.
func (s *RequestStore) MarkUnpinned(ctx context.Context, id uuid.UUID) error {
	_, err := s.client.db.ExecContext(ctx, `UPDATE requests SET pinned = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark request unpinned: %w", err)
	}
	return nil
}

func scanRequests(rows *sql.Rows) ([]*model.Request, error) {
	var out []*model.Request
	for rows.Next() {
		r := &model.Request{}
		if err := rows.Scan(&r.ID, &r.Cid, &r.StreamID, &r.Status, &r.Message, &r.Pinned, &r.Attempts, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// uuidArray renders ids as a Postgres array literal for ANY($1) clauses.
func uuidArray(ids []uuid.UUID) string {
	s := "{"
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += id.String()
	}
	return s + "}"
}
