// Copyright 2025 Chainanchor

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/model"
)

// AnchorStore is the durable table of per-request anchor-commit records.
type AnchorStore struct {
	client *Client
}

// NewAnchorStore creates an AnchorStore bound to client.
func NewAnchorStore(client *Client) *AnchorStore {
	return &AnchorStore{client: client}
}

// Create inserts an anchor row. RequestID is unique: a second anchor for the
// same request is a configuration error, surfaced as a constraint violation.
func (s *AnchorStore) Create(ctx context.Context, a *model.Anchor) error {
	query := `
		INSERT INTO anchors (request_id, proof_cid, path, cid, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.client.db.ExecContext(ctx, query, a.RequestID, a.ProofCid, a.Path, a.Cid, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create anchor: %w", err)
	}
	return nil
}

// FindByRequestID returns the anchor record for requestID, or ErrAnchorNotFound.
func (s *AnchorStore) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*model.Anchor, error) {
	query := `
		SELECT request_id, proof_cid, path, cid, created_at
		FROM anchors WHERE request_id = $1`

	a := &model.Anchor{}
	err := s.client.db.QueryRowContext(ctx, query, requestID).Scan(&a.RequestID, &a.ProofCid, &a.Path, &a.Cid, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrAnchorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find anchor by request id: %w", err)
	}
	return a, nil
}
