// Copyright 2025 Chainanchor

package model

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is the ephemeral per-cycle object representing one stream
// selected for inclusion in the current anchor batch.
type Candidate struct {
	StreamID string
	// Cid is the stream's tip commit CID to anchor. May not correspond to
	// any single accepted request's CID.
	Cid string
	// EarliestCreatedAt is the earliest CreatedAt among AcceptedRequests,
	// used for stream-level FIFO ordering.
	EarliestCreatedAt time.Time

	AcceptedRequests []*Request
	RejectedRequests []*Request
}

// AcceptedRequestIDs returns the ids of all accepted requests.
func (c *Candidate) AcceptedRequestIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.AcceptedRequests))
	for i, r := range c.AcceptedRequests {
		ids[i] = r.ID
	}
	return ids
}
