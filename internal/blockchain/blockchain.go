// Copyright 2025 Chainanchor
//
// Package blockchain defines the contract the anchoring cycle needs from any
// chain client: submit one transaction carrying the Merkle root and report
// back where it landed.

package blockchain

import (
	"context"
	"time"
)

// Receipt describes where a submitted transaction landed.
type Receipt struct {
	ChainID        string
	TxHash         string
	BlockNumber    uint64
	BlockTimestamp time.Time
}

// Client submits a batch's Merkle root to a chain.
type Client interface {
	// SendTransaction submits data (the Merkle root CID's raw bytes) as a
	// single transaction and returns once it is included in a block.
	SendTransaction(ctx context.Context, data []byte) (*Receipt, error)
}
