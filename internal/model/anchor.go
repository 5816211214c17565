// Copyright 2025 Chainanchor

package model

import (
	"time"

	"github.com/google/uuid"
)

// Anchor is the durable record of one successfully emitted anchor commit.
// Created exactly once per accepted request.
type Anchor struct {
	RequestID uuid.UUID
	ProofCid  string
	Path      string
	Cid       string
	CreatedAt time.Time
}

// Transaction records one successful blockchain transaction.
type Transaction struct {
	ChainID        string
	TxHash         string
	BlockNumber    uint64
	BlockTimestamp time.Time
	CreatedAt      time.Time
}

// Proof is the content-addressed, immutable record binding a Merkle root
// to the on-chain transaction that anchored it.
type Proof struct {
	Root           string `json:"root"`
	TxHash         string `json:"txHash"`
	ChainID        string `json:"chainId"`
	BlockNumber    uint64 `json:"blockNumber"`
	BlockTimestamp int64  `json:"blockTimestamp"`
}

// AnchorCommit is the per-leaf content-addressed record linking a prior
// commit to a Merkle inclusion proof.
type AnchorCommit struct {
	Prev  string `json:"prev"`
	Proof string `json:"proof"`
	Path  string `json:"path"`
}
