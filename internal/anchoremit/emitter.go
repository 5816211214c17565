// Copyright 2025 Chainanchor
//
// Emitter turns each Merkle leaf into a content-addressed anchor-commit
// record, publishes a stream update, and pins the stream. A leaf whose
// storage or publish step fails is dropped from the result set rather than
// failing the whole cycle — its requests simply stay in PROCESSING for a
// later cycle to pick back up.

package anchoremit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chainanchor/anchor-core/internal/cas"
	"github.com/chainanchor/anchor-core/internal/merkle"
	"github.com/chainanchor/anchor-core/internal/model"
)

// pinner is satisfied by cas.Store; kept narrow so the emitter only depends
// on what it uses.
type pinner interface {
	Put(ctx context.Context, v interface{}) (string, error)
	Publish(ctx context.Context, topic string, payload []byte) error
	Pin(ctx context.Context, cid string) error
}

// Emitter implements the per-leaf anchor-commit emission step.
type Emitter struct {
	store       pinner
	pubsubTopic string
	logger      *log.Logger
}

// New creates an Emitter publishing stream-update messages on pubsubTopic.
func New(store cas.Store, pubsubTopic string) *Emitter {
	return &Emitter{
		store:       store,
		pubsubTopic: pubsubTopic,
		logger:      log.New(log.Writer(), "[AnchorEmitter] ", log.LstdFlags),
	}
}

// streamUpdate is the pub/sub payload announcing a new stream tip.
type streamUpdate struct {
	Typ    string `json:"typ"`
	Stream string `json:"stream"`
	Tip    string `json:"tip"`
}

// Emit processes every leaf of tree against proofCid, returning the
// successfully emitted anchors. Leaves that fail to store or publish are
// logged and skipped; their candidate's accepted requests are left
// untouched by the caller (PROCESSING).
func (e *Emitter) Emit(ctx context.Context, leaves []merkle.Leaf, proofCid string) []*model.Anchor {
	var anchors []*model.Anchor

	for _, leaf := range leaves {
		leafAnchors, err := e.emitLeaf(ctx, leaf, proofCid)
		if err != nil {
			e.logger.Printf("leaf %s (stream %s) dropped from batch: %v", leaf.Path, leaf.Candidate.StreamID, err)
			continue
		}
		anchors = append(anchors, leafAnchors...)
	}
	return anchors
}

// emitLeaf emits one anchor-commit record for leaf and returns one Anchor
// row per accepted request on its candidate — they all share the same
// proofCid/path/cid since a single commit covers the whole leaf.
func (e *Emitter) emitLeaf(ctx context.Context, leaf merkle.Leaf, proofCid string) ([]*model.Anchor, error) {
	commit := model.AnchorCommit{Prev: leaf.Candidate.Cid, Proof: proofCid, Path: leaf.Path}

	anchorCid, err := e.store.Put(ctx, commit)
	if err != nil {
		return nil, fmt.Errorf("store anchor commit: %w", err)
	}

	update := streamUpdate{Typ: "UPDATE", Stream: leaf.Candidate.StreamID, Tip: anchorCid}
	payload, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal stream update: %w", err)
	}
	if err := e.store.Publish(ctx, e.pubsubTopic, payload); err != nil {
		return nil, fmt.Errorf("publish stream update: %w", err)
	}

	if err := e.store.Pin(ctx, leaf.Candidate.StreamID); err != nil {
		return nil, fmt.Errorf("pin stream: %w", err)
	}

	now := time.Now()
	anchors := make([]*model.Anchor, 0, len(leaf.Candidate.AcceptedRequests))
	for _, req := range leaf.Candidate.AcceptedRequests {
		anchors = append(anchors, &model.Anchor{
			RequestID: req.ID,
			ProofCid:  proofCid,
			Path:      leaf.Path,
			Cid:       anchorCid,
			CreatedAt: now,
		})
	}
	return anchors, nil
}
