// Copyright 2025 Chainanchor
//
// Coordinator runs one anchoring cycle end to end: load the READY batch
// (plus any requests an earlier failed cycle left in PROCESSING), select
// candidates, build the Merkle tree, submit the chain transaction, and emit
// one anchor commit per leaf.

package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/blockchain"
	"github.com/chainanchor/anchor-core/internal/cas"
	"github.com/chainanchor/anchor-core/internal/merkle"
	"github.com/chainanchor/anchor-core/internal/metrics"
	"github.com/chainanchor/anchor-core/internal/model"
)

const msgAnchored = "CID successfully anchored."
const msgExceededAttempts = "exceeded maximum anchoring attempts"

// RequestStore is the subset of the durable request table the coordinator
// needs.
type RequestStore interface {
	FindByStatus(ctx context.Context, status model.RequestStatus) ([]*model.Request, error)
	UpdateRequests(ctx context.Context, update model.StatusUpdate, reqs []uuid.UUID) error
	MarkCompletedAndPinned(ctx context.Context, reqs []uuid.UUID, message string) error
	IncrementAttempts(ctx context.Context, reqs []uuid.UUID) ([]*model.Request, error)
}

// AnchorStore persists per-request anchor-commit records.
type AnchorStore interface {
	Create(ctx context.Context, a *model.Anchor) error
}

// TransactionStore persists blockchain transactions.
type TransactionStore interface {
	Create(ctx context.Context, tx *model.Transaction) error
}

// Selector is the batch-formation step.
type Selector interface {
	Select(ctx context.Context, reqs []*model.Request, limit int) ([]*model.Candidate, []uuid.UUID, error)
}

// Emitter is the per-leaf anchor-commit emission step.
type Emitter interface {
	Emit(ctx context.Context, leaves []merkle.Leaf, proofCid string) []*model.Anchor
}

// Coordinator wires every component of one anchoring cycle together.
type Coordinator struct {
	requests     RequestStore
	anchors      AnchorStore
	transactions TransactionStore
	selector     Selector
	emitter      Emitter
	store        cas.Store
	chain        blockchain.Client
	metrics      *metrics.Metrics
	logger       *log.Logger

	merkleDepthLimit      int
	streamLimit           int
	maxProcessingAttempts int
}

// Config configures a Coordinator.
type Config struct {
	Requests              RequestStore
	Anchors               AnchorStore
	Transactions          TransactionStore
	Selector              Selector
	Emitter               Emitter
	Store                 cas.Store
	Chain                 blockchain.Client
	Metrics               *metrics.Metrics
	MerkleDepthLimit      int
	StreamLimit           int
	MaxProcessingAttempts int
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		requests:              cfg.Requests,
		anchors:                cfg.Anchors,
		transactions:           cfg.Transactions,
		selector:               cfg.Selector,
		emitter:                cfg.Emitter,
		store:                  cfg.Store,
		chain:                  cfg.Chain,
		metrics:                cfg.Metrics,
		merkleDepthLimit:       cfg.MerkleDepthLimit,
		streamLimit:            cfg.StreamLimit,
		maxProcessingAttempts:  cfg.MaxProcessingAttempts,
		logger:                 log.New(log.Writer(), "[AnchorCoordinator] ", log.LstdFlags),
	}
}

// AnchorRequests performs one anchoring cycle.
func (c *Coordinator) AnchorRequests(ctx context.Context) error {
	start := time.Now()
	if c.metrics != nil {
		defer func() { c.metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()
	}

	reqs, err := c.requests.FindByStatus(ctx, model.RequestStatusReady)
	if err != nil {
		return fmt.Errorf("find ready requests: %w", err)
	}
	// Requests an earlier failed cycle left in PROCESSING are retried here;
	// handleCycleFailure bounds how many times.
	processing, err := c.requests.FindByStatus(ctx, model.RequestStatusProcessing)
	if err != nil {
		return fmt.Errorf("find processing requests: %w", err)
	}
	reqs = append(reqs, processing...)
	if len(reqs) == 0 {
		return nil
	}

	candidates, accepted, err := c.selector.Select(ctx, reqs, c.streamLimit)
	if err != nil {
		return fmt.Errorf("select candidates: %w", err)
	}
	if len(accepted) > 0 {
		update := model.StatusUpdate{Status: model.RequestStatusProcessing}
		if err := c.requests.UpdateRequests(ctx, update, accepted); err != nil {
			return fmt.Errorf("mark accepted requests processing: %w", err)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if c.metrics != nil {
		c.metrics.CandidatesTotal.Add(float64(len(candidates)))
	}

	tree, err := merkle.Build(ctx, c.store, candidates, c.merkleDepthLimit)
	if err != nil {
		return fmt.Errorf("build merkle tree: %w", err)
	}

	receipt, err := c.chain.SendTransaction(ctx, []byte(tree.Root))
	if err != nil {
		c.handleCycleFailure(ctx, accepted)
		return fmt.Errorf("send anchoring transaction: %w", err)
	}

	txn := &model.Transaction{
		ChainID:        receipt.ChainID,
		TxHash:         receipt.TxHash,
		BlockNumber:    receipt.BlockNumber,
		BlockTimestamp: receipt.BlockTimestamp,
		CreatedAt:      time.Now(),
	}
	if err := c.transactions.Create(ctx, txn); err != nil {
		return fmt.Errorf("persist transaction: %w", err)
	}

	proof := model.Proof{
		Root:           tree.Root,
		TxHash:         receipt.TxHash,
		ChainID:        receipt.ChainID,
		BlockNumber:    receipt.BlockNumber,
		BlockTimestamp: receipt.BlockTimestamp.Unix(),
	}
	proofCid, err := c.store.Put(ctx, proof)
	if err != nil {
		return fmt.Errorf("store proof object: %w", err)
	}

	anchors := c.emitter.Emit(ctx, tree.Leaves, proofCid)
	if c.metrics != nil {
		c.metrics.AnchorsEmitted.Add(float64(len(anchors)))
	}

	succeeded := make(map[uuid.UUID]bool, len(anchors))
	for _, a := range anchors {
		if err := c.anchors.Create(ctx, a); err != nil {
			return fmt.Errorf("persist anchor record: %w", err)
		}
		succeeded[a.RequestID] = true
	}

	var succeededIDs, unfinishedIDs []uuid.UUID
	for _, id := range accepted {
		if succeeded[id] {
			succeededIDs = append(succeededIDs, id)
		} else {
			unfinishedIDs = append(unfinishedIDs, id)
		}
	}

	if len(succeededIDs) > 0 {
		if err := c.requests.MarkCompletedAndPinned(ctx, succeededIDs, msgAnchored); err != nil {
			return fmt.Errorf("mark anchored requests completed: %w", err)
		}
	}
	if len(unfinishedIDs) > 0 {
		c.handleCycleFailure(ctx, unfinishedIDs)
	}

	return nil
}

// handleCycleFailure bumps the retry counter for requests left in
// PROCESSING and fails any that have now exceeded the configured bound,
// implementing the leave-in-PROCESSING-with-a-bounded-retry policy.
func (c *Coordinator) handleCycleFailure(ctx context.Context, reqIDs []uuid.UUID) {
	if len(reqIDs) == 0 {
		return
	}
	updated, err := c.requests.IncrementAttempts(ctx, reqIDs)
	if err != nil {
		c.logger.Printf("failed to increment attempts for %d requests: %v", len(reqIDs), err)
		return
	}

	var exceeded []uuid.UUID
	for _, r := range updated {
		if r.Attempts >= c.maxProcessingAttempts {
			exceeded = append(exceeded, r.ID)
		}
	}
	if len(exceeded) == 0 {
		return
	}
	if c.metrics != nil {
		c.metrics.RequestsFailed.Add(float64(len(exceeded)))
	}
	update := model.StatusUpdate{Status: model.RequestStatusFailed, Message: msgExceededAttempts}
	if err := c.requests.UpdateRequests(ctx, update, exceeded); err != nil {
		c.logger.Printf("failed to fail %d requests exceeding max attempts: %v", len(exceeded), err)
	}
}
