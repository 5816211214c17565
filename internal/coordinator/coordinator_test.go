// Copyright 2025 Chainanchor

package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/chainanchor/anchor-core/internal/blockchain"
	"github.com/chainanchor/anchor-core/internal/cas"
	"github.com/chainanchor/anchor-core/internal/merkle"
	"github.com/chainanchor/anchor-core/internal/model"
)

type fakeRequestStore struct {
	ready       []*model.Request
	updates     []model.StatusUpdate
	completed   []uuid.UUID
	incremented map[uuid.UUID]int
}

func newFakeRequestStore(ready ...*model.Request) *fakeRequestStore {
	return &fakeRequestStore{ready: ready, incremented: make(map[uuid.UUID]int)}
}

func (f *fakeRequestStore) FindByStatus(_ context.Context, status model.RequestStatus) ([]*model.Request, error) {
	if status != model.RequestStatusReady {
		return nil, nil
	}
	return f.ready, nil
}

func (f *fakeRequestStore) UpdateRequests(_ context.Context, update model.StatusUpdate, reqs []uuid.UUID) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeRequestStore) MarkCompletedAndPinned(_ context.Context, reqs []uuid.UUID, message string) error {
	f.completed = append(f.completed, reqs...)
	return nil
}

func (f *fakeRequestStore) IncrementAttempts(_ context.Context, reqs []uuid.UUID) ([]*model.Request, error) {
	out := make([]*model.Request, 0, len(reqs))
	for _, id := range reqs {
		f.incremented[id]++
		out = append(out, &model.Request{ID: id, Attempts: f.incremented[id]})
	}
	return out, nil
}

type fakeAnchorStore struct {
	created []*model.Anchor
}

func (f *fakeAnchorStore) Create(_ context.Context, a *model.Anchor) error {
	f.created = append(f.created, a)
	return nil
}

type fakeTransactionStore struct {
	created []*model.Transaction
}

func (f *fakeTransactionStore) Create(_ context.Context, tx *model.Transaction) error {
	f.created = append(f.created, tx)
	return nil
}

type fakeSelector struct {
	candidates []*model.Candidate
	accepted   []uuid.UUID
}

func (f *fakeSelector) Select(_ context.Context, reqs []*model.Request, limit int) ([]*model.Candidate, []uuid.UUID, error) {
	return f.candidates, f.accepted, nil
}

type fakeEmitter struct {
	anchors []*model.Anchor
}

func (f *fakeEmitter) Emit(_ context.Context, leaves []merkle.Leaf, proofCid string) []*model.Anchor {
	return f.anchors
}

type fakeChain struct {
	receipt *blockchain.Receipt
	err     error
}

func (f *fakeChain) SendTransaction(_ context.Context, data []byte) (*blockchain.Receipt, error) {
	return f.receipt, f.err
}

func newStore() cas.Store {
	return cas.NewKVStore(dbm.NewMemDB())
}

func TestAnchorRequests_NoReadyRequests_NoOp(t *testing.T) {
	reqs := newFakeRequestStore()
	c := New(Config{
		Requests: reqs, Anchors: &fakeAnchorStore{}, Transactions: &fakeTransactionStore{},
		Selector: &fakeSelector{}, Emitter: &fakeEmitter{}, Store: newStore(),
		Chain: &fakeChain{}, MerkleDepthLimit: 3, StreamLimit: 8, MaxProcessingAttempts: 5,
	})

	if err := c.AnchorRequests(context.Background()); err != nil {
		t.Fatalf("anchorRequests: %v", err)
	}
	if len(reqs.updates) != 0 {
		t.Errorf("expected no updates when there are no ready requests")
	}
}

func TestAnchorRequests_FullCycle_MarksCompleted(t *testing.T) {
	req := &model.Request{ID: uuid.New(), Cid: "c1", StreamID: "s1", Status: model.RequestStatusReady, CreatedAt: time.Now()}
	reqs := newFakeRequestStore(req)
	cand := &model.Candidate{StreamID: "s1", Cid: "c1", AcceptedRequests: []*model.Request{req}}
	anchors := &fakeAnchorStore{}
	txns := &fakeTransactionStore{}

	c := New(Config{
		Requests: reqs, Anchors: anchors, Transactions: txns,
		Selector: &fakeSelector{candidates: []*model.Candidate{cand}, accepted: []uuid.UUID{req.ID}},
		Emitter: &fakeEmitter{anchors: []*model.Anchor{{RequestID: req.ID, ProofCid: "proof1", Path: "", Cid: "anchor1"}}},
		Store: newStore(),
		Chain: &fakeChain{receipt: &blockchain.Receipt{ChainID: "1", TxHash: "0xabc", BlockNumber: 10, BlockTimestamp: time.Now()}},
		MerkleDepthLimit: 3, StreamLimit: 8, MaxProcessingAttempts: 5,
	})

	if err := c.AnchorRequests(context.Background()); err != nil {
		t.Fatalf("anchorRequests: %v", err)
	}
	if len(anchors.created) != 1 {
		t.Fatalf("expected 1 anchor persisted, got %d", len(anchors.created))
	}
	if len(txns.created) != 1 {
		t.Fatalf("expected 1 transaction persisted, got %d", len(txns.created))
	}
	if len(reqs.completed) != 1 || reqs.completed[0] != req.ID {
		t.Errorf("expected request %s marked completed, got %v", req.ID, reqs.completed)
	}
}

func TestAnchorRequests_ChainFailure_LeavesProcessingAndIncrementsAttempts(t *testing.T) {
	req := &model.Request{ID: uuid.New(), Cid: "c1", StreamID: "s1", Status: model.RequestStatusReady, CreatedAt: time.Now()}
	reqs := newFakeRequestStore(req)
	cand := &model.Candidate{StreamID: "s1", Cid: "c1", AcceptedRequests: []*model.Request{req}}

	c := New(Config{
		Requests: reqs, Anchors: &fakeAnchorStore{}, Transactions: &fakeTransactionStore{},
		Selector: &fakeSelector{candidates: []*model.Candidate{cand}, accepted: []uuid.UUID{req.ID}},
		Emitter: &fakeEmitter{},
		Store:   newStore(),
		Chain:   &fakeChain{err: errors.New("rpc unavailable")},
		MerkleDepthLimit: 3, StreamLimit: 8, MaxProcessingAttempts: 5,
	})

	err := c.AnchorRequests(context.Background())
	if err == nil {
		t.Fatal("expected error from chain failure to propagate")
	}
	if reqs.incremented[req.ID] != 1 {
		t.Errorf("expected attempts incremented once, got %d", reqs.incremented[req.ID])
	}
	if len(reqs.completed) != 0 {
		t.Errorf("expected no requests completed on chain failure")
	}
}

func TestAnchorRequests_ExceedsMaxAttempts_MarksFailed(t *testing.T) {
	req := &model.Request{ID: uuid.New(), Cid: "c1", StreamID: "s1", Status: model.RequestStatusReady, CreatedAt: time.Now()}
	reqs := newFakeRequestStore(req)
	reqs.incremented[req.ID] = 4 // already attempted 4 times
	cand := &model.Candidate{StreamID: "s1", Cid: "c1", AcceptedRequests: []*model.Request{req}}

	c := New(Config{
		Requests: reqs, Anchors: &fakeAnchorStore{}, Transactions: &fakeTransactionStore{},
		Selector: &fakeSelector{candidates: []*model.Candidate{cand}, accepted: []uuid.UUID{req.ID}},
		Emitter: &fakeEmitter{},
		Store:   newStore(),
		Chain:   &fakeChain{err: errors.New("rpc unavailable")},
		MerkleDepthLimit: 3, StreamLimit: 8, MaxProcessingAttempts: 5,
	})

	if err := c.AnchorRequests(context.Background()); err == nil {
		t.Fatal("expected error from chain failure to propagate")
	}

	foundFailedUpdate := false
	for _, u := range reqs.updates {
		if u.Status == model.RequestStatusFailed {
			foundFailedUpdate = true
		}
	}
	if !foundFailedUpdate {
		t.Error("expected a FAILED status update once max attempts exceeded")
	}
}
