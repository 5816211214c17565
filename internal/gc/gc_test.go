// Copyright 2025 Chainanchor

package gc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/model"
)

type fakeRequestStore struct {
	expired  []*model.Request
	unpinned []uuid.UUID
	findErr  error
	markErr  map[uuid.UUID]error
}

func (f *fakeRequestStore) FindPinnedExpired(_ context.Context, cutoff time.Time) ([]*model.Request, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.expired, nil
}

func (f *fakeRequestStore) MarkUnpinned(_ context.Context, id uuid.UUID) error {
	if err, ok := f.markErr[id]; ok {
		return err
	}
	f.unpinned = append(f.unpinned, id)
	return nil
}

type fakeStreamService struct {
	unpinned []string
	failFor  map[string]error
}

func (f *fakeStreamService) UnpinStream(_ context.Context, streamID string) error {
	if err, ok := f.failFor[streamID]; ok {
		return err
	}
	f.unpinned = append(f.unpinned, streamID)
	return nil
}

func TestGarbageCollectPinnedStreams_UnpinsExpired(t *testing.T) {
	r1 := &model.Request{ID: uuid.New(), StreamID: "s1", Status: model.RequestStatusCompleted, Pinned: true}
	r2 := &model.Request{ID: uuid.New(), StreamID: "s2", Status: model.RequestStatusCompleted, Pinned: true}
	reqs := &fakeRequestStore{expired: []*model.Request{r1, r2}}
	streams := &fakeStreamService{}

	c := New(Config{Requests: reqs, Streams: streams, ExpiryWindow: 60 * 24 * time.Hour})
	if err := c.GarbageCollectPinnedStreams(context.Background()); err != nil {
		t.Fatalf("garbageCollectPinnedStreams: %v", err)
	}

	if len(streams.unpinned) != 2 {
		t.Fatalf("expected 2 streams unpinned, got %d", len(streams.unpinned))
	}
	if len(reqs.unpinned) != 2 {
		t.Fatalf("expected 2 requests marked unpinned, got %d", len(reqs.unpinned))
	}
}

func TestGarbageCollectPinnedStreams_PerStreamFailureContinues(t *testing.T) {
	r1 := &model.Request{ID: uuid.New(), StreamID: "s1", Status: model.RequestStatusCompleted, Pinned: true}
	r2 := &model.Request{ID: uuid.New(), StreamID: "s2", Status: model.RequestStatusCompleted, Pinned: true}
	reqs := &fakeRequestStore{expired: []*model.Request{r1, r2}}
	streams := &fakeStreamService{failFor: map[string]error{"s1": errors.New("stream service unavailable")}}

	c := New(Config{Requests: reqs, Streams: streams, ExpiryWindow: 60 * 24 * time.Hour})
	if err := c.GarbageCollectPinnedStreams(context.Background()); err != nil {
		t.Fatalf("garbageCollectPinnedStreams: %v", err)
	}

	if len(reqs.unpinned) != 1 || reqs.unpinned[0] != r2.ID {
		t.Errorf("expected only r2 marked unpinned after r1's stream unpin failed, got %v", reqs.unpinned)
	}
}

func TestGarbageCollectPinnedStreams_NoExpired_NoCalls(t *testing.T) {
	reqs := &fakeRequestStore{}
	streams := &fakeStreamService{}

	c := New(Config{Requests: reqs, Streams: streams, ExpiryWindow: 60 * 24 * time.Hour})
	if err := c.GarbageCollectPinnedStreams(context.Background()); err != nil {
		t.Fatalf("garbageCollectPinnedStreams: %v", err)
	}
	if len(streams.unpinned) != 0 {
		t.Errorf("expected no unpinStream calls, got %d", len(streams.unpinned))
	}
}

func TestGarbageCollectPinnedStreams_FindError_Propagates(t *testing.T) {
	reqs := &fakeRequestStore{findErr: errors.New("db unavailable")}
	c := New(Config{Requests: reqs, Streams: &fakeStreamService{}, ExpiryWindow: 60 * 24 * time.Hour})

	if err := c.GarbageCollectPinnedStreams(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}
}
