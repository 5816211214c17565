// Copyright 2025 Chainanchor

package cas

import (
	"context"
	"testing"

	dbm "github.com/cometbft/cometbft-db"
)

type sample struct {
	Foo string `json:"foo"`
	Bar int    `json:"bar"`
}

func newTestStore(t *testing.T) *KVStore {
	t.Helper()
	db := dbm.NewMemDB()
	return NewKVStore(db)
}

func TestPut_DeterministicCID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cid1, err := store.Put(ctx, sample{Foo: "a", Bar: 1})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	cid2, err := store.Put(ctx, sample{Foo: "a", Bar: 1})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if cid1 != cid2 {
		t.Errorf("identical objects yielded different CIDs: %s vs %s", cid1, cid2)
	}

	cid3, err := store.Put(ctx, sample{Foo: "a", Bar: 2})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if cid3 == cid1 {
		t.Errorf("distinct objects yielded the same CID: %s", cid3)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sample{Foo: "hello", Bar: 42}
	cid, err := store.Put(ctx, want)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	var got sample
	if err := store.Get(ctx, cid, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var out sample
	err := store.Get(ctx, "bafkqaaa", &out)
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPinUnpin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cid, err := store.Put(ctx, sample{Foo: "x"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	pinned, err := store.IsPinned(ctx, cid)
	if err != nil {
		t.Fatalf("ispinned: %v", err)
	}
	if pinned {
		t.Fatal("expected unpinned by default")
	}

	if err := store.Pin(ctx, cid); err != nil {
		t.Fatalf("pin: %v", err)
	}
	pinned, err = store.IsPinned(ctx, cid)
	if err != nil {
		t.Fatalf("ispinned: %v", err)
	}
	if !pinned {
		t.Fatal("expected pinned after Pin")
	}

	if err := store.Unpin(ctx, cid); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	pinned, err = store.IsPinned(ctx, cid)
	if err != nil {
		t.Fatalf("ispinned: %v", err)
	}
	if pinned {
		t.Fatal("expected unpinned after Unpin")
	}

	// Unpinning an already-unpinned CID is not an error.
	if err := store.Unpin(ctx, cid); err != nil {
		t.Fatalf("unpin again: %v", err)
	}
}

func TestPublishSubscribe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ch, cancel := store.Subscribe("updates", 1)
	defer cancel()

	if err := store.Publish(ctx, "updates", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-ch:
		if string(msg) != "hello" {
			t.Errorf("got %q, want %q", msg, "hello")
		}
	default:
		t.Fatal("expected message on subscribed channel")
	}
}
