// Copyright 2025 Chainanchor
//
// Content-addressed storage. Objects are self-describing structured records;
// identical objects must yield identical CIDs, so puts hash a canonical JSON
// encoding rather than the caller's raw bytes.

package cas

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists for the given CID.
var ErrNotFound = errors.New("cas: object not found")

// Store is the content-addressed store contract: put/get/pin/unpin plus a
// pub/sub publish used to announce stream tip updates.
type Store interface {
	// Put canonicalizes v, stores it, and returns its CID. Putting the same
	// logical object twice returns the same CID without error.
	Put(ctx context.Context, v interface{}) (string, error)

	// Get loads the object previously stored under cid into out, a pointer.
	// Returns ErrNotFound if cid is unknown.
	Get(ctx context.Context, cid string, out interface{}) error

	// Pin marks cid as retained; GC will not unpin content that was never pinned.
	Pin(ctx context.Context, cid string) error

	// Unpin releases a prior pin. Unpinning an already-unpinned or unknown
	// CID is not an error.
	Unpin(ctx context.Context, cid string) error

	// Publish broadcasts payload on topic to any subscribers.
	Publish(ctx context.Context, topic string, payload []byte) error
}
