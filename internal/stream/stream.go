// Copyright 2025 Chainanchor
//
// Stream models the external stream service's view of a commit log.
// Per the design notes, the core only needs ancestor/descendant tests on a
// linear log slice, not general DAG traversal — so a Stream is modeled as an
// ordered list of commits plus a type tag, not a graph.

package stream

import "context"

// CommitType is the kind of entry in a stream's log.
type CommitType string

const (
	CommitGenesis CommitType = "GENESIS"
	CommitSigned  CommitType = "SIGNED"
	CommitAnchor  CommitType = "ANCHOR"
)

// LogEntry is one commit in a stream's log.
type LogEntry struct {
	Cid  string
	Type CommitType
}

// Stream is the authoritative, ordered commit log for one streamId.
type Stream struct {
	ID  string
	Log []LogEntry
}

// Tip returns the last log entry, or the zero value if the log is empty.
func (s *Stream) Tip() LogEntry {
	if len(s.Log) == 0 {
		return LogEntry{}
	}
	return s.Log[len(s.Log)-1]
}

// IndexOf returns the position of cid in the log, or -1 if absent.
func (s *Stream) IndexOf(cid string) int {
	for i, e := range s.Log {
		if e.Cid == cid {
			return i
		}
	}
	return -1
}

// AnchoredAtOrBefore reports whether cid appears in the log at or before an
// ANCHOR commit — i.e. the commit is already covered by a prior anchoring.
func (s *Stream) AnchoredAtOrBefore(cid string) bool {
	idx := s.IndexOf(cid)
	if idx < 0 {
		return false
	}
	for i := idx; i < len(s.Log); i++ {
		if s.Log[i].Type == CommitAnchor {
			return true
		}
	}
	return false
}

// IsAncestorOfTip reports whether cid is the tip itself or appears earlier
// in the log than the tip — i.e. the tip causally extends it.
func (s *Stream) IsAncestorOfTip(cid string) bool {
	return s.IndexOf(cid) >= 0
}

// Query identifies a commit within a stream, used for multiQuery lookups
// when a request's CID is not present in the authoritative stream log yet.
type Query struct {
	StreamID string
	CommitID string
}

// Service is the external stream service contract (§6). loadStream resolves
// the authoritative current state of a stream; loadCommit resolves the
// commit-scoped view anchored at a specific commit; multiQuery resolves a
// batch of (streamId, commitId) pairs, merging any discovered commits into
// the caller's view; unpinStream releases a previously pinned stream.
type Service interface {
	LoadStream(ctx context.Context, streamID string) (*Stream, error)
	LoadCommit(ctx context.Context, commitID string) (*Stream, error)
	MultiQuery(ctx context.Context, queries []Query) (map[string]*Stream, error)
	UnpinStream(ctx context.Context, streamID string) error
}
