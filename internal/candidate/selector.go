// Copyright 2025 Chainanchor
//
// Selector turns a set of READY requests into per-stream Candidates: it
// resolves each request's causal relationship to its stream's current tip,
// completing or failing requests that don't need (or can't have) a new
// anchor, and orders the survivors for fair, FIFO batch inclusion.

package candidate

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/model"
	"github.com/chainanchor/anchor-core/internal/stream"
)

const (
	msgAlreadyAnchored   = "CID successfully anchored."
	msgNoReadableVersion = "No readable version found"
)

// RequestUpdater is the subset of the request store the selector needs to
// persist rejection and pre-anchored-completion outcomes.
type RequestUpdater interface {
	UpdateRequests(ctx context.Context, update model.StatusUpdate, reqs []uuid.UUID) error
}

// Selector implements the batch-formation step.
type Selector struct {
	streams  stream.Service
	requests RequestUpdater
	logger   *log.Logger
}

// New creates a Selector.
func New(streams stream.Service, requests RequestUpdater) *Selector {
	return &Selector{
		streams:  streams,
		requests: requests,
		logger:   log.New(log.Writer(), "[CandidateSelector] ", log.LstdFlags),
	}
}

// Select groups reqs by stream, resolves each bucket's tip, and returns the
// ordered candidates surviving the limit along with the ids of all accepted
// requests across those candidates. Rejections and pre-anchored completions
// are persisted via requests before returning.
func (s *Selector) Select(ctx context.Context, reqs []*model.Request, limit int) ([]*model.Candidate, []uuid.UUID, error) {
	buckets := groupByStream(reqs)

	var candidates []*model.Candidate
	var completedIDs, failedIDs []uuid.UUID

	for streamID, bucket := range buckets {
		cand, completed, failed, err := s.resolveBucket(ctx, streamID, bucket)
		if err != nil {
			return nil, nil, err
		}
		completedIDs = append(completedIDs, completed...)
		failedIDs = append(failedIDs, failed...)
		if cand != nil {
			candidates = append(candidates, cand)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.EarliestCreatedAt.Equal(b.EarliestCreatedAt) {
			return a.EarliestCreatedAt.Before(b.EarliestCreatedAt)
		}
		return a.StreamID < b.StreamID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if len(completedIDs) > 0 {
		update := model.StatusUpdate{Status: model.RequestStatusCompleted, Message: msgAlreadyAnchored}
		if err := s.requests.UpdateRequests(ctx, update, completedIDs); err != nil {
			return nil, nil, fmt.Errorf("mark pre-anchored requests completed: %w", err)
		}
	}
	if len(failedIDs) > 0 {
		update := model.StatusUpdate{Status: model.RequestStatusFailed, Message: msgNoReadableVersion}
		if err := s.requests.UpdateRequests(ctx, update, failedIDs); err != nil {
			return nil, nil, fmt.Errorf("mark unresolvable requests failed: %w", err)
		}
	}

	var accepted []uuid.UUID
	for _, c := range candidates {
		accepted = append(accepted, c.AcceptedRequestIDs()...)
	}
	return candidates, accepted, nil
}

// resolveBucket implements steps 2-5 of the algorithm for a single stream's
// requests. Returns the candidate (nil if the accepted set ends up empty)
// plus the ids that must be marked COMPLETED or FAILED as a side effect.
func (s *Selector) resolveBucket(ctx context.Context, streamID string, bucket []*model.Request) (*model.Candidate, []uuid.UUID, []uuid.UUID, error) {
	st, err := s.streams.LoadStream(ctx, streamID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load stream %s: %w", streamID, err)
	}

	var completed, failed []uuid.UUID
	var pending []*model.Request
	for _, r := range bucket {
		if st.AnchoredAtOrBefore(r.Cid) {
			completed = append(completed, r.ID)
			continue
		}
		pending = append(pending, r)
	}

	var unresolved []stream.Query
	for _, r := range pending {
		if st.IndexOf(r.Cid) < 0 {
			unresolved = append(unresolved, stream.Query{StreamID: streamID, CommitID: r.Cid})
		}
	}
	if len(unresolved) > 0 {
		merged, err := s.streams.MultiQuery(ctx, unresolved)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("multiquery stream %s: %w", streamID, err)
		}
		if m, ok := merged[streamID]; ok && m != nil {
			st = m
		}
	}

	cand := &model.Candidate{StreamID: streamID, Cid: st.Tip().Cid}
	for _, r := range pending {
		if st.IsAncestorOfTip(r.Cid) {
			cand.AcceptedRequests = append(cand.AcceptedRequests, r)
			if cand.EarliestCreatedAt.IsZero() || r.CreatedAt.Before(cand.EarliestCreatedAt) {
				cand.EarliestCreatedAt = r.CreatedAt
			}
		} else {
			cand.RejectedRequests = append(cand.RejectedRequests, r)
			failed = append(failed, r.ID)
		}
	}

	if len(cand.AcceptedRequests) == 0 {
		return nil, completed, failed, nil
	}
	return cand, completed, failed, nil
}

func groupByStream(reqs []*model.Request) map[string][]*model.Request {
	out := make(map[string][]*model.Request)
	for _, r := range reqs {
		out[r.StreamID] = append(out[r.StreamID], r)
	}
	return out
}
