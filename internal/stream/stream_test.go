// Copyright 2025 Chainanchor

package stream

import "testing"

func TestTip_Empty(t *testing.T) {
	s := &Stream{ID: "s1"}
	if tip := s.Tip(); tip != (LogEntry{}) {
		t.Errorf("expected zero tip for empty log, got %+v", tip)
	}
}

func TestTip_ReturnsLast(t *testing.T) {
	s := &Stream{
		ID: "s1",
		Log: []LogEntry{
			{Cid: "c0", Type: CommitGenesis},
			{Cid: "c1", Type: CommitSigned},
		},
	}
	if tip := s.Tip(); tip.Cid != "c1" {
		t.Errorf("got tip %s, want c1", tip.Cid)
	}
}

func TestAnchoredAtOrBefore(t *testing.T) {
	s := &Stream{
		ID: "s1",
		Log: []LogEntry{
			{Cid: "c0", Type: CommitGenesis},
			{Cid: "c1", Type: CommitSigned},
			{Cid: "c2", Type: CommitAnchor},
			{Cid: "c3", Type: CommitSigned},
		},
	}
	if !s.AnchoredAtOrBefore("c0") {
		t.Error("expected c0 to be anchored (precedes an ANCHOR commit)")
	}
	if !s.AnchoredAtOrBefore("c2") {
		t.Error("expected c2 itself to count as anchored")
	}
	if s.AnchoredAtOrBefore("c3") {
		t.Error("expected c3 to not be anchored (follows the ANCHOR commit)")
	}
	if s.AnchoredAtOrBefore("unknown") {
		t.Error("expected unknown cid to not be anchored")
	}
}

func TestIsAncestorOfTip(t *testing.T) {
	s := &Stream{
		ID: "s1",
		Log: []LogEntry{
			{Cid: "c0", Type: CommitGenesis},
			{Cid: "c1", Type: CommitSigned},
		},
	}
	if !s.IsAncestorOfTip("c0") {
		t.Error("expected c0 to be an ancestor of the tip")
	}
	if !s.IsAncestorOfTip("c1") {
		t.Error("expected the tip itself to count as an ancestor")
	}
	if s.IsAncestorOfTip("c2") {
		t.Error("expected unrelated cid to not be an ancestor")
	}
}
