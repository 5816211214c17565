// Copyright 2025 Chainanchor

package firestoreevents

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestNew_Disabled_IsNoOp(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := p.EmitAnchorEvent(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected no-op emit to succeed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("expected no-op close to succeed, got %v", err)
	}
}

func TestNew_EnabledWithoutProjectID_ReturnsError(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true})
	if err == nil {
		t.Fatal("expected error when enabled without a project id")
	}
}

func TestNew_DefaultsCollectionName(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.collection != "anchor-events" {
		t.Errorf("expected default collection name, got %q", p.collection)
	}
}
