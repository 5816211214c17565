// Copyright 2025 Chainanchor
//
// Package events defines the best-effort external notification the
// readiness scheduler fires when a batch becomes eligible to anchor.

package events

import (
	"context"

	"github.com/google/uuid"
)

// Producer emits an anchor-ready event. Failures are logged by
// implementations and otherwise ignored by callers — this is a UI/telemetry
// convenience, not part of the anchoring guarantee.
type Producer interface {
	EmitAnchorEvent(ctx context.Context, id uuid.UUID) error
}
