// Copyright 2025 Chainanchor
//
// Request is the durable record of one anchoring ask.

package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a Request.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusReady      RequestStatus = "ready"
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusFailed     RequestStatus = "failed"
)

// IsTerminal reports whether status cannot be transitioned by the core.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusFailed
}

// Request is one externally submitted request to anchor a CID.
type Request struct {
	ID        uuid.UUID
	Cid       string
	StreamID  string
	Status    RequestStatus
	Message   string
	Pinned    bool
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusUpdate is a batch update applied to a set of requests.
type StatusUpdate struct {
	Status  RequestStatus
	Message string
}
