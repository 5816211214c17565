// Copyright 2025 Chainanchor
//
// Package postgres provides sentinel errors for store operations, used
// instead of (nil, nil) returns.

package postgres

import "errors"

var (
	// ErrRequestNotFound is returned when a request row is not found.
	ErrRequestNotFound = errors.New("request not found")

	// ErrAnchorNotFound is returned when an anchor row is not found.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrTransactionNotFound is returned when a transaction row is not found.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNoEligibleStreams names the case where fewer than minStreamCount
	// distinct streams exist among PENDING requests. FindAndMarkReady does
	// not return it: in that case it promotes no PENDING rows and returns
	// only the stale READY rows it re-included.
	ErrNoEligibleStreams = errors.New("fewer than minStreamCount eligible streams")
)
