// Copyright 2025 Chainanchor
//
// Package gc unpins content that was anchored longer ago than the configured
// expiry window, freeing the stream service from holding it indefinitely.

package gc

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/metrics"
	"github.com/chainanchor/anchor-core/internal/model"
)

// RequestStore is the subset of the durable request table the collector
// needs.
type RequestStore interface {
	FindPinnedExpired(ctx context.Context, cutoff time.Time) ([]*model.Request, error)
	MarkUnpinned(ctx context.Context, id uuid.UUID) error
}

// StreamService is the subset of the stream service the collector needs.
type StreamService interface {
	UnpinStream(ctx context.Context, streamID string) error
}

// Collector unpins streams whose anchored requests have outlived the expiry
// window.
type Collector struct {
	requests     RequestStore
	streams      StreamService
	metrics      *metrics.Metrics
	logger       *log.Logger
	expiryWindow time.Duration
}

// Config configures a Collector.
type Config struct {
	Requests     RequestStore
	Streams      StreamService
	Metrics      *metrics.Metrics
	ExpiryWindow time.Duration
}

// New creates a Collector.
func New(cfg Config) *Collector {
	return &Collector{
		requests:     cfg.Requests,
		streams:      cfg.Streams,
		metrics:      cfg.Metrics,
		expiryWindow: cfg.ExpiryWindow,
		logger:       log.New(os.Stdout, "[GarbageCollector] ", log.LstdFlags),
	}
}

// GarbageCollectPinnedStreams unpins every COMPLETED, pinned request whose
// updatedAt predates the expiry window. A stream-unpin failure is logged and
// the remaining requests are still attempted; already-unpinned requests are
// naturally excluded from FindPinnedExpired, making repeated runs idempotent.
func (c *Collector) GarbageCollectPinnedStreams(ctx context.Context) error {
	cutoff := time.Now().Add(-c.expiryWindow)

	expired, err := c.requests.FindPinnedExpired(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, req := range expired {
		if err := c.streams.UnpinStream(ctx, req.StreamID); err != nil {
			c.logger.Printf("failed to unpin stream %s for request %s: %v", req.StreamID, req.ID, err)
			continue
		}
		if err := c.requests.MarkUnpinned(ctx, req.ID); err != nil {
			c.logger.Printf("failed to mark request %s unpinned: %v", req.ID, err)
			continue
		}
		if c.metrics != nil {
			c.metrics.GCUnpinnedTotal.Inc()
		}
	}
	return nil
}
