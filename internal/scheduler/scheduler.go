// Copyright 2025 Chainanchor
//
// Package scheduler promotes PENDING requests to READY in batch, retries
// stale READY batches, and announces either case to the external event
// producer.

package scheduler

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/chainanchor/anchor-core/internal/events"
	"github.com/chainanchor/anchor-core/internal/metrics"
	"github.com/chainanchor/anchor-core/internal/model"
)

// RequestStore is the subset of the durable request table the scheduler
// needs.
type RequestStore interface {
	FindAndMarkReady(ctx context.Context, limit int, minStreamCount int, readyRetryInterval time.Duration) ([]*model.Request, error)
}

// Scheduler promotes PENDING requests to READY and signals readiness to the
// event producer.
type Scheduler struct {
	requests RequestStore
	events   events.Producer
	metrics  *metrics.Metrics
	logger   *log.Logger

	minStreamCount     int
	streamLimit        int
	readyRetryInterval time.Duration
}

// Config configures a Scheduler.
type Config struct {
	Requests           RequestStore
	Events             events.Producer
	Metrics            *metrics.Metrics
	MinStreamCount     int
	StreamLimit        int
	ReadyRetryInterval time.Duration
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	return &Scheduler{
		requests:           cfg.Requests,
		events:             cfg.Events,
		metrics:            cfg.Metrics,
		minStreamCount:     cfg.MinStreamCount,
		streamLimit:        cfg.StreamLimit,
		readyRetryInterval: cfg.ReadyRetryInterval,
		logger:             log.New(os.Stdout, "[ReadinessScheduler] ", log.LstdFlags),
	}
}

// EmitAnchorEventIfReady promotes eligible PENDING requests to READY,
// retries any stale READY batch, and emits an anchor event if either
// occurred.
func (s *Scheduler) EmitAnchorEventIfReady(ctx context.Context) error {
	promoted, err := s.requests.FindAndMarkReady(ctx, s.streamLimit, s.minStreamCount, s.readyRetryInterval)
	if err != nil {
		return err
	}
	if len(promoted) == 0 {
		return nil
	}

	if s.metrics != nil {
		s.metrics.ReadyPromoted.Add(float64(len(promoted)))
	}

	if err := s.events.EmitAnchorEvent(ctx, uuid.New()); err != nil {
		s.logger.Printf("anchor event emission failed: %v", err)
	}
	return nil
}
