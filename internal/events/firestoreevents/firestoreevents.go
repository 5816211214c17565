// Copyright 2025 Chainanchor
//
// Producer publishes anchor-ready events to a Firestore collection for
// real-time UI consumption.

package firestoreevents

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// Config configures a Producer.
type Config struct {
	ProjectID       string
	CredentialsFile string
	Enabled         bool
	Collection      string
	Logger          *log.Logger
}

// Producer implements events.Producer against Firestore. When disabled it
// is a no-op, so local development doesn't need real GCP credentials.
type Producer struct {
	client     *gcpfirestore.Client
	collection string
	enabled    bool
	logger     *log.Logger
}

// New dials Firestore per cfg. If cfg.Enabled is false, New returns a
// Producer whose EmitAnchorEvent is a no-op.
func New(ctx context.Context, cfg Config) (*Producer, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[FirestoreEvents] ", log.LstdFlags)
	}
	if cfg.Collection == "" {
		cfg.Collection = "anchor-events"
	}

	p := &Producer{collection: cfg.Collection, enabled: cfg.Enabled, logger: cfg.Logger}
	if !cfg.Enabled {
		p.logger.Println("firestore event production disabled - running in no-op mode")
		return p, nil
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firebase project id is required when firestore events are enabled")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	p.client = client

	return p, nil
}

// EmitAnchorEvent writes a document announcing that the batch identified by
// id is ready to anchor. A failed write is logged and returned; the caller
// decides whether to ignore it (the readiness scheduler does).
func (p *Producer) EmitAnchorEvent(ctx context.Context, id uuid.UUID) error {
	if !p.enabled {
		return nil
	}

	_, err := p.client.Collection(p.collection).Doc(id.String()).Set(ctx, map[string]interface{}{
		"batchId":   id.String(),
		"emittedAt": time.Now(),
	})
	if err != nil {
		p.logger.Printf("failed to emit anchor event %s: %v", id, err)
		return fmt.Errorf("emit anchor event: %w", err)
	}
	return nil
}

// Close releases the underlying Firestore client.
func (p *Producer) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
