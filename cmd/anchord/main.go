// Copyright 2025 Chainanchor

package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chainanchor/anchor-core/internal/anchoremit"
	"github.com/chainanchor/anchor-core/internal/blockchain/ethadapter"
	"github.com/chainanchor/anchor-core/internal/candidate"
	"github.com/chainanchor/anchor-core/internal/cas"
	"github.com/chainanchor/anchor-core/internal/config"
	"github.com/chainanchor/anchor-core/internal/coordinator"
	"github.com/chainanchor/anchor-core/internal/events/firestoreevents"
	"github.com/chainanchor/anchor-core/internal/gc"
	"github.com/chainanchor/anchor-core/internal/metrics"
	"github.com/chainanchor/anchor-core/internal/scheduler"
	"github.com/chainanchor/anchor-core/internal/store/postgres"
	"github.com/chainanchor/anchor-core/internal/stream/streamclient"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags)
	log.Println("starting anchor-core")

	var configPath = flag.String("config", "", "path to anchord.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("[Database] connecting to postgres...")
	dbClient, err := postgres.NewClient(cfg, postgres.WithLogger(
		log.New(log.Writer(), "[Database] ", log.LstdFlags),
	))
	if err != nil {
		log.Fatalf("[Database] connection failed: %v", err)
	}
	defer dbClient.Close()

	if err := dbClient.MigrateUp(ctx); err != nil {
		log.Fatalf("[Database] migration failed: %v", err)
	}
	log.Println("[Database] connected and migrated")

	requestStore := postgres.NewRequestStore(dbClient)
	anchorStore := postgres.NewAnchorStore(dbClient)
	txnStore := postgres.NewTransactionStore(dbClient)

	casDB, err := dbm.NewGoLevelDB("anchor-cas", cfg.CASDataDir)
	if err != nil {
		log.Fatalf("[CAS] open content store: %v", err)
	}
	contentStore := cas.NewKVStore(casDB)
	log.Println("[CAS] content-addressed store ready at", cfg.CASDataDir)

	log.Println("[EthAdapter] connecting to blockchain RPC...")
	var ethOpts []ethadapter.Option
	if cfg.ChainGasPriceWei > 0 {
		ethOpts = append(ethOpts, ethadapter.WithGasPrice(big.NewInt(cfg.ChainGasPriceWei)))
	}
	chainClient, err := ethadapter.New(
		cfg.ChainRPCURL,
		chainIDFor(cfg.ChainNetwork),
		cfg.ChainPrivateKey,
		"",
		cfg.ChainGasLimit,
		ethOpts...,
	)
	if err != nil {
		log.Fatalf("[EthAdapter] connection failed: %v", err)
	}
	log.Println("[EthAdapter] connected to", cfg.ChainNetwork)

	streamService := streamclient.New(cfg.StreamServiceURL)

	eventProducer, err := firestoreevents.New(ctx, firestoreevents.Config{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		Enabled:         cfg.FirestoreEnabled,
	})
	if err != nil {
		log.Fatalf("[FirestoreEvents] initialization failed: %v", err)
	}
	defer eventProducer.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	selector := candidate.New(streamService, requestStore)
	emitter := anchoremit.New(contentStore, cfg.PubsubTopic)

	coord := coordinator.New(coordinator.Config{
		Requests:              requestStore,
		Anchors:               anchorStore,
		Transactions:          txnStore,
		Selector:              selector,
		Emitter:               emitter,
		Store:                 contentStore,
		Chain:                 chainClient,
		Metrics:               m,
		MerkleDepthLimit:      cfg.MerkleDepthLimit,
		StreamLimit:           cfg.StreamLimit,
		MaxProcessingAttempts: cfg.MaxProcessingAttempts,
	})

	sched := scheduler.New(scheduler.Config{
		Requests:           requestStore,
		Events:             eventProducer,
		Metrics:            m,
		MinStreamCount:     cfg.MinStreamCount,
		StreamLimit:        cfg.StreamLimit,
		ReadyRetryInterval: cfg.ReadyRetryInterval,
	})

	collector := gc.New(gc.Config{
		Requests:     requestStore,
		Streams:      streamService,
		Metrics:      m,
		ExpiryWindow: cfg.ExpiryWindow,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbClient.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	httpServer := &http.Server{Addr: ":9090", Handler: mux}

	go func() {
		log.Println("[HTTP] metrics and health listening on :9090")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[HTTP] server error: %v", err)
		}
	}()

	go runOnTicker(ctx, cfg.SchedulerInterval, "ReadinessScheduler", func(ctx context.Context) error {
		return sched.EmitAnchorEventIfReady(ctx)
	})
	go runOnTicker(ctx, cfg.SchedulerInterval, "AnchorCoordinator", func(ctx context.Context) error {
		return coord.AnchorRequests(ctx)
	})
	go runOnTicker(ctx, cfg.GCInterval, "GarbageCollector", func(ctx context.Context) error {
		return collector.GarbageCollectPinnedStreams(ctx)
	})

	log.Println("anchor-core ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down anchor-core")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] shutdown error: %v", err)
	}

	log.Println("anchor-core stopped")
}

// runOnTicker invokes fn every interval until ctx is cancelled, logging but
// not propagating per-tick errors so one bad cycle doesn't stop the process.
func runOnTicker(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("[%s] cycle failed: %v", name, err)
			}
		}
	}
}

func chainIDFor(network string) int64 {
	switch network {
	case "mainnet":
		return 1
	case "sepolia":
		return 11155111
	case "goerli":
		return 5
	default:
		return 1
	}
}
