// Copyright 2025 Chainanchor
//
// Configuration loading: a YAML base overlaid with environment variables,
// env wins on conflict.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the anchoring core reads at startup.
type Config struct {
	// Batch formation
	MerkleDepthLimit      int           `yaml:"merkleDepthLimit"`
	MinStreamCount        int           `yaml:"minStreamCount"`
	StreamLimit           int           `yaml:"streamLimit"` // = 2^MerkleDepthLimit
	ReadyRetryInterval    time.Duration `yaml:"readyRetryInterval"`
	ExpiryWindow          time.Duration `yaml:"expiryWindow"`
	PubsubTopic           string        `yaml:"pubsubTopic"`
	MaxProcessingAttempts int           `yaml:"maxProcessingAttempts"`

	// Scheduling
	SchedulerInterval time.Duration `yaml:"schedulerInterval"`
	GCInterval        time.Duration `yaml:"gcInterval"`

	// Blockchain
	ChainNetwork     string `yaml:"chainNetwork"`
	ChainRPCURL      string `yaml:"chainRpcUrl"`
	ChainPrivateKey  string `yaml:"chainPrivateKey"`
	ChainGasLimit    uint64 `yaml:"chainGasLimit"`
	ChainGasPriceWei int64  `yaml:"chainGasPriceWei"`

	// Database
	DatabaseURL         string        `yaml:"databaseUrl"`
	DatabaseMaxConns    int           `yaml:"databaseMaxConns"`
	DatabaseMinConns    int           `yaml:"databaseMinConns"`
	DatabaseMaxIdleTime time.Duration `yaml:"databaseMaxIdleTime"`
	DatabaseMaxLifetime time.Duration `yaml:"databaseMaxLifetime"`

	// Content-addressed store
	CASDataDir string `yaml:"casDataDir"`

	// Stream service
	StreamServiceURL string `yaml:"streamServiceUrl"`

	// Event producer (Firestore)
	FirestoreEnabled        bool   `yaml:"firestoreEnabled"`
	FirebaseProjectID       string `yaml:"firebaseProjectId"`
	FirebaseCredentialsFile string `yaml:"firebaseCredentialsFile"`
}

// defaults are conservative values appropriate for a single-node deployment.
func defaults() *Config {
	return &Config{
		MerkleDepthLimit:      3,
		MinStreamCount:        1,
		StreamLimit:           8,
		ReadyRetryInterval:    5 * time.Minute,
		ExpiryWindow:          60 * 24 * time.Hour,
		PubsubTopic:           "anchor-updates",
		MaxProcessingAttempts: 5,
		SchedulerInterval:     30 * time.Second,
		GCInterval:            1 * time.Hour,
		ChainNetwork:          "sepolia",
		ChainGasLimit:         200000,
		DatabaseMaxConns:      25,
		DatabaseMinConns:      5,
		DatabaseMaxIdleTime:   5 * time.Minute,
		DatabaseMaxLifetime:   1 * time.Hour,
		CASDataDir:            "./data/cas",
	}
}

// Load builds a Config starting from defaults, overlaid by an optional YAML
// file at path (skipped silently if it doesn't exist), then overlaid again
// by environment variables. Env always wins.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.MerkleDepthLimit = getEnvInt("ANCHOR_MERKLE_DEPTH_LIMIT", cfg.MerkleDepthLimit)
	cfg.MinStreamCount = getEnvInt("ANCHOR_MIN_STREAM_COUNT", cfg.MinStreamCount)
	cfg.StreamLimit = getEnvInt("ANCHOR_STREAM_LIMIT", cfg.StreamLimit)
	cfg.ReadyRetryInterval = getEnvDuration("ANCHOR_READY_RETRY_INTERVAL", cfg.ReadyRetryInterval)
	cfg.ExpiryWindow = getEnvDuration("ANCHOR_EXPIRY_WINDOW", cfg.ExpiryWindow)
	cfg.PubsubTopic = getEnv("ANCHOR_PUBSUB_TOPIC", cfg.PubsubTopic)
	cfg.MaxProcessingAttempts = getEnvInt("ANCHOR_MAX_PROCESSING_ATTEMPTS", cfg.MaxProcessingAttempts)

	cfg.SchedulerInterval = getEnvDuration("ANCHOR_SCHEDULER_INTERVAL", cfg.SchedulerInterval)
	cfg.GCInterval = getEnvDuration("ANCHOR_GC_INTERVAL", cfg.GCInterval)

	cfg.ChainNetwork = getEnv("CHAIN_NETWORK", cfg.ChainNetwork)
	cfg.ChainRPCURL = getEnv("CHAIN_RPC_URL", cfg.ChainRPCURL)
	cfg.ChainPrivateKey = getEnv("CHAIN_PRIVATE_KEY", cfg.ChainPrivateKey)
	cfg.ChainGasLimit = uint64(getEnvInt("CHAIN_GAS_LIMIT", int(cfg.ChainGasLimit)))
	cfg.ChainGasPriceWei = int64(getEnvInt("CHAIN_GAS_PRICE_WEI", int(cfg.ChainGasPriceWei)))

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseMaxConns = getEnvInt("DATABASE_MAX_CONNS", cfg.DatabaseMaxConns)
	cfg.DatabaseMinConns = getEnvInt("DATABASE_MIN_CONNS", cfg.DatabaseMinConns)
	cfg.DatabaseMaxIdleTime = getEnvDuration("DATABASE_MAX_IDLE_TIME", cfg.DatabaseMaxIdleTime)
	cfg.DatabaseMaxLifetime = getEnvDuration("DATABASE_MAX_LIFETIME", cfg.DatabaseMaxLifetime)

	cfg.CASDataDir = getEnv("ANCHOR_CAS_DATA_DIR", cfg.CASDataDir)
	cfg.StreamServiceURL = getEnv("STREAM_SERVICE_URL", cfg.StreamServiceURL)

	cfg.FirestoreEnabled = getEnvBool("FIRESTORE_ENABLED", cfg.FirestoreEnabled)
	cfg.FirebaseProjectID = getEnv("FIREBASE_PROJECT_ID", cfg.FirebaseProjectID)
	cfg.FirebaseCredentialsFile = getEnv("FIREBASE_CREDENTIALS_FILE", cfg.FirebaseCredentialsFile)

	if cfg.StreamLimit == 0 {
		cfg.StreamLimit = 1 << cfg.MerkleDepthLimit
	}

	return cfg, nil
}

// Validate checks the required fields for a production run.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required but not set")
	}
	if c.ChainRPCURL == "" {
		errs = append(errs, "CHAIN_RPC_URL is required but not set")
	}
	if c.ChainPrivateKey == "" {
		errs = append(errs, "CHAIN_PRIVATE_KEY is required but not set")
	}
	if c.StreamServiceURL == "" {
		errs = append(errs, "STREAM_SERVICE_URL is required but not set")
	}
	if c.MerkleDepthLimit <= 0 {
		errs = append(errs, "merkleDepthLimit must be positive")
	}
	if c.StreamLimit > (1 << c.MerkleDepthLimit) {
		errs = append(errs, "streamLimit exceeds 2^merkleDepthLimit")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
