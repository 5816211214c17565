// Copyright 2025 Chainanchor
//
// KVStore implements Store on top of a CometBFT dbm.DB, the same embedded
// key-value layer the validator uses for its ledger state.

package cas

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
)

// KVStore is a Store backed by an embedded key-value database. Pins are
// tracked in a side table so Unpin/GC don't need to touch the object itself.
type KVStore struct {
	db dbm.DB

	mu   sync.RWMutex
	subs map[string][]chan []byte
}

// NewKVStore wraps db as a content-addressed Store.
func NewKVStore(db dbm.DB) *KVStore {
	return &KVStore{
		db:   db,
		subs: make(map[string][]chan []byte),
	}
}

func objectKey(cidStr string) []byte {
	return []byte("obj/" + cidStr)
}

func pinKey(cidStr string) []byte {
	return []byte("pin/" + cidStr)
}

// Put implements Store.
func (s *KVStore) Put(_ context.Context, v interface{}) (string, error) {
	cidStr, canon, err := deriveCID(v)
	if err != nil {
		return "", fmt.Errorf("derive cid: %w", err)
	}

	existing, err := s.db.Get(objectKey(cidStr))
	if err != nil {
		return "", fmt.Errorf("cas get during put: %w", err)
	}
	if existing != nil {
		return cidStr, nil
	}

	if err := s.db.SetSync(objectKey(cidStr), canon); err != nil {
		return "", fmt.Errorf("cas put: %w", err)
	}
	return cidStr, nil
}

// Get implements Store.
func (s *KVStore) Get(_ context.Context, cidStr string, out interface{}) error {
	v, err := s.db.Get(objectKey(cidStr))
	if err != nil {
		return fmt.Errorf("cas get: %w", err)
	}
	if v == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(v, out); err != nil {
		return fmt.Errorf("cas unmarshal: %w", err)
	}
	return nil
}

// Pin implements Store.
func (s *KVStore) Pin(_ context.Context, cidStr string) error {
	if err := s.db.SetSync(pinKey(cidStr), []byte{1}); err != nil {
		return fmt.Errorf("cas pin: %w", err)
	}
	return nil
}

// Unpin implements Store.
func (s *KVStore) Unpin(_ context.Context, cidStr string) error {
	if err := s.db.Delete(pinKey(cidStr)); err != nil {
		return fmt.Errorf("cas unpin: %w", err)
	}
	return nil
}

// IsPinned reports whether cid currently carries a pin.
func (s *KVStore) IsPinned(_ context.Context, cidStr string) (bool, error) {
	v, err := s.db.Get(pinKey(cidStr))
	if err != nil {
		return false, fmt.Errorf("cas ispinned: %w", err)
	}
	return v != nil, nil
}

// Publish implements Store by fanning payload out to any local subscribers
// on topic. Delivery is best effort: a full subscriber channel drops the
// message rather than blocking the publisher.
func (s *KVStore) Publish(_ context.Context, topic string, payload []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs[topic] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a channel to receive future Publish payloads on topic.
// The returned function removes the subscription.
func (s *KVStore) Subscribe(topic string, buffer int) (<-chan []byte, func()) {
	ch := make(chan []byte, buffer)

	s.mu.Lock()
	s.subs[topic] = append(s.subs[topic], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.subs[topic]
		for i, c := range chans {
			if c == ch {
				s.subs[topic] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}
