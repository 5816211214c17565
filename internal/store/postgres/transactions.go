// Copyright 2025 Chainanchor

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chainanchor/anchor-core/internal/model"
)

// TransactionStore is the durable table of blockchain transactions that
// carried a Merkle root.
type TransactionStore struct {
	client *Client
}

// NewTransactionStore creates a TransactionStore bound to client.
func NewTransactionStore(client *Client) *TransactionStore {
	return &TransactionStore{client: client}
}

// Create inserts a transaction row. (chainId, txHash) is unique: a repeated
// insert for the same transaction is a no-op.
func (s *TransactionStore) Create(ctx context.Context, tx *model.Transaction) error {
	query := `
		INSERT INTO transactions (chain_id, tx_hash, block_number, block_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chain_id, tx_hash) DO NOTHING`

	_, err := s.client.db.ExecContext(ctx, query, tx.ChainID, tx.TxHash, tx.BlockNumber, tx.BlockTimestamp, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// FindByHash returns the transaction for (chainID, txHash), or
// ErrTransactionNotFound.
func (s *TransactionStore) FindByHash(ctx context.Context, chainID, txHash string) (*model.Transaction, error) {
	query := `
		SELECT chain_id, tx_hash, block_number, block_timestamp, created_at
		FROM transactions WHERE chain_id = $1 AND tx_hash = $2`

	tx := &model.Transaction{}
	err := s.client.db.QueryRowContext(ctx, query, chainID, txHash).Scan(
		&tx.ChainID, &tx.TxHash, &tx.BlockNumber, &tx.BlockTimestamp, &tx.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction by hash: %w", err)
	}
	return tx, nil
}
