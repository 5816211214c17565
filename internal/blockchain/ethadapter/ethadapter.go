// Copyright 2025 Chainanchor
//
// Adapter implements blockchain.Client against a real Ethereum-compatible
// chain: it signs and submits a single transaction carrying the Merkle
// root's raw bytes as calldata, then polls for its receipt.

package ethadapter

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/chainanchor/anchor-core/internal/blockchain"
)

// Adapter is a blockchain.Client backed by go-ethereum's RPC client.
type Adapter struct {
	client    *ethclient.Client
	chainID   *big.Int
	auth      *bind.TransactOpts
	fromAddr  common.Address
	toAddr    common.Address
	gasLimit  uint64
	gasPrice  *big.Int
	logger    *log.Logger
	pollEvery time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithGasPrice fixes the gas price instead of querying the node for one.
func WithGasPrice(wei *big.Int) Option {
	return func(a *Adapter) { a.gasPrice = wei }
}

// New dials rpcURL and prepares a transactor from privateKeyHex. Anchoring
// transactions are sent to toAddr (the configured anchor contract or, in the
// simplest deployment, the sender's own address) with the root bytes as
// calldata. An empty toAddr selects the sender's own address.
func New(rpcURL string, chainID int64, privateKeyHex, toAddr string, gasLimit uint64, opts ...Option) (*Adapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	cid := big.NewInt(chainID)
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, cid)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	to := auth.From
	if toAddr != "" {
		to = common.HexToAddress(toAddr)
	}

	a := &Adapter{
		client:    client,
		chainID:   cid,
		auth:      auth,
		fromAddr:  auth.From,
		toAddr:    to,
		gasLimit:  gasLimit,
		logger:    log.New(log.Writer(), "[EthAdapter] ", log.LstdFlags),
		pollEvery: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SendTransaction implements blockchain.Client.
func (a *Adapter) SendTransaction(ctx context.Context, data []byte) (*blockchain.Receipt, error) {
	nonce, err := a.client.PendingNonceAt(ctx, a.fromAddr)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice := a.gasPrice
	if gasPrice == nil {
		gasPrice, err = a.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
	}

	tx := types.NewTransaction(nonce, a.toAddr, big.NewInt(0), a.gasLimit, gasPrice, data)
	signedTx, err := a.auth.Signer(a.fromAddr, tx)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}
	a.logger.Printf("submitted anchor transaction %s", signedTx.Hash().Hex())

	receipt, err := a.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return nil, fmt.Errorf("wait for transaction: %w", err)
	}

	block, err := a.client.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("get block header: %w", err)
	}

	return &blockchain.Receipt{
		ChainID:        a.chainID.String(),
		TxHash:         signedTx.Hash().Hex(),
		BlockNumber:    receipt.BlockNumber.Uint64(),
		BlockTimestamp: time.Unix(int64(block.Time), 0),
	}, nil
}

func (a *Adapter) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	for {
		receipt, err := a.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
