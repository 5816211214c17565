// Copyright 2025 Chainanchor

package ethadapter

import (
	"log"
	"math/big"
	"os"
	"testing"
)

func TestNew_InvalidPrivateKey_ReturnsError(t *testing.T) {
	_, err := New("http://127.0.0.1:0", 1, "not-a-hex-key", "0x0000000000000000000000000000000000000001", 21000)
	if err == nil {
		t.Fatal("expected error for invalid private key")
	}
}

func TestWithGasPrice_OverridesFixedGasPrice(t *testing.T) {
	a := &Adapter{}
	WithGasPrice(big.NewInt(42))(a)

	if a.gasPrice == nil || a.gasPrice.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("expected gas price 42, got %v", a.gasPrice)
	}
}

func TestWithLogger_OverridesDefaultLogger(t *testing.T) {
	a := &Adapter{logger: nil}
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	WithLogger(logger)(a)

	if a.logger != logger {
		t.Fatal("expected logger to be overridden")
	}
}
