// Package chain talks to the notification contracts: the core contract for
// channel state and registered encryption keys, and the communicator
// contracts that carry sendNotification.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is everything the collaborators need from a node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Dial opens a JSON-RPC connection. An empty URL yields a nil client so
// optional networks can be left unconfigured.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	if rpcURL == "" {
		return nil, nil
	}
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return c, nil
}

// ParsePrivateKey reads a hex secp256k1 key with optional 0x prefix.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse channel key: %w", err)
	}
	return key, nil
}
