package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/notify-dapp/internal/application/delivery"
	"github.com/notify-dapp/internal/domain"
)

// Communicator submits sendNotification to one communicator deployment,
// signing with the channel key. Sends are serialized and nonces assigned
// locally, since attempts for different drafts share the one key.
type Communicator struct {
	backend  Backend
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int

	mu        sync.Mutex
	nonce     uint64
	haveNonce bool // false until read from the pending state, and after a failed send
}

var _ delivery.Communicator = (*Communicator)(nil)

func NewCommunicator(backend Backend, address common.Address, key *ecdsa.PrivateKey, chainID int64) *Communicator {
	return &Communicator{
		backend:  backend,
		contract: bind.NewBoundContract(address, communicatorABI, backend, backend, backend),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  big.NewInt(chainID),
	}
}

// SendNotification broadcasts the transaction and returns without waiting
// for it to be mined.
func (c *Communicator) SendNotification(ctx context.Context, sender, recipient string, identity []byte) (delivery.Transaction, error) {
	if !common.IsHexAddress(sender) {
		return nil, fmt.Errorf("sender %q is not an address: %w", sender, domain.ErrTransaction)
	}
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("recipient %q is not an address: %w", recipient, domain.ErrTransaction)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.haveNonce {
		pending, err := c.backend.PendingNonceAt(ctx, c.from)
		if err != nil {
			return nil, fmt.Errorf("pending nonce: %w", err)
		}
		c.nonce, c.haveNonce = pending, true
	}
	opts.Nonce = new(big.Int).SetUint64(c.nonce)

	tx, err := c.contract.Transact(opts, methodSendNotification,
		common.HexToAddress(sender), common.HexToAddress(recipient), identity)
	if err != nil {
		// the node may or may not have seen the nonce; resync on the next send
		c.haveNonce = false
		return nil, err
	}
	c.nonce++
	return &sentTx{tx: tx, backend: c.backend}, nil
}

type sentTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
}

func (t *sentTx) Hash() string { return t.tx.Hash().Hex() }

// Wait blocks for one confirmation.
func (t *sentTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, t.backend, t.tx)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", t.Hash(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return fmt.Errorf("transaction %s reverted: %w", t.Hash(), domain.ErrTransaction)
	}
	return nil
}
