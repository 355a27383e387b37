package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/notify-dapp/internal/domain"
)

// Reader serves read-only queries against the core contract.
type Reader struct {
	core      common.Address
	contract  *bind.BoundContract
	logs      ethereum.LogFilterer
	fromBlock *big.Int
}

// NewReader binds the core contract at core. Log scans for registered keys
// start at fromBlock.
func NewReader(core common.Address, caller bind.ContractCaller, logs ethereum.LogFilterer, fromBlock int64) *Reader {
	return &Reader{
		core:      core,
		contract:  bind.NewBoundContract(core, coreABI, caller, nil, nil),
		logs:      logs,
		fromBlock: big.NewInt(fromBlock),
	}
}

// PublicKey returns the hex encoded key the address registered with the core
// contract. An address with no registration, or no address at all, reports
// found=false with a nil error.
func (r *Reader) PublicKey(ctx context.Context, address string) (string, bool, error) {
	if !common.IsHexAddress(address) {
		return "", false, nil
	}
	owner := common.HexToAddress(address)
	q := ethereum.FilterQuery{
		FromBlock: r.fromBlock,
		Addresses: []common.Address{r.core},
		Topics: [][]common.Hash{
			{coreABI.Events[eventPublicKeyRegistered].ID},
			{common.BytesToHash(owner.Bytes())},
		},
	}
	found, err := r.logs.FilterLogs(ctx, q)
	if err != nil {
		return "", false, fmt.Errorf("filter key logs for %s: %w: %v", owner.Hex(), domain.ErrNetwork, err)
	}
	for _, l := range found {
		if l.Removed {
			continue
		}
		values, err := coreABI.Unpack(eventPublicKeyRegistered, l.Data)
		if err != nil || len(values) != 1 {
			continue
		}
		key, ok := values[0].([]byte)
		if !ok || len(key) == 0 {
			continue
		}
		return "0x" + hex.EncodeToString(key), true, nil
	}
	return "", false, nil
}

// Channel reads the channel record for address.
func (r *Reader) Channel(ctx context.Context, address string) (*domain.Channel, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("channel address %q: %w", address, domain.ErrBadRequest)
	}
	var out []interface{}
	err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodChannels, common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w: %v", address, domain.ErrNetwork, err)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("read channel %s: unexpected %d outputs: %w", address, len(out), domain.ErrNetwork)
	}
	chType, _ := out[0].(uint8)
	state, _ := out[1].(uint8)
	verifiedBy, _ := out[2].(common.Address)

	ch := &domain.Channel{
		Address:     common.HexToAddress(address).Hex(),
		ChannelType: chType,
		State:       state,
	}
	if verifiedBy != (common.Address{}) {
		ch.VerifiedBy = verifiedBy.Hex()
	}
	return ch, nil
}
