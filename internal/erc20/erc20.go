// Package erc20 reads ERC-20 state from an Ethereum node. The API uses it to
// show how much of a bridged token a wallet has approved for the bridge.
package erc20

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrInvalidAddress = errors.New("invalid ethereum address")

const erc20ABIJSON = `[
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func erc20ABIInstance() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// ContractCaller runs eth_call. *ethclient.Client implements it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Reader struct {
	caller ContractCaller
	closer func()
}

func NewReader(caller ContractCaller) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	return &Reader{caller: caller}, nil
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Reader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return &Reader{caller: client, closer: client.Close}, nil
}

func (r *Reader) Close() {
	if r.closer != nil {
		r.closer()
	}
}

// ParseAddress accepts a 0x-prefixed 20 byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// Allowance returns how much spender may transfer from owner.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := r.call(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values)
}

func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	values, err := r.call(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values)
}

func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	values, err := r.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("decimals: unexpected output count %d", len(values))
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", values[0])
	}
	return d, nil
}

func (r *Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := erc20ABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asBigInt(values []interface{}) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected output count %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", values[0])
	}
	return v, nil
}
