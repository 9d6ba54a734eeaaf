package wallet

import (
	"fmt"
	"math/big"

	"github.com/NethermindEth/juno/core/crypto"
	"github.com/NethermindEth/juno/core/felt"
	"github.com/holiman/uint256"

	"github.com/autoswappr/autoswappr-backend/internal/rpc"
	"github.com/autoswappr/autoswappr-backend/internal/starknet"
)

var (
	invokePrefix = starknet.MustShortString("invoke")
	txVersion3   = starknet.FeltFromUint64(3)

	l1GasName     = starknet.MustShortString("L1_GAS")
	l2GasName     = starknet.MustShortString("L2_GAS")
	l1DataGasName = starknet.MustShortString("L1_DATA")
)

// DAModeL1 is the only data availability mode accounts use today.
const DAModeL1 = 0

// ResourceBound caps the amount and unit price of one gas resource.
type ResourceBound struct {
	MaxAmount       uint64
	MaxPricePerUnit uint256.Int // u128
}

type ResourceBounds struct {
	L1Gas     ResourceBound
	L2Gas     ResourceBound
	L1DataGas ResourceBound
}

// InvokeV3 is an unsigned INVOKE transaction of version 3.
type InvokeV3 struct {
	SenderAddress         *felt.Felt
	Calldata              []*felt.Felt
	Nonce                 *felt.Felt
	ChainID               *felt.Felt
	ResourceBounds        ResourceBounds
	Tip                   uint64
	PaymasterData         []*felt.Felt
	AccountDeploymentData []*felt.Felt
	NonceDAMode           uint32
	FeeDAMode             uint32
}

// encodeBound packs a bound as name << 192 | max_amount << 128 | max_price.
func encodeBound(name *felt.Felt, b ResourceBound) (*felt.Felt, error) {
	if b.MaxPricePerUnit.BitLen() > 128 {
		return nil, fmt.Errorf("resource bound price exceeds 128 bits")
	}
	v := new(big.Int).Lsh(name.BigInt(new(big.Int)), 192)
	v.Or(v, new(big.Int).Lsh(new(big.Int).SetUint64(b.MaxAmount), 128))
	v.Or(v, b.MaxPricePerUnit.ToBig())
	return starknet.FeltFromBig(v)
}

// Hash computes the transaction hash the account contract checks the
// signature against.
func (tx *InvokeV3) Hash() (*felt.Felt, error) {
	l1, err := encodeBound(l1GasName, tx.ResourceBounds.L1Gas)
	if err != nil {
		return nil, err
	}
	l2, err := encodeBound(l2GasName, tx.ResourceBounds.L2Gas)
	if err != nil {
		return nil, err
	}
	l1Data, err := encodeBound(l1DataGasName, tx.ResourceBounds.L1DataGas)
	if err != nil {
		return nil, err
	}
	feeHash := crypto.PoseidonArray(starknet.FeltFromUint64(tx.Tip), l1, l2, l1Data)
	daMode := starknet.FeltFromUint64(uint64(tx.NonceDAMode)<<32 + uint64(tx.FeeDAMode))

	return crypto.PoseidonArray(
		invokePrefix,
		txVersion3,
		tx.SenderAddress,
		feeHash,
		crypto.PoseidonArray(tx.PaymasterData...),
		tx.ChainID,
		tx.Nonce,
		daMode,
		crypto.PoseidonArray(tx.AccountDeploymentData...),
		crypto.PoseidonArray(tx.Calldata...),
	), nil
}

// toRPC renders the signed transaction for starknet_addInvokeTransaction.
func (tx *InvokeV3) toRPC(signature []*felt.Felt) rpc.InvokeTransactionV3 {
	return rpc.InvokeTransactionV3{
		Type:          "INVOKE",
		Version:       "0x3",
		SenderAddress: tx.SenderAddress.String(),
		Calldata:      starknet.HexFelts(tx.Calldata),
		Signature:     starknet.HexFelts(signature),
		Nonce:         tx.Nonce.String(),
		ResourceBounds: rpc.ResourceBounds{
			L1Gas:     boundToRPC(tx.ResourceBounds.L1Gas),
			L1DataGas: boundToRPC(tx.ResourceBounds.L1DataGas),
			L2Gas:     boundToRPC(tx.ResourceBounds.L2Gas),
		},
		Tip:                       fmt.Sprintf("0x%x", tx.Tip),
		PaymasterData:             starknet.HexFelts(tx.PaymasterData),
		AccountDeploymentData:     starknet.HexFelts(tx.AccountDeploymentData),
		NonceDataAvailabilityMode: daModeName(tx.NonceDAMode),
		FeeDataAvailabilityMode:   daModeName(tx.FeeDAMode),
	}
}

func boundToRPC(b ResourceBound) rpc.ResourceBound {
	return rpc.ResourceBound{
		MaxAmount:       fmt.Sprintf("0x%x", b.MaxAmount),
		MaxPricePerUnit: b.MaxPricePerUnit.Hex(),
	}
}

func daModeName(mode uint32) string {
	if mode == DAModeL1 {
		return "L1"
	}
	return "L2"
}
