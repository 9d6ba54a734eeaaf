package rpc

import (
	"encoding/json"
	"fmt"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// FeltResponse is the response of methods returning a single felt
// (starknet_chainId, starknet_getNonce).
type FeltResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

// FeltsResponse is the response from starknet_call
type FeltsResponse struct {
	Result []string  `json:"result"`
	Error  *RPCError `json:"error"`
}

// FunctionCall is a read-only contract call
type FunctionCall struct {
	ContractAddress    string   `json:"contract_address"`
	EntryPointSelector string   `json:"entry_point_selector"`
	Calldata           []string `json:"calldata"`
}

// ResourceBound caps one gas resource. Both fields are hex quantities.
type ResourceBound struct {
	MaxAmount       string `json:"max_amount"`
	MaxPricePerUnit string `json:"max_price_per_unit"`
}

// ResourceBounds is the v3 fee market limit set.
type ResourceBounds struct {
	L1Gas     ResourceBound `json:"l1_gas"`
	L1DataGas ResourceBound `json:"l1_data_gas"`
	L2Gas     ResourceBound `json:"l2_gas"`
}

// InvokeTransactionV3 is the broadcast form of a signed INVOKE v3 transaction
type InvokeTransactionV3 struct {
	Type                      string         `json:"type"`
	Version                   string         `json:"version"`
	SenderAddress             string         `json:"sender_address"`
	Calldata                  []string       `json:"calldata"`
	Signature                 []string       `json:"signature"`
	Nonce                     string         `json:"nonce"`
	ResourceBounds            ResourceBounds `json:"resource_bounds"`
	Tip                       string         `json:"tip"`
	PaymasterData             []string       `json:"paymaster_data"`
	AccountDeploymentData     []string       `json:"account_deployment_data"`
	NonceDataAvailabilityMode string         `json:"nonce_data_availability_mode"`
	FeeDataAvailabilityMode   string         `json:"fee_data_availability_mode"`
}

// AddInvokeResult carries the hash of an accepted transaction
type AddInvokeResult struct {
	TransactionHash string `json:"transaction_hash"`
}

// AddInvokeResponse is the response from starknet_addInvokeTransaction
type AddInvokeResponse struct {
	Result *AddInvokeResult `json:"result"`
	Error  *RPCError        `json:"error"`
}

// TransactionStatus reports where a transaction is in its lifecycle
type TransactionStatus struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// TransactionStatusResponse is the response from starknet_getTransactionStatus
type TransactionStatusResponse struct {
	Result *TransactionStatus `json:"result"`
	Error  *RPCError          `json:"error"`
}
