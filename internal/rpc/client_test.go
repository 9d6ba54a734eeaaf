package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func newTestClient(url string) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(ClientConfig{
		BaseURL:      url,
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
}

func TestCallRetriesOnServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x534e5f4d41494e"}`))
	}))
	defer srv.Close()

	id, err := newTestClient(srv.URL).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x534e5f4d41494e", id)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestAddInvokeTransactionIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).AddInvokeTransaction(context.Background(), InvokeTransactionV3{})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAddInvokeTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "starknet_addInvokeTransaction", req.Method)
		assert.Contains(t, string(req.Params), `"invoke_transaction"`)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":55,"message":"Account validation failed","data":"invalid signature"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).AddInvokeTransaction(context.Background(), InvokeTransactionV3{Type: "INVOKE", Version: "0x3"})
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 55, rpcErr.Code)
	assert.Contains(t, rpcErr.Error(), "invalid signature")
}

func TestGetNonceParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "starknet_getNonce", req.Method)
		assert.JSONEq(t, `["pending","0xabc"]`, string(req.Params))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x7"}`))
	}))
	defer srv.Close()

	nonce, err := newTestClient(srv.URL).GetNonce(context.Background(), "pending", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0x7", nonce)
}

func TestCallContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "starknet_call", req.Method)
		assert.JSONEq(t, `[{"contract_address":"0x1","entry_point_selector":"0x2","calldata":[]},"latest"]`, string(req.Params))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":["0x5f5e100","0x8"]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).CallContract(context.Background(), FunctionCall{
		ContractAddress:    "0x1",
		EntryPointSelector: "0x2",
	}, "latest")
	require.NoError(t, err)
	assert.Equal(t, []string{"0x5f5e100", "0x8"}, out)
}
