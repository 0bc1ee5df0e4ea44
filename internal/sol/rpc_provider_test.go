package sol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/metrics"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// rpcServer answers JSON-RPC calls with results[method]. The first failFirst
// requests get a 503.
func rpcServer(t *testing.T, results map[string]string, failFirst int32, seen *[]rpcRequest) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = append(*seen, req)
		}
		res, ok := results[req.Method]
		if !ok {
			t.Errorf("unexpected method %s", req.Method)
			res = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + res + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(url string) config.RPC {
	return config.RPC{
		URL:            url,
		Commitment:     "confirmed",
		Timeout:        2 * time.Second,
		UserAgent:      "sol-wallet-tools/test",
		MaxRetries:     3,
		Backoff:        time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		ConfirmTimeout: time.Second,
	}
}

func TestRPCProviderGetBalanceRetriesTransportErrors(t *testing.T) {
	srv, calls := rpcServer(t, map[string]string{
		"getBalance": `{"context":{"slot":10},"value":1000000}`,
	}, 2, nil)
	rec := metrics.NewRecorder("test")
	p := NewRPCProvider(testConfig(srv.URL), rec, nil)

	acct := solana.NewWallet().PublicKey()
	bal, err := p.GetBalance(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), bal.Lamports)
	assert.Equal(t, acct, bal.Address)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, rec.Dump(), "solwallet_rpc_requests_total{method=getBalance,status=error} 2")
	assert.Contains(t, rec.Dump(), "solwallet_wallet_balance_lamports{address="+acct.String()+"} 1e+06")
}

func TestRPCProviderFeeForMessageNull(t *testing.T) {
	var seen []rpcRequest
	srv, calls := rpcServer(t, map[string]string{
		"getFeeForMessage": `{"context":{"slot":10},"value":null}`,
	}, 0, &seen)
	p := NewRPCProvider(testConfig(srv.URL), nil, nil)

	payer := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction([]solana.Instruction{
		solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{solana.Meta(payer).WRITE().SIGNER()}, []byte{2, 0, 0, 0}),
	}, solana.Hash{7}, solana.TransactionPayer(payer))
	require.NoError(t, err)

	fee, err := p.FeeForMessage(context.Background(), &tx.Message)
	require.NoError(t, err)
	assert.Nil(t, fee)
	assert.Equal(t, int32(1), calls.Load())

	require.Len(t, seen, 1)
	require.NotEmpty(t, seen[0].Params)
	raw, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), seen[0].Params[0])
}

func TestRPCProviderFeeForMessageValue(t *testing.T) {
	srv, _ := rpcServer(t, map[string]string{
		"getFeeForMessage": `{"context":{"slot":10},"value":5000}`,
	}, 0, nil)
	p := NewRPCProvider(testConfig(srv.URL), nil, nil)

	payer := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction([]solana.Instruction{
		solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{solana.Meta(payer).WRITE().SIGNER()}, nil),
	}, solana.Hash{7}, solana.TransactionPayer(payer))
	require.NoError(t, err)

	fee, err := p.FeeForMessage(context.Background(), &tx.Message)
	require.NoError(t, err)
	require.NotNil(t, fee)
	assert.Equal(t, uint64(5000), *fee)
}

func TestRPCProviderLatestBlockhash(t *testing.T) {
	hash := solana.Hash{1, 2, 3}
	srv, _ := rpcServer(t, map[string]string{
		"getLatestBlockhash": `{"context":{"slot":10},"value":{"blockhash":"` + hash.String() + `","lastValidBlockHeight":150}}`,
	}, 0, nil)
	p := NewRPCProvider(testConfig(srv.URL), nil, nil)

	bh, err := p.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, bh.Hash)
	assert.Equal(t, uint64(150), bh.LastValidBlockHeight)
}

func TestCheckTransactionSize(t *testing.T) {
	payer := solana.NewWallet()
	build := func(data []byte) *solana.Transaction {
		tx, err := solana.NewTransaction([]solana.Instruction{
			solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{solana.Meta(payer.PublicKey()).WRITE().SIGNER()}, data),
		}, solana.Hash{}, solana.TransactionPayer(payer.PublicKey()))
		require.NoError(t, err)
		_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(payer.PublicKey()) {
				return &payer.PrivateKey
			}
			return nil
		})
		require.NoError(t, err)
		return tx
	}

	assert.NoError(t, CheckTransactionSize(build(nil)))
	assert.ErrorIs(t, CheckTransactionSize(build(make([]byte, 1300))), ErrTransactionTooLarge)
}

func TestExplorerURL(t *testing.T) {
	sig := solana.Signature{1}
	assert.Equal(t, "https://explorer.solana.com/tx/"+sig.String()+"?cluster=devnet", ExplorerURL(sig, "devnet"))
	assert.Equal(t, "https://explorer.solana.com/tx/"+sig.String(), ExplorerURL(sig, "mainnet-beta"))
}
