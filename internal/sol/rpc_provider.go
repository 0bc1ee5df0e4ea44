package sol

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"sol-wallet-tools/internal/config"
	"sol-wallet-tools/internal/metrics"
	"sol-wallet-tools/internal/util"
)

type RPCProvider struct {
	rpc     *rpc.Client
	wsURL   string
	cfg     config.RPC
	commit  rpc.CommitmentType
	metrics *metrics.Recorder
	log     *zap.Logger
}

func NewRPCProvider(cfg config.RPC, rec *metrics.Recorder, log *zap.Logger) *RPCProvider {
	headers := map[string]string{}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	jc := jsonrpc.NewClientWithOpts(strings.TrimRight(cfg.URL, "/"), &jsonrpc.RPCClientOpts{
		HTTPClient:    util.NewHTTPClient(cfg.Timeout),
		CustomHeaders: headers,
	})
	if log == nil {
		log = zap.NewNop()
	}
	return &RPCProvider{
		rpc:     rpc.NewWithCustomRPCClient(jc),
		wsURL:   cfg.WSURL,
		cfg:     cfg,
		commit:  rpc.CommitmentType(cfg.Commitment),
		metrics: rec,
		log:     log,
	}
}

func (p *RPCProvider) Name() string { return p.cfg.URL }

// call bounds fn by the per-call timeout and records it.
func (p *RPCProvider) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	start := time.Now()
	err := fn(c)
	p.metrics.ObserveRPC(method, start, err)
	if err != nil {
		p.log.Debug("rpc call failed", zap.String("method", method), zap.Error(err))
	}
	return err
}

// Only transport failures are retried; an answer from the cluster is final.
func retryable(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return !errors.As(err, &rpcErr) && !errors.Is(err, context.Canceled)
}

func (p *RPCProvider) readRetry(ctx context.Context, fn func() error) error {
	return util.Retry(ctx, p.cfg.MaxRetries, p.cfg.Backoff, p.cfg.MaxBackoff, retryable, fn)
}

func (p *RPCProvider) GetBalance(ctx context.Context, account solana.PublicKey) (Balance, error) {
	var out *rpc.GetBalanceResult
	err := p.readRetry(ctx, func() error {
		return p.call(ctx, "getBalance", func(ctx context.Context) error {
			var err error
			out, err = p.rpc.GetBalance(ctx, account, p.commit)
			return err
		})
	})
	if err != nil {
		return Balance{}, fmt.Errorf("get balance %s: %w", account, err)
	}
	p.metrics.SetBalance(account.String(), out.Value)
	return Balance{Address: account, Lamports: out.Value}, nil
}

func (p *RPCProvider) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	var out *rpc.GetLatestBlockhashResult
	err := p.readRetry(ctx, func() error {
		return p.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
			var err error
			out, err = p.rpc.GetLatestBlockhash(ctx, p.commit)
			return err
		})
	})
	if err != nil {
		return Blockhash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return Blockhash{}, errors.New("get latest blockhash: empty result")
	}
	return Blockhash{Hash: out.Value.Blockhash, LastValidBlockHeight: out.Value.LastValidBlockHeight}, nil
}

// FeeForMessage is not retried: a null fee is passed straight back.
func (p *RPCProvider) FeeForMessage(ctx context.Context, msg *solana.Message) (*uint64, error) {
	b, err := msg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	var out *rpc.GetFeeForMessageResult
	err = p.call(ctx, "getFeeForMessage", func(ctx context.Context) error {
		var err error
		out, err = p.rpc.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(b), p.commit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get fee for message: %w", err)
	}
	if out == nil || out.Value == nil {
		return nil, nil
	}
	p.metrics.SetFee(*out.Value)
	return out.Value, nil
}

// SendAndConfirm subscribes to the signature before sending so the
// notification cannot be missed, then waits up to ConfirmTimeout. A timeout
// past lastValidBlockHeight is reported as ErrBlockhashExpired: the
// transaction can no longer land.
func (p *RPCProvider) SendAndConfirm(ctx context.Context, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("send transaction: not signed")
	}
	sig := tx.Signatures[0]

	cctx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	wsClient, err := ws.Connect(cctx, p.wsURL)
	if err != nil {
		return sig, fmt.Errorf("connect %s: %w", p.wsURL, err)
	}
	defer wsClient.Close()

	sub, err := wsClient.SignatureSubscribe(sig, p.commit)
	if err != nil {
		return sig, fmt.Errorf("subscribe signature: %w", err)
	}
	defer sub.Unsubscribe()

	err = p.call(ctx, "sendTransaction", func(ctx context.Context) error {
		_, err := p.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       p.cfg.SkipPreflight,
			PreflightCommitment: p.commit,
		})
		return err
	})
	if err != nil {
		return sig, fromRPCError(err)
	}
	p.log.Debug("transaction sent", zap.Stringer("signature", sig))

	start := time.Now()
	res, err := sub.Recv(cctx)
	p.metrics.ObserveRPC("signatureSubscribe", start, err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return sig, p.timeoutError(ctx, sig, lastValidBlockHeight)
		}
		return sig, fmt.Errorf("confirm %s: %w", sig, err)
	}
	if res != nil {
		if txErr, ok := ParseTxError(res.Value.Err); ok {
			return sig, &TransactionError{Signature: sig, Err: txErr}
		}
	}
	return sig, nil
}

func (p *RPCProvider) timeoutError(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	if lastValid == 0 {
		return fmt.Errorf("%s: %w", sig, ErrConfirmTimeout)
	}
	var height uint64
	err := p.call(ctx, "getBlockHeight", func(ctx context.Context) error {
		var err error
		height, err = p.rpc.GetBlockHeight(ctx, p.commit)
		return err
	})
	if err != nil {
		p.log.Warn("block height unavailable after confirm timeout", zap.Error(err))
		return fmt.Errorf("%s: %w", sig, ErrConfirmTimeout)
	}
	if height > lastValid {
		return fmt.Errorf("%s: %w (height %d > %d)", sig, ErrBlockhashExpired, height, lastValid)
	}
	return fmt.Errorf("%s: %w", sig, ErrConfirmTimeout)
}

func (p *RPCProvider) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	var sig solana.Signature
	err := p.call(ctx, "requestAirdrop", func(ctx context.Context) error {
		var err error
		sig, err = p.rpc.RequestAirdrop(ctx, account, lamports, p.commit)
		return err
	})
	if err != nil {
		return sig, fmt.Errorf("request airdrop: %w", err)
	}
	return sig, nil
}
