package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Balance represents an account's balance in lamports.
type Balance struct {
	Address  solana.PublicKey
	Lamports uint64
}

type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// Client is the part of the cluster API the tools need.
// FeeForMessage returns a nil fee when the cluster cannot price the message.
// SendAndConfirm takes the LastValidBlockHeight of the blockhash tx was built
// with; zero skips the expiry check on timeout.
type Client interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (Balance, error)
	LatestBlockhash(ctx context.Context) (Blockhash, error)
	FeeForMessage(ctx context.Context, msg *solana.Message) (*uint64, error)
	SendAndConfirm(ctx context.Context, tx *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error)
	Name() string
}

// MaxTransactionSize is the wire limit of a serialized transaction.
const MaxTransactionSize = 1232

func CheckTransactionSize(tx *solana.Transaction) error {
	b, err := tx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize transaction: %w", err)
	}
	if len(b) > MaxTransactionSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrTransactionTooLarge, len(b), MaxTransactionSize)
	}
	return nil
}

// ExplorerURL links a signature on the public explorer.
func ExplorerURL(sig solana.Signature, cluster string) string {
	if cluster == "" || cluster == "mainnet-beta" {
		return fmt.Sprintf("https://explorer.solana.com/tx/%s", sig)
	}
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", sig, cluster)
}
