package wallet

import (
	"github.com/gagliardetto/solana-go"
)

// Signers is the set of keypairs allowed to sign one transaction.
type Signers []Keypair

// Lookup satisfies the key getter expected by solana.Transaction.Sign.
func (s Signers) Lookup(key solana.PublicKey) *solana.PrivateKey {
	for _, kp := range s {
		if kp.PublicKey().Equals(key) {
			priv := kp.PrivateKey()
			return &priv
		}
	}
	return nil
}

func (s Signers) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(s.Lookup)
	return err
}
