package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

var ErrEmptyKey = errors.New("no key entered")

// ToBase58 is the Phantom-compatible private key form of the full keypair.
func ToBase58(k Keypair) string {
	return base58.Encode(k.priv)
}

// DecodeBase58 returns the raw bytes without checking that they form a
// keypair, so arbitrary strings can be inspected.
func DecodeBase58(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyKey
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode base58: %w", err)
	}
	return b, nil
}

func KeypairFromBase58(s string) (Keypair, error) {
	b, err := DecodeBase58(s)
	if err != nil {
		return Keypair{}, err
	}
	return KeypairFromBytes(b)
}
