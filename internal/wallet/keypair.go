// Package wallet loads and stores Solana CLI keypair files and converts keys
// to and from the base58 text form used by browser wallets.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const KeypairLength = ed25519.PrivateKeySize

var (
	ErrKeyLength   = fmt.Errorf("keypair must be %d bytes", KeypairLength)
	ErrKeyMismatch = errors.New("keypair public half does not match its seed")
	ErrFileExists  = errors.New("keypair file already exists")
)

// Keypair is the signing capability handed to services. It is always passed
// explicitly; nothing in this module keeps key material in globals.
type Keypair struct {
	priv solana.PrivateKey
}

func NewKeypair() (Keypair, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{priv: priv}, nil
}

// KeypairFromBytes validates the 64 byte seed||pubkey layout.
func KeypairFromBytes(b []byte) (Keypair, error) {
	if len(b) != KeypairLength {
		return Keypair{}, ErrKeyLength
	}
	derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
		return Keypair{}, ErrKeyMismatch
	}
	priv := make(solana.PrivateKey, KeypairLength)
	copy(priv, b)
	return Keypair{priv: priv}, nil
}

func (k Keypair) PublicKey() solana.PublicKey { return k.priv.PublicKey() }

// PrivateKey returns a copy of the 64 byte secret.
func (k Keypair) PrivateKey() solana.PrivateKey { return solana.PrivateKey(k.Bytes()) }

func (k Keypair) Bytes() []byte {
	out := make([]byte, len(k.priv))
	copy(out, k.priv)
	return out
}

// ParseKeypairJSON decodes the Solana CLI file format: a JSON array of 64
// integers in 0..255.
func ParseKeypairJSON(data []byte) (Keypair, error) {
	var ints []int
	if err := json.Unmarshal(bytes.TrimSpace(data), &ints); err != nil {
		return Keypair{}, fmt.Errorf("parse keypair json: %w", err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return Keypair{}, fmt.Errorf("parse keypair json: byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}
	return KeypairFromBytes(b)
}

// FormatBytes renders b as "[n,n,...]", which is also a valid keypair file.
func FormatBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return sb.String()
}

func LoadKeypair(path string) (Keypair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("read keypair: %w", err)
	}
	kp, err := ParseKeypairJSON(b)
	if err != nil {
		return Keypair{}, fmt.Errorf("%s: %w", path, err)
	}
	return kp, nil
}

// SaveKeypair writes the keypair with owner-only permissions. Existing files
// are kept unless overwrite is set.
func SaveKeypair(path string, k Keypair, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrFileExists)
		}
		return fmt.Errorf("write keypair: %w", err)
	}
	if _, err := f.WriteString(FormatBytes(k.priv)); err != nil {
		f.Close()
		return fmt.Errorf("write keypair: %w", err)
	}
	return f.Close()
}
