// Package enroll drives the prerequisite program: initialize the enrollment
// account, then submit the completion record that mints the collectible.
package enroll

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"sol-wallet-tools/internal/config"
)

const (
	accountSeed   = "prereqs"
	authoritySeed = "collection"
)

// Program-defined error codes.
const (
	// System program AccountAlreadyInUse, surfaced when the enrollment PDA exists.
	CodeAccountInUse uint32 = 0
	// Anchor error 6001: the submission for this track was already recorded.
	CodeAlreadyCompleted uint32 = 6001
)

type Track string

const (
	TrackTS Track = "ts"
	TrackRS Track = "rs"
)

func (t Track) instruction() string { return "submit_" + string(t) }

type Program struct {
	ID         solana.PublicKey
	MPLCore    solana.PublicKey
	Collection solana.PublicKey
}

func ProgramFromConfig(c config.Enroll) (Program, error) {
	var p Program
	var err error
	if p.ID, err = solana.PublicKeyFromBase58(c.Program); err != nil {
		return Program{}, fmt.Errorf("enroll.program: %w", err)
	}
	if p.MPLCore, err = solana.PublicKeyFromBase58(c.MPLCoreProgram); err != nil {
		return Program{}, fmt.Errorf("enroll.mpl_core_program: %w", err)
	}
	if p.Collection, err = solana.PublicKeyFromBase58(c.Collection); err != nil {
		return Program{}, fmt.Errorf("enroll.collection: %w", err)
	}
	return p, nil
}

// AccountPDA is the per-user enrollment account.
func (p Program) AccountPDA(user solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(accountSeed), user.Bytes()}, p.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive enrollment account: %w", err)
	}
	return addr, nil
}

// AuthorityPDA signs the mint on behalf of the collection.
func (p Program) AuthorityPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(authoritySeed), p.Collection.Bytes()}, p.ID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive collection authority: %w", err)
	}
	return addr, nil
}

func discriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:8]
}

func (p Program) Initialize(user, account solana.PublicKey, github string) solana.Instruction {
	data := discriminator("initialize")
	data = binary.LittleEndian.AppendUint32(data, uint32(len(github)))
	data = append(data, github...)
	return solana.NewInstruction(p.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, data)
}

func (p Program) Submit(track Track, user, account, mint, authority solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(p.ID, solana.AccountMetaSlice{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(mint, true, true),
		solana.NewAccountMeta(p.Collection, true, false),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.MPLCore, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}, discriminator(track.instruction()))
}
