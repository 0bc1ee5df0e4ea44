package enroll

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-wallet-tools/internal/config"
)

func testProgram(t *testing.T) Program {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	p, err := ProgramFromConfig(cfg.Enroll)
	require.NoError(t, err)
	return p
}

func TestDiscriminator(t *testing.T) {
	assert.Equal(t, []byte{175, 175, 109, 31, 13, 152, 155, 237}, discriminator("initialize"))
	assert.Equal(t, []byte{77, 124, 82, 163, 21, 133, 181, 206}, discriminator("submit_rs"))
	assert.Equal(t, []byte{137, 241, 199, 223, 125, 33, 85, 217}, discriminator("submit_ts"))
}

func TestProgramFromConfigRejectsBadKeys(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	bad := cfg.Enroll
	bad.Program = "not-a-key"
	_, err = ProgramFromConfig(bad)
	assert.ErrorContains(t, err, "enroll.program")

	bad = cfg.Enroll
	bad.Collection = ""
	_, err = ProgramFromConfig(bad)
	assert.ErrorContains(t, err, "enroll.collection")
}

func TestPDAs(t *testing.T) {
	p := testProgram(t)
	user := solana.NewWallet().PublicKey()

	acct, err := p.AccountPDA(user)
	require.NoError(t, err)
	want, _, err := solana.FindProgramAddress([][]byte{[]byte("prereqs"), user.Bytes()}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, acct)

	again, err := p.AccountPDA(user)
	require.NoError(t, err)
	assert.Equal(t, acct, again)

	other, err := p.AccountPDA(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, acct, other)

	auth, err := p.AuthorityPDA()
	require.NoError(t, err)
	want, _, err = solana.FindProgramAddress([][]byte{[]byte("collection"), p.Collection.Bytes()}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, auth)
}

func TestInitializeInstruction(t *testing.T) {
	p := testProgram(t)
	user := solana.NewWallet().PublicKey()
	acct, err := p.AccountPDA(user)
	require.NoError(t, err)

	ix := p.Initialize(user, acct, "octocat")
	assert.Equal(t, p.ID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+4+len("octocat"))
	assert.Equal(t, discriminator("initialize"), data[:8])
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(data[8:12]))
	assert.Equal(t, "octocat", string(data[12:]))

	metas := ix.Accounts()
	require.Len(t, metas, 3)
	assert.Equal(t, solana.AccountMeta{PublicKey: user, IsWritable: true, IsSigner: true}, *metas[0])
	assert.Equal(t, solana.AccountMeta{PublicKey: acct, IsWritable: true}, *metas[1])
	assert.Equal(t, solana.AccountMeta{PublicKey: solana.SystemProgramID}, *metas[2])
}

func TestSubmitInstruction(t *testing.T) {
	p := testProgram(t)
	user := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	acct, err := p.AccountPDA(user)
	require.NoError(t, err)
	auth, err := p.AuthorityPDA()
	require.NoError(t, err)

	for _, tr := range []Track{TrackTS, TrackRS} {
		ix := p.Submit(tr, user, acct, mint, auth)
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Equal(t, discriminator("submit_"+string(tr)), data)

		var keys []solana.PublicKey
		var signers []solana.PublicKey
		for _, m := range ix.Accounts() {
			keys = append(keys, m.PublicKey)
			if m.IsSigner {
				signers = append(signers, m.PublicKey)
			}
		}
		assert.Equal(t, []solana.PublicKey{user, acct, mint, p.Collection, auth, p.MPLCore, solana.SystemProgramID}, keys)
		assert.Equal(t, []solana.PublicKey{user, mint}, signers)
	}
}
