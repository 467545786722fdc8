package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

const (
	testKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey[2:], got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)

	_, err = EncryptKey(testKey, "")
	assert.Error(t, err)
	_, err = EncryptKey("0x1234", "pw")
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	k, err := LoadKey(KeyConfig{RawPrivateKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, testKey[2:], k)

	blob, err := EncryptKey(testKey, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	k, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKey[2:], k)

	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
	assert.False(t, KeyConfig{}.Configured())
}

func TestTxSigner(t *testing.T) {
	s, err := NewTxSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())

	chainID := big.NewInt(1)
	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(100),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), sender)

	_, err = NewTxSigner("zz")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSigningFailed)
}

func TestHMACAuth(t *testing.T) {
	h := &HMACAuth{Key: "lpbot", Secret: "c2VjcmV0"}

	a := h.HeadersAt("POST", "/v1/deposit", `{"chain":"BTC"}`, 1700000000)
	b := h.HeadersAt("POST", "/v1/deposit", `{"chain":"BTC"}`, 1700000000)
	assert.Equal(t, a, b)
	assert.Equal(t, "1700000000", a[HeaderTimestamp])
	assert.True(t, h.Verify("POST", "/v1/deposit", `{"chain":"BTC"}`, a[HeaderTimestamp], a[HeaderSignature]))
	assert.False(t, h.Verify("POST", "/v1/deposit", `{"chain":"ETH"}`, a[HeaderTimestamp], a[HeaderSignature]))

	assert.NotContains(t, h.String(), "c2VjcmV0")
}
