package vaa

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVAA() *VAA {
	root := WormholeMerkleRoot{
		Slot:     42,
		RingSize: 8192,
		Root:     [20]byte{1, 2, 3},
	}
	return &VAA{
		Version:          1,
		GuardianSetIndex: 3,
		Timestamp:        time.Unix(1690000000, 0).UTC(),
		Nonce:            7,
		Sequence:         99,
		ConsistencyLevel: 1,
		EmitterChain:     ChainIDPythnet,
		EmitterAddress:   Address{1, 2, 3, 4},
		Payload:          root.Serialize(),
	}
}

func TestVAAMarshalUnmarshalRoundTrip(t *testing.T) {
	v := testVAA()
	privKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, v.AddSignature(privKey, 0))

	data, err := v.Marshal()
	require.NoError(t, err)

	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, v.Version, parsed.Version)
	assert.Equal(t, v.GuardianSetIndex, parsed.GuardianSetIndex)
	assert.Equal(t, v.Nonce, parsed.Nonce)
	assert.Equal(t, v.Sequence, parsed.Sequence)
	assert.Equal(t, v.ConsistencyLevel, parsed.ConsistencyLevel)
	assert.Equal(t, v.EmitterChain, parsed.EmitterChain)
	assert.Equal(t, v.EmitterAddress, parsed.EmitterAddress)
	assert.Equal(t, v.Payload, parsed.Payload)
	assert.Equal(t, v.Timestamp.Unix(), parsed.Timestamp.Unix())
	require.Len(t, parsed.Signatures, 1)
	assert.Equal(t, uint8(0), parsed.Signatures[0].Index)
}

func TestVAASigningDigestStableAcrossMarshal(t *testing.T) {
	v := testVAA()
	digestBefore := v.SigningDigest()

	data, err := v.Marshal()
	require.NoError(t, err)
	parsed, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, digestBefore, parsed.SigningDigest())
}

func TestVAAAddSignatureRecoversToSigner(t *testing.T) {
	v := testVAA()
	privKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, v.AddSignature(privKey, 2))

	digest := v.SigningDigest()
	pubKey, err := crypto.SigToPub(digest.Bytes(), v.Signatures[0].Signature[:])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(privKey.PublicKey), crypto.PubkeyToAddress(*pubKey))
}

func TestUnmarshalRejectsShortData(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2})
	assert.Error(t, err)
}

func TestVAAMessageID(t *testing.T) {
	v := testVAA()
	assert.Contains(t, v.MessageID(), "99")
}
