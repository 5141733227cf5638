package vaa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWormholeMerkleRootRoundTrip(t *testing.T) {
	root := WormholeMerkleRoot{
		Slot:     123456789,
		RingSize: 8192,
		Root:     [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
	}

	serialized := root.Serialize()
	parsed, err := ParseWormholeMerkleRoot(serialized)
	require.NoError(t, err)
	assert.Equal(t, root, parsed)
}

func TestParseWormholeMerkleRootRejectsUnknownMagic(t *testing.T) {
	_, err := ParseWormholeMerkleRoot([]byte{0xff, 0, 0, 0, 0, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestParseWormholeMerkleRootRejectsShortPayload(t *testing.T) {
	_, err := ParseWormholeMerkleRoot([]byte{wormholeMerkleMagic, 1, 2, 3})
	assert.Error(t, err)
}

func TestPriceFeedMessageRoundTrip(t *testing.T) {
	msg := PriceFeedMessage{
		FeedID:          [32]byte{0xde, 0xad, 0xbe, 0xef},
		Price:           123456,
		Conf:            10,
		Exponent:        -8,
		EMAPrice:        123000,
		EMAConf:         9,
		PublishTime:     1690000000,
		PrevPublishTime: 1689999999,
	}

	raw := SerializePriceFeedMessage(msg)
	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	require.Equal(t, MessageTypePriceFeed, parsed.Type)
	require.NotNil(t, parsed.PriceFeed)
	assert.Nil(t, parsed.Other)
	assert.Equal(t, msg, *parsed.PriceFeed)
}

func TestParseMessageOtherVariant(t *testing.T) {
	raw := append([]byte{0x02}, []byte("unrecognized-body")...)

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	require.NotNil(t, parsed.Other)
	assert.Nil(t, parsed.PriceFeed)
	assert.Equal(t, MessageType(0x02), parsed.Type)
	assert.Equal(t, []byte("unrecognized-body"), parsed.Other.Raw)
}

func TestParseMessageRejectsEmpty(t *testing.T) {
	_, err := ParseMessage(nil)
	assert.Error(t, err)
}
