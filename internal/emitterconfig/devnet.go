package emitterconfig

import (
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

// devnetEmitter is the well-known accumulator emitter on the devnet
// deployment used for local end-to-end testing.
var devnetEmitter = Emitter{
	Chain:   vaa.ChainIDPythnet,
	Address: vaa.Address{0xf3, 0x46, 0x77, 0xe3, 0x4a, 0x8d, 0xb4, 0x3c, 0x86, 0x61},
}

// devnetGuardianSet is the single well-known guardian key used across the
// Wormhole devnet tilt environment, the only signer that ever needs to be
// trusted when --unsafeDevMode is set.
var devnetGuardianSet = vaa.GuardianSet{
	Index: 0,
	Keys:  []ethcommon.Address{ethcommon.HexToAddress("0xbeFA429d57cD18b7F8A4d91A2da9AB4AF05d0FBe")},
}
