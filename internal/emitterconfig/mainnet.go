package emitterconfig

import "github.com/SEJeff/pyth-crosschain/sdk/vaa"

// mainnetEmitter is the production accumulator emitter this core trusts
// by default.
var mainnetEmitter = Emitter{
	Chain:   vaa.ChainIDPythnet,
	Address: vaa.Address{0xe1, 0x01, 0xfa, 0xa0, 0xd9, 0xd1, 0x3e, 0x52, 0x6b, 0x37},
}
