// Package emitterconfig lists the default accumulator emitter
// chain/address this core trusts in each deployment environment.
package emitterconfig

import "github.com/SEJeff/pyth-crosschain/sdk/vaa"

// Emitter identifies the single accumulator-VAA emitter a deployment of
// this core should trust.
type Emitter struct {
	Chain   vaa.ChainID
	Address vaa.Address
}

// Environment names a deployment target.
type Environment string

const (
	EnvDevnet  Environment = "devnet"
	EnvMainnet Environment = "mainnet"
)

// defaults is hand maintained per environment.
var defaults = map[Environment]Emitter{
	EnvDevnet:  devnetEmitter,
	EnvMainnet: mainnetEmitter,
}

// Default returns the accumulator emitter configured for env, or false if
// env is unrecognized.
func Default(env Environment) (Emitter, bool) {
	e, ok := defaults[env]
	return e, ok
}

// DevnetGuardianSet returns the single well-known guardian key trusted by
// the devnet tilt environment, for --unsafeDevMode startup when no
// --guardianSetKeys override is given.
func DevnetGuardianSet() vaa.GuardianSet {
	return devnetGuardianSet
}
