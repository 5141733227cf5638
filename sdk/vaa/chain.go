package vaa

import "fmt"

// ChainID identifies a chain known to Wormhole. This core only ever has to
// recognize the single chain that emits accumulator VAAs, but the type is
// kept general since VAAs carry an arbitrary emitter_chain.
type ChainID uint16

const (
	ChainIDUnset ChainID = 0

	// ChainIDPythnet is the chain that emits the accumulator VAAs this
	// core ingests.
	ChainIDPythnet ChainID = 26
)

func (c ChainID) String() string {
	switch c {
	case ChainIDUnset:
		return "unset"
	case ChainIDPythnet:
		return "pythnet"
	default:
		return fmt.Sprintf("unknown chain: %d", uint16(c))
	}
}

// ChainIDFromString parses the human readable chain identifiers produced by
// String. It exists mainly so callers can validate chain ids supplied on
// the command line the same way the rest of the module does.
func ChainIDFromString(s string) (ChainID, error) {
	switch s {
	case "unset":
		return ChainIDUnset, nil
	case "pythnet":
		return ChainIDPythnet, nil
	default:
		return ChainIDUnset, fmt.Errorf("unknown chain id string: %s", s)
	}
}
