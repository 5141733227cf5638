package vaa

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address is a 32-byte, chain-agnostic address as carried on the wire by a
// VAA. Guardian signer keys are native 20-byte Ethereum addresses instead
// (see GuardianSet), since guardians always sign with secp256k1 keys.
type Address [32]byte

func (a Address) Bytes() []byte { return a[:] }

func (a Address) String() string {
	return ethcommon.Bytes2Hex(a[:])
}

// Signature is a single guardian's signature over a VAA body digest, keyed
// by the guardian's index in the GuardianSet referenced by the VAA.
type Signature struct {
	Index     uint8
	Signature [65]byte
}

// VAA is the parsed representation of a Verifiable Action Approval: a
// Merkle-root attestation signed by a quorum of guardians in a given
// guardian set.
type VAA struct {
	Version          uint8
	GuardianSetIndex uint32
	Signatures       []*Signature

	Timestamp        time.Time
	Nonce            uint32
	Sequence         uint64
	ConsistencyLevel uint8
	EmitterChain     ChainID
	EmitterAddress   Address
	Payload          []byte
}

// body returns the portion of the VAA that is actually signed by
// guardians — everything except the version/guardian-set-index header and
// the signature list itself.
func (v *VAA) body() []byte {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, uint32(v.Timestamp.Unix()))
	MustWrite(buf, binary.BigEndian, v.Nonce)
	MustWrite(buf, binary.BigEndian, uint16(v.EmitterChain))
	buf.Write(v.EmitterAddress[:])
	MustWrite(buf, binary.BigEndian, v.Sequence)
	MustWrite(buf, binary.BigEndian, v.ConsistencyLevel)
	buf.Write(v.Payload)
	return buf.Bytes()
}

// SigningDigest returns the double-keccak256 digest guardians sign over,
// following Wormhole convention (hashing twice guards against
// length-extension style confusion between the body and its hash).
func (v *VAA) SigningDigest() ethcommon.Hash {
	return crypto.Keccak256Hash(crypto.Keccak256Hash(v.body()).Bytes())
}

// AddSignature signs the VAA body with privKey and appends the resulting
// signature tagged with the guardian's index in the set.
func (v *VAA) AddSignature(privKey *ecdsa.PrivateKey, index uint8) error {
	digest := v.SigningDigest()
	sig, err := crypto.Sign(digest.Bytes(), privKey)
	if err != nil {
		return fmt.Errorf("failed to sign VAA: %w", err)
	}
	sigData := [65]byte{}
	copy(sigData[:], sig)
	v.Signatures = append(v.Signatures, &Signature{Index: index, Signature: sigData})
	return nil
}

// Marshal serializes the VAA to its canonical wire representation.
func (v *VAA) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, v.Version)
	MustWrite(buf, binary.BigEndian, v.GuardianSetIndex)

	if len(v.Signatures) > 255 {
		return nil, fmt.Errorf("too many signatures: %d", len(v.Signatures))
	}
	MustWrite(buf, binary.BigEndian, uint8(len(v.Signatures)))
	for _, sig := range v.Signatures {
		MustWrite(buf, binary.BigEndian, sig.Index)
		buf.Write(sig.Signature[:])
	}

	buf.Write(v.body())
	return buf.Bytes(), nil
}

// Unmarshal deserializes a VAA from its canonical wire representation.
func Unmarshal(data []byte) (*VAA, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("VAA too short")
	}
	reader := bytes.NewReader(data)
	v := &VAA{}

	if err := binary.Read(reader, binary.BigEndian, &v.Version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &v.GuardianSetIndex); err != nil {
		return nil, fmt.Errorf("failed to read guardian set index: %w", err)
	}

	var numSigs uint8
	if err := binary.Read(reader, binary.BigEndian, &numSigs); err != nil {
		return nil, fmt.Errorf("failed to read signature count: %w", err)
	}
	for i := 0; i < int(numSigs); i++ {
		sig := &Signature{}
		if err := binary.Read(reader, binary.BigEndian, &sig.Index); err != nil {
			return nil, fmt.Errorf("failed to read signature index: %w", err)
		}
		if n, err := reader.Read(sig.Signature[:]); err != nil || n != len(sig.Signature) {
			return nil, fmt.Errorf("failed to read signature: %w", err)
		}
		v.Signatures = append(v.Signatures, sig)
	}

	var ts uint32
	if err := binary.Read(reader, binary.BigEndian, &ts); err != nil {
		return nil, fmt.Errorf("failed to read timestamp: %w", err)
	}
	v.Timestamp = time.Unix(int64(ts), 0).UTC()

	if err := binary.Read(reader, binary.BigEndian, &v.Nonce); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}

	var emitterChain uint16
	if err := binary.Read(reader, binary.BigEndian, &emitterChain); err != nil {
		return nil, fmt.Errorf("failed to read emitter chain: %w", err)
	}
	v.EmitterChain = ChainID(emitterChain)

	if n, err := reader.Read(v.EmitterAddress[:]); err != nil || n != len(v.EmitterAddress) {
		return nil, fmt.Errorf("failed to read emitter address: %w", err)
	}

	if err := binary.Read(reader, binary.BigEndian, &v.Sequence); err != nil {
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &v.ConsistencyLevel); err != nil {
		return nil, fmt.Errorf("failed to read consistency level: %w", err)
	}

	payload := make([]byte, reader.Len())
	if len(payload) > 0 {
		if _, err := reader.Read(payload); err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
	}
	v.Payload = payload

	return v, nil
}

// MessageID returns a human readable chain/address/sequence tuple, handy in
// log fields.
func (v *VAA) MessageID() string {
	return fmt.Sprintf("%d/%s/%d", v.EmitterChain, v.EmitterAddress, v.Sequence)
}

// MustWrite writes data in the given order, panicking on error. Every value
// passed through it here is a fixed-width integer writing to an in-memory
// bytes.Buffer, so failure is not a recoverable condition.
func MustWrite(w io.Writer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic(fmt.Sprintf("failed to write binary data: %v", err))
	}
}
