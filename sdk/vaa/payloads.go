package vaa

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WormholeMerkleRoot is the payload of an accumulator VAA: a commitment to
// the Merkle root of every price-feed message published for a slot.
type WormholeMerkleRoot struct {
	Slot     uint64
	RingSize uint32
	Root     [20]byte
}

// wormholeMerkleMagic tags a VAA payload as carrying a WormholeMerkleRoot,
// the only payload kind this system ever consumes.
const wormholeMerkleMagic uint8 = 1

// Serialize encodes the root as a VAA payload.
func (r WormholeMerkleRoot) Serialize() []byte {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, wormholeMerkleMagic)
	MustWrite(buf, binary.BigEndian, r.Slot)
	MustWrite(buf, binary.BigEndian, r.RingSize)
	buf.Write(r.Root[:])
	return buf.Bytes()
}

// ParseWormholeMerkleRoot decodes a VAA payload produced by Serialize.
func ParseWormholeMerkleRoot(payload []byte) (WormholeMerkleRoot, error) {
	var root WormholeMerkleRoot
	reader := bytes.NewReader(payload)

	var magic uint8
	if err := binary.Read(reader, binary.BigEndian, &magic); err != nil {
		return root, fmt.Errorf("failed to read payload magic: %w", err)
	}
	if magic != wormholeMerkleMagic {
		return root, fmt.Errorf("unsupported payload kind: %d", magic)
	}

	if err := binary.Read(reader, binary.BigEndian, &root.Slot); err != nil {
		return root, fmt.Errorf("failed to read slot: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &root.RingSize); err != nil {
		return root, fmt.Errorf("failed to read ring size: %w", err)
	}
	if n, err := reader.Read(root.Root[:]); err != nil || n != len(root.Root) {
		return root, fmt.Errorf("failed to read root: %w", err)
	}

	return root, nil
}

// MessageType tags the variant carried by a Message.
type MessageType uint8

const (
	MessageTypePriceFeed MessageType = 1
	MessageTypeOther     MessageType = 0xff
)

// PriceFeedMessage is the only Message variant this core's query surface
// exposes; the rest of a batch may contain other variants, which are
// decoded as OtherMessage and filtered out downstream.
type PriceFeedMessage struct {
	FeedID          [32]byte
	Price           int64
	Conf            uint64
	Exponent        int32
	EMAPrice        int64
	EMAConf         uint64
	PublishTime     int64
	PrevPublishTime int64
}

// OtherMessage is an opaque, non-price-feed message variant, kept only so a
// batch can be decoded in full; query paths never see it.
type OtherMessage struct {
	Type MessageType
	Raw  []byte
}

// Message is the decoded form of one raw accumulator message. Exactly one
// of PriceFeed or Other is set.
type Message struct {
	Type      MessageType
	PriceFeed *PriceFeedMessage
	Other     *OtherMessage
}

// SerializePriceFeedMessage encodes a PriceFeedMessage as a raw accumulator
// message, the same bytes that are hashed as a Merkle leaf.
func SerializePriceFeedMessage(m PriceFeedMessage) []byte {
	buf := new(bytes.Buffer)
	MustWrite(buf, binary.BigEndian, uint8(MessageTypePriceFeed))
	buf.Write(m.FeedID[:])
	MustWrite(buf, binary.BigEndian, m.Price)
	MustWrite(buf, binary.BigEndian, m.Conf)
	MustWrite(buf, binary.BigEndian, m.Exponent)
	MustWrite(buf, binary.BigEndian, m.EMAPrice)
	MustWrite(buf, binary.BigEndian, m.EMAConf)
	MustWrite(buf, binary.BigEndian, m.PublishTime)
	MustWrite(buf, binary.BigEndian, m.PrevPublishTime)
	return buf.Bytes()
}

// ParseMessage decodes a single raw accumulator message into its tagged
// variant.
func ParseMessage(raw []byte) (Message, error) {
	if len(raw) < 1 {
		return Message{}, fmt.Errorf("empty message")
	}

	msgType := MessageType(raw[0])
	if msgType != MessageTypePriceFeed {
		return Message{
			Type:  msgType,
			Other: &OtherMessage{Type: msgType, Raw: append([]byte(nil), raw[1:]...)},
		}, nil
	}

	reader := bytes.NewReader(raw[1:])
	pfm := PriceFeedMessage{}

	if n, err := reader.Read(pfm.FeedID[:]); err != nil || n != len(pfm.FeedID) {
		return Message{}, fmt.Errorf("failed to read feed id: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.Price); err != nil {
		return Message{}, fmt.Errorf("failed to read price: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.Conf); err != nil {
		return Message{}, fmt.Errorf("failed to read conf: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.Exponent); err != nil {
		return Message{}, fmt.Errorf("failed to read exponent: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.EMAPrice); err != nil {
		return Message{}, fmt.Errorf("failed to read ema price: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.EMAConf); err != nil {
		return Message{}, fmt.Errorf("failed to read ema conf: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.PublishTime); err != nil {
		return Message{}, fmt.Errorf("failed to read publish time: %w", err)
	}
	if err := binary.Read(reader, binary.BigEndian, &pfm.PrevPublishTime); err != nil {
		return Message{}, fmt.Errorf("failed to read prev publish time: %w", err)
	}

	return Message{Type: MessageTypePriceFeed, PriceFeed: &pfm}, nil
}
