package link

import "fmt"

// Frame layout constants.
const (
	// StartByte opens every frame on the wire.
	StartByte byte = 0x81
	// MaxPayloadSize caps the raw payload length a frame can carry.
	MaxPayloadSize = 254
)

// PacketReader reads transport chunks. Chunks carry no framing
// obligations: the parser recovers frame boundaries from the bytes,
// so a chunk may hold a partial frame or several frames.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes one encoded frame per call.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter combines both transport directions.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// EncodeFrame wraps a payload into a wire frame.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload size %d out of range 1-%d", len(payload), MaxPayloadSize)
	}
	block := append(cobsEncode(payload), 0)
	frame := make([]byte, 0, len(block)+4)
	frame = append(frame, StartByte, byte(len(payload)))
	frame = append(frame, block...)
	crc := crc16(block)
	frame = append(frame, byte(crc), byte(crc>>8))
	return frame, nil
}
