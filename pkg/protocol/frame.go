package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame is a decoded protocol frame
type Frame struct {
	Command  Command
	Payload  []byte
	CRC      uint16 // checksum as carried on the wire
	CRCValid bool   // CRC matched the recomputed checksum
}

// Build encodes a complete frame:
//
//	| A5 | A5 | A5 | A5 | length | command | payload... | crc_hi | crc_lo |
//
// length counts command, payload and CRC.
func Build(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	length := byte(1 + len(payload) + CRCSize)

	frame := make([]byte, 0, HeaderSize+int(length))
	frame = append(frame, Magic[:]...)
	frame = append(frame, length, byte(cmd))
	frame = append(frame, payload...)

	crc := CRC16(frame[OffsetLength:])
	frame = binary.BigEndian.AppendUint16(frame, crc)

	return frame, nil
}

// MustBuild is Build for payloads known to fit
func MustBuild(cmd Command, payload []byte) []byte {
	frame, err := Build(cmd, payload)
	if err != nil {
		panic(err)
	}
	return frame
}

// Parse decodes a frame that starts at data[0]. Trailing bytes beyond the
// declared length are ignored. A checksum mismatch is reported through
// Frame.CRCValid rather than as an error.
func Parse(data []byte) (*Frame, error) {
	if len(data) < MinFrameSize {
		return nil, malformed("frame too short: %d bytes", len(data))
	}

	if !bytes.Equal(data[OffsetMagic:OffsetMagic+MagicSize], Magic[:]) {
		return nil, malformed("invalid header: %x", data[OffsetMagic:OffsetMagic+MagicSize])
	}

	length := int(data[OffsetLength])
	if length < MinLength {
		return nil, malformed("invalid length: %d", length)
	}

	expected := HeaderSize + length
	if len(data) < expected {
		return nil, malformed("frame incomplete: expected %d, got %d", expected, len(data))
	}

	crcOffset := expected - CRCSize
	payload := make([]byte, crcOffset-OffsetPayload)
	copy(payload, data[OffsetPayload:crcOffset])

	wire := binary.BigEndian.Uint16(data[crcOffset:expected])

	return &Frame{
		Command:  Command(data[OffsetCommand]),
		Payload:  payload,
		CRC:      wire,
		CRCValid: CRC16(data[OffsetLength:crcOffset]) == wire,
	}, nil
}

// IndexRequest builds the 2-byte big-endian index payload used by read requests
func IndexRequest(index uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, index)
}

// ChannelReadRequest builds a complete channel read frame for index
func ChannelReadRequest(index uint16) []byte {
	return MustBuild(CmdChannelRead, IndexRequest(index))
}

// DMRReadRequest builds a complete DMR data read frame for index
func DMRReadRequest(index uint16) []byte {
	return MustBuild(CmdDMRRead, IndexRequest(index))
}
