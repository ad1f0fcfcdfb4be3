package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Channel is one channel memory slot. The DMR fields only carry meaning when
// RxMode is ModeDMR.
type Channel struct {
	Index    uint16 // 0..999
	RxMode   Mode
	TxMode   Mode
	RxFreqHz uint32
	TxFreqHz uint32
	RxCTCSS  uint8 // tone index, 0 = none
	TxCTCSS  uint8
	Name     string // printable ASCII, at most MaxNameLength characters

	RxCC       uint8 // color code 0..15
	TxCC       uint8
	Slot       uint8 // timeslot 1 or 2
	OwnID      uint32
	CallID     uint32 // talkgroup or private ID
	CallFormat CallFormat
}

// NewChannel returns a channel with the default DMR settings the radio uses
// for new entries: color code 1, timeslot 1, group call.
func NewChannel(index uint16) Channel {
	return Channel{
		Index:      index,
		RxMode:     ModeNFM,
		TxMode:     ModeNFM,
		RxCC:       1,
		TxCC:       1,
		Slot:       1,
		CallFormat: CallFormatGroup,
	}
}

// IsEmpty reports whether the slot is unused
func (c Channel) IsEmpty() bool {
	return c.RxMode == ModeUnused || c.RxFreqHz == 0
}

// IsDMR reports whether the channel needs the DMR companion record
func (c Channel) IsDMR() bool {
	return c.RxMode == ModeDMR
}

// RxFreqMHz returns the receive frequency in MHz
func (c Channel) RxFreqMHz() float64 {
	return float64(c.RxFreqHz) / 1e6
}

// TxFreqMHz returns the transmit frequency in MHz
func (c Channel) TxFreqMHz() float64 {
	return float64(c.TxFreqHz) / 1e6
}

func (c Channel) String() string {
	return fmt.Sprintf("Ch%d: %.4f MHz (%s) RX=%s, TX=%s, Name='%s'",
		c.Index, c.RxFreqMHz(), c.RxMode, toneString(c.RxCTCSS), toneString(c.TxCTCSS), c.Name)
}

func toneString(index uint8) string {
	hz, ok := ToneHz(index)
	if !ok {
		return "None"
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// EncodeChannel encodes the basic 26-byte channel record
func EncodeChannel(c Channel) []byte {
	buf := make([]byte, RecordSize)

	binary.BigEndian.PutUint16(buf[ChannelOffsetIndex:], c.Index)
	buf[ChannelOffsetRxMode] = byte(c.RxMode)
	buf[ChannelOffsetTxMode] = byte(c.TxMode)
	binary.BigEndian.PutUint32(buf[ChannelOffsetRxFreq:], c.RxFreqHz)
	binary.BigEndian.PutUint32(buf[ChannelOffsetTxFreq:], c.TxFreqHz)
	buf[ChannelOffsetRxCTCSS] = c.RxCTCSS
	buf[ChannelOffsetTxCTCSS] = c.TxCTCSS
	copy(buf[ChannelOffsetName:ChannelOffsetName+MaxNameLength], EncodeName(c.Name))

	return buf
}

// DecodeChannel decodes a basic channel record. DMR fields take the
// NewChannel defaults; merge the DMR record with DMRData.ApplyTo.
func DecodeChannel(payload []byte) (Channel, error) {
	if len(payload) < RecordSize {
		return Channel{}, malformed("channel data too short: %d bytes", len(payload))
	}

	c := NewChannel(binary.BigEndian.Uint16(payload[ChannelOffsetIndex:]))
	c.RxMode = Mode(payload[ChannelOffsetRxMode])
	c.TxMode = Mode(payload[ChannelOffsetTxMode])
	c.RxFreqHz = binary.BigEndian.Uint32(payload[ChannelOffsetRxFreq:])
	c.TxFreqHz = binary.BigEndian.Uint32(payload[ChannelOffsetTxFreq:])
	c.RxCTCSS = payload[ChannelOffsetRxCTCSS]
	c.TxCTCSS = payload[ChannelOffsetTxCTCSS]
	c.Name = DecodeName(payload[ChannelOffsetName : ChannelOffsetName+NameFieldSize])
	return c, nil
}

// EncodeName converts a name to at most MaxNameLength ASCII bytes. Each
// non-ASCII character becomes '?'.
func EncodeName(name string) []byte {
	out := make([]byte, 0, MaxNameLength)
	for _, r := range name {
		if len(out) == MaxNameLength {
			break
		}
		if r > 0x7F {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

// DecodeName reads a NUL-terminated name field
func DecodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return strings.Map(func(r rune) rune {
		if r > 0x7F {
			return '?'
		}
		return r
	}, string(field))
}

// DMRData is the content of the DMR companion record
type DMRData struct {
	Index      uint16
	RxCC       uint8
	TxCC       uint8
	Slot       uint8
	CallID     uint32
	OwnID      uint32
	CallFormat CallFormat
}

// ApplyTo copies the DMR settings onto a channel
func (d DMRData) ApplyTo(c *Channel) {
	c.RxCC = d.RxCC
	c.TxCC = d.TxCC
	c.Slot = d.Slot
	c.CallID = d.CallID
	c.OwnID = d.OwnID
	c.CallFormat = d.CallFormat
}

// EncodeDMR encodes the 26-byte DMR record for a channel. Reserved bytes
// and the trailer are always rewritten.
func EncodeDMR(c Channel) []byte {
	buf := make([]byte, RecordSize)

	binary.BigEndian.PutUint16(buf[DMROffsetIndex:], c.Index)
	buf[DMROffsetPad] = 0x00
	buf[DMROffsetRxCC] = c.RxCC & 0x0F
	buf[DMROffsetTxCC] = c.TxCC & 0x0F
	buf[DMROffsetSlot] = c.Slot
	binary.BigEndian.PutUint32(buf[DMROffsetCallID:], c.CallID)
	binary.BigEndian.PutUint32(buf[DMROffsetOwnID:], c.OwnID)
	buf[DMROffsetCallFormat] = byte(c.CallFormat)
	copy(buf[DMROffsetTrailer:], dmrTrailer[:])

	return buf
}

// DecodeDMR decodes a DMR record
func DecodeDMR(payload []byte) (DMRData, error) {
	if len(payload) < RecordSize {
		return DMRData{}, malformed("DMR data too short: %d bytes", len(payload))
	}

	return DMRData{
		Index:      binary.BigEndian.Uint16(payload[DMROffsetIndex:]),
		RxCC:       payload[DMROffsetRxCC],
		TxCC:       payload[DMROffsetTxCC],
		Slot:       payload[DMROffsetSlot],
		CallID:     binary.BigEndian.Uint32(payload[DMROffsetCallID:]),
		OwnID:      binary.BigEndian.Uint32(payload[DMROffsetOwnID:]),
		CallFormat: CallFormat(payload[DMROffsetCallFormat]),
	}, nil
}
