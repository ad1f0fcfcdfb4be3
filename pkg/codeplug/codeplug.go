// Package codeplug converts channels to and from the flat JSON record
// format used by the vendor programming software.
package codeplug

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// Fixed values written for fields the radio ignores or this tool does not
// manage.
const (
	IgnoredCTCSS = 255
	DefaultPower = 2
)

// Record is one channel in codeplug form. Multi-byte values are split into
// big-endian byte fields.
type Record struct {
	ChannelLow  int    `json:"channelLow"`
	ChannelHigh int    `json:"channelHigh"`
	ChannelName string `json:"channelName"`

	VfoaMode int `json:"vfoaMode"`
	VfobMode int `json:"vfobMode"`

	VfoaFrequency1 int `json:"vfoaFrequency1"`
	VfoaFrequency2 int `json:"vfoaFrequency2"`
	VfoaFrequency3 int `json:"vfoaFrequency3"`
	VfoaFrequency4 int `json:"vfoaFrequency4"`
	VfobFrequency1 int `json:"vfobFrequency1"`
	VfobFrequency2 int `json:"vfobFrequency2"`
	VfobFrequency3 int `json:"vfobFrequency3"`
	VfobFrequency4 int `json:"vfobFrequency4"`

	EmitYayin    int `json:"emitYayin"`
	ReceiveYayin int `json:"receiveYayin"`
	RxCtcss      int `json:"rxCtcss"`
	TxCtcss      int `json:"txCtcss"`

	Power     int `json:"power"`
	Step      int `json:"step"`
	TxOffset  int `json:"txOffset"`
	OneTone   int `json:"oneTone"`
	Scramble  int `json:"scramble"`
	Compander int `json:"compander"`
	Sql       int `json:"sql"`
	ChType    int `json:"chType"`

	CallFormat int `json:"callFormat"`
	CallID1    int `json:"callId1"`
	CallID2    int `json:"callId2"`
	CallID3    int `json:"callId3"`
	CallID4    int `json:"callId4"`
	OwnID1     int `json:"ownId1"`
	OwnID2     int `json:"ownId2"`
	OwnID3     int `json:"ownId3"`
	OwnID4     int `json:"ownId4"`
	RxCc       int `json:"rxCc"`
	TxCc       int `json:"txCc"`
	Slot       int `json:"slot"`

	VfoaFilter int `json:"vfoaFilter"`
	VfobFilter int `json:"vfobFilter"`
}

// UnmarshalJSON fills fields missing from data with the radio defaults
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	p := plain{
		VfoaMode:   int(protocol.ModeNFM),
		VfobMode:   int(protocol.ModeNFM),
		RxCc:       1,
		TxCc:       1,
		Slot:       1,
		CallFormat: int(protocol.CallFormatGroup),
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Record(p)
	return nil
}

// FromChannel converts a channel to its codeplug record
func FromChannel(c protocol.Channel) Record {
	var rx, tx, call, own [4]byte
	binary.BigEndian.PutUint32(rx[:], c.RxFreqHz)
	binary.BigEndian.PutUint32(tx[:], c.TxFreqHz)
	binary.BigEndian.PutUint32(call[:], c.CallID)
	binary.BigEndian.PutUint32(own[:], c.OwnID)

	chType := 0
	if c.IsDMR() {
		chType = 1
	}

	return Record{
		ChannelLow:  int(c.Index & 0xFF),
		ChannelHigh: int(c.Index >> 8),
		ChannelName: c.Name,

		VfoaMode: int(c.RxMode),
		VfobMode: int(c.TxMode),

		VfoaFrequency1: int(rx[0]),
		VfoaFrequency2: int(rx[1]),
		VfoaFrequency3: int(rx[2]),
		VfoaFrequency4: int(rx[3]),
		VfobFrequency1: int(tx[0]),
		VfobFrequency2: int(tx[1]),
		VfobFrequency3: int(tx[2]),
		VfobFrequency4: int(tx[3]),

		EmitYayin:    int(c.TxCTCSS),
		ReceiveYayin: int(c.RxCTCSS),
		RxCtcss:      IgnoredCTCSS,
		TxCtcss:      IgnoredCTCSS,

		Power:  DefaultPower,
		ChType: chType,

		CallFormat: int(c.CallFormat),
		CallID1:    int(call[0]),
		CallID2:    int(call[1]),
		CallID3:    int(call[2]),
		CallID4:    int(call[3]),
		OwnID1:     int(own[0]),
		OwnID2:     int(own[1]),
		OwnID3:     int(own[2]),
		OwnID4:     int(own[3]),
		RxCc:       int(c.RxCC),
		TxCc:       int(c.TxCC),
		Slot:       int(c.Slot),
	}
}

// Index returns the channel index. Older files store the whole index in
// channelLow with channelHigh zero; both layouts decode the same.
func (r Record) Index() uint16 {
	return uint16(r.ChannelHigh<<8 + r.ChannelLow)
}

// Channel converts the record back to a channel
func (r Record) Channel() protocol.Channel {
	return protocol.Channel{
		Index:      r.Index(),
		RxMode:     protocol.Mode(r.VfoaMode),
		TxMode:     protocol.Mode(r.VfobMode),
		RxFreqHz:   joinBytes(r.VfoaFrequency1, r.VfoaFrequency2, r.VfoaFrequency3, r.VfoaFrequency4),
		TxFreqHz:   joinBytes(r.VfobFrequency1, r.VfobFrequency2, r.VfobFrequency3, r.VfobFrequency4),
		RxCTCSS:    uint8(r.ReceiveYayin),
		TxCTCSS:    uint8(r.EmitYayin),
		Name:       r.ChannelName,
		RxCC:       uint8(r.RxCc),
		TxCC:       uint8(r.TxCc),
		Slot:       uint8(r.Slot),
		OwnID:      joinBytes(r.OwnID1, r.OwnID2, r.OwnID3, r.OwnID4),
		CallID:     joinBytes(r.CallID1, r.CallID2, r.CallID3, r.CallID4),
		CallFormat: protocol.CallFormat(r.CallFormat),
	}
}

func joinBytes(b1, b2, b3, b4 int) uint32 {
	return binary.BigEndian.Uint32([]byte{byte(b1), byte(b2), byte(b3), byte(b4)})
}

// Codeplug maps the decimal channel index to its record
type Codeplug map[string]Record

// FromChannels builds a codeplug. A later channel with the same index
// replaces an earlier one.
func FromChannels(channels []protocol.Channel) Codeplug {
	cp := make(Codeplug, len(channels))
	for _, c := range channels {
		cp[strconv.Itoa(int(c.Index))] = FromChannel(c)
	}
	return cp
}

// Channels returns the channels sorted by index. The map keys are not
// consulted; the index comes from each record.
func (cp Codeplug) Channels() []protocol.Channel {
	out := make([]protocol.Channel, 0, len(cp))
	for _, r := range cp {
		out = append(out, r.Channel())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Load reads a codeplug JSON file
func Load(path string) (Codeplug, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read codeplug: %w", err)
	}

	var cp Codeplug
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to parse codeplug %s: %w", path, err)
	}
	if cp == nil {
		cp = Codeplug{}
	}
	return cp, nil
}

// Save writes cp as indented JSON
func Save(path string, cp Codeplug) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode codeplug: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write codeplug: %w", err)
	}
	return nil
}
