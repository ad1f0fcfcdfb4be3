package protocol

import (
	"testing"
)

func TestPacketSizes(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"Header is magic plus length", HeaderSize, MagicSize + 1},
		{"Minimum frame", MinFrameSize, HeaderSize + 1 + CRCSize},
		{"Minimum length byte", MinLength, 1 + CRCSize},
		{"Largest payload fits the length byte", MaxPayloadSize + MinLength, 255},
		{"Payload offset", OffsetPayload, OffsetCommand + 1},
		{"Name field ends the channel record", ChannelOffsetName + NameFieldSize, RecordSize},
		{"Trailer ends the DMR record", DMROffsetTrailer + len(dmrTrailer), RecordSize},
		{"Name keeps room for NUL", MaxNameLength, NameFieldSize - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.size != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, tt.size)
			}
		})
	}
}

func TestDMROffsets(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		next   int
		width  int
	}{
		{"Index", DMROffsetIndex, DMROffsetPad, 2},
		{"Pad", DMROffsetPad, DMROffsetRxCC, 1},
		{"RxCC", DMROffsetRxCC, DMROffsetTxCC, 1},
		{"TxCC", DMROffsetTxCC, DMROffsetSlot, 1},
		{"Slot", DMROffsetSlot, DMROffsetCallID, 1},
		{"CallID", DMROffsetCallID, DMROffsetOwnID, 4},
		{"OwnID", DMROffsetOwnID, DMROffsetReserved, 4},
		{"Reserved", DMROffsetReserved, DMROffsetCallFormat, 5},
		{"CallFormat", DMROffsetCallFormat, DMROffsetTrailer, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.offset+tt.width != tt.next {
				t.Errorf("%s at %d with width %d does not end at %d", tt.name, tt.offset, tt.width, tt.next)
			}
		})
	}
}

func TestCommandCodes(t *testing.T) {
	tests := []struct {
		cmd  Command
		code byte
		name string
	}{
		{CmdStatusSync, 0x0B, "STATUS_SYNC"},
		{CmdEquipment, 0x27, "EQUIPMENT_TYPE"},
		{CmdChannelWrite, 0x40, "CHANNEL_WRITE"},
		{CmdChannelRead, 0x41, "CHANNEL_READ"},
		{CmdDMRWrite, 0x43, "DMR_DATA_WRITE"},
		{CmdDMRRead, 0x44, "DMR_DATA_READ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if byte(tt.cmd) != tt.code {
				t.Errorf("Expected code 0x%02X, got 0x%02X", tt.code, byte(tt.cmd))
			}
			if tt.cmd.String() != tt.name {
				t.Errorf("Expected name %s, got %s", tt.name, tt.cmd.String())
			}
		})
	}
}
