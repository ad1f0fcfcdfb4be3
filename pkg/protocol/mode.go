package protocol

import "fmt"

// Mode is a radio operating mode
type Mode uint8

// Operating modes
const (
	ModeUSB    Mode = 0
	ModeLSB    Mode = 1
	ModeCWR    Mode = 2
	ModeCWL    Mode = 3
	ModeAM     Mode = 4
	ModeWFM    Mode = 5
	ModeNFM    Mode = 6
	ModeDIGI   Mode = 7
	ModePKT    Mode = 8
	ModeDMR    Mode = 9
	ModeUnused Mode = 255 // empty channel slot
)

var modeNames = map[Mode]string{
	ModeUSB:    "USB",
	ModeLSB:    "LSB",
	ModeCWR:    "CWR",
	ModeCWL:    "CWL",
	ModeAM:     "AM",
	ModeWFM:    "WFM",
	ModeNFM:    "NFM",
	ModeDIGI:   "DIGI",
	ModePKT:    "PKT",
	ModeDMR:    "DMR",
	ModeUnused: "UNUSED",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(m))
}

// ParseMode returns the mode for a name as produced by String
func ParseMode(name string) (Mode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return 0, false
}

// CallFormat is the DMR call type
type CallFormat uint8

// DMR call formats
const (
	CallFormatPrivate CallFormat = 0
	CallFormatGroup   CallFormat = 1
	CallFormatAllCall CallFormat = 2
)

func (c CallFormat) String() string {
	switch c {
	case CallFormatPrivate:
		return "Private"
	case CallFormatGroup:
		return "Group"
	case CallFormatAllCall:
		return "AllCall"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}
