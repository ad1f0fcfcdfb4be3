package protocol

// Frame header. Every frame on the wire starts with these four bytes.
var Magic = [4]byte{0xA5, 0xA5, 0xA5, 0xA5}

// Command identifies the operation carried by a frame
type Command byte

// Command codes
const (
	CmdPTT          Command = 0x07 // PTT control
	CmdModeSetting  Command = 0x0A // Mode setting
	CmdStatusSync   Command = 0x0B // Status synchronization
	CmdEquipment    Command = 0x27 // Equipment type recognition
	CmdPowerClass   Command = 0x28 // Power class
	CmdRIT          Command = 0x29 // RIT setting
	CmdSpectrum     Command = 0x39 // Spectrum data
	CmdChannelWrite Command = 0x40 // Channel write, 26-byte payload
	CmdChannelRead  Command = 0x41 // Channel read, 2-byte request / 26-byte response
	CmdDMRWrite     Command = 0x43 // DMR data write, 26-byte payload
	CmdDMRRead      Command = 0x44 // DMR data read, 2-byte request / 26-byte response
)

// Frame size constants (in bytes)
const (
	MagicSize      = 4    // A5 A5 A5 A5
	HeaderSize     = 5    // magic + length
	CRCSize        = 2    // big-endian CRC16
	MinFrameSize   = 8    // magic + length + command + crc
	MinLength      = 3    // smallest legal length byte: command + crc
	MaxPayloadSize = 252  // length is a single byte
	RecordSize     = 26   // channel and DMR records
	RequestSize    = 2    // channel index request
	NameFieldSize  = 12   // name field including the terminating NUL
	MaxNameLength  = 11   // printable characters stored
	ChannelCount   = 1000 // channel memory slots, 0..999
)

// Frame field offsets
const (
	OffsetMagic   = 0
	OffsetLength  = 4
	OffsetCommand = 5
	OffsetPayload = 6
)

// Basic channel record offsets
const (
	ChannelOffsetIndex   = 0  // 2 bytes BE
	ChannelOffsetRxMode  = 2  // 1 byte
	ChannelOffsetTxMode  = 3  // 1 byte
	ChannelOffsetRxFreq  = 4  // 4 bytes BE, Hz
	ChannelOffsetTxFreq  = 8  // 4 bytes BE, Hz
	ChannelOffsetRxCTCSS = 12 // 1 byte tone index
	ChannelOffsetTxCTCSS = 13 // 1 byte tone index
	ChannelOffsetName    = 14 // 12 bytes, NUL padded
)

// DMR record offsets
const (
	DMROffsetIndex      = 0  // 2 bytes BE
	DMROffsetPad        = 2  // always 0x00
	DMROffsetRxCC       = 3  // low nibble
	DMROffsetTxCC       = 4  // low nibble
	DMROffsetSlot       = 5  // 1 or 2
	DMROffsetCallID     = 6  // 4 bytes BE, talkgroup or private ID
	DMROffsetOwnID      = 10 // 4 bytes BE
	DMROffsetReserved   = 14 // 5 bytes, always zero
	DMROffsetCallFormat = 19 // 0=private 1=group 2=all call
	DMROffsetTrailer    = 20 // 6 bytes
)

// dmrTrailer is written verbatim at DMROffsetTrailer
var dmrTrailer = [6]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}

// String returns the command name
func (c Command) String() string {
	switch c {
	case CmdPTT:
		return "PTT"
	case CmdModeSetting:
		return "MODE_SETTING"
	case CmdStatusSync:
		return "STATUS_SYNC"
	case CmdEquipment:
		return "EQUIPMENT_TYPE"
	case CmdPowerClass:
		return "POWER_CLASS"
	case CmdRIT:
		return "RIT_SETTING"
	case CmdSpectrum:
		return "SPECTRUM_DATA"
	case CmdChannelWrite:
		return "CHANNEL_WRITE"
	case CmdChannelRead:
		return "CHANNEL_READ"
	case CmdDMRWrite:
		return "DMR_DATA_WRITE"
	case CmdDMRRead:
		return "DMR_DATA_READ"
	default:
		return "UNKNOWN"
	}
}
