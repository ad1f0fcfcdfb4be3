package protocol

// CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, MSB first, no reflection,
// no final XOR. Computed over length‖command‖payload.

const (
	crcCCITTPoly = 0x1021
	crcCCITTInit = 0xFFFF
)

// CRC16 calculates the frame checksum for data
func CRC16(data []byte) uint16 {
	crc := uint16(crcCCITTInit)

	for _, b := range data {
		cur := uint16(b) << 8
		for j := 0; j < 8; j++ {
			if (crc^cur)&0x8000 != 0 {
				crc = (crc << 1) ^ crcCCITTPoly
			} else {
				crc <<= 1
			}
			cur <<= 1
		}
	}

	return crc
}
