package protocol

import "math"

// ctcssTones maps tone index to frequency in Hz. Index 0 means no tone.
var ctcssTones = [...]float64{
	0,
	67.0, 69.3, 71.9, 74.4, 77.0, 79.7, 82.5, 85.4, 88.5, 91.5,
	94.8, 97.4, 100.0, 103.5, 107.2, 110.9, 114.8, 118.8, 123.0, 127.3,
	131.8, 136.5, 141.3, 146.2, 150.0, 151.4, 156.7, 159.8, 162.2, 165.5,
	167.9, 171.3, 173.8, 177.3, 179.9, 183.5, 186.2, 189.9, 192.8, 196.6,
	199.5, 203.5, 206.5, 210.7, 213.8, 218.1, 221.3, 225.7, 229.1, 233.6,
	237.1, 241.8, 245.5, 250.3, 254.1,
}

// CTCSSCount is the number of table entries including "no tone"
const CTCSSCount = len(ctcssTones)

// ToneHz returns the CTCSS frequency for a tone index. ok is false for
// index 0 (no tone) and for indices outside the table.
func ToneHz(index uint8) (hz float64, ok bool) {
	if index == 0 || int(index) >= CTCSSCount {
		return 0, false
	}
	return ctcssTones[index], true
}

// ToneIndex returns the table index for a CTCSS frequency. Frequencies are
// matched to 0.05 Hz.
func ToneIndex(hz float64) (uint8, bool) {
	for i := 1; i < CTCSSCount; i++ {
		if math.Abs(ctcssTones[i]-hz) < 0.05 {
			return uint8(i), true
		}
	}
	return 0, false
}
