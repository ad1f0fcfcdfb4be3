package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the radio's fixed link speed
const DefaultBaudRate = 115200

// Port is the byte-stream the transport owns. go.bug.st/serial ports satisfy
// it directly; tests use in-memory implementations.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Close() error
}

// Opener opens a named port
type Opener func(name string, baud int) (Port, error)

// OpenSerial opens a serial device at 8N1 without flow control, with DTR
// and RTS raised from the start.
func OpenSerial(name string, baud int) (Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: true,
			RTS: true,
		},
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return p, nil
}
