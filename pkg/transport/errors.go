package transport

import (
	"errors"
	"fmt"
)

// Transient link errors. Callers match them with errors.Is.
var (
	ErrTimeout       = errors.New("timeout")
	ErrCRCMismatch   = errors.New("crc mismatch")
	ErrCommunication = errors.New("communication error")
)

// TimeoutError describes where a receive gave up
type TimeoutError struct {
	Phase   string // header, length or payload
	Scanned int    // bytes examined while looking for the header
	Got     int    // bytes received in Phase
	Want    int    // bytes expected in Phase
}

func (e *TimeoutError) Error() string {
	switch e.Phase {
	case "header":
		return fmt.Sprintf("timeout: valid header not found after scanning %d bytes", e.Scanned)
	case "length":
		return "timeout waiting for length byte"
	default:
		return fmt.Sprintf("timeout reading packet data: got %d/%d", e.Got, e.Want)
	}
}

// Unwrap returns ErrTimeout
func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// CRCError is returned when a received frame fails its checksum
type CRCError struct {
	Command  byte
	Received uint16
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("crc mismatch on frame 0x%02X (wire 0x%04X)", e.Command, e.Received)
}

// Unwrap returns ErrCRCMismatch
func (e *CRCError) Unwrap() error { return ErrCRCMismatch }

// CommError wraps a port read or write failure
type CommError struct {
	Op  string
	Err error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("communication error: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrCommunication and the port error
func (e *CommError) Unwrap() []error { return []error{ErrCommunication, e.Err} }

// ErrorKind returns a short label for metrics and logs
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCRCMismatch):
		return "crc"
	case errors.Is(err, ErrCommunication):
		return "communication"
	default:
		return "other"
	}
}
