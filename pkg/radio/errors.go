package radio

import (
	"errors"
	"fmt"

	"github.com/dbehnke/pmr171-cps/pkg/protocol"
	"github.com/dbehnke/pmr171-cps/pkg/transport"
)

// Error kinds. The transient ones are retried by channel operations.
var (
	ErrTimeout        = transport.ErrTimeout
	ErrCRCMismatch    = transport.ErrCRCMismatch
	ErrCommunication  = transport.ErrCommunication
	ErrMalformedFrame = protocol.ErrMalformedFrame

	// ErrConnection is returned when the port cannot be opened or prepared
	ErrConnection = errors.New("connection error")
	// ErrClosed is returned by operations on a closed session
	ErrClosed = errors.New("session closed")
	// ErrNotWoken is returned when the radio does not answer a wake request
	ErrNotWoken = errors.New("radio did not respond to wake command")
)

// ConnectionError is returned by Connect
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Port, e.Err)
}

// Unwrap exposes ErrConnection and the cause
func (e *ConnectionError) Unwrap() []error { return []error{ErrConnection, e.Err} }

// UnexpectedResponseError is returned when the radio answers with a
// different command than the request expects. It counts as a
// communication error and is retried.
type UnexpectedResponseError struct {
	Expected protocol.Command
	Got      protocol.Command
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response: cmd=0x%02X, expected 0x%02X", byte(e.Got), byte(e.Expected))
}

// Unwrap returns ErrCommunication
func (e *UnexpectedResponseError) Unwrap() error { return ErrCommunication }

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrCRCMismatch) ||
		errors.Is(err, ErrCommunication)
}
