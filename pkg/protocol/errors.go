package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned when bytes cannot be interpreted as a frame
// or record. It is never retried.
var ErrMalformedFrame = errors.New("malformed frame")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}
