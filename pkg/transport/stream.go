package transport

import (
	"errors"
	"io"
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/clock"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/metrics"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// Defaults observed against the radio
const (
	DefaultReadTimeout  = time.Second
	DefaultMaxScanBytes = 500
	DefaultPollTimeout  = 10 * time.Millisecond
	maxDrainBytes       = 4096
)

// Received is one frame extracted from the byte stream
type Received struct {
	Frame   *protocol.Frame
	Raw     []byte // header through CRC
	Skipped int    // noise bytes discarded before the header
}

// Stream frames requests onto a Port and extracts response frames from a
// stream that may carry unrelated status traffic. It is not safe for
// concurrent use; the protocol is strictly half-duplex.
type Stream struct {
	port         Port
	clock        clock.Clock
	readTimeout  time.Duration
	pollTimeout  time.Duration
	maxScan      int
	metrics      *metrics.Collector
	log          *logger.Logger
	portTimeout  time.Duration
	timeoutValid bool
}

// Option configures a Stream
type Option func(*Stream)

// WithClock sets the clock used for receive deadlines
func WithClock(c clock.Clock) Option {
	return func(s *Stream) { s.clock = c }
}

// WithReadTimeout sets the per-read timeout. The header scan deadline is
// twice this value.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Stream) { s.readTimeout = d }
}

// WithPollTimeout sets the read timeout used while draining
func WithPollTimeout(d time.Duration) Option {
	return func(s *Stream) { s.pollTimeout = d }
}

// WithMaxScanBytes bounds the bytes examined while looking for a header
func WithMaxScanBytes(n int) Option {
	return func(s *Stream) { s.maxScan = n }
}

// WithMetrics attaches a metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Stream) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Stream) { s.log = l }
}

// New creates a Stream owning port
func New(port Port, opts ...Option) *Stream {
	s := &Stream{
		port:        port,
		clock:       clock.Real{},
		readTimeout: DefaultReadTimeout,
		pollTimeout: DefaultPollTimeout,
		maxScan:     DefaultMaxScanBytes,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("transport")
	return s
}

// EnterProgrammingMode raises DTR and RTS and clears both port buffers
func (s *Stream) EnterProgrammingMode() error {
	if err := s.port.SetDTR(true); err != nil {
		return &CommError{Op: "set DTR", Err: err}
	}
	if err := s.port.SetRTS(true); err != nil {
		return &CommError{Op: "set RTS", Err: err}
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return &CommError{Op: "reset input", Err: err}
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return &CommError{Op: "reset output", Err: err}
	}
	return nil
}

// SendFrame writes a complete frame
func (s *Stream) SendFrame(frame []byte) error {
	n, err := s.port.Write(frame)
	if err != nil {
		s.metrics.Error("communication")
		return &CommError{Op: "write", Err: err}
	}
	if n != len(frame) {
		s.metrics.Error("communication")
		return &CommError{Op: "write", Err: io.ErrShortWrite}
	}

	var cmd byte
	if len(frame) > protocol.OffsetCommand {
		cmd = frame[protocol.OffsetCommand]
	}
	s.metrics.FrameSent(cmd, len(frame))
	s.log.Debug("frame sent", logger.Hex("raw", frame))
	return nil
}

// ReceiveFrame reads the next frame. Bytes before the header are skipped one
// at a time until the header matches, MaxScanBytes have been examined, or
// twice the read timeout has elapsed.
func (s *Stream) ReceiveFrame() (*Received, error) {
	if err := s.setTimeout(s.readTimeout); err != nil {
		return nil, err
	}

	deadline := s.clock.Now().Add(2 * s.readTimeout)

	var window [protocol.MagicSize]byte
	one := make([]byte, 1)
	scanned := 0
	found := false

	for scanned < s.maxScan {
		if s.clock.Now().After(deadline) {
			return nil, s.timeout(&TimeoutError{Phase: "header", Scanned: scanned})
		}

		n, err := s.port.Read(one)
		if err != nil && !errors.Is(err, io.EOF) {
			s.metrics.Error("communication")
			return nil, &CommError{Op: "read", Err: err}
		}
		if n == 0 {
			continue
		}

		copy(window[:], window[1:])
		window[protocol.MagicSize-1] = one[0]
		scanned++

		// A stray 0xA5 just before a real header matches one byte early; the
		// frame then fails as a short payload and the caller's retry recovers.
		if scanned >= protocol.MagicSize && window == protocol.Magic {
			found = true
			break
		}
	}
	if !found {
		return nil, s.timeout(&TimeoutError{Phase: "header", Scanned: scanned})
	}

	skipped := scanned - protocol.MagicSize
	if skipped > 0 {
		s.log.Debug("found header after noise", logger.Int("skipped", skipped))
	}

	lengthByte, err := s.readFull(1, deadline, "length")
	if err != nil {
		return nil, err
	}

	body, err := s.readFull(int(lengthByte[0]), deadline, "payload")
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, protocol.HeaderSize+len(body))
	raw = append(raw, protocol.Magic[:]...)
	raw = append(raw, lengthByte[0])
	raw = append(raw, body...)

	frame, err := protocol.Parse(raw)
	if err != nil {
		s.metrics.Error("malformed")
		return nil, err
	}
	if !frame.CRCValid {
		s.metrics.Error("crc")
		return nil, &CRCError{Command: byte(frame.Command), Received: frame.CRC}
	}

	s.metrics.FrameReceived(byte(frame.Command), len(raw), skipped)
	s.log.Debug("frame received",
		logger.String("command", frame.Command.String()),
		logger.Int("skipped", skipped))

	return &Received{Frame: frame, Raw: raw, Skipped: skipped}, nil
}

// Drain discards immediately pending input and returns the byte count
func (s *Stream) Drain() (int, error) {
	b, err := s.DrainBytes()
	return len(b), err
}

// DrainBytes reads whatever input is pending without waiting longer than
// the poll timeout per read.
func (s *Stream) DrainBytes() ([]byte, error) {
	if err := s.setTimeout(s.pollTimeout); err != nil {
		return nil, err
	}

	buf := make([]byte, 256)
	var out []byte
	for len(out) < maxDrainBytes {
		n, err := s.port.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.metrics.Error("communication")
			return out, &CommError{Op: "read", Err: err}
		}
		if n == 0 {
			break
		}
	}

	if len(out) > 0 {
		s.log.Debug("drained pending input", logger.Int("bytes", len(out)))
	}
	return out, nil
}

// Close closes the port
func (s *Stream) Close() error {
	return s.port.Close()
}

func (s *Stream) readFull(n int, deadline time.Time, phase string) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := s.port.Read(buf[got:])
		got += m
		if err != nil && !errors.Is(err, io.EOF) {
			s.metrics.Error("communication")
			return nil, &CommError{Op: "read", Err: err}
		}
		if m == 0 && s.clock.Now().After(deadline) {
			return nil, s.timeout(&TimeoutError{Phase: phase, Got: got, Want: n})
		}
	}
	return buf, nil
}

func (s *Stream) setTimeout(d time.Duration) error {
	if s.timeoutValid && s.portTimeout == d {
		return nil
	}
	if err := s.port.SetReadTimeout(d); err != nil {
		return &CommError{Op: "set read timeout", Err: err}
	}
	s.portTimeout = d
	s.timeoutValid = true
	return nil
}

func (s *Stream) timeout(err *TimeoutError) error {
	s.metrics.Error("timeout")
	return err
}
