package radio

import (
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/clock"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/metrics"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
	"github.com/dbehnke/pmr171-cps/pkg/transport"
)

// Timing holds the device-specific delays. The defaults were measured
// against real hardware; a radio on a slow USB adapter may need more.
type Timing struct {
	MaxRetries int           // attempts per channel operation
	RetryDelay time.Duration // backoff unit, multiplied by the attempt number

	SettleDelay   time.Duration // after raising DTR/RTS on connect
	DrainCycles   int           // stale-input drains on connect
	DrainInterval time.Duration

	WakeDrainCycles  int
	WakeDrainDelay   time.Duration
	WakeDelay        time.Duration // after sending the wake request
	WakePolls        int
	WakePollInterval time.Duration

	PreWriteWake             bool // send a read of the same slot before each write attempt
	PreWriteWakeDelay        time.Duration
	PreWriteWakePolls        int
	PreWriteWakePollInterval time.Duration

	WriteSettleDelay time.Duration // flash commit lag before reading a write ack
	DMRSettleDelay   time.Duration // same for DMR writes, first attempt
	DMRSettleStep    time.Duration // added per further DMR write attempt
}

// DefaultTiming returns the delays used unless overridden
func DefaultTiming() Timing {
	return Timing{
		MaxRetries: 10,
		RetryDelay: 300 * time.Millisecond,

		SettleDelay:   500 * time.Millisecond,
		DrainCycles:   5,
		DrainInterval: 100 * time.Millisecond,

		WakeDrainCycles:  10,
		WakeDrainDelay:   50 * time.Millisecond,
		WakeDelay:        200 * time.Millisecond,
		WakePolls:        5,
		WakePollInterval: 100 * time.Millisecond,

		PreWriteWake:             true,
		PreWriteWakeDelay:        150 * time.Millisecond,
		PreWriteWakePolls:        10,
		PreWriteWakePollInterval: 20 * time.Millisecond,

		WriteSettleDelay: 150 * time.Millisecond,
		DMRSettleDelay:   150 * time.Millisecond,
		DMRSettleStep:    100 * time.Millisecond,
	}
}

// Observer is notified of session state changes and finished channel
// operations
type Observer interface {
	StateChanged(port string, state string)
	ChannelProcessed(op string, ch protocol.Channel, ok bool)
}

type settings struct {
	timing       Timing
	baud         int
	readTimeout  time.Duration
	maxScanBytes int
	opener       transport.Opener
	clock        clock.Clock
	log          *logger.Logger
	metrics      *metrics.Collector
	observer     Observer
}

func defaultSettings() settings {
	return settings{
		timing:       DefaultTiming(),
		baud:         transport.DefaultBaudRate,
		readTimeout:  transport.DefaultReadTimeout,
		maxScanBytes: transport.DefaultMaxScanBytes,
		opener:       transport.OpenSerial,
		clock:        clock.Real{},
		log:          logger.Nop(),
	}
}

// Option configures a Session
type Option func(*settings)

// WithTiming replaces all delays
func WithTiming(t Timing) Option {
	return func(s *settings) { s.timing = t }
}

// WithMaxRetries sets the attempts per channel operation
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.timing.MaxRetries = n
		}
	}
}

// WithRetryDelay sets the backoff unit
func WithRetryDelay(d time.Duration) Option {
	return func(s *settings) { s.timing.RetryDelay = d }
}

// WithPreWriteWake enables or disables the read sent before each write
func WithPreWriteWake(enabled bool) Option {
	return func(s *settings) { s.timing.PreWriteWake = enabled }
}

// WithBaudRate sets the serial speed
func WithBaudRate(baud int) Option {
	return func(s *settings) { s.baud = baud }
}

// WithReadTimeout sets the per-read timeout of the transport
func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.readTimeout = d }
}

// WithMaxScanBytes bounds the header search
func WithMaxScanBytes(n int) Option {
	return func(s *settings) { s.maxScanBytes = n }
}

// WithOpener replaces the serial port opener
func WithOpener(o transport.Opener) Option {
	return func(s *settings) { s.opener = o }
}

// WithClock sets the clock used for every delay
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithMetrics attaches a metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *settings) { s.metrics = m }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}
