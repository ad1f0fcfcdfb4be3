package radio

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dbehnke/pmr171-cps/pkg/clock"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/metrics"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
	"github.com/dbehnke/pmr171-cps/pkg/transport"
)

// ConnectionState represents the state of the radio session
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Link is the framed byte stream a session talks through.
// *transport.Stream implements it.
type Link interface {
	EnterProgrammingMode() error
	SendFrame(frame []byte) error
	ReceiveFrame() (*transport.Received, error)
	DrainBytes() ([]byte, error)
	Close() error
}

// Session is an open programming session with one radio. It owns the link
// exclusively. Operations are serialized; the radio only handles one
// outstanding request at a time.
type Session struct {
	port     string
	timing   Timing
	clock    clock.Clock
	log      *logger.Logger
	metrics  *metrics.Collector
	observer Observer

	mu   sync.Mutex // serializes operations
	link Link

	state   ConnectionState
	stateMu sync.RWMutex
}

// Connect opens the named serial port and puts the radio into programming
// mode. A radio that ignores the wake request is still returned connected;
// the first channel operation retries as needed.
func Connect(port string, opts ...Option) (*Session, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := newSession(port, cfg)
	s.setState(StateConnecting)

	p, err := cfg.opener(port, cfg.baud)
	if err != nil {
		s.setState(StateDisconnected)
		return nil, &ConnectionError{Port: port, Err: err}
	}

	link := transport.New(p,
		transport.WithClock(cfg.clock),
		transport.WithReadTimeout(cfg.readTimeout),
		transport.WithMaxScanBytes(cfg.maxScanBytes),
		transport.WithMetrics(cfg.metrics),
		transport.WithLogger(cfg.log),
	)

	if err := s.start(link); err != nil {
		_ = link.Close()
		s.setState(StateDisconnected)
		return nil, &ConnectionError{Port: port, Err: err}
	}
	return s, nil
}

// NewSession starts a session over an existing link
func NewSession(name string, link Link, opts ...Option) (*Session, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := newSession(name, cfg)
	s.setState(StateConnecting)
	if err := s.start(link); err != nil {
		s.setState(StateDisconnected)
		return nil, &ConnectionError{Port: name, Err: err}
	}
	return s, nil
}

func newSession(port string, cfg settings) *Session {
	return &Session{
		port:     port,
		timing:   cfg.timing,
		clock:    cfg.clock,
		log:      cfg.log.WithComponent("radio.session"),
		metrics:  cfg.metrics,
		observer: cfg.observer,
		state:    StateDisconnected,
	}
}

func (s *Session) start(link Link) error {
	if err := link.EnterProgrammingMode(); err != nil {
		return err
	}
	s.clock.Sleep(s.timing.SettleDelay)

	// The radio streams status frames until it sees a programming command
	for i := 0; i < s.timing.DrainCycles; i++ {
		stale, err := link.DrainBytes()
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			break
		}
		s.log.Debug("Cleared status data during connect", logger.Int("bytes", len(stale)))
		s.clock.Sleep(s.timing.DrainInterval)
	}

	s.link = link
	s.log.Debug("Connected", logger.String("port", s.port))

	if err := s.wake(link); err != nil {
		s.log.Warn("Wake command failed (may be normal)", logger.Error(err))
	}

	s.setState(StateConnected)
	return nil
}

// Port returns the port name the session was opened on
func (s *Session) Port() string {
	return s.port
}

// State returns the current connection state
func (s *Session) State() ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// IsConnected reports whether the session is usable
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

func (s *Session) setState(state ConnectionState) {
	s.stateMu.Lock()
	changed := s.state != state
	s.state = state
	s.stateMu.Unlock()

	if !changed {
		return
	}
	s.metrics.SetConnected(state == StateConnected)
	if s.observer != nil {
		s.observer.StateChanged(s.port, state.String())
	}
}

// Close releases the port. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.link == nil {
		return nil
	}

	err := s.link.Close()
	s.link = nil
	s.setState(StateDisconnected)
	s.log.Debug("Disconnected", logger.String("port", s.port))

	if err != nil {
		return fmt.Errorf("failed to close %s: %w", s.port, err)
	}
	return nil
}

// Wake sends a channel 0 read to pull the radio out of status streaming
func (s *Session) Wake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.activeLink()
	if err != nil {
		return err
	}
	return s.wake(link)
}

func (s *Session) wake(link Link) error {
	s.log.Debug("Sending wake command to radio")

	for i := 0; i < s.timing.WakeDrainCycles; i++ {
		stale, err := link.DrainBytes()
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			break
		}
		s.log.Debug("Cleared bytes during wake", logger.Int("bytes", len(stale)))
		s.clock.Sleep(s.timing.WakeDrainDelay)
	}

	if err := link.SendFrame(protocol.ChannelReadRequest(0)); err != nil {
		return err
	}
	s.clock.Sleep(s.timing.WakeDelay)

	for attempt := 1; attempt <= s.timing.WakePolls; attempt++ {
		data, err := link.DrainBytes()
		if err != nil {
			return err
		}
		if pos := bytes.Index(data, protocol.Magic[:]); pos >= 0 {
			s.log.Debug("Radio woke up", logger.Int("header_offset", pos))
			return nil
		}
		if len(data) > 0 {
			s.log.Debug("No valid header yet",
				logger.Int("attempt", attempt),
				logger.Int("bytes", len(data)))
		}
		s.clock.Sleep(s.timing.WakePollInterval)
	}

	return ErrNotWoken
}

func (s *Session) activeLink() (Link, error) {
	if s.link == nil {
		return nil, ErrClosed
	}
	return s.link, nil
}
