package testhelpers

import (
	"errors"
	"sync"
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/clock"
)

// ErrPortClosed is returned by FakePort after Close
var ErrPortClosed = errors.New("port closed")

// FakePort is an in-memory serial port driven by a fake clock. A read with
// nothing buffered advances the clock by the configured read timeout and
// returns zero bytes, the way a real port behaves when its timeout expires.
type FakePort struct {
	mu          sync.Mutex
	clock       *clock.Fake
	rx          []byte
	writes      [][]byte
	readTimeout time.Duration
	closed      bool

	DTR          bool
	RTS          bool
	InputResets  int
	OutputResets int
	CloseCalls   int

	// ReadErr and WriteErr, when set, are returned by every Read / Write
	ReadErr  error
	WriteErr error

	// OnWrite is called with each written buffer while the port lock is
	// not held; it may call Feed to queue a reply.
	OnWrite func(p []byte)
}

// NewFakePort creates a fake port using clk for timeouts
func NewFakePort(clk *clock.Fake) *FakePort {
	return &FakePort{clock: clk, readTimeout: time.Second}
}

// Feed queues bytes for Read
func (p *FakePort) Feed(data ...[]byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range data {
		p.rx = append(p.rx, d...)
	}
}

// Pending returns the number of unread bytes
func (p *FakePort) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx)
}

// Writes returns a copy of every buffer written
func (p *FakePort) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	copy(out, p.writes)
	return out
}

// ReadTimeout returns the timeout last set on the port
func (p *FakePort) ReadTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readTimeout
}

// Closed reports whether Close was called
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.ReadErr != nil {
		p.mu.Unlock()
		return 0, p.ReadErr
	}
	if len(p.rx) == 0 {
		timeout := p.readTimeout
		if timeout <= 0 {
			timeout = time.Millisecond
		}
		p.mu.Unlock()
		p.clock.Advance(timeout)
		return 0, nil
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPortClosed
	}
	if p.WriteErr != nil {
		p.mu.Unlock()
		return 0, p.WriteErr
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(b)
	}
	return len(b), nil
}

// SetReadTimeout records d as the empty-read clock advance
func (p *FakePort) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = d
	return nil
}

// ResetInputBuffer discards unread bytes
func (p *FakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx = nil
	p.InputResets++
	return nil
}

// ResetOutputBuffer counts the call
func (p *FakePort) ResetOutputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OutputResets++
	return nil
}

// SetDTR records the DTR line
func (p *FakePort) SetDTR(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DTR = v
	return nil
}

// SetRTS records the RTS line
func (p *FakePort) SetRTS(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RTS = v
	return nil
}

// Close marks the port closed
func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	p.closed = true
	return nil
}
