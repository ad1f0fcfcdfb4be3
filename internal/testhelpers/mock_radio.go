package testhelpers

import (
	"sync"
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/clock"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// StatusNoise is the kind of unsolicited status traffic the radio streams
// while idle. It never contains the frame header.
var StatusNoise = []byte{0x84, 0xA9, 0x61, 0x00, 0x12, 0x34, 0x00, 0x07, 0xFE, 0x01}

// EquipmentID is the payload MockRadio returns for an equipment type query
var EquipmentID = []byte("PMR-171")

// MockRadio simulates a PMR-171 on a FakePort: it answers channel and DMR
// reads and writes from an in-memory channel table and can inject the
// faults seen on real hardware.
type MockRadio struct {
	mu       sync.Mutex
	Port     *FakePort
	Clock    *clock.Fake
	channels map[uint16]protocol.Channel
	requests []protocol.Frame

	// Noise is prepended to every reply
	Noise []byte
	// Asleep swallows the first request without replying
	Asleep bool
	// DropNext ignores the next n requests
	DropNext int
	// CorruptNext sends the next n replies with a bad CRC
	CorruptNext int
	// WrongReplyNext answers the next n requests with a status frame
	WrongReplyNext int
	// IgnoreWrites ignores the first n channel writes per index, the way the
	// radio ignores writes to the channel shown on its display
	IgnoreWrites map[uint16]int
	// FailDMR makes every DMR request go unanswered
	FailDMR bool
	// Unresponsive lists slots whose channel and DMR requests are never
	// answered
	Unresponsive map[uint16]bool
}

// NewMockRadio wires a radio to a new FakePort
func NewMockRadio() *MockRadio {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := &MockRadio{
		Port:         NewFakePort(clk),
		Clock:        clk,
		channels:     make(map[uint16]protocol.Channel),
		IgnoreWrites: make(map[uint16]int),
		Unresponsive: make(map[uint16]bool),
	}
	r.Port.OnWrite = r.handle
	return r
}

// SetChannel stores a channel in radio memory
func (r *MockRadio) SetChannel(ch protocol.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Index] = ch
}

// Channel returns the stored channel and whether it was ever written
func (r *MockRadio) Channel(index uint16) (protocol.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[index]
	return ch, ok
}

// Requests returns every frame the radio received
func (r *MockRadio) Requests() []protocol.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Frame, len(r.requests))
	copy(out, r.requests)
	return out
}

// CountRequests returns how many requests carried cmd
func (r *MockRadio) CountRequests(cmd protocol.Command) int {
	n := 0
	for _, f := range r.Requests() {
		if f.Command == cmd {
			n++
		}
	}
	return n
}

func (r *MockRadio) handle(data []byte) {
	req, err := protocol.Parse(data)
	if err != nil || !req.CRCValid {
		return
	}

	r.mu.Lock()
	r.requests = append(r.requests, *req)
	reply := r.replyLocked(req)
	r.mu.Unlock()

	if reply != nil {
		r.Port.Feed(reply)
	}
}

func (r *MockRadio) replyLocked(req *protocol.Frame) []byte {
	if r.Asleep {
		r.Asleep = false
		return r.withNoise(nil)
	}
	if r.DropNext > 0 {
		r.DropNext--
		return r.withNoise(nil)
	}
	if r.WrongReplyNext > 0 {
		r.WrongReplyNext--
		return r.withNoise(protocol.MustBuild(protocol.CmdStatusSync, []byte{0x00}))
	}

	switch req.Command {
	case protocol.CmdChannelRead, protocol.CmdChannelWrite, protocol.CmdDMRRead, protocol.CmdDMRWrite:
		if idx, ok := index(req.Payload); ok && r.Unresponsive[idx] {
			return r.withNoise(nil)
		}
	}

	var cmd protocol.Command
	var payload []byte

	switch req.Command {
	case protocol.CmdChannelRead:
		idx, ok := index(req.Payload)
		if !ok {
			return nil
		}
		cmd, payload = protocol.CmdChannelRead, protocol.EncodeChannel(r.lookupLocked(idx))

	case protocol.CmdChannelWrite:
		ch, err := protocol.DecodeChannel(req.Payload)
		if err != nil {
			return nil
		}
		if r.IgnoreWrites[ch.Index] > 0 {
			r.IgnoreWrites[ch.Index]--
			return r.withNoise(nil)
		}
		stored := r.lookupLocked(ch.Index)
		ch.RxCC, ch.TxCC, ch.Slot = stored.RxCC, stored.TxCC, stored.Slot
		ch.CallID, ch.OwnID, ch.CallFormat = stored.CallID, stored.OwnID, stored.CallFormat
		r.channels[ch.Index] = ch
		cmd, payload = protocol.CmdChannelWrite, req.Payload

	case protocol.CmdDMRRead:
		if r.FailDMR {
			return nil
		}
		idx, ok := index(req.Payload)
		if !ok {
			return nil
		}
		cmd, payload = protocol.CmdDMRRead, protocol.EncodeDMR(r.lookupLocked(idx))

	case protocol.CmdDMRWrite:
		if r.FailDMR {
			return nil
		}
		d, err := protocol.DecodeDMR(req.Payload)
		if err != nil {
			return nil
		}
		ch := r.lookupLocked(d.Index)
		d.ApplyTo(&ch)
		r.channels[d.Index] = ch
		cmd, payload = protocol.CmdDMRWrite, req.Payload

	case protocol.CmdEquipment:
		cmd, payload = protocol.CmdEquipment, EquipmentID

	case protocol.CmdStatusSync:
		cmd, payload = protocol.CmdStatusSync, []byte{0x01, 0x1A, 0x95, 0x6B, 0x80}

	default:
		return nil
	}

	frame := protocol.MustBuild(cmd, payload)
	if r.CorruptNext > 0 {
		r.CorruptNext--
		frame[len(frame)-1] ^= 0xFF
	}
	return r.withNoise(frame)
}

func (r *MockRadio) lookupLocked(idx uint16) protocol.Channel {
	if ch, ok := r.channels[idx]; ok {
		return ch
	}
	ch := protocol.NewChannel(idx)
	ch.RxMode, ch.TxMode = protocol.ModeUnused, protocol.ModeUnused
	return ch
}

func (r *MockRadio) withNoise(frame []byte) []byte {
	if len(r.Noise) == 0 && frame == nil {
		return nil
	}
	out := append([]byte(nil), r.Noise...)
	return append(out, frame...)
}

func index(payload []byte) (uint16, bool) {
	if len(payload) < protocol.RequestSize {
		return 0, false
	}
	return uint16(payload[0])<<8 | uint16(payload[1]), true
}
