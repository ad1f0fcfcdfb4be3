package radio

import (
	"bytes"
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// ReadChannel reads one channel slot. DMR channels get a second exchange
// for the DMR record; if only that one fails the basic channel is still
// returned with default DMR fields.
func (s *Session) ReadChannel(index uint16) (protocol.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ch protocol.Channel
	err := s.retry("read_channel", index, func(int) error {
		payload, err := s.request(protocol.CmdChannelRead, protocol.IndexRequest(index), protocol.CmdChannelRead, 0)
		if err != nil {
			return err
		}
		ch, err = protocol.DecodeChannel(payload)
		return err
	})
	if err != nil {
		s.done("read", protocol.Channel{Index: index}, false)
		return protocol.Channel{}, err
	}

	if ch.IsDMR() {
		d, err := s.readDMR(index)
		if err != nil {
			s.log.Warn("DMR read failed", logger.Int("channel", int(index)), logger.Error(err))
		} else {
			d.ApplyTo(&ch)
			s.log.Debug("DMR data",
				logger.Int("channel", int(index)),
				logger.Int("cc", int(ch.RxCC)),
				logger.Int("slot", int(ch.Slot)),
				logger.String("call_format", ch.CallFormat.String()))
		}
	}

	s.done("read", ch, true)
	return ch, nil
}

// WriteChannel writes one channel slot and, for DMR channels, its DMR
// record. It reports false without an error when every attempt failed with
// a transient error; the last of those is logged. Errors that are not
// retried (closed session, malformed frame) are returned.
func (s *Session) WriteChannel(ch protocol.Channel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.retry("write_channel", ch.Index, func(int) error {
		link, err := s.activeLink()
		if err != nil {
			return err
		}
		s.preWriteWake(link, ch.Index)

		_, err = s.request(protocol.CmdChannelWrite, protocol.EncodeChannel(ch), protocol.CmdChannelWrite, s.timing.WriteSettleDelay)
		return err
	})
	if err != nil {
		s.done("write", ch, false)
		if IsTransient(err) {
			return false, nil
		}
		return false, err
	}

	if ch.IsDMR() {
		if ok, err := s.writeDMR(ch); !ok {
			// the basic record is committed; keep going
			s.log.Warn("DMR data write failed", logger.Int("channel", int(ch.Index)), logger.Error(err))
		}
	}

	s.done("write", ch, true)
	return true, nil
}

// ReadDMR reads the DMR record for a slot
func (s *Session) ReadDMR(index uint16) (protocol.DMRData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readDMR(index)
}

// WriteDMR writes only the DMR record of ch. Like WriteChannel it reports
// false with a nil error when retries ran out.
func (s *Session) WriteDMR(ch protocol.Channel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDMR(ch)
}

func (s *Session) readDMR(index uint16) (protocol.DMRData, error) {
	var d protocol.DMRData
	err := s.retry("read_dmr", index, func(int) error {
		payload, err := s.request(protocol.CmdDMRRead, protocol.IndexRequest(index), protocol.CmdDMRRead, 0)
		if err != nil {
			return err
		}
		d, err = protocol.DecodeDMR(payload)
		return err
	})
	return d, err
}

func (s *Session) writeDMR(ch protocol.Channel) (bool, error) {
	s.log.Info("Writing DMR data",
		logger.Int("channel", int(ch.Index)),
		logger.Int("rx_cc", int(ch.RxCC)),
		logger.Int("tx_cc", int(ch.TxCC)),
		logger.Int("slot", int(ch.Slot)),
		logger.Uint32("call_id", ch.CallID),
		logger.Uint32("own_id", ch.OwnID))

	payload := protocol.EncodeDMR(ch)
	err := s.retry("write_dmr", ch.Index, func(attempt int) error {
		// commit lag grows on each attempt
		settle := s.timing.DMRSettleDelay + time.Duration(attempt-1)*s.timing.DMRSettleStep
		_, err := s.request(protocol.CmdDMRWrite, payload, protocol.CmdDMRWrite, settle)
		return err
	})
	if err != nil {
		if IsTransient(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// preWriteWake sends a read of the slot about to be written and consumes
// the reply. Some firmware drops a write that is not preceded by a command;
// failures here are only logged.
func (s *Session) preWriteWake(link Link, index uint16) {
	if !s.timing.PreWriteWake {
		return
	}

	if err := link.SendFrame(protocol.ChannelReadRequest(index)); err != nil {
		s.log.Debug("Pre-write wake failed (continuing anyway)", logger.Error(err))
		return
	}
	s.clock.Sleep(s.timing.PreWriteWakeDelay)

	for i := 0; i < s.timing.PreWriteWakePolls; i++ {
		data, err := link.DrainBytes()
		if err != nil {
			s.log.Debug("Pre-write wake failed (continuing anyway)", logger.Error(err))
			return
		}
		if bytes.Contains(data, protocol.Magic[:]) {
			s.log.Debug("Pre-write wake: got valid response", logger.Int("bytes", len(data)))
			return
		}
		s.clock.Sleep(s.timing.PreWriteWakePollInterval)
	}
	s.log.Debug("Pre-write wake: no response", logger.Int("channel", int(index)))
}

// RadioInfo identifies the connected radio
type RadioInfo struct {
	Model string
	Raw   []byte // equipment type payload, format varies by firmware
}

// RadioInfo queries the equipment type
func (s *Session) RadioInfo() (RadioInfo, error) {
	f, err := s.SendCommand(protocol.CmdEquipment, nil)
	if err != nil {
		return RadioInfo{}, err
	}
	return RadioInfo{Model: "PMR-171", Raw: f.Payload}, nil
}

// Status requests a status synchronization frame and returns its payload
func (s *Session) Status() ([]byte, error) {
	f, err := s.SendCommand(protocol.CmdStatusSync, nil)
	if err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// SendCommand performs a single request/response exchange without retries
func (s *Session) SendCommand(cmd protocol.Command, payload []byte) (*protocol.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundTrip(cmd, payload, 0)
}

func (s *Session) done(op string, ch protocol.Channel, ok bool) {
	s.metrics.ChannelDone(op, ok)
	if s.observer != nil {
		s.observer.ChannelProcessed(op, ch, ok)
	}
}
