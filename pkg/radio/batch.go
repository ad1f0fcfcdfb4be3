package radio

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbehnke/pmr171-cps/pkg/codeplug"
	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// ProgressFunc receives batch progress. current counts from 1 for the
// channel being processed; on cancellation it is the number of channels
// already done.
type ProgressFunc func(current, total int, message string)

// BatchOptions controls a multi-channel operation
type BatchOptions struct {
	Progress  ProgressFunc
	Cancel    func() bool // polled before each channel
	SkipEmpty bool        // drop unused slots from ReadAll results
}

// CancelOnDone returns a cancel predicate that fires once ctx is done
func CancelOnDone(ctx context.Context) func() bool {
	return func() bool {
		return ctx.Err() != nil
	}
}

func (o BatchOptions) progress(current, total int, format string, args ...any) {
	if o.Progress != nil {
		o.Progress(current, total, fmt.Sprintf(format, args...))
	}
}

func (o BatchOptions) cancelled() bool {
	return o.Cancel != nil && o.Cancel()
}

// ReadAll reads every channel slot. Empty slots are kept unless SkipEmpty
// is set. Channels that fail to read are reported through Progress and
// skipped; a closed session ends the batch at the failing channel.
func (s *Session) ReadAll(opts BatchOptions) []protocol.Channel {
	indices := make([]uint16, protocol.ChannelCount)
	for i := range indices {
		indices[i] = uint16(i)
	}

	var out []protocol.Channel
	s.readBatch(indices, opts, func(ch protocol.Channel) {
		if !opts.SkipEmpty || !ch.IsEmpty() {
			out = append(out, ch)
		}
	})
	return out
}

// ReadSelected reads the given slots in order. Empty slots are returned.
func (s *Session) ReadSelected(indices []uint16, opts BatchOptions) []protocol.Channel {
	var out []protocol.Channel
	s.readBatch(indices, opts, func(ch protocol.Channel) {
		s.log.Info("Read channel",
			logger.Int("channel", int(ch.Index)),
			logger.String("freq_mhz", fmt.Sprintf("%.6f", ch.RxFreqMHz())),
			logger.String("name", ch.Name))
		out = append(out, ch)
	})
	return out
}

func (s *Session) readBatch(indices []uint16, opts BatchOptions, keep func(protocol.Channel)) {
	total := len(indices)
	s.log.Debug("Reading channels", logger.Int("count", total))

	for i, index := range indices {
		if opts.cancelled() {
			s.log.Info("Cancelled", logger.Int("channel", int(index)))
			opts.progress(i, total, "Cancelled at channel %d", index)
			return
		}
		opts.progress(i+1, total, "Reading channel %d", index)

		ch, err := s.ReadChannel(index)
		if err != nil {
			s.log.Error("Error reading channel", logger.Int("channel", int(index)), logger.Error(err))
			opts.progress(i+1, total, "Error reading channel %d: %v", index, err)
			if errors.Is(err, ErrClosed) {
				return
			}
			continue
		}
		keep(ch)
	}
}

// WriteAll writes channels in the given order and returns how many were
// acknowledged. Failed channels are reported through Progress and the batch
// moves on, except that a closed session ends it.
func (s *Session) WriteAll(channels []protocol.Channel, opts BatchOptions) int {
	total := len(channels)
	written := 0

	for i, ch := range channels {
		if opts.cancelled() {
			s.log.Info("Cancelled", logger.Int("channel", int(ch.Index)))
			opts.progress(i, total, "Cancelled at channel %d", ch.Index)
			break
		}
		opts.progress(i+1, total, "Writing channel %d", ch.Index)

		ok, err := s.WriteChannel(ch)
		switch {
		case err != nil:
			s.log.Error("Error writing channel", logger.Int("channel", int(ch.Index)), logger.Error(err))
			opts.progress(i+1, total, "Error writing channel %d: %v", ch.Index, err)
			if errors.Is(err, ErrClosed) {
				return written
			}
		case !ok:
			opts.progress(i+1, total, "Error writing channel %d: write not acknowledged", ch.Index)
		default:
			written++
		}
	}

	s.log.Info("Write complete", logger.Int("written", written), logger.Int("total", total))
	return written
}

// WriteSelected is WriteAll for a caller-chosen subset
func (s *Session) WriteSelected(channels []protocol.Channel, opts BatchOptions) int {
	return s.WriteAll(channels, opts)
}

// ReadCodeplug reads every slot, empty ones included, into codeplug form
func (s *Session) ReadCodeplug(opts BatchOptions) codeplug.Codeplug {
	opts.SkipEmpty = false
	return codeplug.FromChannels(s.ReadAll(opts))
}

// WriteCodeplug writes the records of cp in index order
func (s *Session) WriteCodeplug(cp codeplug.Codeplug, opts BatchOptions) (int, error) {
	if len(cp) == 0 {
		return 0, nil
	}
	if _, err := s.activeLinkLocked(); err != nil {
		return 0, err
	}
	return s.WriteAll(cp.Channels(), opts), nil
}

func (s *Session) activeLinkLocked() (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLink()
}
