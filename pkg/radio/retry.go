package radio

import (
	"time"

	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

// retry runs fn up to MaxRetries times. Transient failures back off for
// RetryDelay × attempt and drain stale input before the next attempt; other
// errors return at once. The last transient error is returned when every
// attempt failed.
func (s *Session) retry(op string, index uint16, fn func(attempt int) error) error {
	limit := s.timing.MaxRetries
	if limit < 1 {
		limit = 1
	}

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				s.log.Info("Succeeded on retry",
					logger.String("op", op),
					logger.Int("channel", int(index)),
					logger.Int("attempt", attempt))
			}
			return nil
		}
		if !IsTransient(err) {
			return err
		}

		lastErr = err
		s.log.Warn("Attempt failed",
			logger.String("op", op),
			logger.Int("channel", int(index)),
			logger.Int("attempt", attempt),
			logger.Int("max_retries", limit),
			logger.Error(err))

		if attempt == limit {
			break
		}

		s.metrics.Retry(op)
		s.clock.Sleep(s.timing.RetryDelay * time.Duration(attempt))
		if s.link != nil {
			if stale, derr := s.link.DrainBytes(); derr == nil && len(stale) > 0 {
				s.log.Debug("Cleared bytes before retry", logger.Int("bytes", len(stale)))
			}
		}
	}

	s.log.Error("Failed after all attempts",
		logger.String("op", op),
		logger.Int("channel", int(index)),
		logger.Int("max_retries", limit),
		logger.Error(lastErr))
	return lastErr
}

// roundTrip drains stale input, sends one request and reads one frame.
// settle is slept between sending and receiving.
func (s *Session) roundTrip(cmd protocol.Command, payload []byte, settle time.Duration) (*protocol.Frame, error) {
	link, err := s.activeLink()
	if err != nil {
		return nil, err
	}

	if stale, err := link.DrainBytes(); err != nil {
		return nil, err
	} else if len(stale) > 0 {
		s.log.Debug("Cleared stale bytes", logger.Int("bytes", len(stale)))
	}

	frame, err := protocol.Build(cmd, payload)
	if err != nil {
		return nil, err
	}
	if err := link.SendFrame(frame); err != nil {
		return nil, err
	}

	if settle > 0 {
		s.clock.Sleep(settle)
	}

	rx, err := link.ReceiveFrame()
	if err != nil {
		return nil, err
	}
	return rx.Frame, nil
}

// request is roundTrip requiring the reply to carry want
func (s *Session) request(cmd protocol.Command, payload []byte, want protocol.Command, settle time.Duration) ([]byte, error) {
	f, err := s.roundTrip(cmd, payload, settle)
	if err != nil {
		return nil, err
	}
	if f.Command != want {
		return nil, &UnexpectedResponseError{Expected: want, Got: f.Command}
	}
	return f.Payload, nil
}
