package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector collects radio link metrics. A nil *Collector is valid and
// records nothing, so packages can take one unconditionally.
type Collector struct {
	registry *prometheus.Registry

	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	noiseBytes     prometheus.Counter
	errors         *prometheus.CounterVec
	retries        *prometheus.CounterVec
	channels       *prometheus.CounterVec
	connected      prometheus.Gauge
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_frames_sent_total",
			Help: "Frames written to the radio",
		}, []string{"command"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_frames_received_total",
			Help: "Valid frames read from the radio",
		}, []string{"command"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_bytes_sent_total",
			Help: "Bytes written to the serial port",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_bytes_received_total",
			Help: "Bytes read from the serial port, noise included",
		}),
		noiseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pmr171_noise_bytes_total",
			Help: "Bytes skipped while searching for a frame header",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_errors_total",
			Help: "Link errors by kind",
		}, []string{"kind"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_retries_total",
			Help: "Operation retries after a transient failure",
		}, []string{"op"}),
		channels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pmr171_channels_total",
			Help: "Channel operations by outcome",
		}, []string{"op", "result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pmr171_session_connected",
			Help: "1 while a radio session is open",
		}),
	}

	c.registry.MustRegister(
		c.framesSent,
		c.framesReceived,
		c.bytesSent,
		c.bytesReceived,
		c.noiseBytes,
		c.errors,
		c.retries,
		c.channels,
		c.connected,
	)

	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// FrameSent records a frame written to the port
func (c *Collector) FrameSent(command byte, size int) {
	if c == nil {
		return
	}
	c.framesSent.WithLabelValues(commandLabel(command)).Inc()
	c.bytesSent.Add(float64(size))
}

// FrameReceived records a valid frame and the noise skipped before it
func (c *Collector) FrameReceived(command byte, size, noise int) {
	if c == nil {
		return
	}
	c.framesReceived.WithLabelValues(commandLabel(command)).Inc()
	c.bytesReceived.Add(float64(size + noise))
	c.noiseBytes.Add(float64(noise))
}

// Error records a link error of the given kind (timeout, crc, communication, malformed)
func (c *Collector) Error(kind string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(kind).Inc()
}

// Retry records a retry of op
func (c *Collector) Retry(op string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(op).Inc()
}

// ChannelDone records the outcome of a channel read or write
func (c *Collector) ChannelDone(op string, ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.channels.WithLabelValues(op, result).Inc()
}

// SetConnected records whether a session is open
func (c *Collector) SetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.connected.Set(1)
	} else {
		c.connected.Set(0)
	}
}

func commandLabel(command byte) string {
	return fmt.Sprintf("0x%02X", command)
}
