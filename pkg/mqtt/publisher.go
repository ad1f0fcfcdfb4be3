package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // milliseconds
)

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// client is the subset of paho.Client the publisher uses
type client interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher handles MQTT event publishing
type Publisher struct {
	config    Config
	log       *logger.Logger
	newClient func(*paho.ClientOptions) client

	mu     sync.Mutex
	client client
}

// Event types for MQTT publishing

// ProgressEvent reports batch progress
type ProgressEvent struct {
	Operation string    `json:"operation"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionEvent reports a radio session state change
type SessionEvent struct {
	Port      string    `json:"port"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelEvent reports a finished channel read or write
type ChannelEvent struct {
	Operation string    `json:"operation"`
	Index     uint16    `json:"index"`
	Name      string    `json:"name"`
	OK        bool      `json:"ok"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("mqtt"),
		newClient: func(opts *paho.ClientOptions) client {
			return paho.NewClient(opts)
		},
	}
}

// Start connects to the broker
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	opts := paho.NewClientOptions().
		AddBroker(p.config.Broker).
		SetClientID(p.config.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("MQTT connection lost", logger.Error(err))
		})
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	c := p.newClient(opts)
	token := c.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out connecting to %s", p.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", p.config.Broker, err)
	}

	p.mu.Lock()
	p.client = c
	p.mu.Unlock()

	p.log.Info("MQTT publisher connected")
	return nil
}

// Stop disconnects from the broker
func (p *Publisher) Stop() {
	if !p.config.Enabled {
		return
	}

	p.mu.Lock()
	c := p.client
	p.client = nil
	p.mu.Unlock()

	if c == nil {
		return
	}
	p.log.Info("Stopping MQTT publisher")
	c.Disconnect(disconnectWait)
}

// PublishProgress publishes a batch progress event
func (p *Publisher) PublishProgress(event ProgressEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("progress"), event)
}

// PublishSession publishes a session state event
func (p *Publisher) PublishSession(event SessionEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("session"), event)
}

// PublishChannel publishes a channel event
func (p *Publisher) PublishChannel(event ChannelEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("channels"), event)
}

// Progress returns a progress callback publishing under operation
func (p *Publisher) Progress(operation string) func(current, total int, message string) {
	return func(current, total int, message string) {
		_ = p.PublishProgress(ProgressEvent{
			Operation: operation,
			Current:   current,
			Total:     total,
			Message:   message,
			Timestamp: time.Now(),
		})
	}
}

// StateChanged publishes session state changes
func (p *Publisher) StateChanged(port string, state string) {
	_ = p.PublishSession(SessionEvent{Port: port, State: state, Timestamp: time.Now()})
}

// ChannelProcessed publishes finished channel operations
func (p *Publisher) ChannelProcessed(op string, ch protocol.Channel, ok bool) {
	_ = p.PublishChannel(ChannelEvent{
		Operation: op,
		Index:     ch.Index,
		Name:      ch.Name,
		OK:        ok,
		Timestamp: time.Now(),
	})
}

// publish publishes an event to a topic
func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := p.serializeEvent(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	p.mu.Lock()
	c := p.client
	p.mu.Unlock()

	if c == nil {
		p.log.Debug("MQTT not connected, dropping event", logger.String("topic", topic))
		return nil
	}

	token := c.Publish(topic, p.config.QoS, p.config.Retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		p.log.Warn("Failed to publish event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	p.log.Debug("Published MQTT event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))
	return nil
}

// serializeEvent serializes an event to JSON
func (p *Publisher) serializeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// formatTopic formats a topic with the configured prefix
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
