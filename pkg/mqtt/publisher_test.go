package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/pmr171-cps/pkg/logger"
	"github.com/dbehnke/pmr171-cps/pkg/protocol"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connectErr   error
	publishErr   error
	messages     []published
	disconnected bool
}

func (c *fakeClient) Connect() paho.Token { return newToken(c.connectErr) }

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return newToken(c.publishErr)
}

func startWithFake(t *testing.T, cfg Config, fc *fakeClient) *Publisher {
	t.Helper()
	pub := New(cfg, logger.Nop())
	var opts *paho.ClientOptions
	pub.newClient = func(o *paho.ClientOptions) client {
		opts = o
		return fc
	}
	if err := pub.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if opts == nil {
		t.Fatal("expected client options to be built")
	}
	return pub
}

// TestNewPublisher tests creating a new MQTT publisher
func TestNewPublisher(t *testing.T) {
	config := Config{
		Enabled:     true,
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "pmr171/test",
		ClientID:    "test-client",
		QoS:         1,
	}

	pub := New(config, nil)
	if pub == nil {
		t.Fatal("Expected non-nil publisher")
	}

	if pub.config.Broker != config.Broker {
		t.Errorf("Expected broker %s, got %s", config.Broker, pub.config.Broker)
	}
}

// TestPublisher_StartWhenDisabled tests starting the publisher (when disabled)
func TestPublisher_StartWhenDisabled(t *testing.T) {
	pub := New(Config{Enabled: false}, nil)
	pub.newClient = func(*paho.ClientOptions) client {
		t.Fatal("client must not be created when disabled")
		return nil
	}

	if err := pub.Start(context.Background()); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

// TestPublisher_Stop tests stopping the publisher without starting
func TestPublisher_Stop(t *testing.T) {
	pub := New(Config{Enabled: true}, nil)

	// Should not panic when stopping without starting
	pub.Stop()
}

func TestPublisher_StartConnectError(t *testing.T) {
	pub := New(Config{Enabled: true, Broker: "tcp://localhost:1"}, logger.Nop())
	pub.newClient = func(*paho.ClientOptions) client {
		return &fakeClient{connectErr: errors.New("connection refused")}
	}

	if err := pub.Start(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	// publishing without a connection drops the event
	if err := pub.PublishSession(SessionEvent{Port: "x", State: "connected"}); err != nil {
		t.Errorf("expected dropped event, got %v", err)
	}
}

func TestPublisher_PublishesJSON(t *testing.T) {
	fc := &fakeClient{}
	pub := startWithFake(t, Config{
		Enabled:     true,
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "pmr171/",
		QoS:         1,
		Retained:    true,
	}, fc)

	if err := pub.PublishProgress(ProgressEvent{Operation: "read", Current: 3, Total: 10, Message: "Reading channel 2"}); err != nil {
		t.Fatalf("PublishProgress returned error: %v", err)
	}

	if len(fc.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fc.messages))
	}
	msg := fc.messages[0]
	if msg.topic != "pmr171/progress" {
		t.Errorf("expected topic pmr171/progress, got %s", msg.topic)
	}
	if msg.qos != 1 || !msg.retained {
		t.Errorf("expected qos 1 retained, got qos %d retained %v", msg.qos, msg.retained)
	}

	var got ProgressEvent
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Current != 3 || got.Total != 10 || got.Message != "Reading channel 2" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestPublisher_Observer(t *testing.T) {
	fc := &fakeClient{}
	pub := startWithFake(t, Config{Enabled: true, Broker: "tcp://b:1883", TopicPrefix: "radio"}, fc)

	ch := protocol.NewChannel(42)
	ch.Name = "SIMPLEX"
	pub.StateChanged("/dev/ttyUSB0", "connected")
	pub.ChannelProcessed("write", ch, true)
	pub.Progress("write")(1, 2, "Writing channel 42")

	topics := make([]string, 0, len(fc.messages))
	for _, m := range fc.messages {
		topics = append(topics, m.topic)
	}
	want := []string{"radio/session", "radio/channels", "radio/progress"}
	if len(topics) != len(want) {
		t.Fatalf("expected topics %v, got %v", want, topics)
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topic %d: expected %s, got %s", i, want[i], topics[i])
		}
	}

	var ev ChannelEvent
	if err := json.Unmarshal(fc.messages[1].payload, &ev); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if ev.Index != 42 || ev.Name != "SIMPLEX" || !ev.OK || ev.Operation != "write" {
		t.Errorf("unexpected channel event: %+v", ev)
	}
}

func TestPublisher_PublishError(t *testing.T) {
	fc := &fakeClient{publishErr: errors.New("not connected")}
	pub := startWithFake(t, Config{Enabled: true, Broker: "tcp://b:1883"}, fc)

	if err := pub.PublishSession(SessionEvent{Port: "p", State: "connected"}); err == nil {
		t.Error("expected publish error")
	}
}

func TestPublisher_StopDisconnects(t *testing.T) {
	fc := &fakeClient{}
	pub := startWithFake(t, Config{Enabled: true, Broker: "tcp://b:1883"}, fc)

	pub.Stop()
	if !fc.disconnected {
		t.Error("expected client to be disconnected")
	}

	// events after Stop are dropped
	if err := pub.PublishChannel(ChannelEvent{Index: 1}); err != nil {
		t.Errorf("expected no error after stop, got %v", err)
	}
	if len(fc.messages) != 0 {
		t.Errorf("expected no messages after stop, got %d", len(fc.messages))
	}
}

// TestPublisher_PublishWhenDisabled tests publishing events when disabled
func TestPublisher_PublishWhenDisabled(t *testing.T) {
	pub := New(Config{Enabled: false, TopicPrefix: "pmr171"}, nil)

	if err := pub.PublishProgress(ProgressEvent{Operation: "read", Current: 1, Total: 1000}); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if err := pub.PublishSession(SessionEvent{Port: "COM3", State: "connected"}); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if err := pub.PublishChannel(ChannelEvent{Operation: "read", Index: 1}); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
}

// TestFormatTopic tests topic formatting
func TestFormatTopic(t *testing.T) {
	tests := []struct {
		prefix   string
		suffix   string
		expected string
	}{
		{"pmr171", "progress", "pmr171/progress"},
		{"pmr171/", "session", "pmr171/session"},
		{"", "channels", "channels"},
		{"home/shack/radio", "progress", "home/shack/radio/progress"},
	}

	for _, tt := range tests {
		pub := New(Config{TopicPrefix: tt.prefix}, nil)
		if got := pub.formatTopic(tt.suffix); got != tt.expected {
			t.Errorf("formatTopic(%q, %q) = %q, want %q", tt.prefix, tt.suffix, got, tt.expected)
		}
	}
}
