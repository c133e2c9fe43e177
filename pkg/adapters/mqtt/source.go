// Package mqtt ingests host events from an MQTT broker and publishes the
// resulting dispatch reports back.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/codec"
	"github.com/aretw0/tessera/pkg/domain"
)

// Dispatcher is the part of the engine the source drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) *domain.Report
}

// Config describes the broker connection.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the subscription filter, e.g. "tessera/events/#".
	Topic string
	// Prefix is stripped from topics to derive a category when the payload carries none.
	Prefix string
	// ReplyTopic receives every report as JSON when set.
	ReplyTopic string
	QoS        byte
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{ Broker string }

func (e *ConnectTimeoutError) Error() string { return "mqtt connect timeout: " + e.Broker }

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct{ Topic string }

func (e *SubscribeTimeoutError) Error() string { return "mqtt subscribe timeout: " + e.Topic }

// Source subscribes to a topic filter and dispatches every message as an event.
type Source struct {
	cfg     Config
	target  Dispatcher
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	client paho.Client
}

// Option configures the Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// WithClient replaces the paho client built from Config.
func WithClient(client paho.Client) Option {
	return func(s *Source) { s.client = client }
}

// New creates a source that does not connect until Start.
func New(cfg Config, target Dispatcher, opts ...Option) *Source {
	if cfg.ClientID == "" {
		cfg.ClientID = "tessera"
	}
	s := &Source{cfg: cfg, target: target, logger: logging.NewNop(), timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		o := paho.NewClientOptions().
			AddBroker(cfg.Broker).
			SetClientID(cfg.ClientID).
			SetAutoReconnect(true).
			SetConnectRetry(true).
			SetConnectRetryInterval(5 * time.Second).
			SetKeepAlive(30 * time.Second)
		if cfg.Username != "" {
			o.SetUsername(cfg.Username).SetPassword(cfg.Password)
		}
		s.client = paho.NewClient(o)
	}
	return s
}

// Start connects and subscribes. Messages are dispatched under ctx.
func (s *Source) Start(ctx context.Context) error {
	if s.cfg.Topic == "" {
		return errors.New("mqtt: topic is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return &ConnectTimeoutError{Broker: s.cfg.Broker}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.cfg.Broker, err)
	}

	token = s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.Handler(ctx))
	if !token.WaitTimeout(s.timeout) {
		return &SubscribeTimeoutError{Topic: s.cfg.Topic}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.cfg.Topic, err)
	}
	s.logger.Info("mqtt subscribed", "broker", s.cfg.Broker, "topic", s.cfg.Topic)
	return nil
}

// Stop disconnects from the broker.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.Disconnect(1000)
}

// Handler returns the paho callback that decodes and dispatches a message.
func (s *Source) Handler(ctx context.Context) paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		ev, err := s.Decode(msg.Topic(), msg.Payload())
		if err != nil {
			s.logger.Warn("mqtt message dropped", "topic", msg.Topic(), "err", err)
			return
		}
		report := s.target.Dispatch(ctx, ev)
		if s.cfg.ReplyTopic == "" || client == nil {
			return
		}
		if err := s.publish(client, report); err != nil {
			s.logger.Warn("mqtt reply failed", "topic", s.cfg.ReplyTopic, "err", err)
		}
	}
}

func (s *Source) publish(client paho.Client, report *domain.Report) error {
	js, err := json.Marshal(report)
	if err != nil {
		return err
	}
	token := client.Publish(s.cfg.ReplyTopic, s.cfg.QoS, false, js)
	if !token.WaitTimeout(s.timeout) {
		return errors.New("publish timeout")
	}
	return token.Error()
}

// Decode turns a message into an event. An empty payload is an event with no
// fields; a missing category is derived from the topic.
func (s *Source) Decode(topic string, payload []byte) (domain.Event, error) {
	var ev domain.Event
	if len(strings.TrimSpace(string(payload))) > 0 {
		var err error
		ev, err = codec.DecodeEvent(payload, codec.JSON)
		if err != nil {
			return ev, err
		}
	}
	if ev.Category == "" {
		ev.Category = s.categoryFor(topic)
	}
	if ev.Category == "" {
		return ev, fmt.Errorf("no category for topic %q", topic)
	}
	return ev, nil
}

// categoryFor maps "<prefix>actor/join" to "actor.join".
func (s *Source) categoryFor(topic string) string {
	if s.cfg.Prefix != "" {
		if !strings.HasPrefix(topic, s.cfg.Prefix) {
			return ""
		}
		topic = strings.TrimPrefix(topic, s.cfg.Prefix)
	}
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}
