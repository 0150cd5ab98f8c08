package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/smartart/internal/adapters/mq/worker"
	"github.com/okian/smartart/internal/domain/dedupe"
	"github.com/okian/smartart/internal/domain/model"
	"github.com/okian/smartart/pkg/logger"
)

const (
	defaultMQTTTimeout   = 5 * time.Second
	disconnectQuiesceMS  = 250
	defaultMQTTQoS       = byte(1)
	defaultMQTTKeepAlive = 30 * time.Second
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	QoS      byte
	Timeout  time.Duration
	Username string
	Password string
	// RedeliveryWindow is how many packet IDs are remembered to drop QoS 1
	// redeliveries; zero keeps the dedupe default.
	RedeliveryWindow int
}

// MQTTBus is a Bus over an MQTT broker.
type MQTTBus struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
	seen    dedupe.Deduper

	mu      sync.Mutex
	ctx     context.Context
	handler worker.Handler
	topics  []string
	closed  bool
}

var _ Bus = (*MQTTBus)(nil)

// NewMQTTBus connects to the broker. Subscriptions are restored after reconnects.
func NewMQTTBus(ctx context.Context, cfg MQTTConfig, l logger.Logger) (*MQTTBus, error) {
	if l == nil {
		l = logger.Get().Named("bus")
	}
	b := &MQTTBus{
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		logger:  l,
		now:     time.Now,
		seen:    dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.RedeliveryWindow)),
		ctx:     context.WithoutCancel(ctx),
	}
	if b.timeout <= 0 {
		b.timeout = defaultMQTTTimeout
	}
	if b.qos > 2 {
		b.qos = defaultMQTTQoS
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(defaultMQTTKeepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetConnectTimeout(b.timeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn(context.Background(), "mqtt connection lost", logger.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	b.client = mqtt.NewClient(opts)
	tok := b.client.Connect()
	if !tok.WaitTimeout(b.timeout) {
		b.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	b.logger.Info(ctx, "mqtt connected", logger.String("broker", cfg.Broker), logger.String("client_id", cfg.ClientID))
	return b, nil
}

// Publish sends payload with the configured QoS and waits for the broker ack.
func (b *MQTTBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	tok := b.client.Publish(topic, b.qos, false, payload)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.timeout):
		return fmt.Errorf("%w: %s", ErrPublishTimeout, topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers h for topics.
func (b *MQTTBus) Subscribe(ctx context.Context, h worker.Handler, topics ...string) error {
	if len(topics) == 0 {
		return ErrNoTopics
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.handler != nil {
		b.mu.Unlock()
		return ErrAlreadySubscribed
	}
	b.ctx = context.WithoutCancel(ctx)
	b.handler = h
	b.topics = append([]string(nil), topics...)
	b.mu.Unlock()

	return b.subscribe(b.client)
}

func (b *MQTTBus) subscribe(c mqtt.Client) error {
	b.mu.Lock()
	topics := b.topics
	b.mu.Unlock()
	if len(topics) == 0 {
		return nil
	}

	filters := make(map[string]byte, len(topics))
	for _, t := range topics {
		filters[t] = b.qos
	}
	tok := c.SubscribeMultiple(filters, b.onMessage)
	if !tok.WaitTimeout(b.timeout) {
		return fmt.Errorf("%w: subscribe", ErrConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	b.logger.Info(context.Background(), "mqtt subscribed", logger.Any("topics", topics))
	return nil
}

func (b *MQTTBus) onConnect(c mqtt.Client) {
	// clean sessions drop subscriptions on reconnect
	if err := b.subscribe(c); err != nil {
		b.logger.Error(context.Background(), "mqtt resubscribe failed", logger.Error(err))
	}
}

func (b *MQTTBus) onMessage(_ mqtt.Client, m mqtt.Message) {
	b.mu.Lock()
	h, ctx := b.handler, b.ctx
	b.mu.Unlock()
	if h == nil {
		return
	}

	if b.redelivered(ctx, m.Topic(), m.MessageID(), m.Qos(), m.Duplicate()) {
		b.logger.Debug(ctx, "dropping redelivered message", logger.String("topic", m.Topic()), logger.Int("packet_id", int(m.MessageID())))
		return
	}

	msg := model.NewMessage(m.Topic(), append([]byte(nil), m.Payload()...), b.now())
	if err := h.Handle(ctx, msg); err != nil {
		b.logger.Debug(ctx, "handler returned error", logger.String("topic", msg.Topic), logger.Error(err))
	}
}

// redelivered reports whether a DUP-flagged message repeats a packet already
// handled. Packet IDs are reused once acknowledged, so a fresh delivery
// replaces the remembered one.
func (b *MQTTBus) redelivered(ctx context.Context, topic string, id uint16, qos byte, dup bool) bool {
	if qos == 0 {
		return false
	}
	key := fmt.Sprintf("%s#%d", topic, id)
	if dup {
		return b.seen.SeenAndRecord(ctx, key)
	}
	b.seen.Unrecord(ctx, key)
	b.seen.SeenAndRecord(ctx, key)
	return false
}

// Close unsubscribes and disconnects.
func (b *MQTTBus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	topics := b.topics
	b.topics = nil
	b.mu.Unlock()

	if len(topics) > 0 && b.client.IsConnectionOpen() {
		tok := b.client.Unsubscribe(topics...)
		if !tok.WaitTimeout(b.timeout) {
			b.logger.Warn(ctx, "mqtt unsubscribe timed out")
		} else if err := tok.Error(); err != nil {
			b.logger.Warn(ctx, "mqtt unsubscribe failed", logger.Error(err))
		}
	}
	b.client.Disconnect(disconnectQuiesceMS)
	return nil
}
