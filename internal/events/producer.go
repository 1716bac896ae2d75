package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher emits domain events. Publishing is fire-and-forget from the
// caller's perspective; a broker outage never fails the originating request.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// PrincipalRegistered is emitted after a successful registration so the
// notification collaborator can deliver credentials.
type PrincipalRegistered struct {
	EventID   string    `json:"eventId"`
	Space     string    `json:"space"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// BillPaid is emitted after a bill reaches PAID.
type BillPaid struct {
	EventID       string    `json:"eventId"`
	BillID        string    `json:"billId"`
	Username      string    `json:"username"`
	Total         float64   `json:"total"`
	PaymentMethod string    `json:"paymentMethod"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewEventID tags each emitted event so consumers can deduplicate replays.
func NewEventID() string {
	return uuid.NewString()
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafka builds a Publisher over the given brokers and topic. An empty
// broker list yields a no-op publisher so local runs need no broker.
func NewKafka(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// PublishAsync publishes on a detached context and logs failures instead of
// surfacing them.
func PublishAsync(p Publisher, logger *zap.Logger, key string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, key, payload); err != nil {
			logger.Warn("publish event failed", zap.String("key", key), zap.Error(err))
		}
	}()
}
