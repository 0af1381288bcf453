// Package events publishes ingestion events to Kafka for downstream
// consumers (notification fanout, analytics). Publishing is fire-and-forget:
// a broker failure is logged and never surfaces into the ingestion path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/webhook-service/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher struct {
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewPublisher returns nil when Kafka is not configured; all methods are
// nil-safe so callers never have to branch.
func NewPublisher(brokers []string, topic string, log *zap.SugaredLogger) *Publisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Publisher{writer: w, log: log}
}

type envelope struct {
	Event          string    `json:"event"`
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	At             time.Time `json:"at"`
}

func (p *Publisher) MessageIngested(m *domain.Message) {
	p.publish(envelope{Event: "message.ingested", MessageID: m.ID, ConversationID: m.ConversationID})
}

func (p *Publisher) MessageSent(m *domain.Message) {
	p.publish(envelope{Event: "message.sent", MessageID: m.ID, ConversationID: m.ConversationID})
}

func (p *Publisher) StatusUpdated(messageID, status string) {
	p.publish(envelope{Event: "status.updated", MessageID: messageID, Status: status})
}

func (p *Publisher) publish(ev envelope) {
	if p == nil {
		return
	}
	ev.At = time.Now().UTC()
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Warnw("marshal event", "event", ev.Event, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msg := kafka.Message{Key: []byte(ev.MessageID), Value: b, Time: time.Now()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warnw("publish event", "event", ev.Event, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
