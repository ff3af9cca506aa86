package repository

import (
	"context"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	pkgkafka "SignalGate/pkg/kafka"
	applogger "SignalGate/pkg/logger"
)

// signalEvent is the wire envelope published on the signal-events topic.
// Keyed by asset so per-asset ordering survives partitioning.
type signalEvent struct {
	Event     string         `json:"event"`
	SignalID  string         `json:"signal_id"`
	Asset     string         `json:"asset"`
	FromState string         `json:"from_state,omitempty"`
	State     string         `json:"state"`
	Result    string         `json:"result,omitempty"`
	Signal    *models.Signal `json:"signal"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// KafkaSignalPublisher implements EventPublisher over the shared Kafka
// producer. Publish failures are surfaced to the caller but never block a
// lifecycle transition; the store remains the source of truth.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (p *KafkaSignalPublisher) SetLogger(l *applogger.Logger) { p.l = l }

func (p *KafkaSignalPublisher) SignalCreated(ctx context.Context, s *models.Signal) error {
	return p.publish(ctx, signalEvent{
		Event:     "signal.created",
		SignalID:  s.ID,
		Asset:     s.Asset,
		State:     string(s.State),
		Signal:    s,
		EmittedAt: time.Now().UTC(),
	})
}

func (p *KafkaSignalPublisher) SignalTransitioned(ctx context.Context, s *models.Signal, from models.SignalState) error {
	return p.publish(ctx, signalEvent{
		Event:     "signal.transitioned",
		SignalID:  s.ID,
		Asset:     s.Asset,
		FromState: string(from),
		State:     string(s.State),
		Result:    string(s.Result),
		Signal:    s,
		EmittedAt: time.Now().UTC(),
	})
}

func (p *KafkaSignalPublisher) publish(ctx context.Context, ev signalEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.Asset), ev); err != nil {
		if p.l != nil {
			p.l.Error("publish signal event failed",
				applogger.String("event", ev.Event),
				applogger.String("signal_id", ev.SignalID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("publish %s: %w", ev.Event, err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}
