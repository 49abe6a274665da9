// Package events provides job lifecycle event publishing.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Publisher publishes job lifecycle events to separate Kafka topics: one
// for intermediate status transitions, one for terminal outcomes. When
// disabled it degrades to log-only mode so the rest of the client never
// has to branch on it.
type Publisher struct {
	writerStatus   *kafka.Writer
	writerTerminal *kafka.Writer
	principal      string
	topicStatus    string
	topicTerminal  string
	enabled        bool
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers       []string
	TopicStatus   string
	TopicTerminal string
	Principal     string
	Enabled       bool
}

// New creates a new Kafka event publisher.
func New(cfg *Config) *Publisher {
	if cfg == nil {
		log.Info().Msg("kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka disabled, using log-only mode")
		return &Publisher{
			principal:     cfg.Principal,
			topicStatus:   cfg.TopicStatus,
			topicTerminal: cfg.TopicTerminal,
			enabled:       false,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerStatus := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicStatus,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerTerminal := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicTerminal,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicStatus", cfg.TopicStatus).
		Str("topicTerminal", cfg.TopicTerminal).
		Str("principal", cfg.Principal).
		Msg("kafka publisher initialized")

	return &Publisher{
		writerStatus:   writerStatus,
		writerTerminal: writerTerminal,
		principal:      cfg.Principal,
		topicStatus:    cfg.TopicStatus,
		topicTerminal:  cfg.TopicTerminal,
		enabled:        true,
	}
}

// PublishStatus publishes a status transition event.
func (p *Publisher) PublishStatus(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerStatus, p.topicStatus, key, event)
}

// PublishTerminal publishes a terminal outcome event.
func (p *Publisher) PublishTerminal(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTerminal, p.topicTerminal, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("publishing event")

	if !p.enabled || writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("failed to write to kafka")
		return err
	}

	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerStatus != nil {
		if e := p.writerStatus.Close(); e != nil {
			log.Error().Err(e).Msg("error closing status writer")
			err = e
		}
	}
	if p.writerTerminal != nil {
		if e := p.writerTerminal.Close(); e != nil {
			log.Error().Err(e).Msg("error closing terminal writer")
			err = e
		}
	}
	return err
}
