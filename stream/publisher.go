// Package stream publishes shaped bundles to Kafka.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"osm-ingest/shape"
)

var (
	ErrNoBrokers = errors.New("at least one broker is required")
	ErrNoTopic   = errors.New("topic cannot be empty")
)

// MessageWriter is the part of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends one JSON message per bundle, keyed by kind and entity id so
// every version of an entity lands on the same partition. Messages are sent
// in batches; call Flush after the last Write.
type Publisher struct {
	w         MessageWriter
	batchSize int
	pending   []kafka.Message
	published int
}

func NewWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, ErrNoTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			slog.Error(fmt.Sprintf(msg, args...), "component", "kafka")
		}),
	}, nil
}

func NewPublisher(w MessageWriter, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Publisher{w: w, batchSize: batchSize}
}

// Key is the message key of b.
func Key(b *shape.Bundle) string {
	return string(b.Kind) + "/" + strconv.FormatInt(b.EntityID(), 10)
}

func (p *Publisher) Write(ctx context.Context, b *shape.Bundle) error {
	value, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	p.pending = append(p.pending, kafka.Message{
		Key:   []byte(Key(b)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(b.Kind)},
		},
	})
	if len(p.pending) >= p.batchSize {
		return p.Flush(ctx)
	}
	return nil
}

func (p *Publisher) Flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	if err := p.w.WriteMessages(ctx, p.pending...); err != nil {
		return fmt.Errorf("publish %d messages: %w", len(p.pending), err)
	}
	p.published += len(p.pending)
	p.pending = p.pending[:0]
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close(ctx context.Context) error {
	return errors.Join(p.Flush(ctx), p.w.Close())
}

// Published is the number of messages acknowledged so far.
func (p *Publisher) Published() int {
	return p.published
}
