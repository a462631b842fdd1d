// Package stream wraps segmentio/kafka-go with the low-latency
// producer settings spec.md 4.6 requires: no linger, batch size of 1,
// leader-only acknowledgement, no compression, no idempotence.
package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Publisher is the process-wide stream producer. One instance is
// shared by the process and is internally thread-safe (spec.md 5
// "Shared resources"); connection state is lazily initialized per
// topic the first time it is published to.
type Publisher struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// New constructs a Publisher over the given broker list. No network
// connection is made until the first Publish call for a topic.
func New(brokers []string) *Publisher {
	return &Publisher{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// Publish implements the contract in spec.md 4.6: publish(topic, key,
// value) with headers for consumer-side filtering. Publish blocks until
// the write completes; the alert dispatcher gets fire-and-forget
// semantics for severity=critical by calling it from its own goroutine.
func (p *Publisher) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	w := p.writerFor(topic)
	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: toKafkaHeaders(headers),
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("stream: publish to topic %q: %w", topic, err)
	}
	return nil
}

func (p *Publisher) writerFor(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		BatchSize:    1,
		BatchTimeout: 0,
		RequiredAcks: kafka.RequireOne,
		Compression:  0,
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// Close flushes and closes every writer the publisher has opened,
// disconnecting process-wide producer state on process exit.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stream: close writer for topic %q: %w", topic, err)
		}
	}
	return firstErr
}
