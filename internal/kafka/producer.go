package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-options-lab/pkg/utils/circuit"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// messageWriter is the part of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to a single topic. With a breaker set, writes
// fail fast while the brokers keep rejecting them.
type Producer struct {
	writer  messageWriter
	topic   string
	breaker *circuit.CircuitBreaker
	log     *logger.Logger
}

func newProducer(w messageWriter, topic string, log *logger.Logger) *Producer {
	return &Producer{writer: w, topic: topic, log: log}
}

// Topic returns the topic the producer writes to
func (p *Producer) Topic() string {
	return p.topic
}

// ProduceMessage writes one message and waits for the broker to acknowledge it
func (p *Producer) ProduceMessage(ctx context.Context, key, value []byte, headers []MessageHeader) error {
	msg := kafka.Message{
		Key:     key,
		Value:   value,
		Headers: toKafkaHeaders(headers),
	}

	write := func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, msg)
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		p.log.Errorw("Failed to produce message", "topic", p.topic, "key", string(key), "error", err)
		return fmt.Errorf("failed to produce message: %w", err)
	}

	p.log.Debugw("Message produced", "topic", p.topic, "key", string(key))
	return nil
}

// ProduceJSON produces a JSON-serialized message to the topic
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.ProduceMessage(ctx, key, data, headers)
}

// Close flushes pending writes and closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
