package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-options-lab/pkg/utils/circuit"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// Config holds the connection options shared by producers and consumers
type Config struct {
	Brokers        []string
	GroupID        string
	BatchTimeout   time.Duration
	SessionTimeout time.Duration
	CommitInterval time.Duration
	MaxBytes       int

	// BreakerFailures consecutive publish failures open the producer's
	// circuit for BreakerTimeout
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Message represents a Kafka message
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   []MessageHeader

	raw kafka.Message
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// DefaultConfig returns a configuration for a local single broker
func DefaultConfig() *Config {
	return &Config{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "pricing-engine",
		BatchTimeout:   10 * time.Millisecond,
		SessionTimeout: 30 * time.Second,
		CommitInterval: time.Second,
		MaxBytes:       10e6,

		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Client builds readers and writers against one cluster
type Client struct {
	config *Config
	log    *logger.Logger
}

// NewClient creates a new Kafka client. A nil config means DefaultConfig.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	return &Client{
		config: config,
		log:    logger.GetLogger("kafka.client"),
	}, nil
}

// NewProducer creates a producer that writes to topic, partitioning by key
func (c *Client) NewProducer(topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           c.config.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	p := newProducer(w, topic, c.log)
	p.breaker = circuit.NewCircuitBreaker("kafka.producer."+topic, circuit.Config{
		MaxFailures: c.config.BreakerFailures,
		Timeout:     c.config.BreakerTimeout,
	})

	c.log.Infow("Kafka producer created", "brokers", c.config.Brokers, "topic", topic)
	return p
}

// NewConsumer creates a group consumer for topic. An empty groupID uses the
// client's configured group.
func (c *Client) NewConsumer(topic, groupID string) *Consumer {
	if groupID == "" {
		groupID = c.config.GroupID
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        groupID,
		Topic:          topic,
		SessionTimeout: c.config.SessionTimeout,
		CommitInterval: c.config.CommitInterval,
		StartOffset:    kafka.FirstOffset,
		MaxBytes:       c.config.MaxBytes,
	})

	c.log.Infow("Kafka consumer created", "brokers", c.config.Brokers, "topic", topic, "group_id", groupID)
	return newConsumer(r, topic, c.log)
}

func fromKafka(m kafka.Message) *Message {
	msg := &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
		raw:       m,
	}
	for _, h := range m.Headers {
		msg.Headers = append(msg.Headers, MessageHeader{Key: h.Key, Value: h.Value})
	}
	return msg
}

func toKafkaHeaders(headers []MessageHeader) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, len(headers))
	for i, h := range headers {
		out[i] = kafka.Header{Key: h.Key, Value: h.Value}
	}
	return out
}
