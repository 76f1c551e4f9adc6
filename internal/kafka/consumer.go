package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

// fetchBackoff is how long the consumer waits after a failed fetch
const fetchBackoff = 500 * time.Millisecond

// MessageHandler processes one consumed message. A non-nil error leaves the
// message uncommitted, and with it every later message of its partition.
type MessageHandler func(ctx context.Context, msg *Message) error

// messageReader is the part of *kafka.Reader the consumer needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a single topic as part of a consumer group
type Consumer struct {
	reader messageReader
	topic  string
	log    *logger.Logger

	fetchMu sync.Mutex
	offsets offsetTracker
}

func newConsumer(r messageReader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		topic:   topic,
		log:     log,
		offsets: offsetTracker{pending: make(map[int][]*pendingMessage)},
	}
}

// Topic returns the topic the consumer reads from
func (c *Consumer) Topic() string {
	return c.topic
}

// ConsumeMessage blocks until a message is available or ctx is done
func (c *Consumer) ConsumeMessage(ctx context.Context) (*Message, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	return fromKafka(m), nil
}

// Commit marks msg as processed
func (c *Consumer) Commit(ctx context.Context, msg *Message) error {
	return c.reader.CommitMessages(ctx, msg.raw)
}

// ConsumeMessages passes every message to handler until ctx is done or the
// reader is closed. Fetch errors are logged and retried after a short pause.
// It is safe to call from several goroutines at once: offsets of a partition
// are committed in order, and only up to the first message still unhandled.
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	c.log.Infof("Starting consumer for topic: %s", c.topic)

	for {
		msg, pending, err := c.fetch(ctx)
		switch {
		case ctx.Err() != nil:
			c.log.Infof("Context cancelled, stopping consumer for topic: %s", c.topic)
			return nil
		case errors.Is(err, io.EOF):
			c.log.Infof("Consumer closed for topic: %s", c.topic)
			return nil
		case err != nil:
			c.log.Errorw("Error fetching message", "topic", c.topic, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.log.Errorw("Error processing message, offset left uncommitted",
				"topic", c.topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}

		if err := c.complete(ctx, pending); err != nil && ctx.Err() == nil {
			c.log.Errorw("Error committing offset", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
	}
}

// fetch reads the next message and registers it with the tracker in fetch
// order
func (c *Consumer) fetch(ctx context.Context) (*Message, *pendingMessage, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	msg, err := c.ConsumeMessage(ctx)
	if err != nil {
		return nil, nil, err
	}
	return msg, c.offsets.track(msg), nil
}

// complete marks p handled and commits the longest handled prefix of its
// partition
func (c *Consumer) complete(ctx context.Context, p *pendingMessage) error {
	c.offsets.mu.Lock()
	defer c.offsets.mu.Unlock()

	last := c.offsets.done(p)
	if last == nil {
		return nil
	}
	return c.Commit(ctx, last)
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// offsetTracker holds fetched messages per partition until they and every
// message before them have been handled
type offsetTracker struct {
	mu      sync.Mutex
	pending map[int][]*pendingMessage
}

type pendingMessage struct {
	msg     *Message
	handled bool
}

func (t *offsetTracker) track(msg *Message) *pendingMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &pendingMessage{msg: msg}
	t.pending[msg.Partition] = append(t.pending[msg.Partition], p)
	return p
}

// done must be called with mu held. It returns the last message of the
// handled prefix, or nil when an earlier message is still outstanding.
func (t *offsetTracker) done(p *pendingMessage) *Message {
	p.handled = true

	queue := t.pending[p.msg.Partition]
	var last *Message
	for len(queue) > 0 && queue[0].handled {
		last = queue[0].msg
		queue = queue[1:]
	}
	t.pending[p.msg.Partition] = queue
	return last
}
