package kafka

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/quant-options-lab/pkg/metrics"
	"github.com/rzzdr/quant-options-lab/pkg/models"
	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
	"github.com/rzzdr/quant-options-lab/pkg/utils/logger"
)

const (
	publishBackoff    = 100 * time.Millisecond
	maxPublishBackoff = 5 * time.Second
)

// Dispatcher runs a request envelope and returns its response
type Dispatcher interface {
	Dispatch(ctx context.Context, req models.Request) models.Response
}

// Engine answers requests from one topic with responses on another
type Engine struct {
	consumer   *Consumer
	producer   *Producer
	dispatcher Dispatcher
	recorder   *metrics.Recorder
	workers    int
	log        *logger.Logger
}

// NewEngine wires a consumer, a producer and a dispatcher. recorder may be nil.
func NewEngine(consumer *Consumer, producer *Producer, dispatcher Dispatcher, recorder *metrics.Recorder, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		consumer:   consumer,
		producer:   producer,
		dispatcher: dispatcher,
		recorder:   recorder,
		workers:    workers,
		log:        logger.GetLogger("kafka.engine"),
	}
}

// Run consumes with the configured number of workers until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	e.log.Infow("Pricing engine running",
		"request_topic", e.consumer.Topic(),
		"result_topic", e.producer.Topic(),
		"workers", e.workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			return e.consumer.ConsumeMessages(ctx, e.Handle)
		})
	}
	return g.Wait()
}

// Handle answers a single request message. Undecodable messages are answered
// with an invalid_argument response keyed by the message key. Publishing is
// retried until it succeeds, so an error means ctx ended first.
func (e *Engine) Handle(ctx context.Context, msg *Message) error {
	start := time.Now()
	resp := e.respond(ctx, msg)

	if err := e.publish(ctx, resp); err != nil {
		return err
	}

	e.log.Debugw("Request answered",
		"id", resp.ID,
		"operation", resp.Operation,
		"failed", resp.Error != nil,
		"latency", time.Since(start))
	return nil
}

func (e *Engine) publish(ctx context.Context, resp models.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		e.log.Errorw("Failed to encode response", "id", resp.ID, "error", err)
		failed := errors.Internal("failed to encode response: " + err.Error())
		data, err = json.Marshal(models.Response{
			ID:        resp.ID,
			Operation: resp.Operation,
			Error:     &models.ErrorBody{Type: errors.TypeOf(failed).String(), Message: failed.Error()},
			Timestamp: resp.Timestamp,
		})
		if err != nil {
			return err
		}
	}

	backoff := publishBackoff
	for {
		err := e.producer.ProduceMessage(ctx, []byte(resp.ID), data, nil)
		if e.recorder != nil {
			e.recorder.RecordKafkaMessage(e.producer.Topic(), "out", err)
		}
		if err == nil {
			return nil
		}

		e.log.Warnw("Publish failed, retrying", "id", resp.ID, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxPublishBackoff)
	}
}

func (e *Engine) respond(ctx context.Context, msg *Message) models.Response {
	var req models.Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		if e.recorder != nil {
			e.recorder.RecordKafkaMessage(msg.Topic, "in", err)
		}
		e.log.Warnw("Malformed request", "topic", msg.Topic, "offset", msg.Offset, "error", err)

		bad := errors.InvalidArgumentf("malformed request: %v", err)
		return models.Response{
			ID:        string(msg.Key),
			Error:     &models.ErrorBody{Type: errors.TypeOf(bad).String(), Message: bad.Error()},
			Timestamp: time.Now().UTC(),
		}
	}

	if e.recorder != nil {
		e.recorder.RecordKafkaMessage(msg.Topic, "in", nil)
	}
	if req.ID == "" {
		req.ID = string(msg.Key)
	}
	return e.dispatcher.Dispatch(ctx, req)
}
