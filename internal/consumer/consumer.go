package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"login-guard/internal/bucketing"
	"login-guard/internal/metrics"
	"login-guard/internal/models"
	"login-guard/internal/service"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Processor interface {
	OnEvent(ctx context.Context, event *models.AuthEvent) service.Outcome
	OnAdminEvent(ctx context.Context, event *models.AdminEvent, includeRepresentation bool) service.Outcome
}

// Consumer reads identity provider events and fans them out to a fixed set
// of workers. The worker is picked from the user id, so one user's events
// are processed in arrival order while other users proceed in parallel.
type Consumer struct {
	reader    MessageReader
	processor Processor
	buckets   *bucketing.BucketingManager
	queueSize int
	logger    *zap.Logger
}

func New(reader MessageReader, processor Processor, workers int, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:    reader,
		processor: processor,
		buckets:   bucketing.NewBucketingManager(workers),
		queueSize: 64,
		logger:    logger.Named("consumer"),
	}
}

// Run blocks until ctx is cancelled or the reader is closed. Workers drain
// their queues before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	queues := make([]chan job, c.buckets.Buckets())
	for i := range queues {
		queues[i] = make(chan job, c.queueSize)
	}

	g, gctx := errgroup.WithContext(ctx)

	for i, q := range queues {
		worker, queue := i, q
		g.Go(func() error {
			for j := range queue {
				c.handle(gctx, worker, j)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		return c.readLoop(gctx, queues)
	})

	c.logger.Info("Consumer started", zap.Int("workers", len(queues)))
	err := g.Wait()
	c.logger.Info("Consumer stopped")
	return err
}

func (c *Consumer) readLoop(ctx context.Context, queues []chan job) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		j, err := decode(msg.Value)
		if err != nil {
			metrics.KafkaMessages.WithLabelValues("malformed").Inc()
			c.logger.Warn("Skipping malformed message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		queue := queues[c.buckets.Bucket(j.shardKey())]
		select {
		case queue <- j:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle keeps a panic in one event from taking the worker down.
func (c *Consumer) handle(ctx context.Context, worker int, j job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.KafkaMessages.WithLabelValues("panic").Inc()
			c.logger.Error("Recovered from panic while processing event",
				zap.Int("worker", worker),
				zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	// the pipeline bounds each event; a shutdown should not cut one short
	ctx = context.WithoutCancel(ctx)

	var out service.Outcome
	if j.auth != nil {
		metrics.EventsReceived.WithLabelValues(KindEvent, "kafka").Inc()
		out = c.processor.OnEvent(ctx, j.auth)
	} else {
		metrics.EventsReceived.WithLabelValues(KindAdminEvent, "kafka").Inc()
		out = c.processor.OnAdminEvent(ctx, j.admin, j.includeRepresentation)
	}
	metrics.KafkaMessages.WithLabelValues("processed").Inc()

	if len(out.Failures) > 0 {
		c.logger.Debug("Event processed with failures",
			zap.Int("worker", worker),
			zap.Int("failures", len(out.Failures)))
	}
}
