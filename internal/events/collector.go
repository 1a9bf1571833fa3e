package events

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
)

// Publisher writes a batch of events to the broker. *kafka.Producer
// satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events in a channel and publishes them in batches from
// a single background goroutine. Track never blocks: when the buffer is full
// the event is dropped and counted.
type Collector struct {
	publisher     Publisher
	eventCh       chan AnalysisEvent
	batchSize     int
	flushInterval time.Duration
	dropped       atomic.Int64
	onDrop        func()
	logger        *slog.Logger
	done          chan struct{}
}

// NewCollector creates a Collector. onDrop may be nil.
func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration, onDrop func()) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan AnalysisEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		onDrop:        onDrop,
		logger:        logger.WithComponent("events-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It stops when ctx is cancelled or Close
// is called, flushing whatever is buffered first.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.publish(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					c.publish(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.publish(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				batch = c.drainInto(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.publish(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("events collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues an event.
func (c *Collector) Track(event AnalysisEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		if c.onDrop != nil {
			c.onDrop()
		}
		c.logger.Warn("analysis event dropped (buffer full)")
	}
}

// Dropped returns the number of events dropped so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainInto(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analysis events", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("analysis events published", "count", len(batch))
}

func toKafka(event AnalysisEvent) kafka.Event {
	if event.RequestID == "" {
		return kafka.Event{Key: string(event.Type), Value: event}
	}
	return kafka.Event{
		Key:     event.RequestID,
		Value:   event,
		Headers: map[string]string{kafka.RequestIDHeader: event.RequestID},
	}
}
