package analytics

import (
	"context"
	"log/slog"

	"github.com/bibliograph/bibliograph/pkg/kafka"
)

// maxPublishBatch caps how many buffered events are folded into a single
// broker write.
const maxPublishBatch = 64

// Collector buffers query events and publishes them to Kafka off the
// request path. Bursts are written as one batch. Events are dropped, with
// a warning, when the buffer is full; a slow broker must not stall
// searches.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan QueryEvent
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector publishing through producer.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan QueryEvent, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publishing loop. It runs until ctx is cancelled or
// Close is called, draining buffered events on the way out.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.flush(ctx, c.gather(event))
			case <-ctx.Done():
				c.flush(context.Background(), c.remaining())
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking.
func (c *Collector) Track(event QueryEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped", "mode", event.Mode)
	}
}

// Close stops the loop after the buffered events are published.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// gather pulls whatever else is already buffered behind first, up to the
// batch cap, without blocking.
func (c *Collector) gather(first QueryEvent) []QueryEvent {
	events := append(make([]QueryEvent, 0, 8), first)
	for len(events) < maxPublishBatch {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
	return events
}

// remaining empties the buffer during shutdown.
func (c *Collector) remaining() []QueryEvent {
	var events []QueryEvent
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func (c *Collector) flush(ctx context.Context, events []QueryEvent) {
	if len(events) == 0 {
		return
	}
	batch := make([]kafka.Event, len(events))
	for i, event := range events {
		batch[i] = kafka.Event{Key: event.Mode, Value: event}
	}
	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish query events", "count", len(batch), "error", err)
	}
}
