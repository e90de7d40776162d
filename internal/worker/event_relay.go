package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Enqueue when the in-memory queue has no room.
var ErrQueueFull = errors.New("event relay queue is full")

// Sender delivers one event to the downstream broker.
type Sender interface {
	Send(ctx context.Context, event *events.Event) error
}

// deadLetter is the JSON record stored for an event that could not be delivered.
type deadLetter struct {
	ID        string          `json:"id"`
	Key       string          `json:"key,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error"`
	FailedAt  time.Time       `json:"failed_at"`
}

// EventRelay consumes bus events and forwards them through a Sender with retries.
type EventRelay struct {
	sender        Sender
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan *events.Event
	deadLetterKey string
	logger        *zerolog.Logger
	wait          func(ctx context.Context, d time.Duration) bool
}

// NewEventRelay builds a relay with sane defaults. redisClient may be nil, in which case
// undeliverable events are only logged.
func NewEventRelay(sender Sender, redisClient *redis.Client, retry RetryPolicy, queueSize int, deadLetterKey string, logger *zerolog.Logger) *EventRelay {
	if queueSize <= 0 {
		queueSize = models.EventQueueSize
	}
	if deadLetterKey == "" {
		deadLetterKey = "shareit:events:deadletter"
	}

	return &EventRelay{
		sender:        sender,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan *events.Event, queueSize),
		deadLetterKey: deadLetterKey,
		logger:        logger,
		wait:          sleepContext,
	}
}

// Attach subscribes the relay to every event type it forwards.
func (r *EventRelay) Attach(bus *events.EventBus) {
	types := append([]string{}, events.BookingEventTypes...)
	types = append(types, events.EventCommentAdded)
	for _, t := range types {
		bus.Subscribe(t, r.Enqueue)
	}
}

// Enqueue schedules a copy of the event without blocking the publisher.
func (r *EventRelay) Enqueue(event *events.Event) error {
	copied := *event
	select {
	case r.queue <- &copied:
		return nil
	default:
		r.logger.Warn().Str("event_id", event.ID).Str("event_type", event.Type).Msg("Event relay queue full")
		r.pushDeadLetter(context.Background(), &copied, ErrQueueFull)
		metrics.IncEventRelayed("dropped")
		return ErrQueueFull
	}
}

// Start runs the relay loop until ctx is done. Events still queued at that
// point are moved to the dead letter list.
func (r *EventRelay) Start(ctx context.Context) {
	r.logger.Info().Msg("Event relay started")
	defer r.logger.Info().Msg("Event relay stopped")

	for {
		select {
		case <-ctx.Done():
			r.drain(ctx, nil)
			return
		case event := <-r.queue:
			if ctx.Err() != nil {
				r.drain(ctx, event)
				return
			}
			r.process(ctx, event)
		}
	}
}

// drain dead-letters pending (if any) and everything left in the queue.
func (r *EventRelay) drain(ctx context.Context, pending *events.Event) {
	drained := 0
	if pending != nil {
		r.pushDeadLetter(ctx, pending, ctx.Err())
		metrics.IncEventRelayed("dead_letter")
		drained++
	}
	for {
		select {
		case event := <-r.queue:
			r.pushDeadLetter(ctx, event, ctx.Err())
			metrics.IncEventRelayed("dead_letter")
			drained++
		default:
			if drained > 0 {
				r.logger.Warn().Int("events", drained).Msg("Queued events moved to dead letter on shutdown")
			}
			return
		}
	}
}

func (r *EventRelay) process(ctx context.Context, event *events.Event) {
	for {
		err := r.sender.Send(ctx, event)
		if err == nil {
			metrics.IncEventRelayed("sent")
			return
		}

		event.Attempts++
		if r.retryPolicy.Exhausted(event.Attempts) {
			r.logger.Error().Err(err).Str("event_id", event.ID).Int("attempts", event.Attempts).Msg("Event delivery failed")
			r.pushDeadLetter(ctx, event, err)
			metrics.IncEventRelayed("dead_letter")
			return
		}

		delay := r.retryPolicy.NextDelay(event.Attempts)
		r.logger.Warn().Err(err).Str("event_id", event.ID).Dur("retry_in", delay).Msg("Event delivery failed, retrying")
		metrics.IncEventRelayed("retry")

		if !r.wait(ctx, delay) {
			r.pushDeadLetter(ctx, event, ctx.Err())
			metrics.IncEventRelayed("dead_letter")
			return
		}
	}
}

func (r *EventRelay) pushDeadLetter(ctx context.Context, event *events.Event, cause error) {
	if r.redis == nil {
		return
	}

	record := deadLetter{
		ID:        event.ID,
		Key:       event.Key,
		Type:      event.Type,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt,
		Attempts:  event.Attempts,
		FailedAt:  time.Now().UTC(),
	}
	if len(record.Payload) == 0 {
		record.Payload = json.RawMessage("null")
	}
	if cause != nil {
		record.Error = cause.Error()
	}

	data, err := json.Marshal(record)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to encode dead letter")
		return
	}

	// The relay may be stopping; the record still has to land.
	if err := r.redis.LPush(context.WithoutCancel(ctx), r.deadLetterKey, data).Err(); err != nil {
		r.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to push dead letter")
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
