package emitter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/store"
)

// Config holds the configuration for the event emitter
type Config struct {
	// Sink names the cursor recording the last published event
	Sink string
	// BatchSize is the number of journal events read per query
	BatchSize int
	// QueueSize bounds the pending publish runs
	QueueSize int
	// RetryInitialInterval and RetryMaxElapsedTime shape the publish retry backoff
	RetryInitialInterval time.Duration
	RetryMaxElapsedTime  time.Duration
	// Metrics counts published events and failed runs; optional
	Metrics *metrics.Metrics
}

// Emitter defines the interface for the event emitter
//
//go:generate mockgen -source=emitter.go -destination=../mocks/emitter.go -package=mocks -mock_names=Emitter=MockEmitter
type Emitter interface {
	// Start publishes every journal event committed after the stored cursor
	Start(ctx context.Context) error
	// Notify schedules publishing of newly committed events
	Notify(ctx context.Context, events []domain.Event)
	// Close waits for pending publishing and closes the publisher
	Close()
}

// emitter publishes the event journal in commit order. Committed events are never
// handed to the broker directly: each run reads the journal after the cursor, so an
// event is published at least once even when the process stops between commit and
// publish. The broker drops duplicates by event id.
type emitter struct {
	publisher messaging.Publisher
	store     store.Store
	json      adapter.JSON
	config    Config

	ctx       context.Context
	cancel    context.CancelFunc
	pool      pond.Pool
	scheduled atomic.Bool
}

// NewEmitter creates a new event emitter
func NewEmitter(pub messaging.Publisher, st store.Store, jsonAdapter adapter.JSON, cfg Config) Emitter {
	if cfg.Sink == "" {
		cfg.Sink = "jetstream"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = store.DEFAULT_EVENTS_LIMIT
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.RetryMaxElapsedTime == 0 {
		cfg.RetryMaxElapsedTime = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	// A single worker keeps runs, and so events, in commit order
	pool := pond.NewPool(1,
		pond.WithContext(ctx),
		pond.WithQueueSize(cfg.QueueSize),
		pond.WithNonBlocking(true))

	return &emitter{
		publisher: pub,
		store:     st,
		json:      jsonAdapter,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		pool:      pool,
	}
}

// Start publishes the backlog left by a previous run
func (e *emitter) Start(ctx context.Context) error {
	cursor, err := e.store.GetEventCursor(ctx, e.config.Sink)
	if err != nil {
		return fmt.Errorf("failed to get event cursor: %w", err)
	}
	logger.InfoCtx(ctx, "Starting event emitter", zap.String("sink", e.config.Sink), zap.String("cursor", cursor))

	// runs on the pool worker so it never overlaps a run scheduled by Notify
	var published int
	err = e.pool.SubmitErr(func() error {
		var err error
		published, err = e.publishPending(ctx)
		return err
	}).Wait()
	if err != nil {
		return fmt.Errorf("failed to publish pending events: %w", err)
	}

	logger.InfoCtx(ctx, "Event backlog published", zap.Int("count", published))
	return nil
}

// Notify schedules a publish run unless one is already waiting
func (e *emitter) Notify(ctx context.Context, events []domain.Event) {
	if !e.scheduled.CompareAndSwap(false, true) {
		return
	}

	err := e.pool.Go(func() {
		e.scheduled.Store(false)
		if _, err := e.publishPending(e.ctx); err != nil {
			logger.ErrorCtx(e.ctx, err, zap.String("sink", e.config.Sink))
		}
	})
	if err != nil {
		// queue full or stopped; the next commit schedules a run again
		e.scheduled.Store(false)
		logger.WarnCtx(ctx, "Failed to schedule event publishing", zap.Error(err))
		return
	}

	logger.DebugCtx(ctx, "Event publishing scheduled", zap.Int("events", len(events)))
}

// publishPending publishes the journal after the cursor, advancing it event by event
func (e *emitter) publishPending(ctx context.Context) (int, error) {
	published := 0
	for {
		cursor, err := e.store.GetEventCursor(ctx, e.config.Sink)
		if err != nil {
			return published, fmt.Errorf("failed to get event cursor: %w", err)
		}

		rows, err := e.store.GetEventsAfter(ctx, cursor, e.config.BatchSize)
		if err != nil {
			return published, fmt.Errorf("failed to get events after %s: %w", cursor, err)
		}

		for _, row := range rows {
			var event domain.Event
			if err := e.json.Unmarshal(row.Payload, &event); err != nil {
				return published, fmt.Errorf("failed to unmarshal event %s: %w", row.EventID, err)
			}

			if err := e.publishWithRetry(ctx, &event); err != nil {
				e.config.Metrics.PublishFailed(e.config.Sink)
				return published, err
			}
			e.config.Metrics.EventPublished(e.config.Sink)
			if err := e.store.SetEventCursor(ctx, e.config.Sink, row.EventID); err != nil {
				return published, fmt.Errorf("failed to set event cursor: %w", err)
			}
			published++
		}

		if len(rows) < e.config.BatchSize {
			return published, nil
		}
	}
}

// publishWithRetry publishes one event with exponential backoff
func (e *emitter) publishWithRetry(ctx context.Context, event *domain.Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.RetryInitialInterval
	b.MaxElapsedTime = e.config.RetryMaxElapsedTime

	operation := func() error {
		err := e.publisher.PublishEvent(ctx, event)
		if err != nil {
			logger.WarnCtx(ctx, "Failed to publish event, retrying", zap.String("id", event.ID), zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	return nil
}

// Close waits for pending publishing and closes the publisher
func (e *emitter) Close() {
	logger.Info("Stopping event emitter",
		zap.Uint64("submitted", e.pool.SubmittedTasks()),
		zap.Uint64("waiting", e.pool.WaitingTasks()),
		zap.Uint64("failed", e.pool.FailedTasks()))

	e.pool.StopAndWait()
	e.cancel()
	e.publisher.Close()
}
