package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/prn-tf/socrp-membership/internal/metrics"
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Workers is the number of concurrent deliveries.
	Workers int

	// Size is the channel capacity. Enqueue fails fast when it is exhausted.
	Size int

	// MaxRetries is the number of additional attempts after the first failure.
	MaxRetries int

	// BaseDelay is the first exponential backoff interval.
	BaseDelay time.Duration
}

// DefaultQueueConfig returns sensible defaults.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:    2,
		Size:       256,
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
	}
}

// Queue is a bounded in-process delivery queue with retrying workers.
type Queue struct {
	sender  Sender
	config  QueueConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	ch      chan Message
	wg      sync.WaitGroup

	// ctx bounds in-flight deliveries; cancelled when Close gives up draining.
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Notifier = (*Queue)(nil)

// NewQueue creates a Queue. Call Start before enqueueing.
func NewQueue(sender Sender, config QueueConfig, m *metrics.Metrics, logger zerolog.Logger) *Queue {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Size <= 0 {
		config.Size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		sender:  sender,
		config:  config,
		metrics: m,
		logger:  logger.With().Str("component", "notify_queue").Logger(),
		ch:      make(chan Message, config.Size),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info().
		Int("workers", q.config.Workers).
		Int("size", q.config.Size).
		Int("max_retries", q.config.MaxRetries).
		Msg("Notification queue started")
}

// Enqueue implements Notifier. It never blocks.
func (q *Queue) Enqueue(_ context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- msg:
		if q.metrics != nil {
			q.metrics.NotifyQueueDepth.Set(float64(len(q.ch)))
		}
		return nil
	default:
		if q.metrics != nil {
			q.metrics.RecordNotification("dropped")
		}
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
// When ctx expires first, in-flight deliveries are cancelled and ctx.Err is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	started := q.started
	q.mu.Unlock()

	if !started {
		q.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Info().Msg("Notification queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger := q.logger.With().Int("worker", id).Logger()

	for msg := range q.ch {
		if q.metrics != nil {
			q.metrics.NotifyQueueDepth.Set(float64(len(q.ch)))
		}
		q.deliver(logger, msg)
	}
}

func (q *Queue) deliver(logger zerolog.Logger, msg Message) {
	backoff := retry.WithMaxRetries(uint64(q.config.MaxRetries), retry.NewExponential(q.config.BaseDelay))

	attempt := 0
	err := retry.Do(q.ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := q.sender.Send(ctx, msg); err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Str("to", msg.To).Msg("notification delivery failed")
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		logger.Error().Err(err).Int("attempts", attempt).Str("to", msg.To).Str("subject", msg.Subject).Msg("notification abandoned")
		if q.metrics != nil {
			q.metrics.RecordNotification("failed")
		}
		return
	}

	logger.Debug().Int("attempts", attempt).Str("to", msg.To).Msg("notification delivered")
	if q.metrics != nil {
		q.metrics.RecordNotification("sent")
	}
}
