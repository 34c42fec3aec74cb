package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/metrics"
	"github.com/prn-tf/socrp-membership/internal/repository"
)

const accessLogWriteTimeout = 5 * time.Second

// AccessRecorder appends share link access entries. Record must not block
// the caller for long and must not fail the view it belongs to.
type AccessRecorder interface {
	Record(access *domain.ShareLinkAccess)
}

// AsyncAccessLog buffers access entries and writes them from a single worker.
// When the buffer is full, entries are dropped and counted.
type AsyncAccessLog struct {
	links   repository.ShareLinkRepository
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan *domain.ShareLinkAccess
	done   chan struct{}
}

var _ AccessRecorder = (*AsyncAccessLog)(nil)

// NewAsyncAccessLog creates the log and starts its worker.
func NewAsyncAccessLog(links repository.ShareLinkRepository, buffer int, m *metrics.Metrics, logger zerolog.Logger) *AsyncAccessLog {
	if buffer <= 0 {
		buffer = 1
	}
	l := &AsyncAccessLog{
		links:   links,
		metrics: m,
		logger:  logger.With().Str("component", "share_access_log").Logger(),
		ch:      make(chan *domain.ShareLinkAccess, buffer),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Record implements AccessRecorder.
func (l *AsyncAccessLog) Record(access *domain.ShareLinkAccess) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	select {
	case l.ch <- access:
	default:
		l.logger.Warn().Str("share_link_id", access.ShareLinkID).Msg("access log buffer full, entry dropped")
		if l.metrics != nil {
			l.metrics.ShareAccessLogDropped.Inc()
		}
	}
}

// Close stops accepting entries and waits until buffered ones are written.
func (l *AsyncAccessLog) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *AsyncAccessLog) run() {
	defer close(l.done)

	for access := range l.ch {
		ctx, cancel := context.WithTimeout(context.Background(), accessLogWriteTimeout)
		if err := l.links.RecordAccess(ctx, access); err != nil {
			l.logger.Error().Err(err).Str("share_link_id", access.ShareLinkID).Msg("failed to record share link access")
		}
		cancel()
	}
}
