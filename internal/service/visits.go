package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/models"
	"github.com/Siddarth2230/qrlinks/pkg/metrics"
)

const (
	DefaultVisitWorkers   = 4
	DefaultVisitQueueSize = 1024
	DefaultVisitTimeout   = 5 * time.Second
)

// VisitSink applies a single visit increment.
type VisitSink interface {
	RecordVisit(ctx context.Context, code string) (*models.ShortLink, error)
}

// VisitRecorder applies visit increments off the request path. Visits are
// never dropped: when the queue is full the increment runs on its own
// goroutine instead.
type VisitRecorder struct {
	sink    VisitSink
	queue   chan string
	timeout time.Duration

	mu       sync.RWMutex
	closed   bool
	workers  sync.WaitGroup
	overflow sync.WaitGroup
}

func NewVisitRecorder(sink VisitSink, workers, queueSize int, timeout time.Duration) *VisitRecorder {
	if workers <= 0 {
		workers = DefaultVisitWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultVisitQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultVisitTimeout
	}

	v := &VisitRecorder{
		sink:    sink,
		queue:   make(chan string, queueSize),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		v.workers.Add(1)
		go v.worker()
	}
	return v
}

// Enqueue schedules one visit for code. It never blocks on storage.
func (v *VisitRecorder) Enqueue(code string) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		go v.record(code)
		return
	}

	select {
	case v.queue <- code:
		metrics.VisitQueueDepth.Inc()
	default:
		metrics.VisitQueueOverflow.Inc()
		v.overflow.Add(1)
		go func() {
			defer v.overflow.Done()
			v.record(code)
		}()
	}
}

// Close stops accepting queued work and waits for pending visits, or for
// ctx to expire.
func (v *VisitRecorder) Close(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	close(v.queue)
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		v.workers.Wait()
		v.overflow.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		log.Warn().Int("pending", len(v.queue)).Msg("visit recorder closed before draining")
		return ctx.Err()
	}
}

func (v *VisitRecorder) worker() {
	defer v.workers.Done()
	for code := range v.queue {
		metrics.VisitQueueDepth.Dec()
		v.record(code)
	}
}

// record runs detached from any request context so a finished redirect
// cannot cancel its own increment.
func (v *VisitRecorder) record(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	_, err := v.sink.RecordVisit(ctx, code)
	switch {
	case err == nil:
		metrics.VisitsRecorded.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrNotFound):
		// deleted between lookup and increment
		metrics.VisitsRecorded.WithLabelValues("not_found").Inc()
		log.Debug().Str("short_code", code).Msg("visit for missing link ignored")
	default:
		metrics.VisitsRecorded.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("short_code", code).Msg("failed to record visit")
	}
}
