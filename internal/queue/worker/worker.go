// Package worker delivers subscription receipts off the request path.
// Purchases enqueue a receipt; a fixed pool of goroutines sends them with
// retries. The queue is in-process and bounded: a full queue drops the receipt
// rather than blocking the purchase.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/waktsa/elearning/internal/notifications"
	"github.com/waktsa/elearning/internal/observability"
)

var (
	ErrQueueFull = errors.New("receipt queue full")
	ErrStopped   = errors.New("receipt worker stopped")
)

type Config struct {
	Concurrency int
	QueueSize   int
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// Metrics receives delivery outcomes; result is done|retry|failed.
type Metrics interface {
	ObserveReceipt(result string, d time.Duration)
	ReceiptsInFlight(delta float64)
}

type Worker struct {
	cfg      Config
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  Metrics
	stats    *observability.ReceiptStats

	queue chan notifications.Receipt
	wg    sync.WaitGroup

	readyMu sync.RWMutex
	ready   bool
	stopped bool
}

func New(cfg Config, notifier notifications.Notifier, log *slog.Logger, metrics Metrics) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:      cfg,
		notifier: notifier,
		log:      log,
		metrics:  metrics,
		stats:    observability.NewReceiptStats(),
		queue:    make(chan notifications.Receipt, cfg.QueueSize),
	}
}

// Start launches the delivery goroutines. They exit when ctx is cancelled or
// Stop has drained the queue.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.Concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}

	w.setReady(true)
	w.log.Info("receipt_worker_started", "concurrency", w.cfg.Concurrency, "queue_size", w.cfg.QueueSize)
}

func (w *Worker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-w.queue:
			if !ok {
				return
			}
			w.deliver(ctx, id, r)
		}
	}
}

// Enqueue never blocks.
func (w *Worker) Enqueue(r notifications.Receipt) error {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()

	if w.stopped {
		return ErrStopped
	}

	select {
	case w.queue <- r:
		w.stats.IncQueued()
		return nil
	default:
		w.stats.IncDropped()
		return ErrQueueFull
	}
}

// Stop refuses new receipts and waits for queued ones to be delivered, or for
// ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.readyMu.Lock()
	if !w.stopped {
		w.stopped = true
		w.ready = false
		close(w.queue)
	}
	w.readyMu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info("receipt_worker_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) Ready() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

func (w *Worker) Stats() observability.ReceiptStatsSnapshot {
	return w.stats.Snapshot()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v && !w.stopped
	w.readyMu.Unlock()
}
