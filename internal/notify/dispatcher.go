package notify

import (
	"context"
	"sync"
	"time"

	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

// DispatcherOptions tunes delivery. Zero values select the defaults.
type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	Timeout     time.Duration // per attempt
	MaxRetries  uint64
	BaseBackoff time.Duration
	Metrics     *metrics.Metrics
	// OnFailure is called once a message has exhausted its retries.
	OnFailure func(msg Message, err error)
}

// Dispatcher delivers messages asynchronously through a bounded queue.
// Enqueue never blocks the caller; a full queue drops the message.
type Dispatcher struct {
	mailer Mailer
	opts   DispatcherOptions
	jobs   chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher and starts its workers.
func NewDispatcher(mailer Mailer, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		mailer: mailer,
		opts:   opts,
		jobs:   make(chan Message, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Enqueue schedules msg for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn().Str("to", msg.To).Msg("Notification dispatcher stopped, dropping message")
		d.count("dropped")
		return false
	}
	select {
	case d.jobs <- msg:
		return true
	default:
		log.Warn().Str("to", msg.To).Msg("Notification queue full, dropping message")
		d.count("dropped")
		return false
	}
}

// Stop stops accepting messages and waits for queued ones to finish.
// When ctx expires first, in-flight deliveries are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.jobs {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	backoff := retry.WithMaxRetries(d.opts.MaxRetries, retry.NewExponential(d.opts.BaseBackoff))

	attempt := 0
	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()

		if err := d.mailer.Send(attemptCtx, msg); err != nil {
			log.Warn().Err(err).Str("to", msg.To).Int("attempt", attempt).Msg("Notification attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Error sending notification")
		d.count("failed")
		if d.opts.OnFailure != nil {
			d.opts.OnFailure(msg, err)
		}
		return
	}

	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Notification sent")
	d.count("sent")
}

func (d *Dispatcher) count(outcome string) {
	if d.opts.Metrics != nil {
		d.opts.Metrics.Notifications.WithLabelValues(outcome).Inc()
	}
}
