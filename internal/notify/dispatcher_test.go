package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu       sync.Mutex
	failures int // number of leading calls that fail
	calls    int
	sent     []Message
	block    chan struct{}
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) snapshot() (int, []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]Message(nil), f.sent...)
}

func newMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry(prometheus.NewRegistry())
}

func TestDispatcher_DeliversMessage(t *testing.T) {
	mailer := &fakeMailer{}
	m := newMetrics()
	d := NewDispatcher(mailer, DispatcherOptions{Metrics: m, BaseBackoff: time.Millisecond})

	require.True(t, d.Enqueue(WelcomeMessage("alice@x.com", "")))
	require.NoError(t, d.Stop(context.Background()))

	_, sent := mailer.snapshot()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@x.com", sent[0].To)
	assert.Equal(t, "Welcome", sent[0].Subject)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	mailer := &fakeMailer{failures: 2}
	d := NewDispatcher(mailer, DispatcherOptions{MaxRetries: 3, BaseBackoff: time.Millisecond})

	d.Enqueue(WelcomeMessage("bob@x.com", ""))
	require.NoError(t, d.Stop(context.Background()))

	calls, sent := mailer.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, sent, 1)
}

func TestDispatcher_GivesUpAndReportsFailure(t *testing.T) {
	mailer := &fakeMailer{failures: 100}
	m := newMetrics()

	var mu sync.Mutex
	var failed []string
	d := NewDispatcher(mailer, DispatcherOptions{
		MaxRetries:  2,
		BaseBackoff: time.Millisecond,
		Metrics:     m,
		OnFailure: func(msg Message, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, msg.To)
		},
	})

	d.Enqueue(WelcomeMessage("carol@x.com", ""))
	require.NoError(t, d.Stop(context.Background()))

	calls, sent := mailer.snapshot()
	assert.Equal(t, 3, calls, "one attempt plus two retries")
	assert.Empty(t, sent)
	assert.Equal(t, []string{"carol@x.com"}, failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	m := newMetrics()
	d := NewDispatcher(mailer, DispatcherOptions{Workers: 1, QueueSize: 1, Metrics: m})

	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Enqueue(WelcomeMessage("x@x.com", "")) {
			accepted++
		}
	}
	// one message is held by the worker, one sits in the queue
	assert.LessOrEqual(t, accepted, 2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")), 3.0)

	close(mailer.block)
	require.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_StopTimesOutAndCancels(t *testing.T) {
	mailer := &fakeMailer{block: make(chan struct{})}
	d := NewDispatcher(mailer, DispatcherOptions{Workers: 1, Timeout: time.Minute})
	d.Enqueue(WelcomeMessage("slow@x.com", ""))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(&fakeMailer{}, DispatcherOptions{})
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Stop(context.Background()))

	assert.False(t, d.Enqueue(WelcomeMessage("late@x.com", "")))
}

func TestWelcomeMessage_EmbedsAttachment(t *testing.T) {
	msg := WelcomeMessage("a@x.com", "/assets/logo.jpg")
	assert.Contains(t, msg.HTMLBody, `cid:logo.jpg`)
	assert.Equal(t, "/assets/logo.jpg", msg.Attachment)

	plain := WelcomeMessage("a@x.com", "")
	assert.NotContains(t, plain.HTMLBody, "<img")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), WelcomeMessage("a@x.com", "")))
}
