package mediahost

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Removal identifies an asset that should be removed from the host.
type Removal struct {
	PublicID string
	Kind     Kind
}

// CleanerOptions tunes a Cleaner. Zero values fall back to defaults.
type CleanerOptions struct {
	Workers         int
	QueueSize       int
	MaxRetries      uint64
	InitialInterval time.Duration
}

// Cleaner removes assets in the background. Failures are logged and
// dropped once the retry budget is spent; callers never see them.
type Cleaner struct {
	host   Host
	logger *slog.Logger
	opts   CleanerOptions

	queue  chan Removal
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewCleaner starts opts.Workers goroutines draining the removal queue.
func NewCleaner(host Host, logger *slog.Logger, opts CleanerOptions) *Cleaner {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 5
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cleaner{
		host:   host,
		logger: logger,
		opts:   opts,
		queue:  make(chan Removal, opts.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < opts.Workers; i++ {
		c.wg.Add(1)
		go c.work()
	}
	return c
}

// Enqueue schedules a removal without blocking. It returns false when the
// queue is full or the cleaner is closed.
func (c *Cleaner) Enqueue(r Removal) bool {
	if r.PublicID == "" {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}

	select {
	case c.queue <- r:
		return true
	default:
		c.logger.Warn("media cleanup queue full, dropping removal", "public_id", r.PublicID, "kind", r.Kind)
		return false
	}
}

// Close stops accepting removals and waits for queued ones to finish. If ctx
// expires first, in-flight retries are abandoned and ctx.Err is returned.
func (c *Cleaner) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.cancel()
		return nil
	case <-ctx.Done():
		c.cancel()
		<-done
		return ctx.Err()
	}
}

func (c *Cleaner) work() {
	defer c.wg.Done()
	for r := range c.queue {
		c.remove(r)
	}
}

func (c *Cleaner) remove(r Removal) {
	attempts := 0
	operation := func() error {
		attempts++
		return c.host.Remove(c.ctx, r.PublicID, r.Kind)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.opts.MaxRetries), c.ctx))
	if err != nil {
		c.logger.Error("failed to remove media asset", "public_id", r.PublicID, "kind", r.Kind, "attempts", attempts, "error", err)
		return
	}
	c.logger.Debug("removed media asset", "public_id", r.PublicID, "kind", r.Kind, "attempts", attempts)
}
