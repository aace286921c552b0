package mediahost

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings tunes the circuit breaker placed in front of a Host.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// Breaker wraps a Host with two circuit breakers, one for uploads and one
// for removals, so failing background removals never block uploads. Once
// MaxFailures consecutive calls of one kind fail, calls of that kind fail
// fast with gobreaker.ErrOpenState until Timeout has passed.
type Breaker struct {
	next   Host
	upload *gobreaker.CircuitBreaker
	remove *gobreaker.CircuitBreaker
}

// NewBreaker wraps next. A zero MaxFailures defaults to five.
func NewBreaker(next Host, settings BreakerSettings, logger *slog.Logger) *Breaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Name == "" {
		settings.Name = "mediahost"
	}

	return &Breaker{
		next:   next,
		upload: newCircuitBreaker(settings.Name+"-upload", settings, logger),
		remove: newCircuitBreaker(settings.Name+"-remove", settings, logger),
	}
}

func newCircuitBreaker(name string, settings BreakerSettings, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Warn("media host breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
	})
}

func (b *Breaker) Upload(ctx context.Context, obj Object) (Asset, error) {
	res, err := b.upload.Execute(func() (interface{}, error) {
		return b.next.Upload(ctx, obj)
	})
	if err != nil {
		return Asset{}, err
	}
	return res.(Asset), nil
}

func (b *Breaker) Remove(ctx context.Context, publicID string, kind Kind) error {
	_, err := b.remove.Execute(func() (interface{}, error) {
		return nil, b.next.Remove(ctx, publicID, kind)
	})
	return err
}

// State reports the upload breaker state.
func (b *Breaker) State() string {
	return b.upload.State().String()
}

// RemoveState reports the removal breaker state.
func (b *Breaker) RemoveState() string {
	return b.remove.State().String()
}
