// Package circuitbreaker wraps sony/gobreaker with OpenTelemetry metrics for
// the outbound diagnosis provider call. The provider is slow and shared, so
// tripping fast protects the API workers from piling up on a dead upstream.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State mirrors the breaker state for callers and health checks.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds breaker tuning.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string
	// MaxRequests is how many probes are allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// FailureThreshold trips on consecutive failures below MinRequests.
	FailureThreshold uint32
	// FailureRatio trips once MinRequests have been observed.
	FailureRatio float64
	// MinRequests is the sample floor for the ratio check.
	MinRequests uint32
}

// DefaultConfig returns defaults tuned for the diagnosis provider: responses
// routinely take tens of seconds, so the open window is long enough that a
// struggling upstream is not probed to death.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          45 * time.Second,
		FailureThreshold: 3,
		FailureRatio:     0.6,
		MinRequests:      5,
	}
}

// Breaker wraps gobreaker with tracing and metric counters.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
	tracer trace.Tracer

	meter           metric.Meter
	requestCounter  metric.Int64Counter
	failureCounter  metric.Int64Counter
	successCounter  metric.Int64Counter
	rejectedCounter metric.Int64Counter

	stateMu      sync.RWMutex
	currentState State
}

// New creates a breaker.
func New(cfg Config, logger *zap.Logger) (*Breaker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Breaker{
		name:         cfg.Name,
		logger:       logger,
		tracer:       otel.Tracer("circuit-breaker"),
		meter:        otel.Meter("circuit-breaker"),
		currentState: StateClosed,
	}

	var err error
	b.requestCounter, err = b.meter.Int64Counter("circuit_breaker_requests_total",
		metric.WithDescription("Total requests through the circuit breaker"))
	if err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	b.failureCounter, err = b.meter.Int64Counter("circuit_breaker_failures_total",
		metric.WithDescription("Total failed requests"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}
	b.successCounter, err = b.meter.Int64Counter("circuit_breaker_successes_total",
		metric.WithDescription("Total successful requests"))
	if err != nil {
		return nil, fmt.Errorf("failed to create success counter: %w", err)
	}
	b.rejectedCounter, err = b.meter.Int64Counter("circuit_breaker_rejected_total",
		metric.WithDescription("Total requests rejected while open"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return counts.ConsecutiveFailures >= cfg.FailureThreshold
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.onStateChange(from, to)
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)

	return b, nil
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	ctx, span := b.tracer.Start(ctx, "circuit_breaker_execute",
		trace.WithAttributes(
			attribute.String("breaker_name", b.name),
			attribute.String("state", string(b.State())),
		))
	defer span.End()

	b.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))

	result, err := b.cb.Execute(fn)
	if err != nil {
		if IsOpenError(err) {
			b.rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))
			span.SetAttributes(attribute.Bool("circuit_open", true))
		} else {
			b.failureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))
		}
		span.RecordError(err)
		return nil, err
	}

	b.successCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))
	return result, nil
}

// IsOpenError reports whether err means the breaker rejected the call
// without attempting it.
func IsOpenError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.currentState
}

// Healthy reports whether the breaker is closed.
func (b *Breaker) Healthy() bool {
	return b.State() == StateClosed
}

// Counts exposes gobreaker's rolling counters.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

func (b *Breaker) onStateChange(from, to gobreaker.State) {
	toState := mapState(to)

	b.stateMu.Lock()
	b.currentState = toState
	b.stateMu.Unlock()

	b.logger.Warn("circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", string(mapState(from))),
		zap.String("to", string(toState)))
}

func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
