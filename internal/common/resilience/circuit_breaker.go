package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

// CircuitBreaker opens after Threshold consecutive infrastructure failures
// and rejects calls with ErrCircuitOpen until ResetAfter has passed since
// the last one.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	threshold   int
	timeout     time.Duration
	resetAfter  time.Duration
	name        string
	log         *logger.Logger
	clock       clock.Clock
	ignore      []error
}

type CircuitBreakerConfig struct {
	Threshold  int
	Timeout    time.Duration
	ResetAfter time.Duration
	Name       string
	Logger     *logger.Logger
	Clock      clock.Clock
	// Ignore lists sentinel errors, such as "not found", that never trip the breaker.
	Ignore     []error
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	clk := config.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}
	log := config.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &CircuitBreaker{
		threshold:  config.Threshold,
		timeout:    config.Timeout,
		resetAfter: config.ResetAfter,
		name:       config.Name,
		log:        log,
		clock:      clk,
		ignore:     config.Ignore,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.threshold <= 0 || cb.failures < cb.threshold {
		cb.setState(0)
		return false
	}

	if cb.clock.Since(cb.lastFailure) > cb.resetAfter {
		cb.failures = 0
		cb.lastFailure = time.Time{}
		cb.setState(0)
		return false
	}

	cb.setState(1)
	return true
}

func (cb *CircuitBreaker) setState(state float64) {
	if cb.name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(state)
	}
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	cb.failures++
	cb.lastFailure = cb.clock.Now()
	failures := cb.failures
	cb.mu.Unlock()

	if cb.name != "" {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.name).Inc()
	}
	cb.log.WithFields(context.Background(), logger.Fields{
		"breaker":  cb.name,
		"failures": failures,
	}).Warnf("circuit breaker failure recorded: %v", err)
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	cb.failures = 0
	cb.lastFailure = time.Time{}
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if cb.IsOpen() {
		cb.log.WithFields(ctx, logger.Fields{"breaker": cb.name}).Warn("circuit breaker open, rejecting call")
		return commonerrors.ErrCircuitOpen
	}

	callCtx := ctx
	if cb.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err != nil {
		if cb.countsAsFailure(ctx, err) {
			cb.recordFailure(err)
		}
		return err
	}

	cb.recordSuccess()
	return nil
}

// countsAsFailure ignores outcomes that say nothing about the health of
// the dependency: business errors, ignored sentinels and callers that gave up.
func (cb *CircuitBreaker) countsAsFailure(ctx context.Context, err error) bool {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return false
	}
	for _, ignored := range cb.ignore {
		if errors.Is(err, ignored) {
			return false
		}
	}
	if de, ok := commonerrors.AsDomainError(err); ok {
		switch de.Category() {
		case commonerrors.CategoryInternal, commonerrors.CategoryExternal:
			return true
		default:
			return false
		}
	}
	return true
}
