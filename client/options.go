package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/retry"
)

// DefaultReadBufferSize is the size of each subscriber socket read.
const DefaultReadBufferSize = 1024

type config struct {
	retryStrategy  retry.Strategy
	dialTimeout    time.Duration
	readBufferSize int
	logger         conductor.Logger
}

func defaultConfig() config {
	return config{
		retryStrategy:  retry.NoRetry(),
		dialTimeout:    5 * time.Second,
		readBufferSize: DefaultReadBufferSize,
		logger:         &conductor.NoopLogger{},
	}
}

// Option configures a Publisher or a Subscriber.
type Option func(*config) error

// WithRetryStrategy retries the initial dial according to strategy.
// The default makes a single attempt.
func WithRetryStrategy(strategy retry.Strategy) Option {
	return func(c *config) error {
		if strategy.MaxAttempts <= 0 {
			return fmt.Errorf("max attempts must be > 0, got %d", strategy.MaxAttempts)
		}
		c.retryStrategy = strategy
		return nil
	}
}

// WithDialTimeout bounds each dial attempt. Zero means no timeout.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return fmt.Errorf("dial timeout must be >= 0, got %v", timeout)
		}
		c.dialTimeout = timeout
		return nil
	}
}

// WithReadBufferSize sets the size of each subscriber socket read.
// Must be > 0. Publishers ignore it.
func WithReadBufferSize(size int) Option {
	return func(c *config) error {
		if size <= 0 {
			return fmt.Errorf("read buffer size must be > 0, got %d", size)
		}
		c.readBufferSize = size
		return nil
	}
}

// WithLogger sets the logger used for dial retries.
func WithLogger(logger conductor.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

func newConfig(opts []Option) (config, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return c, conductor.NewErrorWithCause(conductor.ErrCodeConfiguration, "failed to apply client option", err)
		}
	}
	return c, nil
}

// dial connects to addr, retrying according to the configured strategy.
func dial(ctx context.Context, addr string, c config) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}

	var conn net.Conn
	err := c.retryStrategy.Do(ctx, func(attempt int) error {
		var err error
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil && c.retryStrategy.IsRetryable(attempt) {
			c.logger.Warnf("Dial %s failed (attempt %d/%d): %v", addr, attempt, c.retryStrategy.MaxAttempts, err)
		}
		return err
	})
	if err != nil {
		return nil, conductor.NewErrorWithCause(conductor.ErrCodeTransport, "failed to connect to "+addr, err)
	}
	return conn, nil
}
