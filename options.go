package conductor

import (
	"fmt"
	"time"
)

// Default broker settings.
const (
	// DefaultQueueSize is the capacity of the queue between publisher readers and
	// the routing engine. Readers block when it is full.
	DefaultQueueSize = 1024

	// DefaultReadBufferSize is the size of each publisher socket read.
	DefaultReadBufferSize = 1024

	// DefaultRegistrationBufferSize bounds the topic-list message a subscriber
	// sends on connect.
	DefaultRegistrationBufferSize = 1024
)

// Option is a function that configures a Broker.
// Used with the Options Pattern for flexible broker construction.
//
// Example:
//
//	broker, err := conductor.NewBroker("0.0.0.0:5555", "0.0.0.0:5556",
//	    conductor.WithLogger(logger),
//	    conductor.WithQueueSize(4096), // optional
//	)
type Option func(*Broker) error

// WithLogger sets the logger instance for the broker.
// The default is NoopLogger.
func WithLogger(logger Logger) Option {
	return func(b *Broker) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		b.logger = logger
		return nil
	}
}

// WithQueueSize sets the capacity of the internal chunk queue.
//
// Must be > 0. The queue is the backpressure point between many publishers and
// the single routing engine: when it is full, publisher readers stop reading
// and TCP flow control pushes back on the publishers.
func WithQueueSize(size int) Option {
	return func(b *Broker) error {
		if size <= 0 {
			return fmt.Errorf("queue size must be > 0, got %d", size)
		}
		b.queueSize = size
		return nil
	}
}

// WithReadBufferSize sets the size of each publisher socket read.
// Must be > 0.
func WithReadBufferSize(size int) Option {
	return func(b *Broker) error {
		if size <= 0 {
			return fmt.Errorf("read buffer size must be > 0, got %d", size)
		}
		b.readBufferSize = size
		return nil
	}
}

// WithRegistrationBufferSize sets the maximum size of the topic-list message.
// Must be > 0. Longer messages are truncated to the first read.
func WithRegistrationBufferSize(size int) Option {
	return func(b *Broker) error {
		if size <= 0 {
			return fmt.Errorf("registration buffer size must be > 0, got %d", size)
		}
		b.registrationBufferSize = size
		return nil
	}
}

// WithRegistrationTimeout bounds how long a new subscriber may take to send its
// topic list. Zero (the default) waits forever; a stalled subscriber only ever
// holds up its own registration goroutine.
func WithRegistrationTimeout(timeout time.Duration) Option {
	return func(b *Broker) error {
		if timeout < 0 {
			return fmt.Errorf("registration timeout must be >= 0, got %v", timeout)
		}
		b.registrationTimeout = timeout
		return nil
	}
}

// WithNotifications sets an optional notification service.
// If not provided, NoOpNotificationService is used.
func WithNotifications(service NotificationService) Option {
	return func(b *Broker) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		b.notificationService = service
		return nil
	}
}

// WithJournal attaches a delivery journal. The broker only enqueues records;
// the caller runs the journal with Journal.Run.
func WithJournal(journal *Journal) Option {
	return func(b *Broker) error {
		if journal == nil {
			return fmt.Errorf("journal cannot be nil")
		}
		b.journal = journal
		return nil
	}
}
