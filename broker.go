package conductor

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/coregx/conductor/frame"
)

// Broker is a TCP publish/subscribe broker with two listeners.
//
// Publishers connect to the front (ingest) address and write frames. Every
// publisher connection gets its own reader goroutine that pushes raw chunks onto
// one bounded queue. Subscribers connect to the back address, send a
// comma-separated topic list once, and from then on only receive raw frames.
//
// A single routing goroutine drains the queue, reassembles frames across chunk
// boundaries and fans every complete frame out through the TopicRegistry. The
// same goroutine receives accepted subscription connections and hands each to
// a detached registration goroutine.
//
// Nothing is persisted or replayed: a subscriber only sees frames routed after
// its registration completed.
//
// Thread safety: Safe for concurrent use.
type Broker struct {
	front net.Listener
	back  net.Listener

	registry    *TopicRegistry
	reassembler frame.Reassembler // owned by the routing goroutine

	queue    chan []byte
	accepted chan net.Conn

	logger              Logger
	notificationService NotificationService
	journal             *Journal

	queueSize              int
	readBufferSize         int
	registrationBufferSize int
	registrationTimeout    time.Duration

	// conns tracks publisher connections and subscriber connections that have
	// not been registered yet, so Close can unblock their reads.
	conns sync.Map

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBroker binds frontAddr (publisher ingestion) and backAddr (subscriber
// registration and delivery) and returns a broker ready to Start.
//
// Optional options:
//   - WithLogger: logger instance (default: NoopLogger)
//   - WithQueueSize: internal queue capacity (default: 1024)
//   - WithReadBufferSize: publisher read size (default: 1024)
//   - WithRegistrationBufferSize: topic-list message bound (default: 1024)
//   - WithRegistrationTimeout: topic-list read deadline (default: none)
//   - WithNotifications: event hook (default: NoOpNotificationService)
//   - WithJournal: delivery journal (default: none)
//
// Example:
//
//	broker, err := conductor.NewBroker("0.0.0.0:5555", "0.0.0.0:5556",
//	    conductor.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go broker.Run(ctx)
func NewBroker(frontAddr, backAddr string, opts ...Option) (*Broker, error) {
	b := &Broker{
		registry:               NewTopicRegistry(),
		logger:                 &NoopLogger{},
		notificationService:    &NoOpNotificationService{},
		queueSize:              DefaultQueueSize,
		readBufferSize:         DefaultReadBufferSize,
		registrationBufferSize: DefaultRegistrationBufferSize,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply broker option", err)
		}
	}

	front, err := net.Listen("tcp", frontAddr)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeTransport, "failed to bind ingest address "+frontAddr, err)
	}
	back, err := net.Listen("tcp", backAddr)
	if err != nil {
		_ = front.Close()
		return nil, NewErrorWithCause(ErrCodeTransport, "failed to bind subscription address "+backAddr, err)
	}

	b.front = front
	b.back = back
	b.queue = make(chan []byte, b.queueSize)
	b.accepted = make(chan net.Conn)
	b.ctx, b.cancel = context.WithCancel(context.Background())

	return b, nil
}

// FrontAddr returns the bound ingest address.
func (b *Broker) FrontAddr() net.Addr {
	return b.front.Addr()
}

// BackAddr returns the bound subscription address.
func (b *Broker) BackAddr() net.Addr {
	return b.back.Addr()
}

// Registry returns the broker's topic registry.
func (b *Broker) Registry() *TopicRegistry {
	return b.registry
}

// Subscribers returns the number of subscribers listed under topic.
func (b *Broker) Subscribers(topic string) int {
	return b.registry.Subscribers(topic)
}

// Start launches the accept loops and the routing engine and returns
// immediately. Calling Start more than once has no further effect.
// Starting a closed broker returns ErrBrokerClosed.
func (b *Broker) Start() error {
	if b.ctx.Err() != nil {
		return ErrBrokerClosed
	}

	b.startOnce.Do(func() {
		b.wg.Add(3)
		go b.acceptPublishers()
		go b.acceptSubscribers()
		go b.route()

		b.logger.Infof("Broker started: ingest=%s, subscriptions=%s, queue=%d",
			b.front.Addr(), b.back.Addr(), b.queueSize)
	})
	return nil
}

// Run starts the broker and blocks until ctx is canceled or Close is called,
// then shuts the broker down.
func (b *Broker) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-b.ctx.Done():
	}
	return b.Close()
}

// Close stops both listeners, closes every publisher and subscriber connection
// and waits for the broker's goroutines to exit. Frames still queued are
// dropped. Close is idempotent.
func (b *Broker) Close() error {
	b.closeOnce.Do(func() {
		b.cancel()

		_ = b.front.Close()
		_ = b.back.Close()

		b.conns.Range(func(key, _ any) bool {
			_ = key.(net.Conn).Close()
			return true
		})
		b.registry.Close()

		b.wg.Wait()
		b.logger.Info("Broker stopped")
	})
	return nil
}

// closing reports whether Close has been called.
func (b *Broker) closing() bool {
	return b.ctx.Err() != nil
}

func (b *Broker) track(conn net.Conn) {
	b.conns.Store(conn, struct{}{})
	// Close may have ranged over conns before this Store.
	if b.closing() {
		_ = conn.Close()
	}
}

func (b *Broker) untrack(conn net.Conn) {
	b.conns.Delete(conn)
}
