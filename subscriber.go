package conductor

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/coregx/conductor/model"
	"github.com/google/uuid"
)

// SubscriberState is the lifecycle state of a subscription connection.
//
//	Connecting → RegistrationPending → Active → Dead
//
// Dead is terminal: a subscriber is never re-registered.
type SubscriberState int32

const (
	// StateConnecting is the zero state, before the connection is accepted.
	StateConnecting SubscriberState = iota

	// StateRegistrationPending covers the time between accept and the topic-list read.
	StateRegistrationPending

	// StateActive means the subscriber is present in at least one topic list.
	StateActive

	// StateDead means a fan-out write failed. The socket is closed.
	StateDead
)

// String returns the state name.
func (s SubscriberState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistrationPending:
		return "registration-pending"
	case StateActive:
		return "active"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

var errSubscriberDead = errors.New("subscriber connection is dead")

// Subscriber is the broker-side handle of one subscription connection.
//
// The handle is shared by every topic list it was registered under. Writes are
// serialized by the handle's own mutex so two fan-outs never interleave bytes
// on the same socket; writes to different handles are independent.
type Subscriber struct {
	id     uuid.UUID
	conn   net.Conn
	remote string

	wmu   sync.Mutex // serializes writes
	state atomic.Int32

	mu      sync.Mutex // guards session
	session model.SubscriberSession
}

func newSubscriber(conn net.Conn) *Subscriber {
	s := &Subscriber{
		id:   uuid.New(),
		conn: conn,
	}
	if addr := conn.RemoteAddr(); addr != nil {
		s.remote = addr.String()
	}
	s.state.Store(int32(StateRegistrationPending))
	return s
}

// ID returns the broker-assigned session identifier.
func (s *Subscriber) ID() uuid.UUID {
	return s.id
}

// RemoteAddr returns the peer address of the subscriber socket.
func (s *Subscriber) RemoteAddr() string {
	return s.remote
}

// State returns the current lifecycle state.
func (s *Subscriber) State() SubscriberState {
	return SubscriberState(s.state.Load())
}

// Topics returns the topics the subscriber registered for.
func (s *Subscriber) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.TopicList()
}

// Session returns a snapshot of the subscriber's journal session.
func (s *Subscriber) Session() model.SubscriberSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// activate records the registered topics and moves the handle to Active.
// It reports false if the handle was killed before registration completed.
func (s *Subscriber) activate(topics []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CompareAndSwap(int32(StateRegistrationPending), int32(StateActive)) {
		return false
	}
	s.session = model.NewSubscriberSession(s.id.String(), s.remote, topics)
	return true
}

// write sends p in full under the handle's lock. A failed write kills the
// handle: the socket is closed and every later write fails immediately, so
// the handle is pruned from its other topics on their next fan-out.
func (s *Subscriber) write(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.State() == StateDead {
		return errSubscriberDead
	}

	// net.Conn.Write either writes all of p or returns an error.
	if _, err := s.conn.Write(p); err != nil {
		s.kill()
		return err
	}
	return nil
}

// kill moves the handle to Dead and closes the socket. It is idempotent and
// does not wait for an in-flight write; closing the socket unblocks it.
func (s *Subscriber) kill() {
	if SubscriberState(s.state.Swap(int32(StateDead))) == StateDead {
		return
	}
	s.mu.Lock()
	s.session.MarkDead()
	s.mu.Unlock()
	_ = s.conn.Close()
}
