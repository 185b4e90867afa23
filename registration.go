package conductor

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/coregx/conductor/frame"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// RegistrationRequest is the topic list a subscriber sends once after connecting.
type RegistrationRequest struct {
	Topics []string
}

// ParseRegistration decodes a raw topic-list message: comma-separated topic
// names with surrounding whitespace trimmed. Invalid UTF-8 is replaced with
// U+FFFD exactly as for frame topics, so both sides agree on the topic name.
//
// Empty names are dropped rather than registered as the "" topic: "hello,"
// yields ["hello"], and a message with no names yields an empty list, which
// Validate rejects.
//
// Example:
//
//	ParseRegistration([]byte(" hello , goodbye ")) // Topics: ["hello", "goodbye"]
func ParseRegistration(msg []byte) RegistrationRequest {
	parts := strings.Split(frame.DecodeTopic(msg), ",")
	topics := make([]string, 0, len(parts))
	for _, part := range parts {
		if topic := strings.TrimSpace(part); topic != "" {
			topics = append(topics, topic)
		}
	}
	return RegistrationRequest{Topics: topics}
}

// Validate checks that at least one topic was named.
func (m RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Topics, validation.Required),
	)
}

// register performs the one-time topic-list read for a new subscription
// connection and enters it into the registry. It runs detached from the routing
// engine, so a slow subscriber never delays routing.
//
// A failed read or an empty topic list closes the connection; the subscriber is
// never registered.
func (b *Broker) register(conn net.Conn) {
	defer b.wg.Done()

	sub := newSubscriber(conn)

	req, err := b.readRegistration(conn)
	if err != nil {
		if !b.closing() {
			b.logger.Warnf("Subscriber registration failed: addr=%s, error=%v", sub.RemoteAddr(), err)
		}
		b.untrack(conn)
		sub.kill()
		return
	}

	if !sub.activate(req.Topics) {
		b.untrack(conn)
		return
	}

	// The active session must be journaled before fan-out can see the handle,
	// otherwise a kill could be recorded ahead of the insert.
	session := sub.Session()
	if b.journal != nil {
		b.journal.RecordSession(session)
	}

	b.registry.Register(req.Topics, sub)
	// From here on the registry owns the connection.
	b.untrack(conn)

	if sub.State() != StateActive {
		return
	}

	b.logger.Infof("Subscriber registered: addr=%s, topics=%v", sub.RemoteAddr(), req.Topics)
	if err := b.notificationService.NotifySubscriberRegistered(context.Background(), session); err != nil {
		b.logger.Warnf("Failed to send registration notification: %v", err)
	}
}

// readRegistration performs a single read of up to registrationBufferSize bytes
// and parses it as the topic list.
func (b *Broker) readRegistration(conn net.Conn) (RegistrationRequest, error) {
	if b.registrationTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(b.registrationTimeout)); err != nil {
			return RegistrationRequest{}, NewErrorWithCause(ErrCodeRegistration, "failed to set registration deadline", err)
		}
	}

	buf := make([]byte, b.registrationBufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = errors.New("empty read")
		}
		return RegistrationRequest{}, NewErrorWithCause(ErrCodeRegistration, "failed to read topic list", err)
	}

	if b.registrationTimeout > 0 {
		_ = conn.SetReadDeadline(time.Time{})
	}

	req := ParseRegistration(buf[:n])
	if err := req.Validate(); err != nil {
		return RegistrationRequest{}, NewErrorWithCause(ErrCodeRegistration, "invalid topic list", err)
	}
	return req, nil
}
