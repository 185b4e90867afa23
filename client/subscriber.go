package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/frame"
)

// Subscriber receives frames for a fixed set of topics.
//
// Subscriber is not safe for concurrent use; call Receive from one goroutine.
type Subscriber struct {
	conn        net.Conn
	topics      []string
	buf         []byte
	reassembler frame.Reassembler
}

// NewSubscriber connects to the broker's subscription address and sends the
// comma-joined topic list. The broker registers the subscriber asynchronously;
// frames routed before registration completes are not delivered.
//
// Example:
//
//	sub, err := client.NewSubscriber(ctx, "127.0.0.1:5556", []string{"hello", "goodbye"})
func NewSubscriber(ctx context.Context, addr string, topics []string, opts ...Option) (*Subscriber, error) {
	if len(topics) == 0 {
		return nil, conductor.NewError(conductor.ErrCodeRegistration, "at least one topic is required")
	}
	for _, topic := range topics {
		if strings.TrimSpace(topic) == "" || strings.Contains(topic, ",") {
			return nil, conductor.NewError(conductor.ErrCodeRegistration, "invalid topic name "+`"`+topic+`"`)
		}
	}

	c, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	conn, err := dial(ctx, addr, c)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Write([]byte(strings.Join(topics, ","))); err != nil {
		_ = conn.Close()
		return nil, conductor.NewErrorWithCause(conductor.ErrCodeTransport, "failed to send topic list", err)
	}

	return &Subscriber{
		conn:   conn,
		topics: append([]string(nil), topics...),
		buf:    make([]byte, c.readBufferSize),
	}, nil
}

// Topics returns the topics the subscriber registered for.
func (s *Subscriber) Topics() []string {
	return append([]string(nil), s.topics...)
}

// Receive blocks until at least one complete frame is available and returns
// the payloads of every complete frame buffered, in arrival order. Bytes of a
// trailing partial frame are kept for the next call.
//
// When the broker closes the connection before a complete frame arrives,
// Receive returns an error wrapping io.ErrUnexpectedEOF.
func (s *Subscriber) Receive() ([][]byte, error) {
	for {
		frames, err := s.reassembler.Drain()
		if err != nil {
			return nil, conductor.NewErrorWithCause(conductor.ErrCodeMalformedHeader, "failed to decode frame", err)
		}
		if len(frames) > 0 {
			payloads := make([][]byte, 0, len(frames))
			for _, f := range frames {
				payloads = append(payloads, f.Payload())
			}
			return payloads, nil
		}

		n, err := s.conn.Read(s.buf)
		if n > 0 {
			_, _ = s.reassembler.Write(s.buf[:n])
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			return nil, conductor.NewErrorWithCause(conductor.ErrCodeTransport, "no complete frame received", io.ErrUnexpectedEOF)
		}
		return nil, conductor.NewErrorWithCause(conductor.ErrCodeTransport, "failed to receive", err)
	}
}

// Close closes the connection. The broker prunes the subscriber on its next
// failed write.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}
