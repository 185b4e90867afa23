package client

import (
	"context"
	"net"
	"sync"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/frame"
)

// Publisher writes frames to a broker's ingest address.
//
// Thread safety: Safe for concurrent use. Concurrent Publish calls never
// interleave bytes on the wire.
type Publisher struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewPublisher connects to the broker's ingest address.
//
// Example:
//
//	pub, err := client.NewPublisher(ctx, "127.0.0.1:5555",
//	    client.WithRetryStrategy(retry.DefaultStrategy()),
//	)
func NewPublisher(ctx context.Context, addr string, opts ...Option) (*Publisher, error) {
	c, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	conn, err := dial(ctx, addr, c)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Publish encodes one frame and writes it in full. There is no acknowledgment.
func (p *Publisher) Publish(topic string, payload []byte) error {
	raw, err := frame.Encode(topic, payload)
	if err != nil {
		return conductor.NewErrorWithCause(conductor.ErrCodeValidation, "failed to encode frame", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.conn.Write(raw); err != nil {
		return conductor.NewErrorWithCause(conductor.ErrCodeTransport, "failed to publish to topic "+topic, err)
	}
	return nil
}

// LocalAddr returns the local address of the publisher connection.
func (p *Publisher) LocalAddr() net.Addr {
	return p.conn.LocalAddr()
}

// Close closes the connection. Frames already written stay with the broker.
func (p *Publisher) Close() error {
	return p.conn.Close()
}
