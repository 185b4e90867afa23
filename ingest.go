package conductor

import (
	"errors"
	"io"
	"net"
	"time"
)

// acceptBackoff is the pause after a transient accept error.
const acceptBackoff = 50 * time.Millisecond

// acceptPublishers accepts publisher connections on the front listener and
// starts one reader per connection. A failed accept is logged and the loop
// continues; the loop exits when the listener is closed by Close.
func (b *Broker) acceptPublishers() {
	defer b.wg.Done()

	for {
		conn, err := b.front.Accept()
		if err != nil {
			if b.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			b.logger.Warnf("Failed to accept publisher connection: %v", err)
			time.Sleep(acceptBackoff)
			continue
		}

		b.logger.Debugf("Publisher connected: %s", conn.RemoteAddr())
		b.track(conn)
		b.wg.Add(1)
		go b.readPublisher(conn)
	}
}

// readPublisher reads raw chunks from one publisher connection and pushes each
// onto the queue. It performs no parsing: frame boundaries are recovered by the
// routing engine. The push blocks while the queue is full.
//
// The reader exits on end-of-stream, on a read error or when the broker
// closes. Bytes already queued stay queued.
func (b *Broker) readPublisher(conn net.Conn) {
	defer b.wg.Done()
	defer func() {
		b.untrack(conn)
		_ = conn.Close()
	}()

	buf := make([]byte, b.readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case b.queue <- chunk:
			case <-b.ctx.Done():
				return
			}
		}

		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				b.logger.Debugf("Publisher disconnected: %s", conn.RemoteAddr())
			case b.closing():
			default:
				b.logger.Warnf("Publisher read failed: addr=%s, error=%v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}
