package conductor

import (
	"errors"
	"net"
	"time"
)

// acceptSubscribers accepts subscription connections on the back listener and
// hands them to the routing engine.
func (b *Broker) acceptSubscribers() {
	defer b.wg.Done()

	for {
		conn, err := b.back.Accept()
		if err != nil {
			if b.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			b.logger.Warnf("Failed to accept subscriber connection: %v", err)
			time.Sleep(acceptBackoff)
			continue
		}

		b.track(conn)
		select {
		case b.accepted <- conn:
		case <-b.ctx.Done():
			b.untrack(conn)
			_ = conn.Close()
			return
		}
	}
}

// route is the routing engine. It is the only goroutine that touches the
// reassembly buffer. Each iteration either hands a new subscription connection
// to a registration goroutine or processes one queued chunk.
func (b *Broker) route() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return

		case conn := <-b.accepted:
			b.logger.Debugf("Subscriber connected: %s", conn.RemoteAddr())
			b.wg.Add(1)
			go b.register(conn)

		case chunk := <-b.queue:
			b.handleChunk(chunk)
		}
	}
}

// handleChunk appends chunk to the reassembly buffer and routes every frame that
// is now complete, in arrival order. Incomplete trailing bytes stay buffered for
// the next chunk.
//
// A malformed header leaves the buffer untouched: no further frames are routed
// until the buffer is reset.
func (b *Broker) handleChunk(chunk []byte) {
	_, _ = b.reassembler.Write(chunk)

	for {
		f, ok, err := b.reassembler.Next()
		if err != nil {
			err = NewErrorWithCause(ErrCodeMalformedHeader, "routing stalled on reassembly buffer", err)
			b.logger.Errorf("Malformed frame header: buffered=%d, error=%v",
				b.reassembler.Buffered(), err)
			if nerr := b.notificationService.NotifyMalformedHeader(b.ctx, b.reassembler.Buffered(), err); nerr != nil {
				b.logger.Warnf("Failed to send malformed header notification: %v", nerr)
			}
			return
		}
		if !ok {
			return
		}

		report := b.registry.RouteAndDeliver(f.Topic, f.Raw)
		b.afterDelivery(report, f.Raw)
	}
}

// afterDelivery logs a fan-out and reports pruned subscribers to the
// notification service and the journal.
func (b *Broker) afterDelivery(report DeliveryReport, raw []byte) {
	if report.Targeted == 0 {
		b.logger.Debugf("No subscribers for topic %q, frame dropped", report.Topic)
	} else {
		b.logger.Debugf("Routed frame: topic=%q, size=%d, delivered=%d/%d",
			report.Topic, len(raw), report.Delivered, report.Targeted)
	}

	for i, sub := range report.Pruned {
		session := sub.Session()
		b.logger.Warnf("Pruned subscriber: topic=%q, addr=%s, error=%v",
			report.Topic, sub.RemoteAddr(), report.Errors[i])

		if err := b.notificationService.NotifySubscriberPruned(b.ctx, session, report.Topic, report.Errors[i]); err != nil {
			b.logger.Warnf("Failed to send pruned notification: %v", err)
		}
		// A handle already dead from an earlier fan-out was journaled then.
		if b.journal != nil && !errors.Is(report.Errors[i], errSubscriberDead) {
			b.journal.RecordSession(session)
		}
	}

	if b.journal != nil {
		b.journal.RecordRoute(report, raw)
	}
}
