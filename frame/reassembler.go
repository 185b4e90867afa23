package frame

// Reassembler accumulates bytes read off a stream and yields complete frames.
//
// Consumed frames are skipped with a read offset; the buffer is compacted once
// per Write or Drain instead of once per frame.
//
// Reassembler is not safe for concurrent use. The broker owns a single instance
// from its routing goroutine; each subscriber client owns its own.
type Reassembler struct {
	buf []byte
	off int // start of unconsumed bytes in buf
}

// Write appends p to the reassembly buffer. It never fails.
func (r *Reassembler) Write(p []byte) (int, error) {
	r.compact()
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// Next extracts the next complete frame from the buffer.
//
// It returns ok=false with a nil error when fewer than HeaderSize bytes are
// buffered or the frame at the head of the buffer is not complete yet.
// A malformed header is returned as an error and the buffer is left untouched,
// so a corrupt header keeps failing until Reset is called.
func (r *Reassembler) Next() (Frame, bool, error) {
	pending := r.buf[r.off:]
	if len(pending) < HeaderSize {
		return Frame{}, false, nil
	}

	h, err := DecodeHeader(pending)
	if err != nil {
		return Frame{}, false, err
	}
	n := h.Len()
	if len(pending) < n {
		return Frame{}, false, nil
	}

	raw := make([]byte, n)
	copy(raw, pending[:n])
	r.off += n
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}

	return Frame{Topic: DecodeTopic(raw[HeaderSize:h.topicEnd()]), Raw: raw}, true, nil
}

// Drain extracts every complete frame currently buffered, in order.
// On a malformed header it returns the frames extracted so far and the error.
func (r *Reassembler) Drain() ([]Frame, error) {
	defer r.compact()

	var frames []Frame
	for {
		f, ok, err := r.Next()
		if err != nil {
			return frames, err
		}
		if !ok {
			return frames, nil
		}
		frames = append(frames, f)
	}
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf) - r.off
}

// Reset discards all buffered bytes.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.off = 0
}

// compact moves the unconsumed bytes to the front of the buffer.
func (r *Reassembler) compact() {
	if r.off == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:n]
	r.off = 0
}
