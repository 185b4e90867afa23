// Package frame implements the length-prefixed wire format shared by the broker,
// publishers and subscribers.
//
// Every frame on the wire has this layout (all integers big-endian):
//
//	[0:8)                     payload length (uint64)
//	[8:16)                    topic length (uint64)
//	[16:16+T)                 topic (UTF-8)
//	[16+T:16+T+P)             payload (opaque bytes)
//
// There is no magic number, version field or checksum. A frame is only
// complete once HeaderSize + topic length + payload length bytes are available.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// LengthSize is the width of each length field in the header.
	LengthSize = 8

	// HeaderSize is the fixed size of the frame header (payload length + topic length).
	HeaderSize = 2 * LengthSize
)

var (
	// ErrMalformedHeader is returned when a header cannot be decoded: either fewer than
	// HeaderSize bytes are available, or the length fields do not describe an
	// addressable frame.
	ErrMalformedHeader = errors.New("malformed frame header")

	// ErrFrameTooLarge is returned by Encode when topic and payload cannot be
	// described by a single addressable frame.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrIncompleteFrame is returned when a buffer holds fewer bytes than the
	// frame its header describes.
	ErrIncompleteFrame = errors.New("incomplete frame")
)

// Header holds the two length fields at the front of every frame.
type Header struct {
	PayloadLen uint64 // Length of the payload in bytes
	TopicLen   uint64 // Length of the topic name in bytes
}

// Len returns the total frame length described by the header:
// HeaderSize + TopicLen + PayloadLen.
//
// The result is only meaningful for headers produced by DecodeHeader,
// which rejects lengths that overflow int.
func (h Header) Len() int {
	return HeaderSize + int(h.TopicLen) + int(h.PayloadLen)
}

// topicEnd is the offset where the topic stops and the payload starts.
func (h Header) topicEnd() int {
	return HeaderSize + int(h.TopicLen)
}

// Frame is a decoded frame: the topic it was published to and the complete raw
// bytes (header + topic + payload) as they appeared on the wire.
type Frame struct {
	Topic string
	Raw   []byte
}

// Payload returns the payload portion of the raw frame.
func (f Frame) Payload() []byte {
	p, err := Payload(f.Raw)
	if err != nil {
		return nil
	}
	return p
}

// Encode builds a complete frame for topic and payload.
// The topic charset is not validated.
func Encode(topic string, payload []byte) ([]byte, error) {
	topicLen := len(topic)
	payloadLen := len(payload)
	if topicLen > math.MaxInt-HeaderSize || payloadLen > math.MaxInt-HeaderSize-topicLen {
		return nil, fmt.Errorf("%w: topic=%d payload=%d", ErrFrameTooLarge, topicLen, payloadLen)
	}

	buf := make([]byte, HeaderSize+topicLen+payloadLen)
	binary.BigEndian.PutUint64(buf[0:LengthSize], uint64(payloadLen))
	binary.BigEndian.PutUint64(buf[LengthSize:HeaderSize], uint64(topicLen))
	copy(buf[HeaderSize:], topic)
	copy(buf[HeaderSize+topicLen:], payload)

	return buf, nil
}

// DecodeHeader reads the length fields from the first HeaderSize bytes of buf.
//
// It fails with ErrMalformedHeader if buf is shorter than HeaderSize or if the
// lengths cannot describe a frame addressable on this platform.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedHeader, HeaderSize, len(buf))
	}

	h := Header{
		PayloadLen: binary.BigEndian.Uint64(buf[0:LengthSize]),
		TopicLen:   binary.BigEndian.Uint64(buf[LengthSize:HeaderSize]),
	}

	limit := uint64(math.MaxInt - HeaderSize)
	if h.TopicLen > limit || h.PayloadLen > limit-h.TopicLen {
		return Header{}, fmt.Errorf("%w: payload_len=%d topic_len=%d", ErrMalformedHeader, h.PayloadLen, h.TopicLen)
	}

	return h, nil
}

// Extract drains exactly h.Len() bytes from the front of *buf and returns the
// decoded topic together with the entire raw frame.
//
// The remaining bytes are moved to the front of the same backing array, so the
// buffer keeps its capacity across calls. The returned raw slice is a copy and
// stays valid after further writes to *buf.
//
// Invalid UTF-8 in the topic is replaced with U+FFFD.
func Extract(buf *[]byte, h Header) (string, []byte, error) {
	n := h.Len()
	if len(*buf) < n {
		return "", nil, fmt.Errorf("%w: need %d bytes, have %d", ErrIncompleteFrame, n, len(*buf))
	}

	raw := make([]byte, n)
	copy(raw, (*buf)[:n])
	*buf = append((*buf)[:0], (*buf)[n:]...)

	return DecodeTopic(raw[HeaderSize:h.topicEnd()]), raw, nil
}

// DecodeTopic converts topic bytes to a string, replacing invalid UTF-8 with
// U+FFFD. Frame topics and registration topic lists both go through it, so the
// same bytes always map to the same topic name.
func DecodeTopic(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// Payload re-slices the payload out of a complete raw frame using the header's
// offset arithmetic. The returned slice aliases raw.
func Payload(raw []byte) ([]byte, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if len(raw) < h.Len() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrIncompleteFrame, h.Len(), len(raw))
	}
	return raw[h.topicEnd():h.Len()], nil
}
