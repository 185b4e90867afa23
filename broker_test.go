package conductor_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/coregx/conductor"
	"github.com/coregx/conductor/client"
	"github.com/coregx/conductor/frame"
	"github.com/coregx/conductor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func startBroker(t *testing.T, opts ...conductor.Option) *conductor.Broker {
	t.Helper()
	b, err := conductor.NewBroker("127.0.0.1:0", "127.0.0.1:0", opts...)
	require.NoError(t, err)
	require.NoError(t, b.Start())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// waitRegistered blocks until every topic has at least want subscribers.
func waitRegistered(t *testing.T, b *conductor.Broker, want int, topics ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, topic := range topics {
			if b.Subscribers(topic) < want {
				return false
			}
		}
		return true
	}, testTimeout, 5*time.Millisecond, "subscriber registration did not complete")
}

func subscribe(t *testing.T, b *conductor.Broker, topics ...string) *client.Subscriber {
	t.Helper()
	before := make(map[string]int, len(topics))
	for _, topic := range topics {
		before[topic] = b.Subscribers(topic)
	}

	sub, err := client.NewSubscriber(context.Background(), b.BackAddr().String(), topics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	require.Eventually(t, func() bool {
		for topic, n := range before {
			if b.Subscribers(topic) <= n {
				return false
			}
		}
		return true
	}, testTimeout, 5*time.Millisecond, "subscriber registration did not complete")
	return sub
}

func publisher(t *testing.T, b *conductor.Broker) *client.Publisher {
	t.Helper()
	pub, err := client.NewPublisher(context.Background(), b.FrontAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

// receiveN collects n payloads or fails the test after testTimeout.
func receiveN(t *testing.T, sub *client.Subscriber, n int) []string {
	t.Helper()

	type result struct {
		payloads []string
		err      error
	}
	done := make(chan result, 1)
	go func() {
		var got []string
		for len(got) < n {
			payloads, err := sub.Receive()
			if err != nil {
				done <- result{got, err}
				return
			}
			for _, p := range payloads {
				got = append(got, string(p))
			}
		}
		done <- result{got, nil}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.payloads
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for %d payloads", n)
		return nil
	}
}

func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testTimeout)))
	buf := make([]byte, n)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func encode(t *testing.T, topic, payload string) []byte {
	t.Helper()
	raw, err := frame.Encode(topic, []byte(payload))
	require.NoError(t, err)
	return raw
}

func TestBroker_HelloGoodbye(t *testing.T) {
	b := startBroker(t)
	sub1 := subscribe(t, b, "hello")
	sub2 := subscribe(t, b, "goodbye")
	pub := publisher(t, b)

	var wantHello, wantBye []string
	for i := 0; i < 10; i++ {
		hello := fmt.Sprintf("Hello World %d", i)
		bye := fmt.Sprintf("Goodbye World %d", i)
		require.NoError(t, pub.Publish("hello", []byte(hello)))
		require.NoError(t, pub.Publish("goodbye", []byte(bye)))
		wantHello = append(wantHello, hello)
		wantBye = append(wantBye, bye)
	}

	assert.Equal(t, wantHello, receiveN(t, sub1, 10))
	assert.Equal(t, wantBye, receiveN(t, sub2, 10))
}

func TestBroker_DeliversRawFrameAndTrimsTopicList(t *testing.T) {
	b := startBroker(t)

	conn, err := net.Dial("tcp", b.BackAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(" hello , goodbye "))
	require.NoError(t, err)
	waitRegistered(t, b, 1, "hello", "goodbye")

	pub := publisher(t, b)
	require.NoError(t, pub.Publish("hello", []byte("Hello World 0")))
	require.NoError(t, pub.Publish("goodbye", []byte("Goodbye World 0")))

	want := append(encode(t, "hello", "Hello World 0"), encode(t, "goodbye", "Goodbye World 0")...)
	assert.Equal(t, want, readExactly(t, conn, len(want)))
}

func TestBroker_NoReplayForLateSubscriber(t *testing.T) {
	b := startBroker(t)
	barrier := subscribe(t, b, "barrier")
	pub := publisher(t, b)

	// Frames on one connection are routed in order, so once "sync" arrives the
	// earlier frame has been routed to nobody.
	require.NoError(t, pub.Publish("late", []byte("first")))
	require.NoError(t, pub.Publish("barrier", []byte("sync")))
	assert.Equal(t, []string{"sync"}, receiveN(t, barrier, 1))

	late := subscribe(t, b, "late")
	require.NoError(t, pub.Publish("late", []byte("second")))
	assert.Equal(t, []string{"second"}, receiveN(t, late, 1))
}

func TestBroker_TopicIsolation(t *testing.T) {
	b := startBroker(t)
	sub := subscribe(t, b, "a")
	pub := publisher(t, b)

	require.NoError(t, pub.Publish("b", []byte("not for you")))
	require.NoError(t, pub.Publish("nobody", []byte("dropped")))
	require.NoError(t, pub.Publish("a", []byte("for you")))

	assert.Equal(t, []string{"for you"}, receiveN(t, sub, 1))
	assert.Equal(t, 0, b.Subscribers("b"))
}

func TestBroker_ReassemblesFramesAcrossWrites(t *testing.T) {
	b := startBroker(t)
	sub := subscribe(t, b, "t")

	conn, err := net.Dial("tcp", b.FrontAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Three frames in one write.
	var batch []byte
	for i := 0; i < 3; i++ {
		batch = append(batch, encode(t, "t", fmt.Sprintf("batched %d", i))...)
	}
	_, err = conn.Write(batch)
	require.NoError(t, err)

	// One frame dribbled out in pieces, splitting the header.
	split := encode(t, "t", "split")
	for _, piece := range [][]byte{split[:3], split[3:17], split[17:]} {
		_, err = conn.Write(piece)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	assert.Equal(t, []string{"batched 0", "batched 1", "batched 2", "split"}, receiveN(t, sub, 4))
}

func TestBroker_EmptyPayloadAndBinaryTopic(t *testing.T) {
	b := startBroker(t)
	sub := subscribe(t, b, "sensors/α")
	pub := publisher(t, b)

	require.NoError(t, pub.Publish("sensors/α", nil))
	require.NoError(t, pub.Publish("sensors/α", []byte{0x00, 0xff}))

	assert.Equal(t, []string{"", "\x00\xff"}, receiveN(t, sub, 2))
}

func TestBroker_PrunesClosedSubscriber(t *testing.T) {
	b := startBroker(t)
	survivor := subscribe(t, b, "t")
	gone := subscribe(t, b, "t")
	require.Equal(t, 2, b.Subscribers("t"))
	pub := publisher(t, b)

	require.NoError(t, gone.Close())

	// The first writes after the peer closed may still be accepted by the
	// kernel; keep publishing until the broker notices.
	require.Eventually(t, func() bool {
		_ = pub.Publish("t", []byte("tick"))
		return b.Subscribers("t") == 1
	}, testTimeout, 10*time.Millisecond)

	payloads := receiveN(t, survivor, 1)
	assert.Equal(t, "tick", payloads[0])
}

func TestBroker_EmptyTopicListClosesConnection(t *testing.T) {
	b := startBroker(t)

	conn, err := net.Dial("tcp", b.BackAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(" , ,"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testTimeout)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, b.Registry().Topics())
}

func TestBroker_RegistrationTimeout(t *testing.T) {
	b := startBroker(t, conductor.WithRegistrationTimeout(50*time.Millisecond))

	conn, err := net.Dial("tcp", b.BackAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Never send a topic list.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(testTimeout)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestBroker_SmallReadsAndTinyQueue(t *testing.T) {
	const publishers, perPublisher = 3, 50

	b := startBroker(t, conductor.WithQueueSize(1), conductor.WithReadBufferSize(7))
	sub := subscribe(t, b, "t")

	// Publisher connections share one reassembly buffer, so each publisher's
	// frames are drained before the next one starts.
	for p := 0; p < publishers; p++ {
		pub := publisher(t, b)
		var want []string
		for i := 0; i < perPublisher; i++ {
			payload := fmt.Sprintf("%d-%02d", p, i)
			require.NoError(t, pub.Publish("t", []byte(payload)))
			want = append(want, payload)
		}
		assert.Equal(t, want, receiveN(t, sub, perPublisher))
	}
}

// recordingNotifications collects notifications for assertions.
type recordingNotifications struct {
	mu         sync.Mutex
	registered []model.SubscriberSession
	pruned     []string
	malformed  []error
}

func (r *recordingNotifications) NotifySubscriberRegistered(_ context.Context, session model.SubscriberSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, session)
	return nil
}

func (r *recordingNotifications) NotifySubscriberPruned(_ context.Context, _ model.SubscriberSession, topic string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruned = append(r.pruned, topic)
	return nil
}

func (r *recordingNotifications) NotifyMalformedHeader(_ context.Context, _ int, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.malformed = append(r.malformed, cause)
	return nil
}

func (r *recordingNotifications) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered), len(r.pruned), len(r.malformed)
}

func (r *recordingNotifications) malformedCauses() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.malformed...)
}

func TestBroker_Notifications(t *testing.T) {
	notes := &recordingNotifications{}
	b := startBroker(t, conductor.WithNotifications(notes))

	sub := subscribe(t, b, "t", "u")
	require.Eventually(t, func() bool {
		registered, _, _ := notes.counts()
		return registered == 1
	}, testTimeout, 5*time.Millisecond)

	notes.mu.Lock()
	assert.Equal(t, "t,u", notes.registered[0].Topics)
	assert.Equal(t, model.SessionStateActive, notes.registered[0].State)
	notes.mu.Unlock()

	require.NoError(t, sub.Close())
	pub := publisher(t, b)
	require.Eventually(t, func() bool {
		_ = pub.Publish("t", []byte("x"))
		_, pruned, _ := notes.counts()
		return pruned == 1
	}, testTimeout, 10*time.Millisecond)
}

func TestBroker_MalformedHeaderStallsRouting(t *testing.T) {
	notes := &recordingNotifications{}
	b := startBroker(t, conductor.WithNotifications(notes))
	sub := subscribe(t, b, "t")

	conn, err := net.Dial("tcp", b.FrontAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	header := make([]byte, frame.HeaderSize)
	binary.BigEndian.PutUint64(header[0:8], ^uint64(0))
	binary.BigEndian.PutUint64(header[8:16], ^uint64(0))
	_, err = conn.Write(header)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, malformed := notes.counts()
		return malformed >= 1
	}, testTimeout, 5*time.Millisecond)

	cause := notes.malformedCauses()[0]
	assert.True(t, conductor.IsCode(cause, conductor.ErrCodeMalformedHeader))
	assert.True(t, conductor.IsMalformedHeader(cause))
	assert.ErrorIs(t, cause, frame.ErrMalformedHeader)

	// Later frames stay behind the corrupt header.
	pub := publisher(t, b)
	require.NoError(t, pub.Publish("t", []byte("stuck")))

	received := make(chan struct{})
	go func() {
		_, _ = sub.Receive()
		close(received)
	}()
	select {
	case <-received:
		t.Fatal("frame routed past a malformed header")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewBroker_InvalidOption(t *testing.T) {
	_, err := conductor.NewBroker("127.0.0.1:0", "127.0.0.1:0", conductor.WithQueueSize(0))
	require.Error(t, err)
	assert.True(t, conductor.IsCode(err, conductor.ErrCodeConfiguration))
}

func TestNewBroker_AddressInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	_, err = conductor.NewBroker(taken.Addr().String(), "127.0.0.1:0")
	require.Error(t, err)
	assert.True(t, conductor.IsCode(err, conductor.ErrCodeTransport))

	_, err = conductor.NewBroker("127.0.0.1:0", taken.Addr().String())
	require.Error(t, err)
	assert.True(t, conductor.IsCode(err, conductor.ErrCodeTransport))
}

func TestBroker_CloseDisconnectsClients(t *testing.T) {
	b := startBroker(t)
	sub := subscribe(t, b, "t")
	pub := publisher(t, b)
	require.NoError(t, pub.Publish("t", []byte("before close")))
	assert.Equal(t, []string{"before close"}, receiveN(t, sub, 1))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err := sub.Receive()
	assert.Error(t, err)
	assert.ErrorIs(t, b.Start(), conductor.ErrBrokerClosed)

	_, err = net.DialTimeout("tcp", b.FrontAddr().String(), time.Second)
	assert.Error(t, err)
}

func TestBroker_RunStopsOnContextCancel(t *testing.T) {
	b, err := conductor.NewBroker("127.0.0.1:0", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	sub := subscribe(t, b, "t")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(testTimeout):
		t.Fatal("Run did not return after cancel")
	}

	_, err = sub.Receive()
	assert.Error(t, err)
}

func TestBroker_PayloadBytesUnchanged(t *testing.T) {
	b := startBroker(t)
	sub := subscribe(t, b, "bin")
	pub := publisher(t, b)

	payload := bytes.Repeat([]byte{0x00, 0x01, 0xfe, 0xff}, 1024)
	require.NoError(t, pub.Publish("bin", payload))

	got := receiveN(t, sub, 1)
	assert.Equal(t, payload, []byte(got[0]))
}

func TestBroker_InvalidUTF8TopicMatchesAcrossRegistrationAndRouting(t *testing.T) {
	b := startBroker(t)
	topic := "ok\xff"

	subConn, err := net.Dial("tcp", b.BackAddr().String())
	require.NoError(t, err)
	defer subConn.Close()
	_, err = subConn.Write([]byte(topic))
	require.NoError(t, err)
	waitRegistered(t, b, 1, "ok\uFFFD")

	pubConn, err := net.Dial("tcp", b.FrontAddr().String())
	require.NoError(t, err)
	defer pubConn.Close()

	raw := encode(t, topic, "payload")
	_, err = pubConn.Write(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, readExactly(t, subConn, len(raw)))
}
