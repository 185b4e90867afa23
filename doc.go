// Package conductor provides a TCP publish/subscribe broker for Go.
//
// Publishers send topic-tagged, length-prefixed frames to an ingest address.
// Subscribers connect to a second address, announce their topics once, and from
// then on receive every frame published to those topics, byte for byte as it
// was published.
//
// Works both as a library embedded in your application AND as a standalone
// broker (cmd/conductor-server).
//
// # Features
//
//   - Two listeners: ingest (publishers) and subscription (subscribers)
//   - Frames reassembled across arbitrary TCP chunk boundaries
//   - Fan-out of the raw frame to every subscriber of its topic
//   - Bounded internal queue: slow routing pushes back on publishers
//   - Failed subscribers pruned without affecting other deliveries
//   - Options Pattern for broker construction
//   - Pluggable architecture: bring your own Logger, Notification system
//   - Optional delivery journal (metadata only) on MySQL, PostgreSQL or SQLite
//     via Relica adapters, with embedded migrations
//
// # Quick Start
//
//	broker, err := conductor.NewBroker("0.0.0.0:5555", "0.0.0.0:5556",
//	    conductor.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go broker.Run(ctx)
//
// Subscribe and publish with the client package:
//
//	sub, _ := client.NewSubscriber(ctx, "127.0.0.1:5556", []string{"hello", "goodbye"})
//	pub, _ := client.NewPublisher(ctx, "127.0.0.1:5555")
//
//	_ = pub.Publish("hello", []byte("Hello World"))
//	payloads, _ := sub.Receive() // [][]byte{"Hello World"}
//
// # Wire Format
//
// Every frame is:
//
//	[0:8)    payload_len  uint64, big-endian
//	[8:16)   topic_len    uint64, big-endian
//	[16:16+topic_len)     topic (UTF-8)
//	[16+topic_len:...)    payload (opaque)
//
// There is no magic number, version or checksum. A subscriber's registration is
// a single message of comma-separated topic names, for example "hello,goodbye";
// whitespace around names is ignored and empty names are dropped.
//
// # Architecture
//
//	Publisher ─► Ingest Listener ─► reader per connection ─┐
//	                                                       ▼
//	                                            bounded chunk queue
//	                                                       │
//	Subscriber ─► Subscription Listener ─► Routing Engine ◄┘
//	                                           │      │
//	                          registration goroutine  reassembly + lookup
//	                                           │      │
//	                                           ▼      ▼
//	                                         Topic Registry ─► subscriber sockets
//
// The routing engine is a single goroutine. It owns the reassembly buffer,
// processes queued chunks in arrival order and hands each new subscription
// connection to its own registration goroutine, so a slow subscriber never
// stalls routing. Each subscriber socket has its own write lock.
//
// # Delivery Semantics
//
//   - At most once, no acknowledgments, no replay: a subscriber only receives
//     frames routed after its registration completed
//   - Frames on one publisher connection are routed in the order they were sent
//   - A subscriber whose write fails is closed and pruned; it is never revived
//   - A frame for a topic nobody subscribes to is dropped
//
// # Delivery Journal
//
// A Journal records one row per routed frame (topic, sizes, targeted,
// delivered and pruned counts) and one row per subscriber session. Payloads are
// never stored. Tables are created with ApplyMigrations:
//
//	conductor_route      - Fan-out summaries
//	conductor_session    - Subscriber sessions (active / dead)
//
// Table prefix can be customized (default: "conductor_").
package conductor
