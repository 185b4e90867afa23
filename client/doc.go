// Package client provides publisher and subscriber connections to a conductor
// broker.
//
// A Publisher connects to the broker's ingest address and writes one frame per
// Publish call. Delivery is fire-and-forget: a nil error means the frame was
// handed to the kernel, not that any subscriber received it.
//
// A Subscriber connects to the broker's subscription address, sends its topic
// list once, and then receives payloads with Receive. Frames split across reads
// are reassembled; a frame that arrives in pieces across two Receive calls is
// not lost.
//
//	pub, err := client.NewPublisher(ctx, "127.0.0.1:5555")
//	sub, err := client.NewSubscriber(ctx, "127.0.0.1:5556", []string{"hello"})
//
//	_ = pub.Publish("hello", []byte("Hello World"))
//	payloads, err := sub.Receive()
package client
