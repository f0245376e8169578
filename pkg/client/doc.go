// Package client implements a topicmux connection: many topic subscriptions
// multiplexed over one reconnecting transport.
//
// A Connection owns the transport, the ordered outbound packet queue and the
// topic to Subscription map. It reconnects with linear backoff when the
// transport drops and rejoins every tracked topic once the server sends its
// Open packet.
//
// A Subscription is the per-topic handle. Events emitted while it is pending
// are buffered and flushed, in order, when the server acknowledges the join.
//
//	conn, err := client.New("ws://localhost:3333", client.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	chat, _ := conn.Subscribe("chat")
//	chat.On("message", func(data any) { fmt.Println(data) })
//	chat.Emit("message", "hello") // buffered until joined
//
//	if err := conn.Connect(ctx); err != nil {
//	    // dial failed; reconnection is already scheduled
//	}
//
// Listeners run synchronously on the goroutine that delivers the packet and
// must not block.
package client
