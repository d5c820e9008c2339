// Package client implements a request/response client on top of a framed
// client transport.
//
// Key Components:
//
//   - Client: created with NewClient, which connects the given
//     transport.IClientTransport. Do sends one frame and returns the next
//     reply; Send is for handlers that never reply.
//
//   - Statistics: every client records the latency of successful exchanges in
//     a go-metrics Timer and failed exchanges in a Counter. Clients created
//     with the same gometrics.Registry aggregate into the same metrics, which
//     is how the perf command reports over many connections.
//
// Usage Example:
//
//	c, err := client.NewClient(
//		common.DefaultClientConfig("127.0.0.1:8080"),
//		tcp.NewTCPClientTransport(),
//		nil,
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	reply, _ := c.Do([]byte("ping"))
//	fmt.Println(string(reply), c.Stats().Mean())
//
// Thread Safety:
//
//	A Client can be used from multiple goroutines. Exchanges on one client
//	are serialized because replies carry no request id.
package client
