// Package discovery locates topicmux servers on the local network using
// mDNS/DNS-SD.
//
// Servers advertise the service type _topicmux._tcp. The instance name is a
// user-friendly server name. TXT records are optional:
//
//   - path: the WebSocket endpoint path (default "adonis-ws")
//   - tls:  "1" when the server only accepts wss
//   - enc:  the wire encoder name ("json" or "cbor")
//
// A discovered Server converts to the base URL accepted by client.New.
package discovery
