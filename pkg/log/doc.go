// Package log provides structured protocol logging for topicmux connections.
//
// It is separate from operational logging (slog). Protocol capture records
// every packet, heartbeat, state change and error of a connection as a
// machine-readable Event, so a session can be replayed or analysed later.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to a binary file
//	fl, _ := log.NewFileLogger("/tmp/session.tlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw frames that could not be decoded (FrameEvent)
//   - Wire: decoded packets (PacketEvent)
//   - Client: connection and subscription state changes (StateChangeEvent)
//
// Errors at any layer carry an ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events (.tlog). The topicmux-log
// command views and summarises them.
package log
