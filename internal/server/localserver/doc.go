// Package localserver provides the Unix socket servers used by snapcoord.
//
// Both local channels speak flat, fixed-size binary frames: the agent
// sends AgentBuffer frames, the host emulator sends control requests. A
// Server reads one frame at a time per connection, hands it to a Handler
// and writes back the reply frame.
//
// Security:
//
//   - Only accessible via Unix domain socket
//   - File system permissions on the socket control access
//   - Frames are validated by the Handler before any field is trusted
package localserver
