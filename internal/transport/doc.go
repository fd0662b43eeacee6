// Package transport owns frame delivery between stations.
//
// Ownership boundary:
// - the loopback fabric for in-process stations
// - the UDP tunnel adapter for stations on different hosts
//
// Both deliver inbound frames to a FrameHandler off the sender's call path,
// so an engine emitting under a stream lock never re-enters itself.
package transport
