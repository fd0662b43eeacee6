// Package ba owns the block-ack session negotiation engine.
//
// Ownership boundary:
// - per-record lifecycle (activate/deactivate, timer guard)
// - transmit/receive traffic stream state
// - the negotiation state machine for AddBA request/response and DelBA
// - setup and inactivity timeout handling
//
// The engine consumes a Directory for stream lookup, a FrameTransport for
// emission, and a TimerService for scheduling; it never owns sockets, stream
// lifetimes, or timer mechanics.
package ba
