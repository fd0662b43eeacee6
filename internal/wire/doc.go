// Package wire owns the block-ack action frame contract.
//
// Ownership boundary:
// - 3-address management header primitives
// - AddBA request/response and DelBA body codecs
// - status, reason, and parameter-set bit layouts
//
// All multi-byte fields are little-endian and every decode path length-checks
// the buffer before reading a single field.
package wire
