// Package bridge owns request/response correlation over a one-way host channel.
//
// Ownership boundary:
// - command send: id allocation, encoding, optional safe-timeout
// - inbound dispatch: decode, continuation settle or persistent callback
//
// Per-id lifecycle:
// - pending -> settled (first reply or safe-timeout, whichever is first)
// - pending-with-callback: re-entered on every later event for the id
//
// Inbound replies only ever resolve. Rejection is reserved for failures that
// happen before or while sending (id generation, encoding, the host send).
package bridge
