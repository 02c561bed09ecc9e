// Package channel owns the one-way message boundary between a host endpoint
// and an embedded frame endpoint.
//
// Ownership boundary:
// - Host: listener attach/detach and the outbound send primitive
// - Adapter: origin filtering of inbound traffic, targeted sends
// - Pipe: an in-process Host pair with event-loop style delivery
package channel
