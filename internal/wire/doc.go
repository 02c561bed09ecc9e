// Package wire owns the text and structured shapes exchanged across the
// host/frame boundary.
//
// Ownership boundary:
// - command shape selection (legacy text vs structured object)
// - outbound command encoding
// - inbound reply decoding into a generic Value
//
// Legacy commands are a single colon-joined string:
//
//	<command>:<params>:<correlation id>:<session id>
//
// with empty middle fields omitted. Commands whose name carries a namespace
// separator (a colon) are sent as a structured object instead:
//
//	{"method": ..., "params": ..., "callback": <correlation id>, "appSid": ...}
//
// Replies are always text of the form <correlation id>:<json args>.
package wire
