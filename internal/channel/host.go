package channel

import (
	"errors"

	"github.com/danmuck/hostlink/internal/wire"
)

// AnyOrigin as a target origin delivers regardless of the receiver's origin.
const AnyOrigin = "*"

var (
	ErrClosed        = errors.New("channel: host closed")
	ErrNoDestination = errors.New("channel: destination origin required")
	ErrNothingToSend = errors.New("channel: empty message")
)

// Inbound is one message as delivered to listeners.
type Inbound struct {
	Origin string
	Data   any
}

// Listener receives inbound messages on the host's delivery goroutine.
type Listener func(Inbound)

// Host is the environment facility the adapter attaches to.
type Host interface {
	// AddListener attaches l and returns a function that detaches it.
	AddListener(l Listener) (remove func())
	// PostMessage hands msg to the counterpart addressed by targetOrigin.
	PostMessage(msg wire.Message, targetOrigin string) error
}

// Payload extracts the message body for delivery: text messages carry their
// string, structured ones the object.
func Payload(msg wire.Message) (any, error) {
	if msg.Structured != nil {
		return *msg.Structured, nil
	}
	if msg.Text == "" {
		return nil, ErrNothingToSend
	}
	return msg.Text, nil
}
