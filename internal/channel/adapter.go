package channel

import (
	"strings"
	"sync"

	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/observability"
	"github.com/danmuck/hostlink/internal/wire"
)

// Drop reasons reported for filtered inbound traffic.
const (
	DropOrigin  = "origin"
	DropEmpty   = "empty"
	DropNonText = "non_text"
)

// Adapter binds a Host to one destination origin.
type Adapter struct {
	host        Host
	destination string
	handle      func(data string)
	log         logging.Sink

	mu      sync.Mutex
	removes []func()
}

// NewAdapter filters inbound traffic against destination and forwards text
// payloads to handle.
func NewAdapter(host Host, destination string, handle func(data string), log logging.Sink) (*Adapter, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, ErrNoDestination
	}
	if log == nil {
		log = logging.Default()
	}
	return &Adapter{
		host:        host,
		destination: destination,
		handle:      handle,
		log:         log,
	}, nil
}

func (a *Adapter) Destination() string {
	return a.destination
}

// Subscribe attaches one listener. Calling it twice attaches twice.
func (a *Adapter) Subscribe() {
	remove := a.host.AddListener(a.receive)
	a.mu.Lock()
	a.removes = append(a.removes, remove)
	a.mu.Unlock()
}

// Unsubscribe detaches every listener this adapter attached.
func (a *Adapter) Unsubscribe() {
	a.mu.Lock()
	removes := a.removes
	a.removes = nil
	a.mu.Unlock()
	for _, remove := range removes {
		remove()
	}
}

// Subscriptions reports how many listeners are attached.
func (a *Adapter) Subscriptions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.removes)
}

// Send posts msg to the destination origin.
func (a *Adapter) Send(msg wire.Message) error {
	return a.host.PostMessage(msg, a.destination)
}

func (a *Adapter) receive(in Inbound) {
	if in.Origin != a.destination {
		observability.RecordDrop(DropOrigin)
		a.log.Trace("channel.Adapter drop origin=%q want=%q", in.Origin, a.destination)
		return
	}
	var data string
	switch t := in.Data.(type) {
	case nil:
		observability.RecordDrop(DropEmpty)
		return
	case string:
		data = t
	case []byte:
		data = string(t)
	default:
		observability.RecordDrop(DropNonText)
		a.log.Trace("channel.Adapter drop non-text payload type=%T", in.Data)
		return
	}
	if data == "" {
		observability.RecordDrop(DropEmpty)
		return
	}
	a.handle(data)
}
