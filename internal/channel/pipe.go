package channel

import (
	"strings"
	"sync"

	"github.com/danmuck/hostlink/internal/wire"
)

const pipeQueueDepth = 256

// Endpoint is one side of an in-process Pipe.
type Endpoint struct {
	origin string
	peer   *Endpoint

	ListenerSet

	mu     sync.Mutex
	closed bool

	queue chan Inbound
	done  chan struct{}
	once  sync.Once
}

// Pipe returns two connected endpoints. Each endpoint delivers to its own
// listeners in order on a single goroutine.
func Pipe(hostOrigin, frameOrigin string) (host *Endpoint, frame *Endpoint) {
	host = newEndpoint(hostOrigin)
	frame = newEndpoint(frameOrigin)
	host.peer = frame
	frame.peer = host
	go host.dispatch()
	go frame.dispatch()
	return host, frame
}

func newEndpoint(origin string) *Endpoint {
	return &Endpoint{
		origin: strings.TrimSpace(origin),
		queue:  make(chan Inbound, pipeQueueDepth),
		done:   make(chan struct{}),
	}
}

func (e *Endpoint) Origin() string {
	return e.origin
}

// PostMessage queues msg on the peer. Messages whose targetOrigin does not
// match the peer are discarded silently, as a browser would.
func (e *Endpoint) PostMessage(msg wire.Message, targetOrigin string) error {
	payload, err := Payload(msg)
	if err != nil {
		return err
	}
	return e.post(payload, targetOrigin)
}

// PostText queues raw text on the peer, for replies and events.
func (e *Endpoint) PostText(text, targetOrigin string) error {
	return e.post(text, targetOrigin)
}

func (e *Endpoint) post(payload any, targetOrigin string) error {
	if e.isClosed() {
		return ErrClosed
	}
	if targetOrigin != AnyOrigin && targetOrigin != e.peer.origin {
		return nil
	}
	return e.peer.deliver(Inbound{Origin: e.origin, Data: payload})
}

// Inject delivers an inbound message to this endpoint's own listeners as if it
// arrived from origin.
func (e *Endpoint) Inject(in Inbound) error {
	return e.deliver(in)
}

func (e *Endpoint) deliver(in Inbound) error {
	if e.isClosed() {
		return ErrClosed
	}
	select {
	case e.queue <- in:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Endpoint) dispatch() {
	for {
		select {
		case <-e.done:
			return
		case in := <-e.queue:
			e.Deliver(in)
		}
	}
}

// Close stops delivery on this endpoint.
func (e *Endpoint) Close() error {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.done)
	})
	return nil
}
