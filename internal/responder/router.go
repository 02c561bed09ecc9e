package responder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/danmuck/hostlink/internal/wire"
)

var ErrUnknownMethod = errors.New("responder: unknown method")

// Router dispatches inbound commands to handlers registered per method name.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRouter returns an empty router. fallback answers methods with no
// registered handler; a nil fallback answers them with ErrUnknownMethod.
func NewRouter(fallback Handler) *Router {
	return &Router{handlers: make(map[string]Handler), fallback: fallback}
}

// DefaultRouter answers ping and methods, and echoes everything else.
func DefaultRouter() *Router {
	r := NewRouter(Echo)
	r.Register("ping", Ping)
	r.Register("methods", r.listMethods)
	return r
}

// Register binds h to method, replacing any earlier binding.
func (r *Router) Register(method string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = h
}

func (r *Router) Get(method string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[method]
	return h, ok
}

// Methods lists registered method names in order.
func (r *Router) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Handle satisfies Handler.
func (r *Router) Handle(cmd wire.InboundCommand) (wire.Value, error) {
	if h, ok := r.Get(cmd.Method); ok {
		return h(cmd)
	}
	if r.fallback != nil {
		return r.fallback(cmd)
	}
	return wire.Null(), fmt.Errorf("%w: %s", ErrUnknownMethod, cmd.Method)
}

func (r *Router) listMethods(wire.InboundCommand) (wire.Value, error) {
	names := r.Methods()
	items := make([]wire.Value, 0, len(names))
	for _, name := range names {
		items = append(items, wire.String(name))
	}
	return wire.List(items...), nil
}

// Ping answers {"pong": true}.
func Ping(wire.InboundCommand) (wire.Value, error) {
	return wire.Map(map[string]wire.Value{"pong": wire.Bool(true)}), nil
}
