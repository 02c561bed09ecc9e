package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/danmuck/hostlink/internal/wire"
)

// Future is the eventual result of one Send. It settles exactly once.
type Future struct {
	id      string
	started time.Time

	once  sync.Once
	done  chan struct{}
	value wire.Value
	err   error
}

func newFuture() *Future {
	return &Future{
		started: time.Now(),
		done:    make(chan struct{}),
	}
}

// ID is the correlation id, empty when registration failed.
func (f *Future) ID() string {
	return f.id
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx ends. A ctx error does not
// settle the future; a later reply still resolves it.
func (f *Future) Wait(ctx context.Context) (wire.Value, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return wire.Value{}, ctx.Err()
	}
}

func (f *Future) settle(v wire.Value, err error) bool {
	settled := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}
