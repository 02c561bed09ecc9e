package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/correlation"
	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/danmuck/hostlink/internal/observability"
	"github.com/danmuck/hostlink/internal/wire"
)

var (
	ErrHostRequired     = errors.New("bridge: host required")
	ErrProviderRequired = errors.New("bridge: origin provider required")
	ErrSendFailed       = errors.New("bridge: send failed")
)

// Drop reason for inbound text that is not a valid reply.
const DropMalformed = "malformed"

// Bridge correlates commands sent over a host channel with their replies.
// One Bridge serves one channel.
type Bridge struct {
	cfg      Config
	provider identity.Provider
	table    *correlation.Table
	adapter  *channel.Adapter
	log      logging.Sink
}

func New(host channel.Host, provider identity.Provider, cfg Config) (*Bridge, error) {
	if host == nil {
		return nil, ErrHostRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	cfg = cfg.WithDefaults()
	b := &Bridge{
		cfg:      cfg,
		provider: provider,
		table:    correlation.NewTable(cfg.IDs),
		log:      cfg.Log,
	}
	adapter, err := channel.NewAdapter(host, provider.TargetOrigin(), b.dispatch, cfg.Log)
	if err != nil {
		return nil, err
	}
	b.adapter = adapter
	return b, nil
}

// Open attaches the inbound listener.
func (b *Bridge) Open() {
	b.adapter.Subscribe()
}

// Close detaches the inbound listener and drops persistent callbacks.
// Pending requests are left pending.
func (b *Bridge) Close() error {
	b.adapter.Unsubscribe()
	if n := b.table.ClearCallbacks(); n > 0 {
		b.log.Log("bridge.Close dropped callbacks=%d", n)
	}
	return nil
}

// Pending reports requests still awaiting a reply.
func (b *Bridge) Pending() []correlation.Entry {
	return b.table.List()
}

// Forget drops the persistent callback registered for id.
func (b *Bridge) Forget(id string) {
	b.table.Forget(id)
}

// Send issues command and returns a future for its reply.
func (b *Bridge) Send(command string, opts wire.Options) *Future {
	f := newFuture()
	cmd := wire.ParseCommand(command)
	shape := shapeOf(cmd)

	id, err := b.table.Register(correlation.Continuation{
		Resolve: func(v wire.Value) { b.settle(f, v, nil) },
		Reject:  func(err error) { b.settle(f, wire.Value{}, err) },
	})
	if err != nil {
		b.log.Error("bridge.Send register command=%q err=%v", command, err)
		observability.RecordRequest(shape, false)
		f.settle(wire.Value{}, err)
		return f
	}
	f.id = id
	observability.AddPending(1)

	if opts.Callback != nil {
		if err := b.table.RegisterCallback(id, opts.Callback); err != nil {
			b.fail(id, shape, err)
			return f
		}
	}

	msg, err := wire.Encode(cmd, opts, id, b.provider.AppSID())
	if err != nil {
		b.fail(id, shape, err)
		return f
	}
	destination := b.adapter.Destination()
	b.log.Log("bridge.Send id=%s destination=%q payload=%s", id, destination, msg)

	if err := b.adapter.Send(msg); err != nil {
		b.fail(id, shape, fmt.Errorf("%w: %w", ErrSendFailed, err))
		return f
	}
	observability.RecordRequest(shape, true)

	if opts.IsSafely {
		delay := opts.EffectiveSafelyTime(b.cfg.SafelyTime)
		// a reply may already have settled id; Arm then reports unknown id
		if err := b.table.Arm(id, delay, b.expire); err != nil {
			b.log.Trace("bridge.Send arm skipped id=%s err=%v", id, err)
		}
	}
	return f
}

// SendBag is Send taking the loose options-bag form.
func (b *Bridge) SendBag(command string, bag map[string]any) *Future {
	opts, err := wire.ParseOptions(bag)
	if err != nil {
		f := newFuture()
		f.settle(wire.Value{}, err)
		return f
	}
	return b.Send(command, opts)
}

// Call sends command and waits for its reply.
func (b *Bridge) Call(ctx context.Context, command string, opts wire.Options) (wire.Value, error) {
	return b.Send(command, opts).Wait(ctx)
}

func (b *Bridge) fail(id, shape string, err error) {
	b.log.Error("bridge.Send id=%s err=%v", id, err)
	observability.RecordRequest(shape, false)
	b.table.Forget(id)
	b.table.Reject(id, err)
}

func (b *Bridge) expire(id string) {
	if !b.table.Expire(id, wire.SafeTimeoutValue()) {
		return
	}
	observability.RecordSafeTimeout()
	b.log.Warn("bridge safe-timeout id=%s resolved without reply", id)
}

func (b *Bridge) dispatch(data string) {
	reply, err := wire.DecodeReply(data)
	if err != nil {
		observability.RecordDrop(DropMalformed)
		b.log.Trace("bridge.dispatch drop err=%v", err)
		return
	}
	switch b.table.Dispatch(reply.ID, reply.Payload) {
	case correlation.OutcomeSettled:
		observability.RecordReply(observability.PathContinuation)
	case correlation.OutcomeCallback:
		observability.RecordReply(observability.PathCallback)
	default:
		observability.RecordReply(observability.PathUnmatched)
		b.log.Trace("bridge.dispatch unmatched id=%q", reply.ID)
	}
}

// settle runs once per registered id, from the continuation the table hands out.
func (b *Bridge) settle(f *Future, v wire.Value, err error) {
	observability.AddPending(-1)
	if f.settle(v, err) {
		observability.RecordSettle(time.Since(f.started))
	}
}

func shapeOf(cmd wire.Command) string {
	if _, ok := cmd.(wire.StructuredCommand); ok {
		return "structured"
	}
	return "legacy"
}
