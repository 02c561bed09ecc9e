package streamhost

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/danmuck/hostlink/internal/bridge"
	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/responder"
	"github.com/danmuck/hostlink/internal/testutil/testlog"
	"github.com/danmuck/hostlink/internal/wire"
)

const (
	hostOrigin  = "https://host.example"
	frameOrigin = "https://frame.example"
	appSID      = "sid.stream"
)

func newPair(t *testing.T) (*Host, *Host) {
	t.Helper()
	a, b := net.Pipe()
	host, err := New(a, hostOrigin, nil)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	frame, err := New(b, frameOrigin, nil)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	t.Cleanup(func() {
		_ = host.Close()
		_ = frame.Close()
	})
	return host, frame
}

func newBridge(t *testing.T, host channel.Host) *bridge.Bridge {
	t.Helper()
	provider, err := identity.NewStatic(frameOrigin, appSID)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	b, err := bridge.New(host, provider, bridge.Config{})
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}
	b.Open()
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBridgeOverStream(t *testing.T) {
	testlog.Start(t)
	host, frame := newPair(t)
	r := responder.New(frame, hostOrigin, appSID, responder.Echo, nil)
	r.Start()
	defer r.Stop()
	b := newBridge(t, host)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := b.Call(ctx, "wallet:balance", wire.Options{Params: map[string]any{"account": "a1"}})
	if err != nil {
		t.Fatalf("structured call: %v", err)
	}
	if m, _ := v.Get("method"); !m.Equal(wire.String("wallet:balance")) {
		t.Fatalf("unexpected structured reply: %s", v)
	}
	params, _ := v.Get("params")
	if acct, _ := params.Get("account"); !acct.Equal(wire.String("a1")) {
		t.Fatalf("params lost: %s", v)
	}

	v, err = b.Call(ctx, "ping", wire.Options{SingleOption: "raw-blob"})
	if err != nil {
		t.Fatalf("legacy call: %v", err)
	}
	if p, _ := v.Get("params"); !p.Equal(wire.String("raw-blob")) {
		t.Fatalf("unexpected legacy reply: %s", v)
	}
}

func TestTargetMismatchIsDropped(t *testing.T) {
	testlog.Start(t)
	host, frame := newPair(t)
	got := make(chan channel.Inbound, 4)
	frame.AddListener(func(in channel.Inbound) { got <- in })

	if err := host.PostText("lost", "https://elsewhere.example"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := host.PostText("kept", channel.AnyOrigin); err != nil {
		t.Fatalf("post: %v", err)
	}
	select {
	case in := <-got:
		if in.Data != "kept" || in.Origin != hostOrigin {
			t.Fatalf("unexpected delivery: %+v", in)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected delivery")
	}
	select {
	case in := <-got:
		t.Fatalf("unexpected extra delivery: %+v", in)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSafeTimeoutOverSilentStream(t *testing.T) {
	testlog.Start(t)
	host, _ := newPair(t)
	b := newBridge(t, host)

	f := b.Send("ping", wire.Options{IsSafely: true, SafelyTime: 30 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !wire.IsSafeTimeout(v) {
		t.Fatalf("expected safe-timeout sentinel, got %s", v)
	}
}

func TestClosedHostRejectsPost(t *testing.T) {
	testlog.Start(t)
	host, _ := newPair(t)
	if err := host.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := host.PostText("x", channel.AnyOrigin); err == nil {
		t.Fatalf("expected post after close to fail")
	}
	if err := host.Err(); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestNewRequiresOrigin(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	if _, err := New(a, " ", nil); err == nil {
		t.Fatalf("expected origin error")
	}
}
