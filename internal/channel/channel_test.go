package channel

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/hostlink/internal/testutil/testlog"
	"github.com/danmuck/hostlink/internal/wire"
)

const (
	hostOrigin  = "https://host.example"
	frameOrigin = "https://frame.example"
)

func collect(t *testing.T) (func(string), <-chan string) {
	t.Helper()
	ch := make(chan string, 16)
	return func(data string) { ch <- data }, ch
}

func expectData(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got=%q want=%q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func expectNothing(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected delivery %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdapterFiltersOrigin(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	defer host.Close()
	defer frame.Close()

	handle, got := collect(t)
	a, err := NewAdapter(host, frameOrigin, handle, nil)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	a.Subscribe()

	if err := host.Inject(Inbound{Origin: "https://evil.example", Data: "id.1:{}"}); err != nil {
		t.Fatalf("inject: %v", err)
	}
	expectNothing(t, got)

	if err := frame.PostText("id.1:{}", hostOrigin); err != nil {
		t.Fatalf("post: %v", err)
	}
	expectData(t, got, "id.1:{}")
}

func TestAdapterDropsEmptyAndNonText(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	defer host.Close()
	defer frame.Close()

	handle, got := collect(t)
	a, _ := NewAdapter(host, frameOrigin, handle, nil)
	a.Subscribe()

	_ = host.Inject(Inbound{Origin: frameOrigin})
	_ = host.Inject(Inbound{Origin: frameOrigin, Data: ""})
	_ = host.Inject(Inbound{Origin: frameOrigin, Data: map[string]any{"x": 1}})
	expectNothing(t, got)
	_ = host.Inject(Inbound{Origin: frameOrigin, Data: []byte("id.2:")})
	expectData(t, got, "id.2:")
}

func TestAdapterSubscribeTwiceAttachesTwice(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	defer host.Close()
	defer frame.Close()

	handle, got := collect(t)
	a, _ := NewAdapter(host, frameOrigin, handle, nil)
	a.Subscribe()
	a.Subscribe()
	if host.Listeners() != 2 || a.Subscriptions() != 2 {
		t.Fatalf("listeners=%d subscriptions=%d", host.Listeners(), a.Subscriptions())
	}
	_ = frame.PostText("id.3:", hostOrigin)
	expectData(t, got, "id.3:")
	expectData(t, got, "id.3:")

	a.Unsubscribe()
	if host.Listeners() != 0 {
		t.Fatalf("listeners after unsubscribe=%d", host.Listeners())
	}
	_ = frame.PostText("id.4:", hostOrigin)
	expectNothing(t, got)
}

func TestAdapterSendTargetsDestination(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	defer host.Close()
	defer frame.Close()

	received := make(chan Inbound, 4)
	frame.AddListener(func(in Inbound) { received <- in })

	a, _ := NewAdapter(host, frameOrigin, func(string) {}, nil)
	if err := a.Send(wire.Message{Text: "ping:id.1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case in := <-received:
		if in.Origin != hostOrigin || in.Data != "ping:id.1" {
			t.Fatalf("unexpected inbound: %+v", in)
		}
	case <-time.After(time.Second):
		t.Fatalf("frame never received message")
	}

	wrong, _ := NewAdapter(host, "https://other.example", func(string) {}, nil)
	if err := wrong.Send(wire.Message{Text: "ping:id.2"}); err != nil {
		t.Fatalf("mismatched target should be silent, got %v", err)
	}
	select {
	case in := <-received:
		t.Fatalf("mismatched target delivered: %+v", in)
	case <-time.After(50 * time.Millisecond):
	}

	if err := a.Send(wire.Message{Structured: &wire.StructuredMessage{Method: "a:b", Callback: "id.3"}}); err != nil {
		t.Fatalf("send structured: %v", err)
	}
	select {
	case in := <-received:
		msg, ok := in.Data.(wire.StructuredMessage)
		if !ok || msg.Callback != "id.3" {
			t.Fatalf("unexpected structured delivery: %+v", in)
		}
	case <-time.After(time.Second):
		t.Fatalf("structured message never received")
	}
}

func TestAdapterRequiresDestination(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	defer host.Close()
	defer frame.Close()
	if _, err := NewAdapter(host, " ", func(string) {}, nil); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}
}

func TestPipeClosed(t *testing.T) {
	testlog.Start(t)
	host, frame := Pipe(hostOrigin, frameOrigin)
	_ = frame.Close()
	if err := host.PostText("x", frameOrigin); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	_ = host.Close()
	if err := host.PostMessage(wire.Message{Text: "x"}, AnyOrigin); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := host.PostMessage(wire.Message{}, AnyOrigin); !errors.Is(err, ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
}
