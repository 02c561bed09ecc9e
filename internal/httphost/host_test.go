package httphost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/hostlink/internal/auth"
	"github.com/danmuck/hostlink/internal/bridge"
	"github.com/danmuck/hostlink/internal/channel"
	"github.com/danmuck/hostlink/internal/identity"
	"github.com/danmuck/hostlink/internal/testutil/testlog"
	"github.com/danmuck/hostlink/internal/wire"
)

type swapHandler struct {
	mu sync.RWMutex
	h  http.Handler
}

func (s *swapHandler) set(h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = h
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.h
	s.mu.RUnlock()
	if h == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}

type pair struct {
	host, frame       *Host
	hostURL, frameURL string
}

func newPair(t *testing.T) pair {
	t.Helper()
	var hostSwap, frameSwap swapHandler
	hostSrv := httptest.NewServer(&hostSwap)
	frameSrv := httptest.NewServer(&frameSwap)
	t.Cleanup(hostSrv.Close)
	t.Cleanup(frameSrv.Close)

	host, err := New(Config{Name: "host", Origin: hostSrv.URL, AllowedOrigins: []string{frameSrv.URL}})
	if err != nil {
		t.Fatalf("new host: %v", err)
	}
	frame, err := New(Config{Name: "frame", Origin: frameSrv.URL, AllowedOrigins: []string{hostSrv.URL}})
	if err != nil {
		t.Fatalf("new frame: %v", err)
	}
	hostSwap.set(host.Handler())
	frameSwap.set(frame.Handler())
	return pair{host: host, frame: frame, hostURL: hostSrv.URL, frameURL: frameSrv.URL}
}

func TestBridgeRoundTripOverHTTP(t *testing.T) {
	testlog.Start(t)
	p := newPair(t)

	p.frame.AddListener(func(in channel.Inbound) {
		if in.Origin != p.hostURL {
			return
		}
		msg, ok := in.Data.(wire.StructuredMessage)
		if !ok {
			return
		}
		cmd, err := wire.DecodeCommand(wire.Message{Structured: &msg}, "")
		if err != nil {
			return
		}
		reply, _ := wire.EncodeReply(cmd.Callback, wire.MustFromAny(map[string]any{"ok": true, "sid": cmd.AppSID}))
		go func() { _ = p.frame.PostText(reply, p.hostURL) }()
	})

	provider, _ := identity.NewStatic(p.frameURL, "sid.http")
	b, err := bridge.New(p.host, provider, bridge.Config{})
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	b.Open()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := b.Call(ctx, "some:method", wire.Options{Params: map[string]any{"a": 1}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	want := wire.MustFromAny(map[string]any{"ok": true, "sid": "sid.http"})
	if !v.Equal(want) {
		t.Fatalf("got=%s want=%s", v, want)
	}
}

func TestReceiveDeliversTextWithOrigin(t *testing.T) {
	testlog.Start(t)
	h, err := New(Config{Origin: "https://host.example", AllowedOrigins: []string{"https://frame.example"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := make(chan channel.Inbound, 1)
	h.AddListener(func(in channel.Inbound) { got <- in })

	req := httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader("id.1:{\"ok\":true}"))
	req.Header.Set("Origin", "https://frame.example")
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	select {
	case in := <-got:
		if in.Origin != "https://frame.example" || in.Data != "id.1:{\"ok\":true}" {
			t.Fatalf("unexpected inbound: %+v", in)
		}
	default:
		t.Fatalf("listener not invoked")
	}
}

func TestReceiveRejectsDisallowedOrigin(t *testing.T) {
	testlog.Start(t)
	h, _ := New(Config{Origin: "https://host.example", AllowedOrigins: []string{"https://frame.example"}})
	called := false
	h.AddListener(func(channel.Inbound) { called = true })

	req := httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader("id.1:"))
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	h.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rr.Code)
	}
	if called {
		t.Fatalf("listener invoked for disallowed origin")
	}
}

func TestReceiveRequiresToken(t *testing.T) {
	testlog.Start(t)
	h, _ := New(Config{Origin: "https://host.example", AllowedOrigins: []string{"https://frame.example"}, Token: "s3cret"})
	got := make(chan channel.Inbound, 2)
	h.AddListener(func(in channel.Inbound) { got <- in })

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, DefaultPath, strings.NewReader("id.1:"))
		req.Header.Set("Origin", "https://frame.example")
		if token != "" {
			req.Header.Set(auth.HeaderName, token)
		}
		rr := httptest.NewRecorder()
		h.Handler().ServeHTTP(rr, req)
		return rr.Code
	}
	if code := send(""); code != http.StatusUnauthorized {
		t.Fatalf("missing token status=%d", code)
	}
	if code := send("wrong"); code != http.StatusUnauthorized {
		t.Fatalf("wrong token status=%d", code)
	}
	if len(got) != 0 {
		t.Fatalf("listener invoked without valid token")
	}
	if code := send("s3cret"); code != http.StatusAccepted {
		t.Fatalf("valid token status=%d", code)
	}
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(got))
	}
}

func TestPostCarriesToken(t *testing.T) {
	testlog.Start(t)
	seen := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get(auth.HeaderName)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	h, _ := New(Config{Origin: "https://host.example", Token: "s3cret"})
	if err := h.PostText("x", srv.URL); err != nil {
		t.Fatalf("post: %v", err)
	}
	if token := <-seen; token != "s3cret" {
		t.Fatalf("unexpected token header %q", token)
	}
}

func TestHealth(t *testing.T) {
	testlog.Start(t)
	h, _ := New(Config{Name: "frame-a", Origin: "https://frame.example"})
	rr := httptest.NewRecorder()
	h.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "frame-a") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPostErrors(t *testing.T) {
	testlog.Start(t)
	if _, err := New(Config{}); !errors.Is(err, ErrOriginRequired) {
		t.Fatalf("expected ErrOriginRequired, got %v", err)
	}
	h, _ := New(Config{Origin: "https://host.example"})
	if err := h.PostText("x", channel.AnyOrigin); !errors.Is(err, ErrUnaddressable) {
		t.Fatalf("expected ErrUnaddressable, got %v", err)
	}
	if err := h.PostMessage(wire.Message{}, "https://frame.example"); !errors.Is(err, channel.ErrNothingToSend) {
		t.Fatalf("expected ErrNothingToSend, got %v", err)
	}
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failing.Close()
	if err := h.PostText("x", failing.URL); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	h, _ := New(Config{Origin: "http://127.0.0.1:0", ListenAddr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}
