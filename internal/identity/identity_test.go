package identity

import (
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/hostlink/internal/testutil/testlog"
)

func TestUUIDGeneratorIssuesDistinctIDs(t *testing.T) {
	testlog.Start(t)
	var gen UUIDGenerator
	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		id, err := gen.NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id=%q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewStaticRequiresOrigin(t *testing.T) {
	testlog.Start(t)
	if _, err := NewStatic("  ", "sid"); !errors.Is(err, ErrOriginRequired) {
		t.Fatalf("expected ErrOriginRequired, got %v", err)
	}
	p, err := NewStatic(" https://host.example ", " sid.1 ")
	if err != nil {
		t.Fatalf("new static: %v", err)
	}
	if p.TargetOrigin() != "https://host.example" || p.AppSID() != "sid.1" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestSessionIDStable(t *testing.T) {
	testlog.Start(t)
	if SessionID("app") != SessionID(" app ") {
		t.Fatalf("session id not stable across whitespace")
	}
	if SessionID("app") == SessionID("other") {
		t.Fatalf("session ids collided")
	}
}

func TestPairSessionIDIsSymmetric(t *testing.T) {
	testlog.Start(t)
	host, frame := "http://127.0.0.1:7100", "http://127.0.0.1:7200"
	if PairSessionID(host, frame) != PairSessionID(frame, " "+host) {
		t.Fatalf("pair session id depends on argument order")
	}
	if PairSessionID(host, frame) == PairSessionID(host, "http://127.0.0.1:7300") {
		t.Fatalf("pair session ids collided")
	}
	if strings.Contains(PairSessionID(host, frame), ":") {
		t.Fatalf("session id must not contain the namespace separator")
	}
}
