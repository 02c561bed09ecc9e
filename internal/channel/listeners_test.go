package channel

import (
	"testing"

	"github.com/danmuck/hostlink/internal/testutil/testlog"
)

func TestListenerSetDeliversInAttachOrder(t *testing.T) {
	testlog.Start(t)
	var set ListenerSet
	var order []int
	removeFirst := set.AddListener(func(Inbound) { order = append(order, 1) })
	set.AddListener(func(Inbound) { order = append(order, 2) })
	set.AddListener(func(Inbound) { order = append(order, 3) })
	if n := set.Listeners(); n != 3 {
		t.Fatalf("expected 3 listeners, got %d", n)
	}

	set.Deliver(Inbound{Origin: "https://a.example", Data: "x"})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("unexpected order: %v", order)
	}

	removeFirst()
	removeFirst()
	order = nil
	set.Deliver(Inbound{Data: "y"})
	if len(order) != 2 || order[0] != 2 || order[1] != 3 {
		t.Fatalf("unexpected order after remove: %v", order)
	}
	if n := set.Listeners(); n != 2 {
		t.Fatalf("expected 2 listeners, got %d", n)
	}
}

func TestListenerSetRemoveDuringDelivery(t *testing.T) {
	testlog.Start(t)
	var set ListenerSet
	calls := 0
	var remove func()
	remove = set.AddListener(func(Inbound) {
		calls++
		remove()
	})
	set.Deliver(Inbound{Data: "a"})
	set.Deliver(Inbound{Data: "b"})
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}
