package unflatten

import (
	"testing"

	"github.com/vic/mlc/pkg/graph"
)

// TestChargeTripsPrunedOnceBoundExceeded is a white-box test of the
// unsharing-bound bookkeeping itself: once produced exceeds
// K*N*(ln N + e), charge must start refusing and Pruned() must report it.
func TestChargeTripsPrunedOnceBoundExceeded(t *testing.T) {
	u := &Unflattener{K: 1, seen: make(map[*graph.Node]bool)}
	n := &graph.Node{}
	u.seen[n] = true // len(seen)==1 fixes bound at 1*1*(ln1+e) ~= 2.718

	if !u.charge() {
		t.Fatalf("first charge should stay within bound")
	}
	if !u.charge() {
		t.Fatalf("second charge should still be within bound (2 <= 2.718)")
	}
	if u.charge() {
		t.Fatalf("third charge should exceed the bound")
	}
	if !u.Pruned() {
		t.Fatalf("expected Pruned() to report true once the bound is exceeded")
	}
}

func TestBoundGrowsWithSeenCount(t *testing.T) {
	u := &Unflattener{seen: make(map[*graph.Node]bool)}
	small := u.bound()
	for i := 0; i < 100; i++ {
		u.seen[&graph.Node{}] = true
	}
	large := u.bound()
	if large <= small {
		t.Fatalf("expected bound to grow with the seen-set size: small=%.2f large=%.2f", small, large)
	}
}
