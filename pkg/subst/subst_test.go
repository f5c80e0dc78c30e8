package subst_test

import (
	"testing"

	"github.com/vic/mlc/pkg/graph"
	"github.com/vic/mlc/pkg/subst"
)

// buildBinder constructs a minimal Abs-shaped binder at depth 0 whose
// body is `Bound(0,1) + Bound(0,1)` (two occurrences of formal #1, the
// single arg), a simplified form of what pkg/flatten produces for
// `[x. x + x]` (the primitive sits directly in the App's slot 0 rather
// than behind a hoisted node), plus an args node whose Slots[1] carries
// the single argument value 100.
func buildBinder(h *graph.Heap) (binder, args *graph.Node) {
	binder = h.Alloc(graph.NAbs, 2)
	binder.Depth = 0
	body := graph.NewSentinel(h, 1)
	plus := h.Alloc(graph.NApp, 3)
	plus.Depth = 1
	plus.Slots[0] = graph.Slot{Kind: graph.SlotPrim, PrimRef: 0}
	plus.Slots[1] = graph.Slot{Kind: graph.SlotBound, Up: 0, Across: 1}
	plus.Slots[2] = graph.Slot{Kind: graph.SlotBound, Up: 0, Across: 1}
	graph.AppendTail(body, plus)
	binder.Slots[0] = graph.Slot{Kind: graph.SlotBody, Target: body}
	binder.Slots[1] = graph.Slot{Kind: graph.SlotParam}

	args = h.Alloc(graph.NApp, 2)
	args.Depth = 0
	args.Slots[0] = graph.Slot{Kind: graph.SlotNum, Num: 1}
	args.Slots[1] = graph.Slot{Kind: graph.SlotNum, Num: 100}
	return binder, args
}

func TestReduceEditsInPlaceWhenBinderIsSoleReferrer(t *testing.T) {
	t.Parallel()
	h := graph.NewHeap(0)
	binder, args := buildBinder(h)
	binder.Nref = 1

	s := subst.New(h)
	head, tail, _, edited := s.Reduce(binder, args, nil, false)
	if !edited {
		t.Fatalf("expected subst_edit when binder.Nref<=1")
	}
	if head == nil || tail == nil {
		t.Fatalf("expected a non-empty rewritten chain")
	}
	if head.Depth != 0 {
		t.Fatalf("expected the body to shift from depth 1 to depth 0, got %d", head.Depth)
	}
	if head.Slots[1].Kind != graph.SlotNum || head.Slots[1].Num != 100 {
		t.Fatalf("expected both occurrences substituted with the arg value, got %#v", head.Slots[1])
	}
	if head.Slots[2].Kind != graph.SlotNum || head.Slots[2].Num != 100 {
		t.Fatalf("expected both occurrences substituted with the arg value, got %#v", head.Slots[2])
	}
}

func TestReduceCopiesWhenBinderIsShared(t *testing.T) {
	t.Parallel()
	h := graph.NewHeap(0)
	binder, args := buildBinder(h)
	binder.Nref = 2 // shared: must not mutate the original body

	body := binder.Slots[0].Target
	original := body.Head()

	s := subst.New(h)
	head, _, _, edited := s.Reduce(binder, args, nil, false)
	if edited {
		t.Fatalf("expected subst_copy when binder is shared (Nref>1)")
	}
	if head == original {
		t.Fatalf("expected a fresh copy distinct from the original body node")
	}
	if original.Slots[1].Kind != graph.SlotBound {
		t.Fatalf("expected the original chain left untouched, got %#v", original.Slots[1])
	}
	if head.Slots[1].Kind != graph.SlotNum || head.Slots[1].Num != 100 {
		t.Fatalf("expected the copy's occurrences substituted, got %#v", head.Slots[1])
	}
}

func TestReduceForceCopyOverridesSoleReferrer(t *testing.T) {
	t.Parallel()
	h := graph.NewHeap(0)
	binder, args := buildBinder(h)
	binder.Nref = 1

	s := subst.New(h)
	_, _, _, edited := s.Reduce(binder, args, nil, true)
	if edited {
		t.Fatalf("expected forceCopy=true to take the subst_copy path regardless of Nref")
	}
}

func TestReduceEmptyBodyReturnsNilHeadTail(t *testing.T) {
	t.Parallel()
	h := graph.NewHeap(0)
	binder := h.Alloc(graph.NAbs, 1)
	binder.Depth = 0
	binder.Slots[0] = graph.Slot{Kind: graph.SlotBody, Target: nil}

	s := subst.New(h)
	head, tail, sentinel, _ := s.Reduce(binder, nil, nil, false)
	if head != nil || tail != nil || sentinel != nil {
		t.Fatalf("expected nil head/tail/sentinel for a binder with no body")
	}
}
