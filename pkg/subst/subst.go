// Package subst implements in-place explicit substitution over a
// flattened body chain: the classic shift-and-replace walk (as in a
// tree-based reducer) carried out directly on graph nodes, choosing
// between editing the body in place or copying it first depending on
// whether the binder producing it is shared. Modeled on
// pkg/deltanet/deltanet.go's active-pair rewiring (commuteFanReplicator
// and friends), repurposed from interaction-net port rewiring to
// reference-counted node mutation.
package subst

import "github.com/vic/mlc/pkg/graph"

// Substituter carries the heap needed to allocate copies.
type Substituter struct {
	Heap *graph.Heap
}

// New returns a Substituter over h.
func New(h *graph.Heap) *Substituter {
	return &Substituter{Heap: h}
}

// Reduce eliminates binder (an Abs or Fix node whose body sentinel is
// binder.Slots[0].Target) by substituting every Bound(0, k) occurrence
// in its body with args.Slots[k] — args is the App (or Let) node
// supplying values at the same slot indices the formals occupy, so both
// beta-application and the non-recursive Let desugaring share this one
// routine. When binder is a Fix, self, if non-nil, is substituted for
// Bound(0, 0) occurrences (the self-reference); the node passed as self
// is bumped once per occurrence rewritten.
//
// It returns the head and tail of the now depth-shifted body chain,
// ready to be spliced into the position args/binder previously occupied
// via graph.SpliceBefore, plus the sentinel that wrapped them (now
// drained of members and owed a plain graph.Heap.Free, never a
// graph.FreeChain — its members live on elsewhere). The chain is edited
// in place when binder has at most one referrer (subst_edit, edited
// reports true); otherwise a full copy is made first (subst_copy) so
// other referrers keep the unmodified original.
// forceCopy, when true, always takes the subst_copy path regardless of
// binder's reference count. The reducer sets this for beta/fix
// application: a Fix's self-substitution keeps the binder node alive
// for further recursive unfolding, and a global binder's body must
// remain an intact, reusable template (binders are never freed), so
// neither can safely be edited in place even when momentarily
// sole-referenced. Let reduction, whose binder is never shared this
// way, passes forceCopy=false and gets the nref-based choice.
func (s *Substituter) Reduce(binder, args, self *graph.Node, forceCopy bool) (head, tail, sentinel *graph.Node, edited bool) {
	body := binder.Slots[0].Target
	if body == nil {
		return nil, nil, nil, true
	}
	edited = !forceCopy && binder.Nref <= 1
	work := body
	if !edited {
		work = s.copyChain(body)
	}
	s.rewriteChain(work, 0, binder.Depth, args, self)
	head, tail = work.Head(), work.Tail()
	if head == work {
		// empty body: nothing to splice
		return nil, nil, work, edited
	}
	return head, tail, work, edited
}

// rewriteChain walks every node owned by sentinel (its own linked
// members, and anything reached through a nested SlotBody), shifting
// Depth down by one level and resolving Bound references relative to
// rel, the number of binder levels crossed since the eliminated binder's
// body root (0 at the root, +1 per nested SlotBody descent, except into
// a Test's branches, which keep rel unchanged).
func (s *Substituter) rewriteChain(sentinel *graph.Node, rel, binderDepth int, args, self *graph.Node) {
	for n := sentinel.Next; n != sentinel; n = n.Next {
		s.rewriteNode(n, rel, binderDepth, args, self)
	}
}

func (s *Substituter) rewriteNode(n *graph.Node, rel, binderDepth int, args, self *graph.Node) {
	n.Depth--
	for i := range n.Slots {
		slot := &n.Slots[i]
		switch slot.Kind {
		case graph.SlotBound:
			switch {
			case slot.Up == rel:
				s.substituteInto(n, i, slot.Across, args, self)
			case slot.Up > rel:
				slot.Up--
			}
		case graph.SlotBody:
			if slot.Target != nil {
				// A Test's branches share its own scope (spec.md §4.D):
				// unlike Abs/Fix/Let, whose Body slot opens a new binder
				// level, Test never binds, so rel carries through
				// unchanged into its Csq/Alt sub-chains.
				next := rel + 1
				if n.Variety == graph.NTest {
					next = rel
				}
				s.rewriteChain(slot.Target, next, binderDepth, args, self)
			}
		}
	}
}

// substituteInto replaces n.Slots[index] (a resolved Bound reference)
// with the value bound to formal across: args.Slots[across] for across
// >= 1, or a fresh reference to self for across == 0 (Fix's
// self-binding). The substituted value is duplicated by tag, bumping the
// target's refcount when it is itself a node reference so sharing is
// tracked correctly.
func (s *Substituter) substituteInto(n *graph.Node, index, across int, args, self *graph.Node) {
	if across == 0 {
		if self == nil {
			n.Slots[index] = graph.Slot{Kind: graph.SlotNull}
			return
		}
		n.Slots[index] = graph.Slot{Kind: graph.SlotSubst, Target: self}
		graph.BindRef(n, index, self)
		return
	}
	if args == nil || across >= len(args.Slots) {
		n.Slots[index] = graph.Slot{Kind: graph.SlotNull}
		return
	}
	val := args.Slots[across]
	n.Slots[index] = val
	if val.Kind == graph.SlotSubst && val.Target != nil {
		graph.BindRef(n, index, val.Target)
	}
}

// copyChain duplicates the chain owned by sentinel, preserving internal
// sharing: a node referenced more than once within the chain is copied
// exactly once and subsequent references pick up the copy via its
// forward pointer (cleared once the copy finishes).
func (s *Substituter) copyChain(sentinel *graph.Node) *graph.Node {
	out := graph.NewSentinel(s.Heap, sentinel.Depth)
	var made []*graph.Node
	for n := sentinel.Next; n != sentinel; n = n.Next {
		c := s.copyShallow(n)
		n.SetForward(c)
		made = append(made, c)
		graph.AppendTail(out, c)
	}
	// Second pass: resolve Subst targets that pointed within the chain
	// (now available via forward) and copy nested Body chains.
	orig := sentinel.Next
	for _, c := range made {
		s.rewriteCopyRefs(orig, c)
		orig = orig.Next
	}
	orig = sentinel.Next
	for orig != sentinel {
		orig.ClearForward()
		orig = orig.Next
	}
	return out
}

func (s *Substituter) copyShallow(n *graph.Node) *graph.Node {
	c := s.Heap.Alloc(n.Variety, len(n.Slots))
	c.Depth = n.Depth
	copy(c.Slots, n.Slots)
	return c
}

func (s *Substituter) rewriteCopyRefs(orig, c *graph.Node) {
	for i := range orig.Slots {
		slot := orig.Slots[i]
		switch slot.Kind {
		case graph.SlotSubst:
			if slot.Target == nil {
				continue
			}
			if fwd := slot.Target.Forward(); fwd != nil {
				c.Slots[i].Target = fwd
			} else {
				c.Slots[i].Target = slot.Target
			}
			graph.BindRef(c, i, c.Slots[i].Target)
		case graph.SlotBody:
			if slot.Target != nil {
				c.Slots[i].Target = s.copyChain(slot.Target)
			}
		}
	}
}
