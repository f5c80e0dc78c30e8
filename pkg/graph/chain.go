package graph

// NewSentinel allocates an empty chain at the given depth: a distinguished
// node whose slots[0] is Body(nil) and whose Prev/Next both point to
// itself.
func NewSentinel(h *Heap, depth int) *Node {
	s := h.Alloc(Sentinel, 1)
	s.Depth = depth
	s.Prev = s
	s.Next = s
	s.Slots[0] = Slot{Kind: SlotBody}
	return s
}

// AppendTail inserts n as the new rightmost (tail) member of the chain
// guarded by sentinel s — the position processed first by right-to-left
// reduction. Hoisted substitution nodes for later-processed subterms are
// appended after earlier ones, so the last append sits closest to the
// cursor's starting point.
func AppendTail(s *Node, n *Node) {
	tail := s.Prev
	n.Prev = tail
	n.Next = s
	tail.Next = n
	s.Prev = n
	if s.Slots[0].Target == nil {
		s.Slots[0] = Slot{Kind: SlotBody, Target: n}
	}
}

// PrependHead inserts n as the new leftmost (head) member of the chain.
func PrependHead(s *Node, n *Node) {
	head := s.Next
	n.Next = head
	n.Prev = s
	head.Prev = n
	s.Next = n
	s.Slots[0] = Slot{Kind: SlotBody, Target: n}
}

// Unlink removes n from whatever chain it currently sits in. n's own
// Prev/Next are left dangling (the caller is about to discard n).
func Unlink(n *Node) {
	n.Prev.Next = n.Next
	n.Next.Prev = n.Prev
}

// SpliceBefore replaces old's position in its chain with n (used when a
// reduction rewrites a node in place with a new chain of one or more
// nodes headed by n and tailed by nTail).
func SpliceBefore(old *Node, n, nTail *Node) {
	prev, next := old.Prev, old.Next
	prev.Next = n
	n.Prev = prev
	nTail.Next = next
	next.Prev = nTail
}

// Bump increments n's reference count and invalidates its weak
// backreference once it is no longer sole-referenced.
func Bump(n *Node) {
	n.Nref++
	if n.Nref > 1 {
		n.ClearBackref()
	}
}

// BindRef records that owner.Slots[index] now holds the unique reference
// to target and bumps target's nref accordingly.
func BindRef(owner *Node, index int, target *Node) {
	Bump(target)
	if target.Nref == 1 {
		target.SetBackref(owner, index)
	}
}

// Release drops one reference to n. Once the count reaches zero, n (and,
// recursively, anything it exclusively owns or referenced) is returned to
// the heap.
func Release(h *Heap, n *Node) {
	if n == nil {
		return
	}
	n.Nref--
	if n.Nref > 0 {
		return
	}
	freeNode(h, n)
}

// freeNode reclaims n: it releases every Subst reference it holds,
// recursively frees any chain it owns via a Body slot, unlinks n from its
// siblings, and returns it to the heap.
func freeNode(h *Heap, n *Node) {
	for i := range n.Slots {
		switch n.Slots[i].Kind {
		case SlotSubst:
			Release(h, n.Slots[i].Target)
		case SlotBody:
			if n.Slots[i].Target != nil {
				FreeChain(h, n.Slots[i].Target)
			}
		}
	}
	if n.Prev != nil && n.Next != nil {
		Unlink(n)
	}
	h.Free(n)
}

// FreeChain reclaims every node owned by the chain guarded by sentinel s,
// then the sentinel itself. Body-owned chains are never shared — a Subst
// slot never points into a strictly deeper chain than its own — so this
// reclamation is unconditional, not refcounted.
func FreeChain(h *Heap, s *Node) {
	node := s.Next
	for node != s {
		next := node.Next
		freeNode(h, node)
		node = next
	}
	h.Free(s)
}
