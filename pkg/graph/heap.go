package graph

import "fmt"

// DefaultCap is the arena's default node-count ceiling.
const DefaultCap = 1_000_000

const (
	minThreshold = 0.6
	maxThreshold = 0.95
)

// Heap is the node arena: variable-size allocation, a live-node counter,
// and pressure/threshold calibration for passive-GC scheduling. Modeled
// on deltanet.Network's id counter and node registry; the teacher has no
// pressure calibration of its own, so this part derives the math fresh.
type Heap struct {
	cap       uint64
	nextID    uint64
	inUse     uint64
	threshold float64
}

// NewHeap returns a Heap with the given capacity (0 selects DefaultCap)
// and the baseline threshold of 0.6.
func NewHeap(cap uint64) *Heap {
	if cap == 0 {
		cap = DefaultCap
	}
	return &Heap{cap: cap, threshold: minThreshold}
}

// Baseline returns the initial threshold.
func (h *Heap) Baseline() float64 { return minThreshold }

// Cap returns the configured node-count ceiling.
func (h *Heap) Cap() uint64 { return h.cap }

// InUse returns the number of currently live nodes.
func (h *Heap) InUse() uint64 { return h.inUse }

// Threshold returns the current calibrated pressure threshold.
func (h *Heap) Threshold() float64 { return h.threshold }

// Pressure returns in_use / cap.
func (h *Heap) Pressure() float64 {
	if h.cap == 0 {
		return 0
	}
	return float64(h.inUse) / float64(h.cap)
}

// Alloc allocates a Node with nslots ports. Panics with "heap exhausted"
// once the live-node count reaches the configured cap.
func (h *Heap) Alloc(variety Variety, nslots int) *Node {
	if h.inUse >= h.cap {
		panic(fmt.Sprintf("heap exhausted: in_use=%d cap=%d", h.inUse, h.cap))
	}
	h.nextID++
	h.inUse++
	return &Node{
		id:      h.nextID,
		Variety: variety,
		Slots:   make([]Slot, nslots),
	}
}

// Free releases a node back to the arena. The caller is responsible for
// first decrementing/recursively freeing anything the node referenced
// (see pkg/reduce's reclamation pass); Free only adjusts the live count.
func (h *Heap) Free(n *Node) {
	if h.inUse > 0 {
		h.inUse--
	}
}

// Calibrate recomputes the threshold from current pressure:
//
//	p > t        → t = p + (1-p)/2
//	p > 0.666 t  → t = t + (1-t)/2
//	p < 0.333 t  → t = max(0.6, 0.666 t)
func (h *Heap) Calibrate() float64 {
	p := h.Pressure()
	t := h.threshold
	switch {
	case p > t:
		t = p + (1-p)/2
	case p > 0.666*t:
		t = t + (1-t)/2
	case p < 0.333*t:
		t = 0.666 * t
		if t < minThreshold {
			t = minThreshold
		}
	}
	if t > maxThreshold {
		t = maxThreshold
	}
	if t < minThreshold {
		t = minThreshold
	}
	h.threshold = t
	return t
}

// ShouldSweep reports whether current pressure has crossed the
// calibrated threshold, i.e. whether the reducer should opportunistically
// run a full-chain sweep.
func (h *Heap) ShouldSweep() bool {
	return h.Pressure() > h.threshold
}
