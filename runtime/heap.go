package runtime

import (
	"sync/atomic"

	"github.com/ternlang/tern/unit"
)

// Storage accounting estimates. The collector owns real memory; the heap
// here only enforces the configured budget.
const (
	objectHeaderSize = 48
	slot32Size       = 4
	slot64Size       = 8
	slotRefSize      = 8
)

// Heap tracks managed storage against a fixed budget. Reservations are
// lock-free; collection is an external concern that returns budget through
// Release.
type Heap struct {
	limit int64
	used  atomic.Int64
}

// NewHeap creates a heap with the given byte budget.
func NewHeap(limit int64) *Heap {
	return &Heap{limit: limit}
}

// Limit returns the configured budget.
func (h *Heap) Limit() int64 { return h.limit }

// Used returns the currently reserved bytes.
func (h *Heap) Used() int64 { return h.used.Load() }

// Release returns bytes to the budget. Collectors call it after reclaiming
// objects.
func (h *Heap) Release(n int64) {
	h.used.Add(-n)
}

func (h *Heap) reserve(n int64) bool {
	for {
		used := h.used.Load()
		if used+n > h.limit {
			return false
		}
		if h.used.CompareAndSwap(used, used+n) {
			return true
		}
	}
}

// AllocObject allocates an instance of t with zeroed slots. It reports
// false when the budget is exhausted.
func (h *Heap) AllocObject(t *TypeDescriptor) (*Object, bool) {
	size := int64(objectHeaderSize +
		t.n32*slot32Size + t.n64*slot64Size + t.nref*slotRefSize)
	if !h.reserve(size) {
		return nil, false
	}
	o := &Object{class: t}
	if t.n32 > 0 {
		o.f32 = make([]uint32, t.n32)
	}
	if t.n64 > 0 {
		o.f64 = make([]uint64, t.n64)
	}
	if t.nref > 0 {
		o.fref = make([]*Object, t.nref)
	}
	return o, true
}

// AllocArray allocates an array of the given type and length with zeroed
// elements. Length must be non-negative.
func (h *Heap) AllocArray(t *TypeDescriptor, length int32) (*Object, bool) {
	w := elementWidth(t)
	var elemSize int64
	switch w {
	case unit.Width32:
		elemSize = slot32Size
	case unit.Width64:
		elemSize = slot64Size
	default:
		elemSize = slotRefSize
	}
	if !h.reserve(objectHeaderSize + elemSize*int64(length)) {
		return nil, false
	}
	arr := &arrayData{length: length}
	switch w {
	case unit.Width32:
		arr.w32 = make([]uint32, length)
	case unit.Width64:
		arr.w64 = make([]uint64, length)
	default:
		arr.refs = make([]*Object, length)
	}
	return &Object{class: t, arr: arr}, true
}

// AllocString allocates a string object with the given payload.
func (h *Heap) AllocString(class *TypeDescriptor, s string) (*Object, bool) {
	if !h.reserve(objectHeaderSize + int64(len(s))) {
		return nil, false
	}
	return &Object{class: class, str: s}, true
}
