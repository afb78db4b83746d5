package vm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/google/btree"
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Heap: allocation registry and tracing
// ---------------------------------------------------------------------------

// Heap registers every object allocated through the runtime and can trace
// liveness from a set of roots using each object's VisitChildren.
//
// Allocation and collection are serialized by a single heap-wide mutex so
// that a collection pass never observes a half-registered object. The lock
// does not protect the logical contents of any object; callers sharing a
// hash between goroutines provide their own exclusion.
type Heap struct {
	mu      sync.Mutex
	objects *btree.BTreeG[HeapObject]

	gcDisabled  atomic.Int32
	allocations atomic.Uint64
	collections atomic.Uint64
	lastStats   atomic.Value // *HeapStats

	log commonlog.Logger
}

// HeapStats holds statistics from a single collection.
type HeapStats struct {
	Marked    int
	Swept     int
	Live      int
	Skipped   bool
	Duration  time.Duration
	Timestamp time.Time
}

func objectLess(a, b HeapObject) bool {
	return a.header().ObjectID() < b.header().ObjectID()
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		objects: btree.NewG[HeapObject](32, objectLess),
		log:     commonlog.GetLogger("garnet.heap"),
	}
}

// Allocate registers obj with the heap and returns it.
func (h *Heap) Allocate(obj HeapObject) HeapObject {
	obj.header().ObjectID()

	h.mu.Lock()
	h.objects.ReplaceOrInsert(obj)
	h.mu.Unlock()

	h.allocations.Add(1)
	return obj
}

// Contains reports whether obj is registered.
func (h *Heap) Contains(obj HeapObject) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects.Has(obj)
}

// Len returns the number of registered objects.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects.Len()
}

// Allocations returns the total number of registrations performed.
func (h *Heap) Allocations() uint64 {
	return h.allocations.Load()
}

// GCEnabled reports whether collections may run.
func (h *Heap) GCEnabled() bool {
	return h.gcDisabled.Load() == 0
}

// DisableGC suspends collection until the returned function is called.
// Calls nest.
func (h *Heap) DisableGC() (restore func()) {
	h.gcDisabled.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { h.gcDisabled.Add(-1) })
	}
}

// LastStats returns statistics from the most recent collection, or nil.
func (h *Heap) LastStats() *HeapStats {
	v := h.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*HeapStats)
}

// Collections returns the number of collections performed.
func (h *Heap) Collections() uint64 {
	return h.collections.Load()
}

// Collect marks everything reachable from roots and unregisters every
// object that was not reached. It does nothing while the collector is
// disabled.
func (h *Heap) Collect(roots ...Value) *HeapStats {
	start := time.Now()
	stats := &HeapStats{Timestamp: start}

	if !h.GCEnabled() {
		stats.Skipped = true
		return stats
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	marked := Trace(roots...)
	stats.Marked = len(marked)

	var dead []HeapObject
	h.objects.Ascend(func(obj HeapObject) bool {
		if _, ok := marked[obj.header().ObjectID()]; !ok {
			dead = append(dead, obj)
		}
		return true
	})
	for _, obj := range dead {
		h.objects.Delete(obj)
	}

	stats.Swept = len(dead)
	stats.Live = h.objects.Len()
	stats.Duration = time.Since(start)

	h.collections.Add(1)
	h.lastStats.Store(stats)
	h.log.Debugf("collection: marked=%d swept=%d live=%d in %s",
		stats.Marked, stats.Swept, stats.Live, stats.Duration)
	return stats
}

// Trace returns every heap object reachable from roots, keyed by object ID.
func Trace(roots ...Value) map[uint64]HeapObject {
	t := &tracer{
		marked: make(map[uint64]HeapObject),
		stack:  arraystack.New(),
	}
	for _, r := range roots {
		t.VisitValue(r)
	}
	for !t.stack.Empty() {
		top, _ := t.stack.Pop()
		top.(HeapObject).VisitChildren(t)
	}
	return t.marked
}

// tracer is the marking Visitor.
type tracer struct {
	marked map[uint64]HeapObject
	stack  *arraystack.Stack
}

func (t *tracer) VisitValue(v Value) {
	if v.imm || v.obj == nil {
		return
	}
	t.VisitObject(v.obj)
}

func (t *tracer) VisitObject(obj HeapObject) {
	if obj == nil {
		return
	}
	id := obj.header().ObjectID()
	if _, ok := t.marked[id]; ok {
		return
	}
	t.marked[id] = obj
	t.stack.Push(obj)
}
