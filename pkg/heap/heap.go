// Package heap is the VM's object registry: an arena of slots addressed by
// generation-checked handles. Nothing is collected yet; every slot carries
// a mark bit for a future tracing collector.
package heap

import (
	"fmt"

	"ember/pkg/value"
)

// ObjectKind represents the type of a heap object.
type ObjectKind uint8

const (
	KindInvalid ObjectKind = iota
	KindFunction
	KindNative
)

func (k ObjectKind) String() string {
	switch k {
	case KindFunction:
		return "FUNCTION"
	case KindNative:
		return "NATIVE"
	default:
		return "INVALID"
	}
}

// Object is implemented by everything the heap can own.
type Object interface {
	Kind() ObjectKind
	Inspect() string
}

type slot struct {
	generation uint32
	live       bool
	marked     bool
	object     Object
}

type Heap struct {
	slots []slot
	free  []uint32
}

func New() *Heap {
	return &Heap{}
}

// Alloc stores obj and returns its handle.
func (h *Heap) Alloc(obj Object) value.Handle {
	if n := len(h.free); n > 0 {
		index := h.free[n-1]
		h.free = h.free[:n-1]
		s := &h.slots[index]
		s.live = true
		s.marked = false
		s.object = obj
		return value.Handle{Index: index, Generation: s.generation}
	}

	h.slots = append(h.slots, slot{live: true, object: obj})
	return value.Handle{Index: uint32(len(h.slots) - 1)}
}

// Get resolves a handle. Stale or unknown handles report false.
func (h *Heap) Get(handle value.Handle) (Object, bool) {
	s, ok := h.lookup(handle)
	if !ok {
		return nil, false
	}
	return s.object, true
}

// Free releases a slot and invalidates every outstanding handle to it.
func (h *Heap) Free(handle value.Handle) error {
	s, ok := h.lookup(handle)
	if !ok {
		return fmt.Errorf("free of stale handle %d.%d", handle.Index, handle.Generation)
	}
	s.live = false
	s.marked = false
	s.object = nil
	s.generation++
	h.free = append(h.free, handle.Index)
	return nil
}

// Mark sets the collector mark bit on a live object.
func (h *Heap) Mark(handle value.Handle) bool {
	s, ok := h.lookup(handle)
	if !ok {
		return false
	}
	s.marked = true
	return true
}

func (h *Heap) Marked(handle value.Handle) bool {
	s, ok := h.lookup(handle)
	return ok && s.marked
}

// Len returns the number of live objects.
func (h *Heap) Len() int {
	return len(h.slots) - len(h.free)
}

// Reset drops every object. Previously issued handles stay invalid.
func (h *Heap) Reset() {
	for i := range h.slots {
		if h.slots[i].live {
			_ = h.Free(value.Handle{Index: uint32(i), Generation: h.slots[i].generation})
		}
	}
}

func (h *Heap) lookup(handle value.Handle) (*slot, bool) {
	if int(handle.Index) >= len(h.slots) {
		return nil, false
	}
	s := &h.slots[handle.Index]
	if !s.live || s.generation != handle.Generation {
		return nil, false
	}
	return s, true
}
