package object

// RootSource is implemented by anything that holds live references to
// heap Objs the collector must not reclaim. Both the VM (operand stack,
// call frames, globals array) and the Compiler (the constant pool of the
// chunk currently being built) implement this, so pkg/object never needs
// to import pkg/vm or pkg/compiler to find its roots — spec.md §4.6 calls
// out the in-progress compiler constant pool as a root precisely because a
// GC stress test can trigger a collection mid-compile.
type RootSource interface {
	GCRoots(mark func(Value))
}

const (
	initialGCThreshold = 1 << 20 // bytes; arbitrary first trigger point
	gcGrowthFactor     = 2
)

// Heap is an intrusive-linked-list allocator: every Obj is threaded onto
// objects via its embedded header, so the sweep phase can walk live
// allocations without a separate side table. bytesAllocated is an estimate
// (len(ObjString.Value) plus a constant per-object overhead) used only to
// decide when to collect, not an exact accounting.
type Heap struct {
	objects        Obj
	bytesAllocated int
	nextGC         int
	roots          []RootSource
	stressTest     bool
}

// NewHeap returns an empty Heap. roots are consulted, in order, on every
// collection.
func NewHeap(roots ...RootSource) *Heap {
	return &Heap{nextGC: initialGCThreshold, roots: roots}
}

// AddRoot registers an additional root source. The compiler and the VM
// both need a *Heap to be constructed before they exist themselves, so a
// driver wires them in after the fact with this rather than through
// NewHeap's variadic constructor argument (pkg/det.New does this for both).
func (h *Heap) AddRoot(r RootSource) {
	h.roots = append(h.roots, r)
}

// SetStressTest, when enabled, forces a collection on every single
// allocation instead of waiting for the byte threshold. The collection
// runs after the new object is linked onto the heap and before it is
// returned, so an object not yet reachable from a root is swept by its
// own allocation's collection. This exists
// purely to exercise the collector under `det.WithGCStressTest()` so a
// program that allocates exactly once still gets swept.
func (h *Heap) SetStressTest(on bool) { h.stressTest = on }

func (h *Heap) track(o Obj, size int) {
	*o.header() = objHeader{next: h.objects}
	h.objects = o
	h.bytesAllocated += size

	if h.stressTest || h.bytesAllocated > h.nextGC {
		h.Collect()
	}
}

// NewString allocates a new ObjString. Strings are never interned (same
// bytes twice makes two allocations), matching the resolved open question
// in SPEC_FULL.md §6.4.
func (h *Heap) NewString(value string) *ObjString {
	s := &ObjString{Value: value}
	h.track(s, len(value)+16)
	return s
}

// NewFunction allocates a new ObjFunction wrapping chunk.
func (h *Heap) NewFunction(name string, arity int, chunk *Chunk) *ObjFunction {
	f := &ObjFunction{Name: name, Arity: arity, Chunk: chunk}
	h.track(f, 64)
	return f
}

// TrackFunction registers an already-built ObjFunction on the heap. The
// compiler builds a function's ObjFunction incrementally across
// beginFunction/endFunction and roots it (via Compiler.GCRoots) from the
// moment it's constructed, so unlike NewFunction this never allocates — it
// only links f onto the heap's object list, at the point where it's
// already safe for a stress collection to run without unlinking it again.
func (h *Heap) TrackFunction(f *ObjFunction) *ObjFunction {
	h.track(f, 64)
	return f
}

// Collect runs one full mark-and-sweep pass: mark every Obj reachable from
// a root, then free (unlink) every unmarked Obj. Go's own garbage
// collector still reclaims the memory for an unlinked Obj once nothing
// else references it; this pass implements det's *language-level* object
// lifetime policy, which spec.md §4.6 requires regardless of the host
// runtime's own GC.
func (h *Heap) Collect() {
	for _, root := range h.roots {
		root.GCRoots(h.mark)
	}

	h.sweep()
	h.nextGC = h.bytesAllocated * gcGrowthFactor
	if h.nextGC < initialGCThreshold {
		h.nextGC = initialGCThreshold
	}
}

// mark flags the Obj behind v (if any) as reachable. Non-Obj values and
// already-marked Objs are no-ops, which also makes mark safe against
// cycles (none exist in det's object graph today, but the guard costs
// nothing and matches the teacher's defensive style elsewhere).
func (h *Heap) mark(v Value) {
	if v.Kind != ValObj || v.Obj == nil {
		return
	}
	hdr := v.Obj.header()
	if hdr.marked {
		return
	}
	hdr.marked = true

	if fn, ok := v.Obj.(*ObjFunction); ok && fn.Chunk != nil {
		for _, c := range fn.Chunk.Constants {
			h.mark(c)
		}
	}
}

func (h *Heap) sweep() {
	var live Obj
	var tail Obj

	for obj := h.objects; obj != nil; {
		hdr := obj.header()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			hdr.next = nil
			if live == nil {
				live = obj
				tail = obj
			} else {
				tail.header().next = obj
				tail = obj
			}
		} else {
			h.bytesAllocated -= objSize(obj)
		}
		obj = next
	}

	h.objects = live
}

func objSize(o Obj) int {
	switch v := o.(type) {
	case *ObjString:
		return len(v.Value) + 16
	default:
		return 64
	}
}
