package object

import "fmt"

// ObjKind tags the concrete heap-allocated type behind an Obj.
type ObjKind int

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
)

// Obj is implemented by every heap-allocated value. header gives the
// collector a uniform way to walk the allocation list and flip/read the
// mark bit without a type switch on every object.
type Obj interface {
	fmt.Stringer
	Kind() ObjKind
	header() *objHeader
}

// objHeader is embedded in every concrete Obj. next threads the object
// into the heap's intrusive allocation list (heap.go); marked is the
// collector's reachability bit, set during marking and cleared again on
// every survivor by the sweep.
type objHeader struct {
	next   Obj
	marked bool
}

func (h *objHeader) header() *objHeader { return h }

// ObjString is an owned, immutable byte string. Never interned: two
// ObjStrings with the same bytes are distinct allocations, and equality is
// always a content compare (Value.Equal), matching the resolved open
// question in SPEC_FULL.md §6.4.
type ObjString struct {
	objHeader
	Value string
}

func (s *ObjString) Kind() ObjKind { return ObjKindString }
func (s *ObjString) String() string { return s.Value }

// ObjFunction is a compiled function: its declared arity, optional name
// (empty for the synthetic top-level script function), and the Chunk
// holding its bytecode, line table and constant pool (spec.md §4.1 data
// model for ObjFunction).
type ObjFunction struct {
	objHeader
	Name  string
	Arity int
	Chunk *Chunk
}

func (f *ObjFunction) Kind() ObjKind { return ObjKindFunction }

func (f *ObjFunction) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}
