// Package object holds every runtime data type det's compiler and VM share:
// the tagged Value union, heap-allocated Obj variants, the per-function
// Chunk bytecode container, the Opcode set, and the mark-and-sweep
// collector that manages Obj lifetime. Value, Chunk and Obj are merged into
// one package rather than split across value/bytecode/heap packages
// because they're mutually referential — ObjFunction embeds a *Chunk, and
// a Chunk's constant pool holds Values that can themselves be Objs — the
// same tightly-coupled cluster the teacher's bytecode package keeps
// together in a single file (pkg/bytecode/bytecode.go merges Opcode,
// Instruction and the container type for the same reason).
package object

import "fmt"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValBool ValueKind = iota
	ValInt
	ValObj
	ValVoid // the "no value" result of a void function call
)

// Value is det's tagged runtime value: a 32-bit int, a bool, a pointer to
// a heap-allocated Obj (currently ObjString or ObjFunction), or the void
// marker. There is no NaN-boxing or pointer tagging here — Go already
// gives every Value a fixed-size struct representation, so the spec's
// "tagged union" requirement
// is satisfied with a plain struct instead of the bit-packing a C
// implementation needs.
type Value struct {
	Kind ValueKind
	Int  int32
	Bool bool
	Obj  Obj
}

// Bool/Int/Void/ObjVal build a Value of the given variant.
func BoolVal(b bool) Value { return Value{Kind: ValBool, Bool: b} }
func IntVal(i int32) Value { return Value{Kind: ValInt, Int: i} }
func VoidVal() Value       { return Value{Kind: ValVoid} }
func ObjVal(o Obj) Value   { return Value{Kind: ValObj, Obj: o} }

// IsFalsey reports whether v counts as false in a condition: only the bool
// false does — det has no implicit truthiness for ints or strings, so this
// is really just an accessor, kept as a named predicate to mirror the
// VM's OP_JUMP_IF_FALSE wording in spec.md §4.5.
func (v Value) IsFalsey() bool {
	return v.Kind == ValBool && !v.Bool
}

// Equal implements det's equality: same-kind values compare by value;
// strings compare by byte content (never interned, per the redesign note
// in SPEC_FULL.md §6.4); different kinds are never equal.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValBool:
		return a.Bool == b.Bool
	case ValInt:
		return a.Int == b.Int
	case ValVoid:
		return true
	case ValObj:
		as, aIsStr := a.Obj.(*ObjString)
		bs, bIsStr := b.Obj.(*ObjString)
		if aIsStr && bIsStr {
			return as.Value == bs.Value
		}
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders v the way OP_PRINT and diagnostics do.
func (v Value) String() string {
	switch v.Kind {
	case ValBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValInt:
		return fmt.Sprintf("%d", v.Int)
	case ValVoid:
		return "void"
	case ValObj:
		return v.Obj.String()
	default:
		return "<invalid value>"
	}
}
