package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_EqualByKindAndContent(t *testing.T) {
	assert.True(t, Equal(IntVal(5), IntVal(5)))
	assert.False(t, Equal(IntVal(5), IntVal(6)))
	assert.False(t, Equal(IntVal(5), BoolVal(true)))
	assert.True(t, Equal(BoolVal(true), BoolVal(true)))
}

func TestValue_StringEqualityIsByContentNotIdentity(t *testing.T) {
	h := NewHeap()
	a := h.NewString("hi")
	b := h.NewString("hi")
	require.NotSame(t, a, b, "strings are never interned")
	assert.True(t, Equal(ObjVal(a), ObjVal(b)))
}

func TestValue_IsFalseyOnlyForBoolFalse(t *testing.T) {
	assert.True(t, BoolVal(false).IsFalsey())
	assert.False(t, BoolVal(true).IsFalsey())
	assert.False(t, IntVal(0).IsFalsey())
}

func TestChunk_WriteAndConstants(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(IntVal(42))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpReturn, 1)

	require.Len(t, c.Code, 3)
	assert.Equal(t, byte(OpConstant), c.Code[0])
	assert.Equal(t, byte(idx), c.Code[1])
	assert.Equal(t, byte(OpReturn), c.Code[2])
}

func TestChunk_Disassemble(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(IntVal(7))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpReturn, 1)

	out := c.Disassemble("test")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "OP_RETURN")
}

// fakeRoots is a minimal RootSource for exercising the collector in
// isolation from the VM and compiler.
type fakeRoots struct {
	values []Value
}

func (f *fakeRoots) GCRoots(mark func(Value)) {
	for _, v := range f.values {
		mark(v)
	}
}

func TestHeap_CollectSweepsUnreachableStrings(t *testing.T) {
	roots := &fakeRoots{}
	h := NewHeap(roots)

	kept := h.NewString("kept")
	h.NewString("garbage")
	roots.values = []Value{ObjVal(kept)}

	h.Collect()

	count := 0
	for obj := h.objects; obj != nil; obj = obj.header().next {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestHeap_GCStressTestCollectsOnEveryAllocation(t *testing.T) {
	roots := &fakeRoots{}
	h := NewHeap(roots)
	h.SetStressTest(true)

	first := h.NewString("a")
	roots.values = nil // first is never rooted, so a collection sweeps it
	h.NewString("b")

	live := map[Obj]bool{}
	for obj := h.objects; obj != nil; obj = obj.header().next {
		live[obj] = true
	}
	assert.False(t, live[first], "unreachable string should have been swept")
}

func TestHeap_FunctionMarksItsConstantPool(t *testing.T) {
	roots := &fakeRoots{}
	h := NewHeap(roots)

	chunk := NewChunk()
	nested := h.NewString("nested")
	chunk.AddConstant(ObjVal(nested))
	fn := h.NewFunction("f", 0, chunk)
	roots.values = []Value{ObjVal(fn)}

	h.Collect()

	found := false
	for obj := h.objects; obj != nil; obj = obj.header().next {
		if obj == Obj(nested) {
			found = true
		}
	}
	assert.True(t, found, "string referenced only from a live function's constant pool must survive")
}
