package vm

import (
	"bytes"
	"testing"

	"github.com/kristofer/det/pkg/checker"
	"github.com/kristofer/det/pkg/compiler"
	"github.com/kristofer/det/pkg/object"
	"github.com/kristofer/det/pkg/parser"
	"github.com/kristofer/det/pkg/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run parses, checks, compiles and executes src on a fresh VM, returning
// its halting value, any runtime error, and anything written via print.
func run(t *testing.T, src string) (object.Value, error, string) {
	t.Helper()

	p := parser.New(src)
	program, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())

	var checkOut bytes.Buffer
	chk := checker.New(&checkOut, symbols.New(), map[string]checker.FuncSig{})
	chk.Check(program)
	require.False(t, chk.HadError(), "check errors: %v", chk.Errors())

	heap := object.NewHeap()
	c := compiler.New(heap)
	heap.AddRoot(c)
	fn, err := c.Compile(program)
	require.NoError(t, err)

	var out bytes.Buffer
	v := New(heap, &out)
	heap.AddRoot(v)
	result, runErr := v.Interpret(fn)
	return result, runErr, out.String()
}

func TestInterpret_IntegerArithmeticTailValue(t *testing.T) {
	result, err, _ := run(t, "1 + 2 * 3;")
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(7), result)
}

func TestInterpret_StringConcatenation(t *testing.T) {
	result, err, _ := run(t, `"foo" + "bar";`)
	require.NoError(t, err)
	s, ok := result.Obj.(*object.ObjString)
	require.True(t, ok)
	assert.Equal(t, "foobar", s.Value)
}

func TestInterpret_BareReturnAtTopLevel(t *testing.T) {
	result, err, _ := run(t, "return 1 + 2;")
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(3), result)
}

func TestInterpret_FunctionCallTailValue(t *testing.T) {
	result, err, _ := run(t, "func add(a, b):int { return a + b; } add(400, 700);")
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(1100), result)
}

func TestInterpret_BlockScopingDoesNotLeakInnerShadow(t *testing.T) {
	result, err, _ := run(t, "var a = 10; { var a = 99; } a;")
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(10), result)
}

func TestInterpret_RecursiveFibonacci(t *testing.T) {
	src := `
		func fib(n):int {
			if n < 2 { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		fib(8);
	`
	result, err, _ := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(21), result)
}

func TestInterpret_WhileLoopAccumulates(t *testing.T) {
	src := `
		var i = 0;
		var sum = 0;
		while i < 5 {
			sum = sum + i;
			i = i + 1;
		}
		sum;
	`
	result, err, _ := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(10), result)
}

func TestInterpret_PrintWritesToOut(t *testing.T) {
	_, err, out := run(t, `print "hello";`)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestInterpret_DivisionByZeroProducesStackTraceNamingScript(t *testing.T) {
	_, err, _ := run(t, "1 / 0;")
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Contains(t, rerr.Message, "Division by zero")
	require.Len(t, rerr.Trace, 1)
	assert.Equal(t, "", rerr.Trace[0].Name)
	assert.Contains(t, rerr.Error(), "in script")
}

func TestInterpret_ModuloByZeroIsRuntimeError(t *testing.T) {
	_, err, _ := run(t, "1 % 0;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Division by zero")
}

func TestInterpret_RuntimeErrorTraceIncludesCallerFrames(t *testing.T) {
	src := `
		func boom():int {
			return 1 / 0;
		}
		boom();
	`
	_, err, _ := run(t, src)
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	require.Len(t, rerr.Trace, 2)
	assert.Equal(t, "boom", rerr.Trace[0].Name)
	assert.Equal(t, "", rerr.Trace[1].Name)
}

func TestInterpret_DeepRecursionOverflowsCallStack(t *testing.T) {
	src := `
		func recurse(n):int {
			return recurse(n + 1);
		}
		recurse(0);
	`
	_, err, _ := run(t, src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stack overflow")
}

func TestInterpret_NegationAndNot(t *testing.T) {
	result, err, _ := run(t, "-(3 + 4);")
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(-7), result)

	result, err, _ = run(t, "!(1 < 2);")
	require.NoError(t, err)
	assert.Equal(t, object.BoolVal(false), result)
}

func TestInterpret_NotEqualGreaterEqualLessEqualDesugaring(t *testing.T) {
	result, err, _ := run(t, "1 != 2;")
	require.NoError(t, err)
	assert.Equal(t, object.BoolVal(true), result)

	result, err, _ = run(t, "2 >= 2;")
	require.NoError(t, err)
	assert.Equal(t, object.BoolVal(true), result)

	result, err, _ = run(t, "2 <= 1;")
	require.NoError(t, err)
	assert.Equal(t, object.BoolVal(false), result)
}

func TestInterpret_GlobalsPersistAcrossSeparateInterpretCalls(t *testing.T) {
	p1 := parser.New("var x = 41;")
	program1, err := p1.Parse()
	require.NoError(t, err)

	heap := object.NewHeap()
	c := compiler.New(heap)
	heap.AddRoot(c)
	fn1, err := c.Compile(program1)
	require.NoError(t, err)

	var out bytes.Buffer
	v := New(heap, &out)
	heap.AddRoot(v)
	_, err = v.Interpret(fn1)
	require.NoError(t, err)

	p2 := parser.New("x + 1;")
	program2, err := p2.Parse()
	require.NoError(t, err)
	fn2, err := c.Compile(program2)
	require.NoError(t, err)

	result, err := v.Interpret(fn2)
	require.NoError(t, err)
	assert.Equal(t, object.IntVal(42), result)
}

func TestInterpret_GCStressTestSurvivesStringConcatenation(t *testing.T) {
	heap := object.NewHeap()

	p := parser.New(`var a = "foo" + "bar" + "baz";`)
	program, err := p.Parse()
	require.NoError(t, err)

	c := compiler.New(heap)
	heap.AddRoot(c)
	fn, err := c.Compile(program)
	require.NoError(t, err)

	var out bytes.Buffer
	v := New(heap, &out)
	heap.AddRoot(v)
	heap.SetStressTest(true)
	_, err = v.Interpret(fn)
	require.NoError(t, err)

	slot, ok := c.GlobalSlot("a")
	require.True(t, ok)
	s, ok := v.GlobalSlot(slot).Obj.(*object.ObjString)
	require.True(t, ok)
	assert.Equal(t, "foobarbaz", s.Value)
}
