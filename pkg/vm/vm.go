// Package vm implements det's stack-based bytecode virtual machine.
//
// The VM is the final stage in the pipeline:
//
//	source -> lexer -> parser -> AST -> (checker) -> compiler -> object.Chunk -> vm -> output
//
// Execution is a straightforward fetch/decode/dispatch loop over a single
// operand stack shared by every call frame (spec.md §4.5): a function call
// pushes a new CallFrame whose base index is where its arguments begin on
// that same stack, rather than giving each call its own stack segment. This
// mirrors the teacher's original accumulator-less, stack-based execution
// model, generalized from Smalltalk message sends to det's opcode set.
package vm

import (
	"fmt"
	"io"

	"github.com/kristofer/det/pkg/object"
)

const (
	stackCapacity  = 256
	framesCapacity = 64
)

// callFrame is one active invocation: the function being executed, the
// instruction offset into its chunk, and the base index into the VM's
// shared operand stack where its locals (parameters first) begin.
type callFrame struct {
	function *object.ObjFunction
	ip       int
	base     int
}

// VM is det's runtime state (spec.md §3): a fixed-capacity operand stack,
// a fixed-capacity call-frame array, a fixed-capacity globals array, and
// the heap they all root. It is an ordinary value, not a singleton: each
// New call returns an independent VM. A single VM value can run
// several Interpret calls back to back (the REPL does exactly this),
// carrying global state and heap allocations forward between them.
type VM struct {
	stack    [stackCapacity]object.Value
	stackTop int

	frames     [framesCapacity]callFrame
	frameCount int

	globals [256]object.Value

	heap *object.Heap
	out  io.Writer

	trace *Tracer

	// lastErr carries a call-setup failure (arity mismatch, stack overflow)
	// out of call(), which run()'s OP_CALL case and Interpret's initial call
	// both need to return without complicating call's bool result.
	lastErr error
}

// New creates a VM that allocates through heap and writes OP_PRINT output
// to out.
func New(heap *object.Heap, out io.Writer) *VM {
	return &VM{heap: heap, out: out}
}

// SetTracer installs t as the VM's instruction-level execution tracer (nil
// disables tracing). See debugger.go.
func (vm *VM) SetTracer(t *Tracer) { vm.trace = t }

// GlobalSlot returns the value currently bound to global slot idx. Exposed
// for callers (the REPL, tests) that want to inspect state between runs
// without re-executing a GET_GLOBAL program.
func (vm *VM) GlobalSlot(idx int) object.Value { return vm.globals[idx] }

// GCRoots implements object.RootSource: the operand stack, every live call
// frame's function, and the globals array are exactly the roots spec.md
// §4.6 phase 1 names for the VM's contribution to mark-the-roots.
func (vm *VM) GCRoots(mark func(object.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(object.ObjVal(vm.frames[i].function))
	}
	for i := range vm.globals {
		mark(vm.globals[i])
	}
}

func (vm *VM) push(v object.Value) { vm.stack[vm.stackTop] = v; vm.stackTop++ }
func (vm *VM) pop() object.Value   { vm.stackTop--; return vm.stack[vm.stackTop] }
func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
}

// Interpret runs fn as a zero-argument call and executes until the call
// returns to an empty frame stack. It returns the value the script halted
// with (the top-level ExprStmt tail value or an explicit Return's operand)
// and a non-nil *RuntimeError on failure. Successive Interpret calls on the
// same VM share globals and heap, supporting a REPL's persistent session.
func (vm *VM) Interpret(fn *object.ObjFunction) (object.Value, error) {
	vm.push(object.ObjVal(fn))
	if !vm.call(fn, 0) {
		vm.resetStack()
		return object.Value{}, vm.lastErr
	}
	result, err := vm.run()
	if err != nil {
		vm.resetStack()
	}
	return result, err
}

// call pushes a new frame for fn. The arity check here is defensive — the
// checker already rejects a call with the wrong argument count statically
// (pkg/checker's checkCall), so compiled bytecode never reaches this with a
// mismatch — but it costs nothing to keep the VM correct standalone, the
// way the teacher's own VM never trusts the compiler blindly either.
func (vm *VM) call(fn *object.ObjFunction, argCount int) bool {
	if argCount != fn.Arity {
		vm.lastErr = vm.runtimeError("Expected %d argument(s) but got %d.", fn.Arity, argCount)
		return false
	}
	if vm.frameCount == framesCapacity {
		vm.lastErr = vm.runtimeError("Stack overflow.")
		return false
	}
	// base points at the first argument (== first local slot), one past the
	// callee value itself; OP_RETURN drops the stack back to base-1 so the
	// callee slot is overwritten by the return value.
	vm.frames[vm.frameCount] = callFrame{function: fn, ip: 0, base: vm.stackTop - argCount}
	vm.frameCount++
	return true
}

// run executes instructions from the current top call frame until the
// frame stack empties (successful halt) or a runtime error occurs.
func (vm *VM) run() (object.Value, error) {
	frame := &vm.frames[vm.frameCount-1]

	for {
		if vm.trace != nil {
			vm.trace.beforeInstruction(vm, frame)
		}

		op := object.Opcode(vm.readByte(frame))
		switch op {
		case object.OpConstant:
			idx := vm.readByte(frame)
			vm.push(frame.function.Chunk.Constants[idx])

		case object.OpTrue:
			vm.push(object.BoolVal(true))
		case object.OpFalse:
			vm.push(object.BoolVal(false))
		case object.OpPop:
			vm.pop()

		case object.OpGetGlobal:
			idx := vm.readByte(frame)
			vm.push(vm.globals[idx])
		case object.OpSetGlobal:
			idx := vm.readByte(frame)
			vm.globals[idx] = vm.peek(0)

		case object.OpGetLocal:
			slot := vm.readByte(frame)
			vm.push(vm.stack[frame.base+int(slot)])
		case object.OpSetLocal:
			slot := vm.readByte(frame)
			vm.stack[frame.base+int(slot)] = vm.peek(0)

		case object.OpAdd:
			if err := vm.add(); err != nil {
				return object.Value{}, err
			}
		case object.OpSubtract:
			if err := vm.numericBinOp(op); err != nil {
				return object.Value{}, err
			}
		case object.OpMultiply:
			if err := vm.numericBinOp(op); err != nil {
				return object.Value{}, err
			}
		case object.OpDivide:
			if err := vm.numericBinOp(op); err != nil {
				return object.Value{}, err
			}
		case object.OpModulo:
			if err := vm.numericBinOp(op); err != nil {
				return object.Value{}, err
			}

		case object.OpNegate:
			v := vm.peek(0)
			if v.Kind != object.ValInt {
				return object.Value{}, vm.runtimeError("Operand must be an int.")
			}
			vm.pop()
			vm.push(object.IntVal(-v.Int))

		case object.OpNot:
			v := vm.peek(0)
			if v.Kind != object.ValBool {
				return object.Value{}, vm.runtimeError("Operand must be a bool.")
			}
			vm.pop()
			vm.push(object.BoolVal(!v.Bool))

		case object.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.BoolVal(object.Equal(a, b)))

		case object.OpGreater:
			if err := vm.comparisonOp(op); err != nil {
				return object.Value{}, err
			}
		case object.OpLess:
			if err := vm.comparisonOp(op); err != nil {
				return object.Value{}, err
			}

		case object.OpJump:
			offset := vm.readShort(frame)
			frame.ip += offset
		case object.OpJumpIfFalse:
			offset := vm.readShort(frame)
			if vm.peek(0).IsFalsey() {
				frame.ip += offset
			}
		case object.OpLoop:
			offset := vm.readShort(frame)
			frame.ip -= offset

		case object.OpCall:
			argCount := int(vm.readByte(frame))
			callee := vm.peek(argCount)
			fn, ok := callee.Obj.(*object.ObjFunction)
			if callee.Kind != object.ValObj || !ok {
				return object.Value{}, vm.runtimeError("Can only call functions.")
			}
			if !vm.call(fn, argCount) {
				return object.Value{}, vm.lastErr
			}
			frame = &vm.frames[vm.frameCount-1]

		case object.OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		case object.OpReturn:
			result := vm.pop()
			callBase := frame.base
			vm.frameCount--
			if vm.frameCount == 0 {
				return result, nil
			}
			vm.stackTop = callBase - 1
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		default:
			return object.Value{}, vm.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *callFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

// add implements OP_ADD: Int+Int sums, String+String concatenates, anything
// else is a runtime error (spec.md §4.5). The operands are peeked rather
// than popped until after the (possible) string allocation completes, so
// they remain GC roots on the operand stack for the duration of an
// allocation that could itself trigger a collection (spec.md §5
// re-entrancy rule).
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.Kind == object.ValInt && b.Kind == object.ValInt:
		vm.pop()
		vm.pop()
		vm.push(object.IntVal(a.Int + b.Int))
		return nil
	case isString(a) && isString(b):
		as := a.Obj.(*object.ObjString).Value
		bs := b.Obj.(*object.ObjString).Value
		result := vm.heap.NewString(as + bs)
		vm.pop()
		vm.pop()
		vm.push(object.ObjVal(result))
		return nil
	default:
		return vm.runtimeError("Operands must be two ints or two strings.")
	}
}

func isString(v object.Value) bool {
	if v.Kind != object.ValObj {
		return false
	}
	_, ok := v.Obj.(*object.ObjString)
	return ok
}

// numericBinOp implements OP_SUBTRACT/OP_MULTIPLY/OP_DIVIDE/OP_MODULO: both
// operands must be Int; divide and modulo by zero are runtime errors.
// Integer arithmetic wraps on overflow (int32's defined Go semantics),
// resolving the open question in spec.md §9 (SPEC_FULL.md §6.3).
func (vm *VM) numericBinOp(op object.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if a.Kind != object.ValInt || b.Kind != object.ValInt {
		return vm.runtimeError("Operands must be ints.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case object.OpSubtract:
		vm.push(object.IntVal(a.Int - b.Int))
	case object.OpMultiply:
		vm.push(object.IntVal(a.Int * b.Int))
	case object.OpDivide:
		if b.Int == 0 {
			return vm.runtimeError("Division by zero.")
		}
		vm.push(object.IntVal(a.Int / b.Int))
	case object.OpModulo:
		if b.Int == 0 {
			return vm.runtimeError("Division by zero.")
		}
		vm.push(object.IntVal(a.Int % b.Int))
	}
	return nil
}

// comparisonOp implements OP_GREATER/OP_LESS: both operands must be Int.
func (vm *VM) comparisonOp(op object.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if a.Kind != object.ValInt || b.Kind != object.ValInt {
		return vm.runtimeError("Operands must be ints.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case object.OpGreater:
		vm.push(object.BoolVal(a.Int > b.Int))
	case object.OpLess:
		vm.push(object.BoolVal(a.Int < b.Int))
	}
	return nil
}
