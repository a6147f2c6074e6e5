// Package compiler compiles det AST nodes into object.Chunk bytecode.
//
// The top-level script is compiled as an implicit zero-arity, unnamed
// function (spec.md §4.4), exactly the way the teacher treats a whole
// program as one flat instruction stream, but det additionally supports
// nested compilation units for each func_decl: the Compiler keeps a stack
// of funcCompiler frames, one per function currently being compiled, so a
// nested FuncDecl gets its own Chunk and locals array without disturbing
// the enclosing one.
package compiler

import (
	"fmt"

	"github.com/kristofer/det/pkg/ast"
	"github.com/kristofer/det/pkg/lexer"
	"github.com/kristofer/det/pkg/object"
)

const maxLocals = 256
const maxGlobals = 256
const maxConstants = 256
const maxJump = 1<<16 - 1

// local is one slot on the current function's locals array: its source
// name and the scope depth it was declared at, exactly mirroring
// symbols.Symbol but kept separate since the compiler resolves to a stack
// slot index, not a type.
type local struct {
	name  string
	depth int
}

// funcCompiler holds the state for one in-progress compilation unit (a
// function body or the top-level script).
type funcCompiler struct {
	enclosing  *funcCompiler
	function   *object.ObjFunction
	chunk      *object.Chunk
	locals     []local
	scopeDepth int
}

// Compiler turns a checked *ast.Program into a callable *object.ObjFunction
// tree. Global name-to-slot assignments persist across multiple Compile
// calls on the same Compiler so a REPL can keep referring to earlier
// globals (spec.md §4.4).
type Compiler struct {
	heap    *object.Heap
	globals map[string]int
	current *funcCompiler
	err     error
}

// New creates a Compiler that allocates heap objects (function and string
// constants) through heap.
func New(heap *object.Heap) *Compiler {
	return &Compiler{heap: heap, globals: make(map[string]int)}
}

// GlobalSlot returns the persistent slot index assigned to name and
// whether one has been assigned; it never defines a new slot. Callers use
// it to find a global declared in an earlier Compile call, e.g. to read
// its value back through vm.VM.GlobalSlot.
func (c *Compiler) GlobalSlot(name string) (int, bool) {
	idx, ok := c.globals[name]
	return idx, ok
}

// GCRoots implements object.RootSource: while a function is mid-compile,
// its chunk's constant pool can hold heap Objs (string literals, nested
// function constants) that no other root yet references — spec.md §4.6
// calls this out explicitly since a GC stress test can collect between
// any two bytecode-emitting calls.
func (c *Compiler) GCRoots(mark func(object.Value)) {
	for fc := c.current; fc != nil; fc = fc.enclosing {
		// fc.function is rooted from the moment beginFunction constructs it,
		// not just once it's stored as a constant in the enclosing chunk —
		// endFunction tracks it on the heap before that happens, and a stress
		// collection can run inside that very call.
		if fc.function != nil {
			mark(object.ObjVal(fc.function))
		}
		if fc.chunk == nil {
			continue
		}
		for _, v := range fc.chunk.Constants {
			mark(v)
		}
	}
}

// Compile compiles program as the top-level script: a synthetic zero-arity
// unnamed function whose body is program's statements, always ending in
// OP_RETURN. If the final top-level statement is a bare expression
// statement, its value is left on the stack instead of popped and becomes
// the script's result (spec.md §8's end-to-end table: `add(400,700);` as
// the last statement leaves Int(1100) on the stack) — mirroring how a REPL
// reports the value of the last thing it evaluated.
func (c *Compiler) Compile(program *ast.Program) (*object.ObjFunction, error) {
	c.err = nil
	c.beginFunction("", 0)

	tailValue := false
	for i, stmt := range program.Statements {
		if i == len(program.Statements)-1 {
			if last, ok := stmt.(*ast.ExprStmt); ok {
				c.compileExpr(last.Expr)
				tailValue = true
				continue
			}
		}
		c.compileStatement(stmt)
	}

	fn := c.endFunction(!tailValue)
	if c.err != nil {
		return nil, c.err
	}
	return fn, nil
}

// fail records the first compile error seen. Later calls are no-ops: once
// a chunk has overflowed one of its fixed-width operand spaces there's no
// useful way to keep compiling it, but emission keeps running to
// completion anyway (clamping indices/offsets) rather than unwinding
// mid-chunk, so a single bad program reports one clear error instead of a
// cascade.
func (c *Compiler) fail(line int, format string, args ...any) {
	if c.err != nil {
		return
	}
	c.err = fmt.Errorf("line %d: "+format, append([]any{line}, args...)...)
}

func (c *Compiler) beginFunction(name string, arity int) {
	chunk := object.NewChunk()
	fc := &funcCompiler{
		enclosing: c.current,
		function:  &object.ObjFunction{Name: name, Arity: arity, Chunk: chunk},
		chunk:     chunk,
	}
	c.current = fc
}

// endFunction appends the function's trailing return and wraps the
// finished chunk into a heap-allocated ObjFunction. When pushDefault is
// true, a synthesized void value is pushed immediately before the trailing
// OP_RETURN so that falling off the end of a void function (or of the
// top-level script with no trailing bare expression) never pops an empty
// stack (SPEC_FULL.md §6.1). pushDefault is false only for the top-level
// script whose last statement was a bare expression already left on the
// stack by Compile.
func (c *Compiler) endFunction(pushDefault bool) *object.ObjFunction {
	fc := c.current
	if pushDefault {
		c.emitVoid(0)
	}
	fc.chunk.WriteOp(object.OpReturn, 0)

	fn := c.heap.TrackFunction(fc.function)
	c.current = fc.enclosing
	return fn
}

// emitVoid pushes the synthesized "no value" result a void return leaves
// on the stack — a constant-pool Value rather than OP_FALSE, so it is
// never mistaken for the bool false by equality or print (spec.md §9 open
// question on fall-off-the-end return values).
func (c *Compiler) emitVoid(line int) {
	c.emitConstant(object.VoidVal(), line)
}

func (c *Compiler) emitByte(b byte, line int) {
	c.current.chunk.Write(b, line)
}

func (c *Compiler) emitOp(op object.Opcode, line int) {
	c.current.chunk.WriteOp(op, line)
}

// addConstant appends v to the current chunk's constant pool, failing with
// a compile error (spec.md §4.4: "too many constants") instead of silently
// truncating the index to a byte once the pool overflows OP_CONSTANT's
// one-byte operand space.
func (c *Compiler) addConstant(v object.Value, line int) int {
	idx := c.current.chunk.AddConstant(v)
	if idx >= maxConstants {
		c.fail(line, "too many constants in one chunk")
		return maxConstants - 1
	}
	return idx
}

func (c *Compiler) emitConstant(v object.Value, line int) {
	idx := c.addConstant(v, line)
	c.emitOp(object.OpConstant, line)
	c.emitByte(byte(idx), line)
}

// emitJump writes op followed by a two-byte placeholder and returns the
// placeholder's offset for a later patchJump call.
func (c *Compiler) emitJump(op object.Opcode, line int) int {
	c.emitOp(op, line)
	c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return len(c.current.chunk.Code) - 2
}

// patchJump backfills the two-byte operand at offset with the distance
// from just past it to the current end of the chunk, failing with a
// compile error (spec.md §4.4/§7: "loop body too large") instead of
// silently truncating a jump distance that overflows OP_JUMP/
// OP_JUMP_IF_FALSE's 16-bit operand.
func (c *Compiler) patchJump(offset int, line int) {
	chunk := c.current.chunk
	jump := len(chunk.Code) - offset - 2
	if jump > maxJump {
		c.fail(line, "loop body too large")
		jump = maxJump
	}
	chunk.Code[offset] = byte((jump >> 8) & 0xff)
	chunk.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop writes OP_LOOP with a backward 16-bit offset to loopStart,
// failing the same way patchJump does if the body is too large to encode.
func (c *Compiler) emitLoop(loopStart int, line int) {
	c.emitOp(object.OpLoop, line)
	offset := len(c.current.chunk.Code) - loopStart + 2
	if offset > maxJump {
		c.fail(line, "loop body too large")
		offset = maxJump
	}
	c.emitByte(byte((offset>>8)&0xff), line)
	c.emitByte(byte(offset&0xff), line)
}

func (c *Compiler) beginScope() { c.current.scopeDepth++ }

func (c *Compiler) endScope() {
	fc := c.current
	fc.scopeDepth--
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		c.emitOp(object.OpPop, 0)
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

// addLocal appends name to the current function's locals, failing with a
// compile error (spec.md §4.4) instead of silently truncating the slot
// index once it overflows OP_GET_LOCAL/OP_SET_LOCAL's one-byte operand.
func (c *Compiler) addLocal(name string, line int) int {
	fc := c.current
	if len(fc.locals) >= maxLocals {
		c.fail(line, "too many local variables in function")
		return maxLocals - 1
	}
	fc.locals = append(fc.locals, local{name: name, depth: fc.scopeDepth})
	return len(fc.locals) - 1
}

// resolveLocal returns the slot of name in the current function's locals,
// innermost first, or -1 if it isn't a local.
func (c *Compiler) resolveLocal(name string) int {
	fc := c.current
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return i
		}
	}
	return -1
}

// resolveOrDefineGlobal returns name's persistent global slot, assigning
// the next free index if it hasn't been seen before, failing with a
// compile error (spec.md §4.4) instead of silently truncating the slot
// index once it overflows OP_GET_GLOBAL/OP_SET_GLOBAL's one-byte operand.
func (c *Compiler) resolveOrDefineGlobal(name string, line int) int {
	if idx, ok := c.globals[name]; ok {
		return idx
	}
	idx := len(c.globals)
	if idx >= maxGlobals {
		c.fail(line, "too many globals")
		idx = maxGlobals - 1
	}
	c.globals[name] = idx
	return idx
}

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		c.compileVarDecl(s)
	case *ast.ExprStmt:
		c.compileExpr(s.Expr)
		c.emitOp(object.OpPop, s.Line())
	case *ast.PrintStmt:
		c.compileExpr(s.Value)
		c.emitOp(object.OpPrint, s.Line())
	case *ast.Block:
		c.beginScope()
		for _, inner := range s.Statements {
			c.compileStatement(inner)
		}
		c.endScope()
	case *ast.If:
		c.compileIf(s)
	case *ast.While:
		c.compileWhile(s)
	case *ast.FuncDecl:
		c.compileFuncDecl(s)
	case *ast.Return:
		c.compileReturn(s)
	default:
		panic(fmt.Sprintf("compiler: unsupported statement %T", stmt))
	}
}

func (c *Compiler) compileVarDecl(s *ast.VarDecl) {
	if s.Initializer != nil {
		c.compileExpr(s.Initializer)
	} else {
		c.emitVoid(s.Line())
	}

	if c.current.scopeDepth == 0 {
		idx := c.resolveOrDefineGlobal(s.Name, s.Line())
		c.emitOp(object.OpSetGlobal, s.Line())
		c.emitByte(byte(idx), s.Line())
		c.emitOp(object.OpPop, s.Line())
		return
	}

	c.addLocal(s.Name, s.Line())
}

func (c *Compiler) compileIf(s *ast.If) {
	c.compileExpr(s.Condition)
	thenJump := c.emitJump(object.OpJumpIfFalse, s.Line())
	c.emitOp(object.OpPop, s.Line())

	c.compileStatement(s.Then)

	elseJump := c.emitJump(object.OpJump, s.Line())
	c.patchJump(thenJump, s.Line())
	c.emitOp(object.OpPop, s.Line())

	if s.Else != nil {
		c.compileStatement(s.Else)
	}
	c.patchJump(elseJump, s.Line())
}

func (c *Compiler) compileWhile(s *ast.While) {
	loopStart := len(c.current.chunk.Code)
	c.compileExpr(s.Condition)
	exitJump := c.emitJump(object.OpJumpIfFalse, s.Line())
	c.emitOp(object.OpPop, s.Line())

	c.compileStatement(s.Body)
	c.emitLoop(loopStart, s.Line())

	c.patchJump(exitJump, s.Line())
	c.emitOp(object.OpPop, s.Line())
}

func (c *Compiler) compileFuncDecl(s *ast.FuncDecl) {
	c.beginFunction(s.Name, len(s.Params))
	c.beginScope()
	for _, param := range s.Params {
		c.addLocal(param.Name, s.Line())
	}

	for _, stmt := range s.Body.Statements {
		c.compileStatement(stmt)
	}

	fn := c.endFunction(true)

	idx := c.addConstant(object.ObjVal(fn), s.Line())
	c.emitOp(object.OpConstant, s.Line())
	c.emitByte(byte(idx), s.Line())

	if c.current.scopeDepth == 0 {
		slot := c.resolveOrDefineGlobal(s.Name, s.Line())
		c.emitOp(object.OpSetGlobal, s.Line())
		c.emitByte(byte(slot), s.Line())
		c.emitOp(object.OpPop, s.Line())
	} else {
		c.addLocal(s.Name, s.Line())
	}
}

func (c *Compiler) compileReturn(s *ast.Return) {
	if s.Value != nil {
		c.compileExpr(s.Value)
	} else {
		c.emitVoid(s.Line())
	}
	c.emitOp(object.OpReturn, s.Line())
}

func (c *Compiler) compileExpr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		c.emitConstant(object.IntVal(e.Value), e.Line())
	case *ast.StringLiteral:
		c.emitConstant(object.ObjVal(c.heap.NewString(e.Value)), e.Line())
	case *ast.BoolLiteral:
		if e.Value {
			c.emitOp(object.OpTrue, e.Line())
		} else {
			c.emitOp(object.OpFalse, e.Line())
		}
	case *ast.VarAccess:
		c.compileVarAccess(e)
	case *ast.VarAssign:
		c.compileVarAssign(e)
	case *ast.UnaryOp:
		c.compileUnaryOp(e)
	case *ast.BinaryOp:
		c.compileBinaryOp(e)
	case *ast.Call:
		c.compileCall(e)
	default:
		panic(fmt.Sprintf("compiler: unsupported expression %T", expr))
	}
}

func (c *Compiler) compileVarAccess(e *ast.VarAccess) {
	if slot := c.resolveLocal(e.Name); slot != -1 {
		c.emitOp(object.OpGetLocal, e.Line())
		c.emitByte(byte(slot), e.Line())
		return
	}
	idx := c.resolveOrDefineGlobal(e.Name, e.Line())
	c.emitOp(object.OpGetGlobal, e.Line())
	c.emitByte(byte(idx), e.Line())
}

func (c *Compiler) compileVarAssign(e *ast.VarAssign) {
	c.compileExpr(e.Value)
	if slot := c.resolveLocal(e.Name); slot != -1 {
		c.emitOp(object.OpSetLocal, e.Line())
		c.emitByte(byte(slot), e.Line())
		return
	}
	idx := c.resolveOrDefineGlobal(e.Name, e.Line())
	c.emitOp(object.OpSetGlobal, e.Line())
	c.emitByte(byte(idx), e.Line())
}

func (c *Compiler) compileUnaryOp(e *ast.UnaryOp) {
	c.compileExpr(e.Operand)
	switch e.Operator {
	case lexer.TokenMinus:
		c.emitOp(object.OpNegate, e.Line())
	case lexer.TokenBang:
		c.emitOp(object.OpNot, e.Line())
	}
}

// compileBinaryOp desugars !=, >=, <= into their spec.md §4.4 two-opcode
// forms: `!=` -> OP_EQUAL; OP_NOT, `>=` -> OP_LESS; OP_NOT,
// `<=` -> OP_GREATER; OP_NOT.
func (c *Compiler) compileBinaryOp(e *ast.BinaryOp) {
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	line := e.Line()

	switch e.Operator {
	case lexer.TokenPlus:
		c.emitOp(object.OpAdd, line)
	case lexer.TokenMinus:
		c.emitOp(object.OpSubtract, line)
	case lexer.TokenStar:
		c.emitOp(object.OpMultiply, line)
	case lexer.TokenSlash:
		c.emitOp(object.OpDivide, line)
	case lexer.TokenPercent:
		c.emitOp(object.OpModulo, line)
	case lexer.TokenEqualEqual:
		c.emitOp(object.OpEqual, line)
	case lexer.TokenBangEqual:
		c.emitOp(object.OpEqual, line)
		c.emitOp(object.OpNot, line)
	case lexer.TokenLess:
		c.emitOp(object.OpLess, line)
	case lexer.TokenGreater:
		c.emitOp(object.OpGreater, line)
	case lexer.TokenGreaterEqual:
		c.emitOp(object.OpLess, line)
		c.emitOp(object.OpNot, line)
	case lexer.TokenLessEqual:
		c.emitOp(object.OpGreater, line)
		c.emitOp(object.OpNot, line)
	}
}

func (c *Compiler) compileCall(e *ast.Call) {
	c.compileVarAccess(ast.NewVarAccess(e.Line(), e.Callee))
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.emitOp(object.OpCall, e.Line())
	c.emitByte(byte(len(e.Args)), e.Line())
}
