package object

import "fmt"

// Opcode is a single byte naming the operation an instruction performs.
// Operand widths vary by opcode (spec.md §4.4/§6): constant-pool and local
// slot references are one byte (≤256 entries), jump offsets are two bytes
// big-endian, OP_CALL's argument count is one byte, and several opcodes
// take no operand at all.
type Opcode byte

const (
	OpConstant Opcode = iota
	OpTrue
	OpFalse
	OpPop
	OpGetGlobal
	OpSetGlobal
	OpGetLocal
	OpSetLocal
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate
	OpNot
	OpEqual
	OpGreater
	OpLess
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpPrint
	OpReturn
)

var opcodeNames = map[Opcode]string{
	OpConstant:    "OP_CONSTANT",
	OpTrue:        "OP_TRUE",
	OpFalse:       "OP_FALSE",
	OpPop:         "OP_POP",
	OpGetGlobal:   "OP_GET_GLOBAL",
	OpSetGlobal:   "OP_SET_GLOBAL",
	OpGetLocal:    "OP_GET_LOCAL",
	OpSetLocal:    "OP_SET_LOCAL",
	OpAdd:         "OP_ADD",
	OpSubtract:    "OP_SUBTRACT",
	OpMultiply:    "OP_MULTIPLY",
	OpDivide:      "OP_DIVIDE",
	OpModulo:      "OP_MODULO",
	OpNegate:      "OP_NEGATE",
	OpNot:         "OP_NOT",
	OpEqual:       "OP_EQUAL",
	OpGreater:     "OP_GREATER",
	OpLess:        "OP_LESS",
	OpJump:        "OP_JUMP",
	OpJumpIfFalse: "OP_JUMP_IF_FALSE",
	OpLoop:        "OP_LOOP",
	OpCall:        "OP_CALL",
	OpPrint:       "OP_PRINT",
	OpReturn:      "OP_RETURN",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Chunk holds one function's compiled bytecode: a flat byte stream, a
// parallel line-number table used only for error reporting, and the
// constant pool literals and function values it references.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk { return &Chunk{} }

// Write appends a raw byte (an opcode or an operand byte) tagged with the
// source line that produced it.
func (c *Chunk) Write(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	return len(c.Code) - 1
}

// WriteOp is Write for an Opcode value.
func (c *Chunk) WriteOp(op Opcode, line int) int {
	return c.Write(byte(op), line)
}

// AddConstant appends value to the constant pool and returns its index.
// The compiler is responsible for rejecting a pool that overflows the
// single-byte index space (spec.md §4.4: "too many constants").
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// Disassemble renders every instruction in the chunk as text, the way a
// `-d`/`--pda-debug` run inspects compiled output. Unlike the teacher's
// bytecode/format.go, this is purely an in-memory debugging aid — det's
// bytecode is never persisted to disk (spec.md §6: "need not be a stable
// persistence format").
func (c *Chunk) Disassemble(name string) string {
	out := fmt.Sprintf("== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		var line string
		line, offset = c.disassembleInstruction(offset)
		out += line
	}
	return out
}

// DisassembleInstruction renders the single instruction at offset, returning
// the rendered line and the offset of the next instruction. Exposed for a
// "-d"/"--pda-debug" execution tracer that prints one instruction at a time
// instead of dumping the whole chunk up front.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	return c.disassembleInstruction(offset)
}

func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	op := Opcode(c.Code[offset])
	lineCol := fmt.Sprintf("%4d", c.Lines[offset])
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		lineCol = "   |"
	}
	prefix := fmt.Sprintf("%04d %s %s", offset, lineCol, op)

	switch op {
	case OpConstant:
		idx := c.Code[offset+1]
		return fmt.Sprintf("%s %4d '%s'\n", prefix, idx, c.Constants[idx]), offset + 2
	case OpGetGlobal, OpSetGlobal, OpGetLocal, OpSetLocal, OpCall:
		operand := c.Code[offset+1]
		return fmt.Sprintf("%s %4d\n", prefix, operand), offset + 2
	case OpJump, OpJumpIfFalse:
		jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		return fmt.Sprintf("%s %4d -> %d\n", prefix, jump, offset+3+jump), offset + 3
	case OpLoop:
		jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		return fmt.Sprintf("%s %4d -> %d\n", prefix, jump, offset+3-jump), offset + 3
	default:
		return prefix + "\n", offset + 1
	}
}
