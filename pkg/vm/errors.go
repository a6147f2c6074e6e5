package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one line of a RuntimeError's trace: the source line active
// in a call frame at the moment the error was raised, and the name of the
// function that frame belongs to ("script" for the synthetic top-level
// frame, matching spec.md §4.5's "<name or 'script'>" wording).
type StackFrame struct {
	Name string
	Line int
}

// RuntimeError is what Interpret returns on a failed run: a one-line
// message plus a top-to-bottom call-frame trace, rendered exactly as
// spec.md §4.5 specifies:
//
//	<message>
//	[line <n>] in <name>
//	[line <n>] in <name>
//	...
type RuntimeError struct {
	Message string
	Trace   []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, f := range e.Trace {
		b.WriteByte('\n')
		name := f.Name
		if name == "" {
			name = "script"
		}
		fmt.Fprintf(&b, "[line %d] in %s", f.Line, name)
	}
	return b.String()
}

// runtimeError builds a RuntimeError from the VM's live call frames, top
// (the frame where execution actually is) to bottom (the script's own
// frame), each annotated with the source line its instruction pointer was
// at when the error occurred.
func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	err := &RuntimeError{Message: fmt.Sprintf(format, args...)}
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := 0
		if f.ip > 0 && f.ip-1 < len(f.function.Chunk.Lines) {
			line = f.function.Chunk.Lines[f.ip-1]
		}
		err.Trace = append(err.Trace, StackFrame{Name: f.function.Name, Line: line})
	}
	return err
}
