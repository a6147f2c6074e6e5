// Package symbols implements the lexically scoped symbol table used by
// the type checker (the compiler resolves names through its own locals
// array and global-slot map instead).
package symbols

import "github.com/kristofer/det/pkg/types"

// Symbol is one bound name: its type and the scope depth it was defined at.
type Symbol struct {
	Name  string
	Type  types.DataType
	Depth int
}

// Table is a stack of scopes represented as a single ordered slice plus a
// depth counter, exactly as spec.md §4.3 describes: symbols are appended on
// define and truncated from the tail on scope exit, so the bottom frame
// (depth 0, globals) is never popped.
type Table struct {
	symbols []Symbol
	depth   int
}

// New returns an empty Table at depth 0.
func New() *Table {
	return &Table{}
}

// Depth returns the current scope depth (0 is global).
func (t *Table) Depth() int { return t.depth }

// EnterScope begins a new nested scope.
func (t *Table) EnterScope() { t.depth++ }

// ExitScope pops every symbol defined at the scope being exited and
// decrements the depth. The depth-0 frame is never popped.
func (t *Table) ExitScope() {
	if t.depth == 0 {
		return
	}
	for len(t.symbols) > 0 && t.symbols[len(t.symbols)-1].Depth == t.depth {
		t.symbols = t.symbols[:len(t.symbols)-1]
	}
	t.depth--
}

// Define binds name to typ at the current depth. At depth 0, redefining an
// existing name overwrites its type and succeeds — this supports the
// interactive prompt redeclaring a global across separate inputs (spec.md
// §4.3, resolved for both REPL and file sources in SPEC_FULL.md §6.2). At
// any depth greater than 0, redefining a name already bound at that same
// depth is rejected.
func (t *Table) Define(name string, typ types.DataType) bool {
	if t.depth == 0 {
		for i := range t.symbols {
			if t.symbols[i].Depth == 0 && t.symbols[i].Name == name {
				t.symbols[i].Type = typ
				return true
			}
		}
		t.symbols = append(t.symbols, Symbol{Name: name, Type: typ, Depth: 0})
		return true
	}

	for i := len(t.symbols) - 1; i >= 0 && t.symbols[i].Depth == t.depth; i-- {
		if t.symbols[i].Name == name {
			return false
		}
	}
	t.symbols = append(t.symbols, Symbol{Name: name, Type: typ, Depth: t.depth})
	return true
}

// Lookup scans innermost-first and returns the type of the most recent
// binding for name, or types.Error if none exists.
func (t *Table) Lookup(name string) types.DataType {
	for i := len(t.symbols) - 1; i >= 0; i-- {
		if t.symbols[i].Name == name {
			return t.symbols[i].Type
		}
	}
	return types.Error
}

// Clone returns a deep-enough copy for a checker run that must not pollute
// persistent state until it succeeds (spec.md §4.3: "a checker-local copy
// of the symbol table, so that a type-error-recovering run does not
// pollute persistent state").
func (t *Table) Clone() *Table {
	clone := &Table{depth: t.depth, symbols: make([]Symbol, len(t.symbols))}
	copy(clone.symbols, t.symbols)
	return clone
}

// Adopt replaces t's contents with other's, committing a checker-local
// table back into persistent state after a successful pass.
func (t *Table) Adopt(other *Table) {
	t.symbols = other.symbols
	t.depth = other.depth
}
