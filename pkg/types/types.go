// Package types defines the static type lattice used by the checker and
// the symbol table.
package types

// DataType is the closed set of static types in det.
//
// Error is a propagation sentinel: it is never a runtime value, only a
// marker the type checker uses to avoid cascading duplicate diagnostics
// once one expression has already failed to type.
type DataType int

const (
	Void DataType = iota
	Int
	Bool
	String
	Error
)

// String returns the source-level spelling of a type, used in diagnostics.
func (d DataType) String() string {
	switch d {
	case Void:
		return "void"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case String:
		return "str"
	case Error:
		return "<error>"
	default:
		return "<unknown type>"
	}
}
