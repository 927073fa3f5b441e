// Package ncsvm is the public facade over the internal NCS engine:
// loading a compiled script container, running it against an
// embedder-supplied RoutineTable, disassembling it, and decompiling it
// back to an expression tree. internal/ncs and internal/decompile stay
// internal; this is the only package external callers should import
// (teacher precedent: pkg/dwscript wrapping internal/lexer, internal/
// parser, internal/semantic, internal/interp behind one slim facade).
package ncsvm

import (
	"strings"

	"github.com/ncsvm/go-ncs/internal/decompile"
	"github.com/ncsvm/go-ncs/internal/ncs"
)

// Re-exported types callers need to name without reaching into internal/ncs.
type (
	Program          = ncs.Program
	Value            = ncs.Value
	Vector           = ncs.Vector
	ValueType        = ncs.ValueType
	Routine          = ncs.Routine
	RoutineFunc      = ncs.RoutineFunc
	RoutineTable     = ncs.RoutineTable
	ExecutionContext = ncs.ExecutionContext
	Callbacks        = ncs.Callbacks
	RuntimeError     = ncs.RuntimeError
)

// Re-exported Expression-tree types for callers that want to inspect
// Decompile's output directly rather than just its formatted text.
type (
	ExpressionTree = decompile.ExpressionTree
	Function       = decompile.Function
)

// Load parses a byte sequence into an immutable Program.
func Load(data []byte) (*Program, error) {
	return ncs.Load(data)
}

// NewRoutineTable builds an immutable RoutineTable from routines.
func NewRoutineTable(routines []Routine) *RoutineTable {
	return ncs.NewRoutineTable(routines)
}

// Run executes prog from its entrypoint and returns its exit code.
func Run(prog *Program, routines *RoutineTable, ctx *ExecutionContext) (int32, error) {
	vm := ncs.NewVM()
	return vm.Run(prog, routines, ctx)
}

// RunContinuation resumes a previously captured Continuation.
func RunContinuation(cont *ncs.Continuation, routines *RoutineTable, ctx *ExecutionContext) (int32, error) {
	vm := ncs.NewVM()
	return vm.RunContinuation(cont, routines, ctx)
}

// Decompile recovers prog's expression tree. routines may be nil; ACTION
// calls then render by routine index rather than name.
func Decompile(prog *Program, routines *RoutineTable) *ExpressionTree {
	return decompile.Decompile(prog, routines)
}

// FormatDecompiled renders tree as pseudocode text.
func FormatDecompiled(tree *ExpressionTree) string {
	return decompile.Format(tree)
}

// Disassemble renders prog's full instruction listing as text.
func Disassemble(prog *Program) string {
	var sb strings.Builder
	ncs.NewDisassembler(prog, &sb).Disassemble()
	return sb.String()
}
