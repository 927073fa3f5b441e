package ncs

import (
	"math"
	"testing"
)

// Minimal program: a single RETN terminates immediately.
func TestVM_MinimalTermination(t *testing.T) {
	var b fixtureBuilder
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	exit, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exit != 0 {
		t.Fatalf("exit = %d, want 0", exit)
	}
	if len(vm.stack) != 1 || !vm.stack[0].Equal(IntValue(0)) {
		t.Fatalf("final stack = %v, want [Int(0)]", vm.stack)
	}
}

// Two CONST pushes folded by ADD before RETN.
func TestVM_ConstantArithmetic(t *testing.T) {
	var b fixtureBuilder
	b.constInt(2)
	b.constInt(3)
	b.addII()
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	exit, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exit != 0 {
		t.Fatalf("exit = %d, want 0", exit)
	}
}

func TestVM_ConstantArithmeticStackBeforeReturn(t *testing.T) {
	var b fixtureBuilder
	b.constInt(2)
	b.constInt(3)
	b.addII()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	vm.reset()
	vm.program = prog
	vm.routines = NewRoutineTable(nil)
	vm.ctx = &ExecutionContext{}
	vm.stack = append(vm.stack, IntValue(0))
	vm.ip = instructionBase
	for _, ins := range prog.Instructions() {
		next := ins.NextOffset
		if _, err := vm.exec(ins, &next); err != nil {
			t.Fatalf("exec: %v", err)
		}
		vm.ip = next
	}
	want := []Value{IntValue(0), IntValue(5)}
	if len(vm.stack) != len(want) {
		t.Fatalf("stack = %v, want %v", vm.stack, want)
	}
	for i := range want {
		if !vm.stack[i].Equal(want[i]) {
			t.Fatalf("stack[%d] = %v, want %v", i, vm.stack[i], want[i])
		}
	}
}

// DESTRUCT discards a range while keeping an inner window.
func TestVM_DestructRetention(t *testing.T) {
	var b fixtureBuilder
	b.constInt(0)
	b.constInt(1)
	b.constInt(2)
	b.constInt(3)
	b.destruct(16, 4, 4) // size=4 cells, offset=1 cell, keep=1 cell
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	_, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Value{IntValue(0), IntValue(1)}
	if len(vm.stack) != len(want) {
		t.Fatalf("final stack = %v, want %v", vm.stack, want)
	}
	for i := range want {
		if !vm.stack[i].Equal(want[i]) {
			t.Fatalf("stack[%d] = %v, want %v", i, vm.stack[i], want[i])
		}
	}
}

// SAVEBP establishes a frame that CPTOPBP then reads from.
func TestVM_SaveBPCopyTop(t *testing.T) {
	var b fixtureBuilder
	b.constInt(0)
	b.constInt(1)
	b.constInt(2)
	b.op(OpSAVEBP, 0)
	b.cpTopBP(-8, 8)
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	_, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Value{IntValue(0), IntValue(0), IntValue(1), IntValue(2), IntValue(1), IntValue(2)}
	if len(vm.stack) != len(want) {
		t.Fatalf("final stack = %v, want %v", vm.stack, want)
	}
	for i := range want {
		if !vm.stack[i].Equal(want[i]) {
			t.Fatalf("stack[%d] = %v, want %v", i, vm.stack[i], want[i])
		}
	}
}

// A vector argument is pushed Z,Y,X and read back through ACTION.
func TestVM_VectorRoutineCall(t *testing.T) {
	normalize := Routine{
		Name:   "VectorNormalize",
		Return: ValueVector,
		Args:   []ValueType{ValueVector},
		Handler: func(ctx *ExecutionContext, args []Value) (Value, error) {
			v := args[0].Vec
			mag := float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
			if mag == 0 {
				return VectorValue(Vector{}), nil
			}
			return VectorValue(Vector{X: v.X / mag, Y: v.Y / mag, Z: v.Z / mag}), nil
		},
	}
	table := NewRoutineTable([]Routine{normalize})

	var b fixtureBuilder
	b.constFloat(0) // Z
	b.constFloat(0) // Y
	b.constFloat(3) // X
	b.action(0, 1)
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	_, err := vm.Run(prog, table, &ExecutionContext{Routines: table})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	top3 := vm.stack[len(vm.stack)-3:]
	want := []Value{FloatValue(0), FloatValue(0), FloatValue(1)}
	for i := range want {
		if !top3[i].Equal(want[i]) {
			t.Fatalf("result cell %d = %v, want %v", i, top3[i], want[i])
		}
	}
}

func TestVM_RETNEmptyTerminates(t *testing.T) {
	var b fixtureBuilder
	b.retn()
	b.retn() // unreachable; first RETN already terminates
	prog := mustLoad(t, b.build())

	vm := NewVM()
	exit, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exit != 0 {
		t.Fatalf("exit = %d, want 0", exit)
	}
}

func TestVM_DivisionByZero(t *testing.T) {
	var b fixtureBuilder
	b.constInt(1)
	b.constInt(0)
	b.op(OpDIV, TypeII)
	b.retn()
	prog := mustLoad(t, b.build())

	vm := NewVM()
	_, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
	rerr, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("error type = %T, want *RuntimeError", err)
	}
	if _, ok := rerr.Cause.(*ArithmeticError); !ok {
		t.Fatalf("cause type = %T, want *ArithmeticError", rerr.Cause)
	}
}

func TestVM_JZBranchesOnZero(t *testing.T) {
	var b fixtureBuilder
	b.constInt(0)
	// JZ target: skip over a CONSTI(99) to a CONSTI(1); offset computed below.
	jzOffset := b.body.Len()
	b.jump(OpJZ, 0) // patched below
	skipStart := b.body.Len()
	b.constInt(99)
	skipEnd := b.body.Len()
	b.constInt(1)
	b.retn()
	data := b.build()

	// Patch the JZ jump offset now that we know byte layout: JZ should
	// land on skipEnd (past the CONSTI(99) dead branch).
	jzInsOffset := instructionBase + jzOffset
	target := instructionBase + skipEnd
	rel := int32(target - jzInsOffset)
	patchI32(data, jzInsOffset+2, rel)
	_ = skipStart

	prog := mustLoad(t, data)
	vm := NewVM()
	_, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(vm.stack) != 2 || !vm.stack[1].Equal(IntValue(1)) {
		t.Fatalf("final stack = %v, want [_, Int(1)]", vm.stack)
	}
}

func patchI32(data []byte, offset int, v int32) {
	data[offset] = byte(v >> 24)
	data[offset+1] = byte(v >> 16)
	data[offset+2] = byte(v >> 8)
	data[offset+3] = byte(v)
}

func TestVM_JSRRETNRoundTrip(t *testing.T) {
	var b fixtureBuilder
	// main: JSR sub; RETN
	jsrOffset := b.body.Len()
	b.jump(OpJSR, 0) // patched below
	b.retn()
	subOffset := b.body.Len()
	b.constInt(42)
	b.retn()
	data := b.build()

	jsrInsOffset := instructionBase + jsrOffset
	target := instructionBase + subOffset
	rel := int32(target - jsrInsOffset)
	patchI32(data, jsrInsOffset+2, rel)

	prog := mustLoad(t, data)
	vm := NewVM()
	_, err := vm.Run(prog, NewRoutineTable(nil), &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(vm.stack) != 2 || !vm.stack[1].Equal(IntValue(42)) {
		t.Fatalf("final stack = %v, want [_, Int(42)]", vm.stack)
	}
}
