package ncs

import (
	"fmt"
	"strings"
	"testing"
)

func TestDisassemble_ListsConstAndArithmetic(t *testing.T) {
	var b fixtureBuilder
	b.constInt(2)
	b.constInt(3)
	b.addII()
	b.retn()
	prog := mustLoad(t, b.build())

	var sb strings.Builder
	NewDisassembler(prog, &sb).Disassemble()
	out := sb.String()

	for _, want := range []string{"CONST", "2", "3", "ADDII", "RETN"} {
		if !strings.Contains(out, want) {
			t.Fatalf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleInstruction_Jump(t *testing.T) {
	var b fixtureBuilder
	b.jump(OpJMP, 10)
	prog := mustLoad(t, b.build())

	var sb strings.Builder
	d := NewDisassembler(prog, &sb)
	ins := prog.Instructions()[0]
	d.DisassembleInstruction(ins)

	want := ins.Offset + 10
	if got := sb.String(); !strings.Contains(got, fmt.Sprintf("-> %d", want)) {
		t.Fatalf("jump line = %q, want arrow to target offset %d", got, want)
	}
}

func TestDisassembleInstruction_Action(t *testing.T) {
	var b fixtureBuilder
	b.action(4, 2)
	prog := mustLoad(t, b.build())

	var sb strings.Builder
	NewDisassembler(prog, &sb).DisassembleInstruction(prog.Instructions()[0])

	out := sb.String()
	if !strings.Contains(out, "routine=4") || !strings.Contains(out, "argc=2") {
		t.Fatalf("action line = %q, want routine=4 argc=2", out)
	}
}
