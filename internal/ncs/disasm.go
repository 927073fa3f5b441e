package ncs

import (
	"fmt"
	"io"
)

// Disassembler renders a Program as human-readable text, grounded on
// bytecode.Disassembler (internal/bytecode/disasm.go):
// one line per instruction, offset-prefixed, with opcode-specific
// operand formatting.
type Disassembler struct {
	w       io.Writer
	program *Program
}

// NewDisassembler creates a Disassembler writing to w.
func NewDisassembler(program *Program, w io.Writer) *Disassembler {
	return &Disassembler{w: w, program: program}
}

// Disassemble writes the full instruction listing.
func (d *Disassembler) Disassemble() {
	fmt.Fprintf(d.w, "== program (%d bytes, %d instructions) ==\n", d.program.Length(), len(d.program.Instructions()))
	for _, ins := range d.program.Instructions() {
		d.DisassembleInstruction(ins)
	}
}

// DisassembleInstruction writes a single formatted instruction line.
func (d *Disassembler) DisassembleInstruction(ins Instruction) {
	fmt.Fprintf(d.w, "%6d  %-12s %s\n", ins.Offset, ins.Op.String()+ins.Type.String(), operandString(ins))
}

func operandString(ins Instruction) string {
	switch ins.Op {
	case OpCONST:
		switch ins.Type {
		case TypeInt:
			return fmt.Sprintf("%d", ins.LitInt)
		case TypeFloat:
			return fmt.Sprintf("%g", ins.LitFloat)
		case TypeString:
			return fmt.Sprintf("%q", ins.LitString)
		case TypeObject:
			return fmt.Sprintf("obj#%d", ins.LitObject)
		}
	case OpCPDOWNSP, OpCPTOPSP, OpCPDOWNBP, OpCPTOPBP:
		return fmt.Sprintf("offset=%d size=%d", ins.StackOffset, ins.Size)
	case OpACTION:
		return fmt.Sprintf("routine=%d argc=%d", ins.RoutineIndex, ins.ArgCount)
	case OpMOVSP:
		return fmt.Sprintf("n=%d", ins.StackOffset)
	case OpJMP, OpJSR, OpJZ, OpJNZ:
		return fmt.Sprintf("-> %d", ins.Offset+int(ins.JumpOffset))
	case OpDECISP, OpINCISP, OpDECIBP, OpINCIBP:
		return fmt.Sprintf("offset=%d", ins.StackOffset)
	case OpDESTRUCT:
		return fmt.Sprintf("size=%d offset=%d keep=%d", ins.Size, ins.StackOffset, ins.SizeNoDestroy)
	case OpSTORESTATE:
		return fmt.Sprintf("globals=%d locals=%d body=%d", ins.SizeGlobals, ins.SizeLocals, ins.Offset+0x10)
	case OpEQUAL, OpNEQUAL:
		if ins.Type == TypeTT {
			return fmt.Sprintf("size=%d", ins.Size)
		}
	}
	return ""
}
