package ncs

// Instruction is a single decoded NCS instruction. It is a flat struct
// carrying every opcode-specific field as its own named field — the
// same packing discipline bytecode.Instruction uses for its fixed-shape
// encoding, generalized here to NCS's variable-length wire format
// instead of a fixed 32-bit word. Fields not used by a given Op/Type
// combination are left zero.
type Instruction struct {
	Offset     int
	Op         OpCode
	Type       TypeSuffix
	NextOffset int

	JumpOffset    int32
	StackOffset   int32
	Size          uint16
	SizeNoDestroy uint16
	SizeLocals    int32 // STORESTATE locals size (bytes)
	SizeGlobals   int32 // STORESTATE globals size (bytes)
	RoutineIndex  uint16
	ArgCount      uint8

	// Literal payload, discriminated by Type for CONST* opcodes.
	LitInt    int32
	LitFloat  float32
	LitString string
	LitObject uint32
}

// String renders the instruction's mnemonic (opcode plus type suffix),
// the same text internal/ncs/disasm.go prints in each listing line.
func (ins Instruction) String() string {
	return ins.Op.String() + ins.Type.String()
}
