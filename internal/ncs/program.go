package ncs

import (
	"encoding/binary"
	"math"
)

const (
	magic           = "NCS V1.0"
	headerSentinel  = 0x42
	instructionBase = 13
)

// Program is an immutable, ordered collection of Instructions indexed by
// source byte-offset. Byte-offsets are the only valid jump targets;
// instruction indices in the backing slice are not.
//
// Grounded on bytecode.Chunk (internal/bytecode/bytecode.go): a
// read-only container the VM and a secondary consumer (there, the
// disassembler; here, also the decompiler) both walk.
type Program struct {
	raw    []byte
	order  []Instruction   // in offset order
	byOff  map[int]int     // offset -> index into order
	length int
}

// Instructions returns the program's instructions in offset order.
func (p *Program) Instructions() []Instruction { return p.order }

// At returns the instruction at the given byte offset, if one exists.
func (p *Program) At(offset int) (Instruction, bool) {
	idx, ok := p.byOff[offset]
	if !ok {
		return Instruction{}, false
	}
	return p.order[idx], true
}

// Length returns the total program length in bytes (the valid
// "terminate" target for next_offset / jump resolution).
func (p *Program) Length() int { return p.length }

// Bytes returns the raw container bytes the Program was loaded from.
// Retained read-only so tests can assert loader idempotence.
func (p *Program) Bytes() []byte { return p.raw }

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, &LoadError{Offset: r.pos, Reason: ErrTruncatedStream}
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, &LoadError{Offset: r.pos, Reason: ErrTruncatedStream}
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, &LoadError{Offset: r.pos, Reason: ErrTruncatedStream}
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, &LoadError{Offset: r.pos, Reason: ErrTruncatedStream}
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Load parses a byte sequence into an immutable Program.
//
// The container begins with an 8-byte magic ("NCS V1.0"), a 1-byte
// sentinel 0x42 ("T"), a big-endian uint32 program length, and then an
// instruction stream starting at offset 13.
func Load(data []byte) (*Program, error) {
	n := len(data)
	if n > len(magic) {
		n = len(magic)
	}
	if string(data[:n]) != magic[:n] {
		return nil, &LoadError{Offset: 0, Reason: ErrInvalidMagic}
	}
	if len(data) < instructionBase {
		return nil, &LoadError{Offset: len(data), Reason: ErrTruncatedStream}
	}
	if data[8] != headerSentinel {
		return nil, &LoadError{Offset: 8, Reason: ErrInvalidMagic, Detail: "missing 'T' sentinel"}
	}
	totalLength := int(binary.BigEndian.Uint32(data[9:13]))

	r := &reader{data: data}
	r.pos = instructionBase

	p := &Program{
		raw:    data,
		byOff:  make(map[int]int),
		length: totalLength,
	}

	for r.pos < len(data) {
		offset := r.pos
		ins, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		ins.Offset = offset
		ins.NextOffset = r.pos
		p.byOff[offset] = len(p.order)
		p.order = append(p.order, ins)
	}

	if p.length == 0 {
		p.length = len(data)
	}

	return p, nil
}

func decodeInstruction(r *reader) (Instruction, error) {
	startOffset := r.pos
	op, err := r.u8()
	if err != nil {
		return Instruction{}, err
	}
	typ, err := r.u8()
	if err != nil {
		return Instruction{}, err
	}

	ins := Instruction{Op: OpCode(op), Type: TypeSuffix(typ)}

	switch ins.Op {
	case OpCPDOWNSP, OpCPTOPSP, OpCPDOWNBP, OpCPTOPBP:
		off, err := r.i32()
		if err != nil {
			return ins, err
		}
		size, err := r.u16()
		if err != nil {
			return ins, err
		}
		ins.StackOffset = off
		ins.Size = size

	case OpCONST:
		switch ins.Type {
		case TypeInt:
			v, err := r.i32()
			if err != nil {
				return ins, err
			}
			ins.LitInt = v
		case TypeFloat:
			v, err := r.f32()
			if err != nil {
				return ins, err
			}
			ins.LitFloat = v
		case TypeString:
			n, err := r.u16()
			if err != nil {
				return ins, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return ins, err
			}
			ins.LitString = string(b)
		case TypeObject:
			v, err := r.u32()
			if err != nil {
				return ins, err
			}
			ins.LitObject = v
		default:
			return ins, &LoadError{Offset: startOffset, Reason: ErrInvalidOperand, Detail: "CONST with unsupported type suffix"}
		}

	case OpACTION:
		idx, err := r.u16()
		if err != nil {
			return ins, err
		}
		argc, err := r.u8()
		if err != nil {
			return ins, err
		}
		ins.RoutineIndex = idx
		ins.ArgCount = argc

	case OpMOVSP, OpJMP, OpJSR, OpJZ, OpJNZ, OpDECISP, OpINCISP, OpDECIBP, OpINCIBP:
		v, err := r.i32()
		if err != nil {
			return ins, err
		}
		switch ins.Op {
		case OpJMP, OpJSR, OpJZ, OpJNZ:
			ins.JumpOffset = v
		default:
			ins.StackOffset = v
		}

	case OpDESTRUCT:
		size, err := r.u16()
		if err != nil {
			return ins, err
		}
		off, err := r.u16()
		if err != nil {
			return ins, err
		}
		noDestroy, err := r.u16()
		if err != nil {
			return ins, err
		}
		ins.Size = size
		ins.StackOffset = int32(int16(off))
		ins.SizeNoDestroy = noDestroy

	case OpSTORESTATE:
		globals, err := r.i32()
		if err != nil {
			return ins, err
		}
		locals, err := r.i32()
		if err != nil {
			return ins, err
		}
		ins.SizeGlobals = globals
		ins.SizeLocals = locals

	case OpEQUAL, OpNEQUAL:
		if ins.Type == TypeTT {
			// EQUALTT / NEQUALTT: 2-byte size in cells*4.
			size, err := r.u16()
			if err != nil {
				return ins, err
			}
			ins.Size = size
		}
		// Plain typed comparisons (ii/ff/ss/oo/engine-engine) carry no
		// extra operand.

	case OpRSADD, OpLOGAND, OpLOGOR, OpINCOR, OpEXCOR, OpBOOLAND,
		OpGEQ, OpGT, OpLT, OpLEQ, OpSHLEFT, OpSHRIGHT, OpUSHRIGHT,
		OpADD, OpSUB, OpMUL, OpDIV, OpMOD, OpNEG, OpCOMP, OpNOT,
		OpRETN, OpSAVEBP, OpRESTOREBP, OpNOP, OpNOP2:
		// No operands beyond opcode + type suffix.

	default:
		return ins, &LoadError{Offset: startOffset, Reason: ErrUnknownOpcode, Detail: ins.Op.String()}
	}

	return ins, nil
}
