package ncs

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// fixtureBuilder assembles a raw NCS container byte-by-byte for tests,
// grounded on the table-driven bytecode tests
// (internal/bytecode/instruction_test.go) but hand-encoding bytes
// directly since there is no compiler in this module to produce them.
type fixtureBuilder struct {
	body bytes.Buffer
}

func (b *fixtureBuilder) u8(v byte)      { b.body.WriteByte(v) }
func (b *fixtureBuilder) u16(v uint16)   { var buf [2]byte; binary.BigEndian.PutUint16(buf[:], v); b.body.Write(buf[:]) }
func (b *fixtureBuilder) u32(v uint32)   { var buf [4]byte; binary.BigEndian.PutUint32(buf[:], v); b.body.Write(buf[:]) }
func (b *fixtureBuilder) i32(v int32)    { b.u32(uint32(v)) }
func (b *fixtureBuilder) f32(v float32)  { b.u32(math.Float32bits(v)) }

func (b *fixtureBuilder) op(op OpCode, typ TypeSuffix) {
	b.u8(byte(op))
	b.u8(byte(typ))
}

func (b *fixtureBuilder) constInt(v int32) {
	b.op(OpCONST, TypeInt)
	b.i32(v)
}

func (b *fixtureBuilder) constFloat(v float32) {
	b.op(OpCONST, TypeFloat)
	b.f32(v)
}

func (b *fixtureBuilder) retn() { b.op(OpRETN, 0) }

func (b *fixtureBuilder) addII() { b.op(OpADD, TypeII) }

func (b *fixtureBuilder) jump(op OpCode, relOffset int32) {
	b.op(op, 0)
	b.i32(relOffset)
}

func (b *fixtureBuilder) action(routineIndex uint16, argCount uint8) {
	b.op(OpACTION, 0)
	b.u16(routineIndex)
	b.u8(argCount)
}

func (b *fixtureBuilder) cpTopBP(stackOffsetBytes int32, sizeBytes uint16) {
	b.op(OpCPTOPBP, 0)
	b.i32(stackOffsetBytes)
	b.u16(sizeBytes)
}

func (b *fixtureBuilder) destruct(sizeBytes uint16, stackOffsetBytes int16, noDestroyBytes uint16) {
	b.op(OpDESTRUCT, 0)
	b.u16(sizeBytes)
	b.u16(uint16(stackOffsetBytes))
	b.u16(noDestroyBytes)
}

// build finalizes the container: header + body, with the declared
// length set to the full container size.
func (b *fixtureBuilder) build() []byte {
	total := instructionBase + b.body.Len()
	var out bytes.Buffer
	out.WriteString(magic)
	out.WriteByte(headerSentinel)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(total))
	out.Write(lenBuf[:])
	out.Write(b.body.Bytes())
	return out.Bytes()
}

func mustLoad(t *testing.T, data []byte) *Program {
	t.Helper()
	prog, err := Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return prog
}
