package ncsvm_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ncsvm/go-ncs/internal/ncs"
	"github.com/ncsvm/go-ncs/internal/stdroutines"
	"github.com/ncsvm/go-ncs/pkg/ncsvm"
)

// container mirrors the per-package fixture-builder convention used by
// internal/ncs and internal/decompile's own test files.
type container struct {
	body bytes.Buffer
}

func (c *container) u8(v byte)    { c.body.WriteByte(v) }
func (c *container) i32(v int32)  { var b [4]byte; binary.BigEndian.PutUint32(b[:], uint32(v)); c.body.Write(b[:]) }
func (c *container) f32(v float32) { c.i32(int32(math.Float32bits(v))) }

func (c *container) op(op ncs.OpCode, t ncs.TypeSuffix) { c.u8(byte(op)); c.u8(byte(t)) }
func (c *container) constInt(v int32)                   { c.op(ncs.OpCONST, ncs.TypeInt); c.i32(v) }
func (c *container) retn()                              { c.op(ncs.OpRETN, 0) }
func (c *container) addII()                             { c.op(ncs.OpADD, ncs.TypeII) }

func (c *container) build() []byte {
	const base = 13
	total := base + c.body.Len()
	var out bytes.Buffer
	out.WriteString("NCS V1.0")
	out.WriteByte(0x42)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(total))
	out.Write(lenBuf[:])
	out.Write(c.body.Bytes())
	return out.Bytes()
}

func TestLoadAndRun_ConstantArithmetic(t *testing.T) {
	var c container
	c.constInt(2)
	c.constInt(3)
	c.addII()
	c.retn()

	prog, err := ncsvm.Load(c.build())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	routines := stdroutines.New(nil)
	code, err := ncsvm.Run(prog, routines, &ncsvm.ExecutionContext{Routines: routines})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestLoad_RejectsBadMagic(t *testing.T) {
	_, err := ncsvm.Load([]byte("not an ncs file at all"))
	if err == nil {
		t.Fatal("Load: want error for malformed container")
	}
}

func TestDisassemble_ListsInstructions(t *testing.T) {
	var c container
	c.constInt(7)
	c.retn()
	prog, err := ncsvm.Load(c.build())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	text := ncsvm.Disassemble(prog)
	if text == "" {
		t.Fatal("Disassemble: want non-empty listing")
	}
}

func TestDecompile_FormatsFunction(t *testing.T) {
	var c container
	c.constInt(2)
	c.constInt(3)
	c.addII()
	c.retn()
	prog, err := ncsvm.Load(c.build())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tree := ncsvm.Decompile(prog, stdroutines.New(nil))
	if len(tree.Functions) == 0 {
		t.Fatal("Decompile: want at least one recovered function")
	}
	if out := ncsvm.FormatDecompiled(tree); out == "" {
		t.Fatal("FormatDecompiled: want non-empty text")
	}
}
