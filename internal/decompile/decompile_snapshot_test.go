package decompile

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/ncsvm/go-ncs/internal/ncs"
)

// container is a minimal local byte-builder for the handful of fixture
// programs exercised here; kept separate from internal/ncs's own
// fixtureBuilder since Go test helpers aren't importable across package
// boundaries (teacher precedent: each package builds its own small
// fixture helper rather than sharing _test.go code, cf.
// internal/bytecode/*_test.go vs internal/interp/fixture_test.go).
type container struct {
	body bytes.Buffer
}

func (c *container) u8(v byte)     { c.body.WriteByte(v) }
func (c *container) u16(v uint16)  { var b [2]byte; binary.BigEndian.PutUint16(b[:], v); c.body.Write(b[:]) }
func (c *container) i32(v int32)   { var b [4]byte; binary.BigEndian.PutUint32(b[:], uint32(v)); c.body.Write(b[:]) }
func (c *container) f32(v float32) { c.i32(int32(math.Float32bits(v))) }

func (c *container) op(op ncs.OpCode, t ncs.TypeSuffix) { c.u8(byte(op)); c.u8(byte(t)) }
func (c *container) constInt(v int32)                   { c.op(ncs.OpCONST, ncs.TypeInt); c.i32(v) }
func (c *container) retn()                              { c.op(ncs.OpRETN, 0) }
func (c *container) addII()                             { c.op(ncs.OpADD, ncs.TypeII) }
func (c *container) rsaddInt()                          { c.op(ncs.OpRSADD, ncs.TypeInt) }
func (c *container) jsr(relOffset int32)                { c.op(ncs.OpJSR, 0); c.i32(relOffset) }
func (c *container) cpdownSP(offset int32, size uint16) { c.op(ncs.OpCPDOWNSP, 0); c.i32(offset); c.u16(size) }
func (c *container) cptopSP(offset int32, size uint16)  { c.op(ncs.OpCPTOPSP, 0); c.i32(offset); c.u16(size) }

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

func mustLoad(t *testing.T, data []byte) *ncs.Program {
	t.Helper()
	prog, err := ncs.Load(data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return prog
}

func TestDecompile_MinimalTermination(t *testing.T) {
	var c container
	c.retn()
	prog := mustLoad(t, c.build())

	tree := Decompile(prog, nil)
	snaps.MatchSnapshot(t, Format(tree))
}

func TestDecompile_ConstantArithmetic(t *testing.T) {
	var c container
	c.constInt(2)
	c.constInt(3)
	c.addII()
	c.retn()
	prog := mustLoad(t, c.build())

	tree := Decompile(prog, nil)
	snaps.MatchSnapshot(t, Format(tree))
}

// TestDecompile_StartingConditional builds a _start that reserves one Int
// cell, calls a subroutine that writes into it via CPDOWNSP, then returns
// it: a zero-input, one-Int-output, Void-returning callee called once from
// _start and returned straight through should come out named
// StartingConditional, with its Output populated and threaded into the
// call site's Args.
func TestDecompile_StartingConditional(t *testing.T) {
	var c container
	c.rsaddInt() // 13: 2 bytes -> 15
	c.jsr(8)     // 15: 6 bytes -> 21, target = 15+8 = 23
	c.retn()     // 21: 2 bytes -> 23

	// conditional, offset 23
	c.constInt(1)     // 23: 6 bytes -> 29
	c.cpdownSP(-8, 4) // 29: 8 bytes -> 37, writes into _start's reserved cell
	c.retn()          // 37: 2 bytes -> 39
	prog := mustLoad(t, c.build())

	tree := Decompile(prog, nil)
	out := Format(tree)
	if !strings.Contains(out, "StartingConditional") {
		t.Fatalf("expected StartingConditional in output, got:\n%s", out)
	}
	snaps.MatchSnapshot(t, out)
}

// TestDecompile_CallWithInputArgument builds a _start that pushes a
// constant and calls a subroutine reading it back via CPTOPSP at a
// negative offset: the callee's symbolic stack must be seeded from the
// call site rather than starting empty, or this CPTOPSP undershoots the
// callee's own pushes and fails to resolve.
func TestDecompile_CallWithInputArgument(t *testing.T) {
	var c container
	c.constInt(7) // 13: 6 bytes -> 19
	c.jsr(8)      // 19: 6 bytes -> 25, target = 19+8 = 27
	c.retn()      // 25: 2 bytes -> 27

	// addOne, offset 27
	c.cptopSP(-4, 4) // 27: 8 bytes -> 35, aliases _start's pushed constant
	c.constInt(1)    // 35: 6 bytes -> 41
	c.addII()        // 41: 2 bytes -> 43
	c.retn()         // 43: 2 bytes -> 45
	prog := mustLoad(t, c.build())

	tree := Decompile(prog, nil)
	snaps.MatchSnapshot(t, Format(tree))
}
