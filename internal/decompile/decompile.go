package decompile

import (
	"fmt"

	"github.com/ncsvm/go-ncs/internal/ncs"
)

// Decompile converts a loaded Program into a forest of Functions by
// symbolic execution over the same instruction table the VM walks.
// routines resolves ACTION targets for naming and argument-count
// purposes only; a nil table still decompiles, with routines rendered
// by index.
//
// Grounded on the compiler's per-statement compile-and-accumulate style
// (internal/bytecode/compiler_statements.go): a block that fails to
// decompile is replaced by an empty Block plus a recorded Diagnostic,
// and decompilation of every other block continues regardless.
func Decompile(prog *ncs.Program, routines *ncs.RoutineTable) *ExpressionTree {
	d := &decompiler{prog: prog, routines: routines, cache: map[int]*Function{}, bpSnapshot: map[*Function][]*Parameter{}}
	start := d.function(13, "_start", nil)

	tree := &ExpressionTree{Functions: d.order, Diagnostics: d.diags}
	d.applyNaming(tree, start)
	d.collectGlobals(tree, start)
	for _, fn := range tree.Functions {
		for _, blk := range fn.Blocks {
			mergeDeclareInit(blk)
		}
	}
	return tree
}

type decompiler struct {
	prog       *ncs.Program
	routines   *ncs.RoutineTable
	cache      map[int]*Function // entry offset -> Function
	order      []*Function       // discovery order, _start first
	diags      []Diagnostic
	tempSeq    int
	bpSnapshot map[*Function][]*Parameter // stack shape at this function's SAVEBP, for globals recovery
}

// stackSlot is one cell of the symbolic stack: the expression currently
// occupying it plus the Function that allocated it. A cell whose owner
// is not the function currently reading or writing it, and whose
// Parameter isn't already Global, belongs to a caller — CPTOP/CPDOWN
// reaching such a cell classifies it as an Input/Output parameter of
// the current function instead of a plain local.
type stackSlot struct {
	expr  *Expression
	owner *Function
}

func slotExprs(cells []stackSlot) []*Expression {
	out := make([]*Expression, len(cells))
	for i, c := range cells {
		out[i] = c.expr
	}
	return out
}

// function returns the already-decompiled Function rooted at offset, or
// decompiles a fresh one: `_start` on the first call, a JSR target on
// every call after. callerStack is the symbolic stack at the call site,
// seeded into the callee so CPTOP/CPDOWN reaching below the callee's
// own pushes resolve to real caller-owned cells rather than running out
// of range. A target reached through more than one call site is
// decompiled once, from the first call site encountered; later call
// sites reuse that Function and its already-resolved Inputs/Outputs.
func (d *decompiler) function(offset int, name string, callerStack []stackSlot) *Function {
	if fn, ok := d.cache[offset]; ok {
		return fn
	}
	fn := &Function{Name: name, Offset: offset, ReturnType: ncs.ValueVoid}
	d.cache[offset] = fn
	d.order = append(d.order, fn)

	fb := &funcBuilder{
		d: d, fn: fn,
		built: map[int]*Block{}, building: map[int]bool{}, labels: map[int]int{},
		bp:          -1,
		inputIndex:  map[*Parameter]int{},
		outputIndex: map[*Parameter]int{},
	}
	fb.block(offset, callerStack)
	return fn
}

// funcBuilder holds the per-function symbolic-execution state: the label
// table, the set of blocks already built or in progress (so backward
// jumps terminate rather than recurse forever), and this function's base
// pointer, tracked as a single value since SAVEBP/RESTOREBP occur at most
// once at a function's top level in practice (simplification over a true
// BP stack, which the VM itself only needs because RESTOREBP can nest).
type funcBuilder struct {
	d        *decompiler
	fn       *Function
	built    map[int]*Block
	building map[int]bool
	labels   map[int]int
	bp       int

	lastContinuation *Expression // most recent STORESTATE result, for Action-typed ACTION args

	// inputIndex/outputIndex dedupe repeated touches of the same
	// caller-owned Parameter to a single Input/Output slot, keyed by
	// the caller-side Parameter's identity.
	inputIndex  map[*Parameter]int
	outputIndex map[*Parameter]int
}

func (fb *funcBuilder) labelFor(offset int) int {
	if id, ok := fb.labels[offset]; ok {
		return id
	}
	id := len(fb.fn.Labels)
	fb.fn.Labels = append(fb.fn.Labels, offset)
	fb.labels[offset] = id
	return id
}

func (fb *funcBuilder) newParam(t ncs.ValueType) *Expression {
	fb.d.tempSeq++
	p := &Parameter{Name: fmt.Sprintf("v%d", fb.d.tempSeq), Type: t, Locality: LocalityLocal}
	return &Expression{Kind: ExprParameter, Param: p}
}

// materialize wraps value in a freshly declared Parameter ("Parameter =
// value"), appends the assignment to blk, and returns the Parameter
// expression — the stack-slot invariant every opcode handler relies on:
// every symbolic stack cell is always an ExprParameter reference, never
// a bare computed expression, so CPDOWN/CPTOP/DESTRUCT can address cells
// by identity.
func (fb *funcBuilder) materialize(blk *Block, t ncs.ValueType, value *Expression) *Expression {
	p := fb.newParam(t)
	blk.Exprs = append(blk.Exprs, &Expression{Kind: ExprAssign, Left: p, Right: value})
	return p
}

// own wraps a freshly materialized expression as a stack slot owned by
// this function — the case for every genuinely new value (constants,
// computed results, CPTOP aliases): nothing below the caller boundary
// produces these.
func (fb *funcBuilder) own(e *Expression) stackSlot {
	return stackSlot{expr: e, owner: fb.fn}
}

func (fb *funcBuilder) diag(offset int, format string, args ...interface{}) {
	fb.d.diags = append(fb.d.diags, Diagnostic{Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// resolveInput returns the expression a CPTOP should alias: the cell's
// own expression if it belongs to this function or is Global, or this
// function's Input parameter standing in for it otherwise — creating
// and recording that Input, and its caller-side source, on first touch.
func (fb *funcBuilder) resolveInput(cell stackSlot) *Expression {
	if cell.owner == fb.fn || cell.expr.Param.Locality == LocalityGlobal {
		return cell.expr
	}
	idx, ok := fb.inputIndex[cell.expr.Param]
	if !ok {
		idx = len(fb.fn.Inputs)
		in := &Parameter{Name: fmt.Sprintf("in%d", idx), Type: cell.expr.Param.Type, Locality: LocalityInput}
		fb.fn.Inputs = append(fb.fn.Inputs, in)
		fb.fn.inputSources = append(fb.fn.inputSources, cell.expr)
		fb.inputIndex[cell.expr.Param] = idx
	}
	return &Expression{Kind: ExprParameter, Param: fb.fn.Inputs[idx]}
}

// resolveOutput returns the expression a CPDOWN should assign into: the
// cell's own expression if it belongs to this function or is Global, or
// this function's Output parameter standing in for it otherwise —
// creating and recording that Output, and its caller-side target, on
// first touch.
func (fb *funcBuilder) resolveOutput(cell stackSlot) *Expression {
	if cell.owner == fb.fn || cell.expr.Param.Locality == LocalityGlobal {
		return cell.expr
	}
	idx, ok := fb.outputIndex[cell.expr.Param]
	if !ok {
		idx = len(fb.fn.Outputs)
		out := &Parameter{Name: fmt.Sprintf("out%d", idx), Type: cell.expr.Param.Type, Locality: LocalityOutput}
		fb.fn.Outputs = append(fb.fn.Outputs, out)
		fb.fn.outputSources = append(fb.fn.outputSources, cell.expr)
		fb.outputIndex[cell.expr.Param] = idx
	}
	return &Expression{Kind: ExprParameter, Param: fb.fn.Outputs[idx]}
}

// block decompiles (or returns the already-built/in-progress) Block
// rooted at offset. A backward jump to a block still under construction
// resolves to the same *Block pointer rather than recursing, since the
// label reference is all a Goto needs.
func (fb *funcBuilder) block(offset int, parentStack []stackSlot) *Block {
	if b, ok := fb.built[offset]; ok {
		return b
	}
	blk := &Block{Offset: offset}
	fb.built[offset] = blk
	fb.fn.Blocks = append(fb.fn.Blocks, blk)
	fb.building[offset] = true
	defer delete(fb.building, offset)

	stk := append([]stackSlot{}, parentStack...)
	ip := offset
	for {
		ins, ok := fb.d.prog.At(ip)
		if !ok {
			fb.diag(ip, "no instruction boundary at offset %d", ip)
			blk.Exprs = nil
			return blk
		}
		term, err := fb.step(blk, &stk, ins)
		if err != nil {
			fb.diag(ins.Offset, "%v", err)
			blk.Exprs = nil
			return blk
		}
		if term {
			return blk
		}
		ip = ins.NextOffset
	}
}

var binaryKindByOp = map[ncs.OpCode]ExprKind{
	ncs.OpADD:      ExprAdd,
	ncs.OpSUB:      ExprSubtract,
	ncs.OpMUL:      ExprMultiply,
	ncs.OpDIV:      ExprDivide,
	ncs.OpMOD:      ExprModulo,
	ncs.OpLOGAND:   ExprLogicalAnd,
	ncs.OpLOGOR:    ExprLogicalOr,
	ncs.OpINCOR:    ExprBitwiseOr,
	ncs.OpEXCOR:    ExprBitwiseExclusiveOr,
	ncs.OpBOOLAND:  ExprBitwiseAnd,
	ncs.OpSHLEFT:   ExprLeftShift,
	ncs.OpSHRIGHT:  ExprRightShift,
	ncs.OpUSHRIGHT: ExprRightShiftUnsigned,
	ncs.OpGEQ:      ExprGreaterThanOrEqual,
	ncs.OpGT:       ExprGreaterThan,
	ncs.OpLT:       ExprLessThan,
	ncs.OpLEQ:      ExprLessThanOrEqual,
}

func resultTypeForArith(t ncs.TypeSuffix) ncs.ValueType {
	switch t {
	case ncs.TypeII:
		return ncs.ValueInt
	case ncs.TypeFF, ncs.TypeIF, ncs.TypeFI:
		return ncs.ValueFloat
	case ncs.TypeSS:
		return ncs.ValueString
	default:
		return ncs.ValueFloat // vector forms (vv/vf/fv) produce a vector, handled separately
	}
}

func valueTypeForSuffix(t ncs.TypeSuffix) ncs.ValueType {
	switch t {
	case ncs.TypeInt:
		return ncs.ValueInt
	case ncs.TypeFloat:
		return ncs.ValueFloat
	case ncs.TypeString:
		return ncs.ValueString
	case ncs.TypeObject:
		return ncs.ValueObject
	case ncs.TypeEffect:
		return ncs.ValueEffect
	case ncs.TypeEvent:
		return ncs.ValueEvent
	case ncs.TypeLocation:
		return ncs.ValueLocation
	case ncs.TypeTalent:
		return ncs.ValueTalent
	default:
		return ncs.ValueVoid
	}
}

// step decompiles one instruction, mutating stk and appending to blk
// — one case per opcode family.
func (fb *funcBuilder) step(blk *Block, stkp *[]stackSlot, ins ncs.Instruction) (terminate bool, err error) {
	stk := *stkp
	defer func() { *stkp = stk }()

	pop := func() (stackSlot, error) {
		if len(stk) == 0 {
			return stackSlot{}, fmt.Errorf("symbolic stack underflow at %s", ins.Op)
		}
		v := stk[len(stk)-1]
		stk = stk[:len(stk)-1]
		return v, nil
	}
	popN := func(n int) ([]stackSlot, error) {
		if n > len(stk) {
			return nil, fmt.Errorf("symbolic stack underflow popping %d cells at %s", n, ins.Op)
		}
		v := append([]stackSlot{}, stk[len(stk)-n:]...)
		stk = stk[:len(stk)-n]
		return v, nil
	}

	switch ins.Op {
	case ncs.OpNOP, ncs.OpNOP2:
		// no-op

	case ncs.OpRSADD:
		p := fb.newParam(valueTypeForSuffix(ins.Type))
		blk.Exprs = append(blk.Exprs, p)
		stk = append(stk, fb.own(p))

	case ncs.OpCONST:
		c := &Expression{Kind: ExprConstant, ConstType: valueTypeForSuffix(ins.Type)}
		switch ins.Type {
		case ncs.TypeInt:
			c.ConstInt = ins.LitInt
		case ncs.TypeFloat:
			c.ConstFlt = ins.LitFloat
		case ncs.TypeString:
			c.ConstStr = ins.LitString
		case ncs.TypeObject:
			c.ConstObj = ins.LitObject
		}
		stk = append(stk, fb.own(fb.materialize(blk, c.ConstType, c)))

	case ncs.OpMOVSP:
		n := int(-ins.StackOffset) / 4
		if n < 0 || n > len(stk) {
			return false, fmt.Errorf("MOVSP out of range")
		}
		stk = stk[:len(stk)-n]

	case ncs.OpCPDOWNSP, ncs.OpCPDOWNBP:
		cells := int(ins.Size) / 4
		base := len(stk)
		if ins.Op == ncs.OpCPDOWNBP {
			if fb.bp < 0 {
				return false, fmt.Errorf("CPDOWNBP without SAVEBP")
			}
			base = fb.bp
		}
		dest := base + int(ins.StackOffset)/4
		if cells > 0 && (dest < 0 || dest+cells > len(stk)) {
			return false, fmt.Errorf("CPDOWN destination out of range")
		}
		src := stk[len(stk)-cells:]
		for i := 0; i < cells; i++ {
			target := stk[dest+i]
			destination := fb.resolveOutput(target)
			blk.Exprs = append(blk.Exprs, &Expression{Kind: ExprAssign, Left: destination, Right: src[i].expr})
			stk[dest+i] = stackSlot{expr: src[i].expr, owner: target.owner}
		}

	case ncs.OpCPTOPSP, ncs.OpCPTOPBP:
		cells := int(ins.Size) / 4
		base := len(stk)
		if ins.Op == ncs.OpCPTOPBP {
			if fb.bp < 0 {
				return false, fmt.Errorf("CPTOPBP without SAVEBP")
			}
			base = fb.bp
		}
		src := base + int(ins.StackOffset)/4
		if src < 0 || src+cells > len(stk) {
			return false, fmt.Errorf("CPTOP source out of range")
		}
		for i := 0; i < cells; i++ {
			orig := stk[src+i]
			source := fb.resolveInput(orig)
			alias := fb.materialize(blk, source.Param.Type, source)
			stk = append(stk, fb.own(alias))
		}

	case ncs.OpDESTRUCT:
		sizeCells := int(ins.Size) / 4
		keepCells := int(ins.SizeNoDestroy) / 4
		offsetCells := int(ins.StackOffset) / 4
		if sizeCells > len(stk) {
			return false, fmt.Errorf("DESTRUCT underflow")
		}
		start := len(stk) - sizeCells + offsetCells
		if start < 0 || start+keepCells > len(stk) {
			return false, fmt.Errorf("DESTRUCT window out of range")
		}
		preserved := append([]stackSlot{}, stk[start:start+keepCells]...)
		stk = stk[:len(stk)-sizeCells]
		stk = append(stk, preserved...)

	case ncs.OpADD, ncs.OpSUB, ncs.OpMUL, ncs.OpDIV, ncs.OpMOD:
		switch ins.Type {
		case ncs.TypeVV:
			right, err := popN(3)
			if err != nil {
				return false, err
			}
			left, err := popN(3)
			if err != nil {
				return false, err
			}
			leftExprs, rightExprs := slotExprs(left), slotExprs(right)
			// popN returns cells bottom-to-top (Z, Y, X); Components is X, Y, Z.
			vec := &Expression{Kind: binaryKindByOp[ins.Op], Left: fb.materialize(blk, ncs.ValueVector, &Expression{Kind: ExprVector, Components: [3]*Expression{leftExprs[2], leftExprs[1], leftExprs[0]}}), Right: fb.materialize(blk, ncs.ValueVector, &Expression{Kind: ExprVector, Components: [3]*Expression{rightExprs[2], rightExprs[1], rightExprs[0]}})}
			result := fb.materialize(blk, ncs.ValueVector, vec)
			stk = append(stk, fb.vectorComponents(blk, result)...)
		case ncs.TypeVF, ncs.TypeFV:
			var vecCells, scalar *Expression
			if ins.Type == ncs.TypeVF {
				s, e := pop()
				if e != nil {
					return false, e
				}
				scalar = s.expr
				cells, e2 := popN(3)
				if e2 != nil {
					return false, e2
				}
				ce := slotExprs(cells)
				vecCells = fb.materialize(blk, ncs.ValueVector, &Expression{Kind: ExprVector, Components: [3]*Expression{ce[2], ce[1], ce[0]}})
			} else {
				cells, e2 := popN(3)
				if e2 != nil {
					return false, e2
				}
				ce := slotExprs(cells)
				vecCells = fb.materialize(blk, ncs.ValueVector, &Expression{Kind: ExprVector, Components: [3]*Expression{ce[2], ce[1], ce[0]}})
				s, e := pop()
				if e != nil {
					return false, e
				}
				scalar = s.expr
			}
			result := fb.materialize(blk, ncs.ValueVector, &Expression{Kind: binaryKindByOp[ins.Op], Left: vecCells, Right: scalar})
			stk = append(stk, fb.vectorComponents(blk, result)...)
		default:
			right, err := pop()
			if err != nil {
				return false, err
			}
			left, err := pop()
			if err != nil {
				return false, err
			}
			result := fb.materialize(blk, resultTypeForArith(ins.Type), &Expression{Kind: binaryKindByOp[ins.Op], Left: left.expr, Right: right.expr})
			stk = append(stk, fb.own(result))
		}

	case ncs.OpNEG:
		v, err := pop()
		if err != nil {
			return false, err
		}
		t := valueTypeForSuffix(ins.Type)
		stk = append(stk, fb.own(fb.materialize(blk, t, &Expression{Kind: ExprNegate, Operand: v.expr})))

	case ncs.OpCOMP:
		v, err := pop()
		if err != nil {
			return false, err
		}
		stk = append(stk, fb.own(fb.materialize(blk, ncs.ValueInt, &Expression{Kind: ExprOnesComplement, Operand: v.expr})))

	case ncs.OpNOT:
		v, err := pop()
		if err != nil {
			return false, err
		}
		stk = append(stk, fb.own(fb.materialize(blk, ncs.ValueInt, &Expression{Kind: ExprNot, Operand: v.expr})))

	case ncs.OpEQUAL, ncs.OpNEQUAL:
		if ins.Type == ncs.TypeTT {
			n := int(ins.Size) / 4
			cells, err := popN(2 * n)
			if err != nil {
				return false, err
			}
			left, right := slotExprs(cells[:n]), slotExprs(cells[n:])
			kind := ExprEqual
			combine := ExprLogicalAnd
			if ins.Op == ncs.OpNEQUAL {
				kind = ExprNotEqual
				combine = ExprLogicalOr
			}
			var acc *Expression
			for i := 0; i < n; i++ {
				cmp := &Expression{Kind: kind, Left: left[i], Right: right[i]}
				if acc == nil {
					acc = cmp
				} else {
					acc = &Expression{Kind: combine, Left: acc, Right: cmp}
				}
			}
			if acc == nil {
				acc = &Expression{Kind: ExprConstant, ConstType: ncs.ValueInt, ConstInt: 1}
			}
			stk = append(stk, fb.own(fb.materialize(blk, ncs.ValueInt, acc)))
			break
		}
		right, err := pop()
		if err != nil {
			return false, err
		}
		left, err := pop()
		if err != nil {
			return false, err
		}
		kind := ExprEqual
		if ins.Op == ncs.OpNEQUAL {
			kind = ExprNotEqual
		}
		stk = append(stk, fb.own(fb.materialize(blk, ncs.ValueInt, &Expression{Kind: kind, Left: left.expr, Right: right.expr})))

	case ncs.OpGEQ, ncs.OpGT, ncs.OpLT, ncs.OpLEQ,
		ncs.OpLOGAND, ncs.OpLOGOR, ncs.OpINCOR, ncs.OpEXCOR, ncs.OpBOOLAND,
		ncs.OpSHLEFT, ncs.OpSHRIGHT, ncs.OpUSHRIGHT:
		right, err := pop()
		if err != nil {
			return false, err
		}
		left, err := pop()
		if err != nil {
			return false, err
		}
		stk = append(stk, fb.own(fb.materialize(blk, ncs.ValueInt, &Expression{Kind: binaryKindByOp[ins.Op], Left: left.expr, Right: right.expr})))

	case ncs.OpJMP:
		target := ins.Offset + int(ins.JumpOffset)
		blk.Exprs = append(blk.Exprs, &Expression{Kind: ExprGoto, LabelID: fb.labelFor(target)})
		fb.block(target, stk)
		return true, nil

	case ncs.OpJSR:
		target := ins.Offset + int(ins.JumpOffset)
		callee := fb.d.function(target, fmt.Sprintf("func_%d", target), stk)
		call := &Expression{Kind: ExprCall, Callee: callee}
		call.Args = append(call.Args, callee.inputSources...)
		call.Args = append(call.Args, callee.outputSources...)
		blk.Exprs = append(blk.Exprs, call)

	case ncs.OpJZ, ncs.OpJNZ:
		cond, err := pop()
		if err != nil {
			return false, err
		}
		target := ins.Offset + int(ins.JumpOffset)
		kind := ExprEqual
		if ins.Op == ncs.OpJNZ {
			kind = ExprNotEqual
		}
		test := &Expression{Kind: kind, Left: cond.expr, Right: &Expression{Kind: ExprConstant, ConstType: ncs.ValueInt, ConstInt: 0}}
		ifTrue := &Block{Offset: target, Exprs: []*Expression{{Kind: ExprGoto, LabelID: fb.labelFor(target)}}}
		blk.Exprs = append(blk.Exprs, &Expression{Kind: ExprConditional, Test: test, IfTrue: ifTrue})
		fb.block(target, stk)
		// fallthrough: current block continues with the post-branch stack

	case ncs.OpRETN:
		ret := &Expression{Kind: ExprReturn}
		if fb.fn.Offset == 13 {
			if len(stk) > 0 {
				top := stk[len(stk)-1].expr
				ret.ReturnValue = top
				fb.fn.ReturnType = top.Param.Type
			}
		}
		blk.Exprs = append(blk.Exprs, ret)
		return true, nil

	case ncs.OpACTION:
		name := fmt.Sprintf("routine_%d", ins.RoutineIndex)
		argTypes := make([]ncs.ValueType, ins.ArgCount)
		retType := ncs.ValueVoid
		for i := range argTypes {
			argTypes[i] = ncs.ValueInt
		}
		if fb.d.routines != nil {
			if r, ok := fb.d.routines.Lookup(int(ins.RoutineIndex)); ok {
				name = r.Name
				retType = r.Return
				argTypes = r.Args
			}
		}
		args := make([]*Expression, len(argTypes))
		// Mirror dispatchAction's forward loop (internal/ncs/vm_calls.go):
		// args[0] is whatever sits on top of the stack at ACTION time, and
		// each subsequent index pops one cell deeper.
		for i := 0; i < len(argTypes); i++ {
			switch argTypes[i] {
			case ncs.ValueAction:
				args[i] = fb.lastContinuation
			case ncs.ValueVector:
				cells, err := popN(3)
				if err != nil {
					return false, err
				}
				ce := slotExprs(cells)
				// popN returns cells bottom-to-top (Z, Y, X); Components is X, Y, Z.
				args[i] = fb.materialize(blk, ncs.ValueVector, &Expression{Kind: ExprVector, Components: [3]*Expression{ce[2], ce[1], ce[0]}})
			default:
				v, err := pop()
				if err != nil {
					return false, err
				}
				args[i] = v.expr
			}
		}
		action := &Expression{Kind: ExprAction, RoutineIndex: int(ins.RoutineIndex), RoutineName: name, Args: args}
		if retType == ncs.ValueVoid {
			blk.Exprs = append(blk.Exprs, action)
		} else if retType == ncs.ValueVector {
			result := fb.materialize(blk, ncs.ValueVector, action)
			action.Result = result
			stk = append(stk, fb.vectorComponents(blk, result)...)
		} else {
			result := fb.materialize(blk, retType, action)
			action.Result = result
			stk = append(stk, fb.own(result))
		}

	case ncs.OpDECISP, ncs.OpINCISP, ncs.OpDECIBP, ncs.OpINCIBP:
		base := len(stk)
		if ins.Op == ncs.OpDECIBP || ins.Op == ncs.OpINCIBP {
			if fb.bp < 0 {
				return false, fmt.Errorf("DECIBP/INCIBP without SAVEBP")
			}
			base = fb.bp
		}
		idx := base + int(ins.StackOffset)/4
		if idx < 0 || idx >= len(stk) {
			return false, fmt.Errorf("counter offset out of range")
		}
		kind := ExprIncrement
		if ins.Op == ncs.OpDECISP || ins.Op == ncs.OpDECIBP {
			kind = ExprDecrement
		}
		blk.Exprs = append(blk.Exprs, &Expression{Kind: kind, Operand: stk[idx].expr})

	case ncs.OpSAVEBP:
		fb.bp = len(stk)
		snapshot := make([]*Parameter, len(stk))
		for i, e := range stk {
			// Every cell present at SAVEBP becomes a global immediately,
			// so later functions reading through it via CPTOP/CPDOWN see
			// a Global rather than classifying it as their own Input/Output.
			e.expr.Param.Locality = LocalityGlobal
			snapshot[i] = e.expr.Param
		}
		fb.d.bpSnapshot[fb.fn] = snapshot

	case ncs.OpRESTOREBP:
		// Boundary restore has no further symbolic effect in this
		// single-bp-value model.

	case ncs.OpSTORESTATE:
		globalsCells := int(ins.SizeGlobals) / 4
		localsCells := int(ins.SizeLocals) / 4
		if globalsCells > len(stk) || localsCells > len(stk) {
			return false, fmt.Errorf("STORESTATE underflow")
		}
		cont := fb.materialize(blk, ncs.ValueAction, &Expression{Kind: ExprConstant, ConstType: ncs.ValueAction})
		fb.lastContinuation = cont
		stk = append(stk, fb.own(cont))

	default:
		return false, fmt.Errorf("unsupported opcode %s", ins.Op)
	}

	return false, nil
}

// vectorComponents materializes the three scalar Float Parameters that
// alias a Vector Parameter's X/Y/Z components, pushed in the VM's Z,Y,X
// stack order so later scalar consumers see the same layout the VM
// would produce.
func (fb *funcBuilder) vectorComponents(blk *Block, vec *Expression) []stackSlot {
	z := fb.materialize(blk, ncs.ValueFloat, &Expression{Kind: ExprVectorIndex, Vector: vec, Index: 2})
	y := fb.materialize(blk, ncs.ValueFloat, &Expression{Kind: ExprVectorIndex, Vector: vec, Index: 1})
	x := fb.materialize(blk, ncs.ValueFloat, &Expression{Kind: ExprVectorIndex, Vector: vec, Index: 0})
	return []stackSlot{fb.own(z), fb.own(y), fb.own(x)}
}

// mergeDeclareInit folds a bare Parameter declaration immediately
// followed by its first assignment into a single ExprDeclareInit node.
// RSADD is the only opcode that appends a standalone declaration (every
// other materialized Parameter is declared and assigned in the same
// step); when the very next expression in the block assigns straight
// into it, the pair reads as one declare-with-initializer statement
// rather than two.
func mergeDeclareInit(blk *Block) {
	merged := make([]*Expression, 0, len(blk.Exprs))
	for i := 0; i < len(blk.Exprs); i++ {
		e := blk.Exprs[i]
		if e.Kind == ExprParameter && i+1 < len(blk.Exprs) {
			if next := blk.Exprs[i+1]; next.Kind == ExprAssign && next.Left == e {
				merged = append(merged, &Expression{Kind: ExprDeclareInit, Decl: e.Param, Init: next.Right})
				i++
				continue
			}
		}
		merged = append(merged, e)
	}
	blk.Exprs = merged
}

// applyNaming recognizes the `_globals`/
// `main` shape and the `StartingConditional` shape by structure, best
// effort — renaming is cosmetic and never changes decompiled semantics.
func (d *decompiler) applyNaming(tree *ExpressionTree, start *Function) {
	calls := callsIn(start)
	if len(calls) == 1 {
		globalsFn := calls[0].Callee
		if _, ok := d.bpSnapshot[globalsFn]; ok {
			globalsFn.Name = "_globals"
			inner := callsIn(globalsFn)
			if len(inner) == 1 {
				inner[0].Callee.Name = "main"
			}
		}
	}

	for _, blk := range start.Blocks {
		for _, e := range blk.Exprs {
			if e.Kind != ExprReturn || e.ReturnValue == nil {
				continue
			}
			if e.ReturnValue.Param == nil || e.ReturnValue.Param.Type != ncs.ValueInt {
				continue
			}
			if len(calls) >= 1 {
				callee := calls[len(calls)-1].Callee
				if len(callee.Outputs) == 1 && callee.Outputs[0].Type == ncs.ValueInt {
					callee.Name = "StartingConditional"
				}
			}
		}
	}
}

func callsIn(fn *Function) []*Expression {
	var calls []*Expression
	for _, blk := range fn.Blocks {
		for _, e := range blk.Exprs {
			if e.Kind == ExprCall {
				calls = append(calls, e)
			}
		}
	}
	return calls
}

// collectGlobals gathers the Parameters present at the
// `_globals` function's SAVEBP boundary are promoted to Global locality
// and recorded on the tree.
func (d *decompiler) collectGlobals(tree *ExpressionTree, start *Function) {
	for _, fn := range d.order {
		if fn.Name != "_globals" {
			continue
		}
		snapshot := d.bpSnapshot[fn]
		for _, p := range snapshot {
			if p == nil {
				continue
			}
			p.Locality = LocalityGlobal
			tree.Globals = append(tree.Globals, p)
		}
	}
}
