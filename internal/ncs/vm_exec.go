package ncs

// exec dispatches a single instruction, mutating the VM's stack, IP, BP,
// and return-offset stack. *nextIP is pre-seeded with ins.NextOffset and
// overwritten by control-flow opcodes before returning. terminate is
// true only when RETN pops an empty
// return-offset stack.
func (vm *VM) exec(ins Instruction, nextIP *int) (terminate bool, err error) {
	vm.ip = ins.Offset

	switch ins.Op {
	case OpNOP, OpNOP2:
		// no-op

	case OpRSADD:
		vm.push(zeroValue(ins.Type))

	case OpCONST:
		vm.push(constValue(ins))

	case OpMOVSP:
		n := int(-ins.StackOffset) / 4
		if n < 0 || n > len(vm.stack) {
			return false, &StackError{Offset: vm.ip, Reason: ErrStackUnderflow, Detail: "MOVSP"}
		}
		vm.stack = vm.stack[:len(vm.stack)-n]

	case OpCPDOWNSP:
		err = vm.copyDown(ins, false)
	case OpCPDOWNBP:
		err = vm.copyDown(ins, true)
	case OpCPTOPSP:
		err = vm.copyTop(ins, false)
	case OpCPTOPBP:
		err = vm.copyTop(ins, true)

	case OpDESTRUCT:
		err = vm.destruct(ins)

	case OpADD, OpSUB, OpMUL, OpDIV, OpMOD:
		err = vm.arith(ins)

	case OpNEG:
		err = vm.negate(ins)
	case OpCOMP:
		err = vm.compOnesComplement()
	case OpNOT:
		err = vm.logicalNot()

	case OpEQUAL, OpNEQUAL:
		err = vm.compareEq(ins)
	case OpGEQ, OpGT, OpLT, OpLEQ:
		err = vm.compareOrd(ins)

	case OpLOGAND, OpLOGOR, OpINCOR, OpEXCOR, OpBOOLAND,
		OpSHLEFT, OpSHRIGHT, OpUSHRIGHT:
		err = vm.bitwise(ins)

	case OpJMP:
		*nextIP = ins.Offset + int(ins.JumpOffset)
		return false, nil

	case OpJSR:
		vm.pushReturn(ins.NextOffset)
		*nextIP = ins.Offset + int(ins.JumpOffset)
		return false, nil

	case OpJZ, OpJNZ:
		var top Value
		top, err = vm.pop()
		if err != nil {
			return false, err
		}
		if top.Type != ValueInt {
			return false, &TypeError{Offset: vm.ip, Reason: ErrUnexpectedStackType, Detail: "JZ/JNZ operand not Int"}
		}
		branch := (ins.Op == OpJZ && top.Int == 0) || (ins.Op == OpJNZ && top.Int != 0)
		if branch {
			*nextIP = ins.Offset + int(ins.JumpOffset)
			return false, nil
		}

	case OpRETN:
		offset, ok := vm.popReturn()
		if !ok {
			return true, nil
		}
		*nextIP = offset
		return false, nil

	case OpDECISP, OpINCISP:
		err = vm.counter(ins, false)
	case OpDECIBP, OpINCIBP:
		err = vm.counter(ins, true)

	case OpSAVEBP:
		vm.saveBP()
	case OpRESTOREBP:
		vm.restoreBP()

	case OpSTORESTATE:
		err = vm.storeState(ins)

	case OpACTION:
		err = vm.dispatchAction(ins)

	default:
		err = &TypeError{Offset: vm.ip, Reason: ErrUnexpectedStackType, Detail: "unhandled opcode " + ins.Op.String()}
	}

	return false, err
}

func zeroValue(t TypeSuffix) Value {
	switch t {
	case TypeFloat:
		return FloatValue(0)
	case TypeString:
		return StringValue("")
	case TypeObject:
		return ObjectValue(0)
	case TypeEffect, TypeEvent, TypeLocation, TypeTalent:
		return Value{Type: valueTypeForSuffix(t)}
	default:
		return IntValue(0)
	}
}

func valueTypeForSuffix(t TypeSuffix) ValueType {
	switch t {
	case TypeInt:
		return ValueInt
	case TypeFloat:
		return ValueFloat
	case TypeString:
		return ValueString
	case TypeObject:
		return ValueObject
	case TypeEffect:
		return ValueEffect
	case TypeEvent:
		return ValueEvent
	case TypeLocation:
		return ValueLocation
	case TypeTalent:
		return ValueTalent
	default:
		return ValueVoid
	}
}

func constValue(ins Instruction) Value {
	switch ins.Type {
	case TypeInt:
		return IntValue(ins.LitInt)
	case TypeFloat:
		return FloatValue(ins.LitFloat)
	case TypeString:
		return StringValue(ins.LitString)
	case TypeObject:
		return ObjectValue(ins.LitObject)
	default:
		return VoidValue()
	}
}

// copyDown implements CPDOWNSP/CPDOWNBP: overwrite size/4 cells starting
// at the destination with the top size/4 cells, without changing depth.
func (vm *VM) copyDown(ins Instruction, bpRelative bool) error {
	cells := int(ins.Size) / 4
	if cells == 0 {
		return nil
	}
	base := len(vm.stack)
	if bpRelative {
		if vm.bp < 0 {
			return &StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "CPDOWNBP without SAVEBP"}
		}
		base = vm.bp
	}
	dest := base + int(ins.StackOffset)/4
	if dest < 0 || dest+cells > len(vm.stack) {
		return &StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "CPDOWN destination out of range"}
	}
	src := make([]Value, cells)
	copy(src, vm.stack[len(vm.stack)-cells:])
	copy(vm.stack[dest:dest+cells], src)
	return nil
}

// copyTop implements CPTOPSP/CPTOPBP: duplicate size/4 cells from the
// indexed location back onto the top, increasing depth.
func (vm *VM) copyTop(ins Instruction, bpRelative bool) error {
	cells := int(ins.Size) / 4
	base := len(vm.stack)
	if bpRelative {
		if vm.bp < 0 {
			return &StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "CPTOPBP without SAVEBP"}
		}
		base = vm.bp
	}
	src := base + int(ins.StackOffset)/4
	if src < 0 || src+cells > len(vm.stack) {
		return &StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "CPTOP source out of range"}
	}
	dup := make([]Value, cells)
	copy(dup, vm.stack[src:src+cells])
	vm.stack = append(vm.stack, dup...)
	return nil
}

// destruct implements DESTRUCT: preserves an N-cell window while
// discarding the rest of an S-cell range at top.
func (vm *VM) destruct(ins Instruction) error {
	sizeCells := int(ins.Size) / 4
	keepCells := int(ins.SizeNoDestroy) / 4
	offsetCells := int(ins.StackOffset) / 4

	if sizeCells > len(vm.stack) {
		return &StackError{Offset: vm.ip, Reason: ErrStackUnderflow, Detail: "DESTRUCT"}
	}
	start := len(vm.stack) - sizeCells + offsetCells
	if start < 0 || start+keepCells > len(vm.stack) {
		return &StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "DESTRUCT window"}
	}

	preserved := make([]Value, keepCells)
	copy(preserved, vm.stack[start:start+keepCells])

	vm.stack = vm.stack[:len(vm.stack)-sizeCells]
	vm.stack = append(vm.stack, preserved...)
	return nil
}

// counter implements DECISP/INCISP/DECIBP/INCIBP: modify the Int cell at
// an SP- or BP-relative offset in place.
func (vm *VM) counter(ins Instruction, bpRelative bool) error {
	idx, err := vm.cellAt(ins.StackOffset, bpRelative)
	if err != nil {
		return err
	}
	cell := vm.stack[idx]
	if cell.Type != ValueInt {
		return &TypeError{Offset: vm.ip, Reason: ErrIncrementNonInt}
	}
	switch ins.Op {
	case OpDECISP, OpDECIBP:
		cell.Int--
	case OpINCISP, OpINCIBP:
		cell.Int++
	}
	vm.stack[idx] = cell
	return nil
}

// storeState implements STORESTATE: capture globals + the active locals
// window and push an Action Value.
func (vm *VM) storeState(ins Instruction) error {
	globalsCells := int(ins.SizeGlobals) / 4
	localsCells := int(ins.SizeLocals) / 4

	if globalsCells > len(vm.stack) || localsCells > len(vm.stack) {
		return &StackError{Offset: vm.ip, Reason: ErrStackUnderflow, Detail: "STORESTATE"}
	}

	globals := make([]Value, globalsCells)
	copy(globals, vm.stack[:globalsCells])

	locals := make([]Value, localsCells)
	copy(locals, vm.stack[len(vm.stack)-localsCells:])

	cont := &Continuation{
		Globals: globals,
		Locals:  locals,
		Program: vm.program,
		Offset:  ins.Offset + 0x10,
	}
	vm.lastContinuation = cont
	vm.push(ActionValue(cont))
	return nil
}
