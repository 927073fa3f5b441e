package ncs

// dispatchAction implements ACTION: look up the routine, marshal its
// declared arguments off the stack, invoke the handler, and push its
// return value.
func (vm *VM) dispatchAction(ins Instruction) error {
	routine, ok := vm.routines.Lookup(int(ins.RoutineIndex))
	if !ok {
		return &RoutineError{Offset: vm.ip, Reason: ErrUnknownRoutine, Routine: int(ins.RoutineIndex)}
	}
	if int(ins.ArgCount) != len(routine.Args) {
		return &RoutineError{
			Offset: vm.ip, Reason: ErrArgCountMismatch, Routine: int(ins.RoutineIndex),
			Detail: "instruction arg_count does not match routine signature",
		}
	}

	args := make([]Value, len(routine.Args))
	for i, argType := range routine.Args {
		switch argType {
		case ValueAction:
			// Action args are not popped; they reference the most
			// recently produced continuation.
			if vm.lastContinuation == nil {
				return &RoutineError{
					Offset: vm.ip, Reason: ErrOperandTypeMismatch, Routine: int(ins.RoutineIndex),
					Detail: "Action argument with no prior STORESTATE",
				}
			}
			args[i] = ActionValue(vm.lastContinuation)

		case ValueVector:
			vec, err := vm.popVector()
			if err != nil {
				return err
			}
			args[i] = VectorValue(vec)

		default:
			cell, err := vm.pop()
			if err != nil {
				return err
			}
			if cell.Type != argType {
				return &TypeError{
					Offset: vm.ip, Reason: ErrOperandTypeMismatch,
					Detail: "routine " + routine.Name + " argument type mismatch",
				}
			}
			args[i] = cell
		}
	}

	result, err := routine.Handler(vm.ctx, args)
	if err != nil {
		return &RoutineError{Offset: vm.ip, Reason: err, Routine: int(ins.RoutineIndex), Detail: routine.Name}
	}

	switch routine.Return {
	case ValueVoid:
		// push nothing

	case ValueVector:
		vm.pushVector(result.Vec)

	default:
		if result.Type != routine.Return {
			return &RoutineError{
				Offset: vm.ip, Reason: ErrReturnTypeMismatch, Routine: int(ins.RoutineIndex),
				Detail: routine.Name,
			}
		}
		vm.push(result)
	}
	return nil
}
