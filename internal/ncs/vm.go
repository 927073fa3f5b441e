package ncs

// VM executes a Program against a typed operand stack. Each VM instance
// owns its stack, BP-stack, and return-offset stack exclusively for the
// duration of a single Run/RunContinuation call; a VM value
// can be reused across runs via reset.
//
// Grounded on bytecode.VM's struct (internal/bytecode/vm.go): a
// handful of small slices as fields plus an instruction-pointer-driven
// dispatch loop, rather than a recursive tree-walker.
type VM struct {
	program *Program

	stack   []Value
	bpStack []int
	ret     []int
	bp      int
	ip      int

	// lastContinuation is the most recently captured Action value,
	// consumed by ACTION when a routine's declared argument type is
	// Action: instead of popping, ACTION reads this field.
	lastContinuation *Continuation

	routines *RoutineTable
	ctx      *ExecutionContext
}

// NewVM creates a VM with default stack capacity.
func NewVM() *VM {
	vm := &VM{}
	vm.reset()
	return vm
}

func (vm *VM) reset() {
	vm.program = nil
	vm.stack = make([]Value, 0, defaultStackCapacity)
	vm.bpStack = make([]int, 0, defaultBPCapacity)
	vm.ret = make([]int, 0, defaultReturnCapacity)
	vm.bp = -1
	vm.ip = 0
	vm.lastContinuation = nil
	vm.routines = nil
	vm.ctx = nil
}

// Run executes prog from its entry instruction (offset 13) to
// termination and returns the exit code: by convention, the
// bottom-of-stack Int cell pushed at start.
func (vm *VM) Run(prog *Program, routines *RoutineTable, ctx *ExecutionContext) (int32, error) {
	vm.reset()
	vm.program = prog
	vm.routines = routines
	vm.ctx = ctx
	vm.stack = append(vm.stack, IntValue(0))
	vm.ip = instructionBase
	return vm.run()
}

// RunContinuation resumes a previously captured Continuation: its saved
// globals and locals are appended to a fresh stack, in order, and
// execution continues from the continuation's recorded offset: the
// offset of the STORESTATE that captured it plus 0x10.
func (vm *VM) RunContinuation(cont *Continuation, routines *RoutineTable, ctx *ExecutionContext) (int32, error) {
	vm.reset()
	vm.program = cont.Program
	vm.routines = routines
	vm.ctx = ctx
	vm.stack = append(vm.stack, IntValue(0))
	vm.stack = append(vm.stack, cont.Globals...)
	vm.stack = append(vm.stack, cont.Locals...)
	vm.ip = cont.Offset
	return vm.run()
}

// run is the dispatch loop shared by Run and RunContinuation. It
// executes instructions sequentially until the instruction pointer
// reaches the program's end or RETN pops the last return frame.
func (vm *VM) run() (int32, error) {
	for vm.ip < vm.program.Length() {
		ins, ok := vm.program.At(vm.ip)
		if !ok {
			return 0, vm.wrap(&StackError{Offset: vm.ip, Reason: ErrStackOutOfBounds, Detail: "instruction pointer not at an instruction boundary"})
		}

		nextIP := ins.NextOffset
		terminate, err := vm.exec(ins, &nextIP)
		if err != nil {
			return 0, vm.wrap(err)
		}
		if terminate {
			break
		}
		vm.ip = nextIP
	}

	bottom, err := vm.bottomInt()
	if err != nil {
		return 0, vm.wrap(err)
	}
	return bottom, nil
}

// bottomInt reads the initial Int(0) cell convention-returned as the
// exit code: by convention, the bottom-of-stack Int cell pushed
// implicitly at start.
func (vm *VM) bottomInt() (int32, error) {
	if len(vm.stack) == 0 {
		return 0, &StackError{Offset: vm.ip, Reason: ErrStackUnderflow}
	}
	bottom := vm.stack[0]
	if bottom.Type != ValueInt {
		return 0, &TypeError{Offset: vm.ip, Reason: ErrUnexpectedStackType, Detail: "bottom-of-stack cell is not Int"}
	}
	return bottom.Int, nil
}

// wrap attaches the current return-offset-stack call trace to err,
// matching bytecode.RuntimeError's wrapping role.
func (vm *VM) wrap(err error) *RuntimeError {
	trace := make(Trace, 0, len(vm.ret)+1)
	for _, off := range vm.ret {
		trace = append(trace, Frame{Offset: off})
	}
	trace = append(trace, Frame{Offset: vm.ip})
	return &RuntimeError{Cause: err, Trace: trace}
}
