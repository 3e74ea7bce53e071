package vm

import (
	"fmt"
	"io"
)

// frameHeaderSize is the size in bytes of the saved frame header
// Call pushes before jumping: [return_index:8][previous_base:8].
const frameHeaderSize = 16

// VM is the stack-based bytecode virtual machine. One VM instance
// executes a single, immutable instruction sequence on a single
// goroutine; nothing about it is safe to share across goroutines
// (spec.md §5: single-threaded, no concurrency).
type VM struct {
	instructions []Instruction
	ip           int

	stk *stack
	sp  int // next free byte; the top cell occupies [sp-w, sp)
	bp  int // start of the current frame's saved header

	running bool
}

// New constructs a VM over an immutable instruction sequence with a
// freshly allocated 1 MiB stack.
func New(instructions []Instruction) *VM {
	return &VM{
		instructions: instructions,
		stk:          newStack(),
	}
}

// Run executes the loaded instructions with tracing disabled. Per
// spec.md §7, the five fatal conditions are delivered by panicking a
// *Fault from inside the dispatch loop; Run recovers that panic at
// this single boundary and returns it as a plain error.
func (vm *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			vm.running = false
			err = f
		}
	}()
	vm.runLoop(nil)
	return nil
}

// RunDebug executes the loaded instructions with tracing active.
// DebugPrintUnsigned writes the top cell as unsigned decimal followed
// by a newline to sink; every other instruction behaves identically to
// Run.
func (vm *VM) RunDebug(sink io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			vm.running = false
			err = f
		}
	}()
	vm.runLoop(sink)
	return nil
}

// runLoop is the fetch-execute dispatch loop (spec.md §4.3): fetch,
// increment ip, execute. Instructions that alter control flow (Call,
// Return) overwrite ip after the increment; Exit clears running.
func (vm *VM) runLoop(debugSink io.Writer) {
	vm.running = true
	for vm.running {
		if vm.ip < 0 || vm.ip >= len(vm.instructions) {
			vm.fault(OutOfRange, "ip=%d out of range [0, %d)", vm.ip, len(vm.instructions))
		}
		inst := vm.instructions[vm.ip]
		vm.ip++
		vm.exec(inst, debugSink)
	}
}

func (vm *VM) exec(inst Instruction, debugSink io.Writer) {
	switch inst.Op {
	case OpIntegerBinaryOperation:
		vm.evalBinary(inst.BinOp, inst.Size)

	case OpUnaryOperation:
		vm.evalUnary(inst.UnOp, inst.Size)

	case OpAdvanceStackPtr:
		// No alignment is enforced on the resulting sp: spec.md §9 Open
		// Question 1, confirmed intentional against the source runtime.
		if vm.sp+inst.Bytes > StackSize {
			vm.fault(StackOverflow, "advance.sp by %d at sp=%d exceeds stack of %d bytes", inst.Bytes, vm.sp, StackSize)
		}
		vm.sp += inst.Bytes

	case OpRetractStackPtr:
		if vm.sp-inst.Bytes < 0 {
			vm.fault(StackUnderflow, "retract.sp by %d at sp=%d underflows stack", inst.Bytes, vm.sp)
		}
		vm.sp -= inst.Bytes

	case OpRetractMoving:
		val := vm.pop(inst.Size)
		if vm.sp-inst.Bytes < 0 {
			vm.fault(StackUnderflow, "retract.moving by %d at sp=%d underflows stack", inst.Bytes, vm.sp)
		}
		vm.sp -= inst.Bytes
		vm.push(inst.Size, val)

	case OpDuplicate:
		val := vm.pop(inst.Size)
		vm.push(inst.Size, val)
		vm.push(inst.Size, val)

	case OpPushConstant:
		vm.push(inst.Literal.Size, inst.Literal.Value)

	case OpDebugPrintUnsigned:
		// Per spec.md §9 Open Question 2 (confirmed against the source
		// runtime): the peek, and therefore its alignment check, only
		// happens when a sink is present. A non-tracing run never
		// touches the stack for this instruction.
		if debugSink != nil {
			val := vm.peek(inst.Size)
			fmt.Fprintf(debugSink, "%d\n", val)
		}

	case OpReadBase:
		val := vm.readBase(inst.Offset, inst.Size)
		vm.push(inst.Size, val)

	case OpWriteBase:
		val := vm.pop(inst.Size)
		vm.writeBase(inst.Offset, inst.Size, val)

	case OpCall:
		vm.call(inst.Target)

	case OpReturn:
		vm.ret()

	case OpExit:
		vm.running = false

	default:
		vm.fault(OutOfRange, "unknown opcode %v", inst.Op)
	}
}

// call implements spec.md §4.2: compute prev_bp, set bp = sp, push the
// return index (ip, already past this Call) and prev_bp as 8-byte
// cells in that order, then jump to target.
func (vm *VM) call(target int) {
	prevBP := vm.bp
	vm.bp = vm.sp

	vm.push(EightByte, uint64(vm.ip))
	vm.push(EightByte, uint64(prevBP))

	vm.ip = target
}

// ret implements spec.md §4.2: discard the callee's working stack down
// to the saved header, then pop in reverse push order (previous base,
// then return index).
func (vm *VM) ret() {
	if vm.bp+frameHeaderSize > StackSize {
		vm.fault(OutOfRange, "return: frame header at bp=%d exceeds stack bounds", vm.bp)
	}
	vm.sp = vm.bp + frameHeaderSize

	vm.bp = int(vm.pop(EightByte))
	vm.ip = int(vm.pop(EightByte))
}

// SP returns the current stack-top offset, exposed for tests and
// embedders that want to observe stack balance (spec.md §8 property 1).
func (vm *VM) SP() int { return vm.sp }

// BP returns the current frame base offset.
func (vm *VM) BP() int { return vm.bp }

// IP returns the current instruction index.
func (vm *VM) IP() int { return vm.ip }

// Running reports whether the dispatch loop is (or was left) active.
func (vm *VM) Running() bool { return vm.running }
