package vm

import (
	"encoding/binary"
	"unsafe"
)

// StackSize is the fixed capacity of a VM's evaluation stack, in bytes.
const StackSize = 1 << 20 // 1,048,576 bytes (1 MiB)

// stack is the owned, word-aligned byte buffer backing sp/bp. Per
// spec.md §9 Open Question 3, sp and bp are plain int byte offsets into
// buf rather than raw pointers: "semantically cleaner, observably
// identical". The backing array is allocated as []uint64 (matching the
// source's array<u64, STACK_SIZE/8>) purely to guarantee 8-byte
// alignment of buf's first byte; all access beyond that goes through
// buf as a flat byte slice.
type stack struct {
	words [StackSize / 8]uint64
	buf   []byte
}

func newStack() *stack {
	s := &stack{}
	s.buf = unsafe.Slice((*byte)(unsafe.Pointer(&s.words[0])), StackSize)
	return s
}

// checkAlign reports whether addr is aligned to width bytes. Width-1
// access has no alignment constraint, matching the source runtime's
// Stackable impl for u8 (no assertion) versus u16/u32/u64 (assert
// pointer % width == 0).
func checkAlign(addr, width int) bool {
	if width == 1 {
		return true
	}
	return addr%width == 0
}

// push writes the low width(size) bytes of v at sp and advances sp.
func (vm *VM) push(size IntSize, v uint64) {
	w := size.Bytes()
	if vm.sp+w > StackSize {
		vm.fault(StackOverflow, "push width %d at sp=%d exceeds stack of %d bytes", w, vm.sp, StackSize)
	}
	if !checkAlign(vm.sp, w) {
		vm.fault(Misalignment, "push width %d at sp=%d is not %d-byte aligned", w, vm.sp, w)
	}
	buf := vm.stk.buf[vm.sp : vm.sp+w]
	switch size {
	case OneByte:
		buf[0] = byte(v)
	case TwoByte:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case FourByte:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case EightByte:
		binary.LittleEndian.PutUint64(buf, v)
	}
	vm.sp += w
}

// pop reads and removes the top width(size) cell, retreating sp.
func (vm *VM) pop(size IntSize) uint64 {
	w := size.Bytes()
	if vm.sp-w < 0 {
		vm.fault(StackUnderflow, "pop width %d at sp=%d underflows stack", w, vm.sp)
	}
	if !checkAlign(vm.sp-w, w) {
		vm.fault(Misalignment, "pop width %d leaves sp=%d not %d-byte aligned", w, vm.sp-w, w)
	}
	vm.sp -= w
	buf := vm.stk.buf[vm.sp : vm.sp+w]
	switch size {
	case OneByte:
		return uint64(buf[0])
	case TwoByte:
		return uint64(binary.LittleEndian.Uint16(buf))
	case FourByte:
		return uint64(binary.LittleEndian.Uint32(buf))
	case EightByte:
		return binary.LittleEndian.Uint64(buf)
	}
	panic("unreachable")
}

// peek performs pop followed by push of the same value: a
// non-destructive read of the top width(size) cell. Exposed only via
// Duplicate and DebugPrintUnsigned, per spec.md §4.1.
func (vm *VM) peek(size IntSize) uint64 {
	v := vm.pop(size)
	vm.push(size, v)
	return v
}

// readBase reads a width(size) cell at bp+offset without touching sp.
func (vm *VM) readBase(offset int, size IntSize) uint64 {
	w := size.Bytes()
	addr := vm.bp + offset
	if addr < 0 || addr+w > StackSize {
		vm.fault(OutOfRange, "read.base offset %d (addr=%d) width %d out of stack bounds", offset, addr, w)
	}
	if !checkAlign(addr, w) {
		vm.fault(Misalignment, "read.base offset %d (addr=%d) not %d-byte aligned", offset, addr, w)
	}
	buf := vm.stk.buf[addr : addr+w]
	switch size {
	case OneByte:
		return uint64(buf[0])
	case TwoByte:
		return uint64(binary.LittleEndian.Uint16(buf))
	case FourByte:
		return uint64(binary.LittleEndian.Uint32(buf))
	case EightByte:
		return binary.LittleEndian.Uint64(buf)
	}
	panic("unreachable")
}

// writeBase writes a width(size) cell at bp+offset without touching sp.
func (vm *VM) writeBase(offset int, size IntSize, v uint64) {
	w := size.Bytes()
	addr := vm.bp + offset
	if addr < 0 || addr+w > StackSize {
		vm.fault(OutOfRange, "write.base offset %d (addr=%d) width %d out of stack bounds", offset, addr, w)
	}
	if !checkAlign(addr, w) {
		vm.fault(Misalignment, "write.base offset %d (addr=%d) not %d-byte aligned", offset, addr, w)
	}
	buf := vm.stk.buf[addr : addr+w]
	switch size {
	case OneByte:
		buf[0] = byte(v)
	case TwoByte:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case FourByte:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case EightByte:
		binary.LittleEndian.PutUint64(buf, v)
	}
}
