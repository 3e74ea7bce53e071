package vm

// evalBinary pops two width-size cells (right above left) and pushes
// one result, implementing the eight IntegerBinaryOperation cases.
// Signed variants are bit-reinterpretation: the unsigned bit pattern is
// viewed as two's complement, operated on with wrapping semantics, and
// reinterpreted back, per spec.md §4.1 and §9's design note — no union
// punning, just arithmetic modulo 2^w via Go's defined wraparound
// behavior for fixed-width integer types.
func (vm *VM) evalBinary(op IntegerBinaryOperation, size IntSize) {
	right := vm.pop(size)
	left := vm.pop(size)

	var result uint64
	switch size {
	case OneByte:
		result = uint64(binOp8(op, uint8(left), uint8(right), vm))
	case TwoByte:
		result = uint64(binOp16(op, uint16(left), uint16(right), vm))
	case FourByte:
		result = uint64(binOp32(op, uint32(left), uint32(right), vm))
	case EightByte:
		result = binOp64(op, left, right, vm)
	}
	vm.push(size, result)
}

func binOp8(op IntegerBinaryOperation, l, r uint8, vm *VM) uint8 {
	switch op {
	case UnsignedAddition:
		return l + r
	case SignedAddition:
		return uint8(int8(l) + int8(r))
	case UnsignedSubtraction:
		return l - r
	case SignedSubtraction:
		return uint8(int8(l) - int8(r))
	case UnsignedMultiplication:
		return l * r
	case SignedMultiplication:
		return uint8(int8(l) * int8(r))
	case UnsignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "unsigned division by zero (u8)")
		}
		return l / r
	case SignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "signed division by zero (i8)")
		}
		return uint8(int8(l) / int8(r))
	default:
		vm.fault(ArithmeticTrap, "unknown binary op %v", op)
		return 0
	}
}

func binOp16(op IntegerBinaryOperation, l, r uint16, vm *VM) uint16 {
	switch op {
	case UnsignedAddition:
		return l + r
	case SignedAddition:
		return uint16(int16(l) + int16(r))
	case UnsignedSubtraction:
		return l - r
	case SignedSubtraction:
		return uint16(int16(l) - int16(r))
	case UnsignedMultiplication:
		return l * r
	case SignedMultiplication:
		return uint16(int16(l) * int16(r))
	case UnsignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "unsigned division by zero (u16)")
		}
		return l / r
	case SignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "signed division by zero (i16)")
		}
		return uint16(int16(l) / int16(r))
	default:
		vm.fault(ArithmeticTrap, "unknown binary op %v", op)
		return 0
	}
}

func binOp32(op IntegerBinaryOperation, l, r uint32, vm *VM) uint32 {
	switch op {
	case UnsignedAddition:
		return l + r
	case SignedAddition:
		return uint32(int32(l) + int32(r))
	case UnsignedSubtraction:
		return l - r
	case SignedSubtraction:
		return uint32(int32(l) - int32(r))
	case UnsignedMultiplication:
		return l * r
	case SignedMultiplication:
		return uint32(int32(l) * int32(r))
	case UnsignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "unsigned division by zero (u32)")
		}
		return l / r
	case SignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "signed division by zero (i32)")
		}
		return uint32(int32(l) / int32(r))
	default:
		vm.fault(ArithmeticTrap, "unknown binary op %v", op)
		return 0
	}
}

func binOp64(op IntegerBinaryOperation, l, r uint64, vm *VM) uint64 {
	switch op {
	case UnsignedAddition:
		return l + r
	case SignedAddition:
		return uint64(int64(l) + int64(r))
	case UnsignedSubtraction:
		return l - r
	case SignedSubtraction:
		return uint64(int64(l) - int64(r))
	case UnsignedMultiplication:
		return l * r
	case SignedMultiplication:
		return uint64(int64(l) * int64(r))
	case UnsignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "unsigned division by zero (u64)")
		}
		return l / r
	case SignedDivision:
		if r == 0 {
			vm.fault(ArithmeticTrap, "signed division by zero (i64)")
		}
		return uint64(int64(l) / int64(r))
	default:
		vm.fault(ArithmeticTrap, "unknown binary op %v", op)
		return 0
	}
}

// evalUnary pops one width-size cell and pushes one result.
func (vm *VM) evalUnary(op IntegerUnaryOperation, size IntSize) {
	val := vm.pop(size)

	var result uint64
	switch size {
	case OneByte:
		result = uint64(uint8(-int8(uint8(val))))
	case TwoByte:
		result = uint64(uint16(-int16(uint16(val))))
	case FourByte:
		result = uint64(uint32(-int32(uint32(val))))
	case EightByte:
		result = uint64(-int64(val))
	}
	_ = op // NegateSigned is the only case today
	vm.push(size, result)
}
