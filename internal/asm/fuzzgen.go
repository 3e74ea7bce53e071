package asm

import (
	"github.com/psilLang/stackvm/vm"
	"pgregory.net/rand"
)

var allSizes = []vm.IntSize{vm.OneByte, vm.TwoByte, vm.FourByte, vm.EightByte}

var allBinOps = []vm.IntegerBinaryOperation{
	vm.UnsignedAddition, vm.SignedAddition,
	vm.UnsignedSubtraction, vm.SignedSubtraction,
	vm.UnsignedMultiplication, vm.SignedMultiplication,
	vm.UnsignedDivision, vm.SignedDivision,
}

// GenerateBalancedProgram produces a pseudo-random but structurally
// valid instruction stream seeded by seed: it tracks the width of each
// value it pushes so that every IntegerBinaryOperation/UnaryOperation
// it emits operates on two (or one) cells of matching, already-pushed
// width, and the stream always ends in Exit. Division operands are
// forced non-zero so the corpus exercises stack-balance and
// signed/unsigned duality rather than the arithmetic-trap path, which
// vm_test.go already covers directly and deterministically.
//
// Grounded on Fantom-foundation-Tosca's use of pgregory.net/rand to
// drive conformance-style fuzzing across interpreter implementations;
// here it drives fuzzing across the one VM core against the invariants
// spec.md §8 enumerates.
func GenerateBalancedProgram(seed int64, steps int) []vm.Instruction {
	r := rand.New(rand.NewSource(seed))
	insts := make([]vm.Instruction, 0, steps+1)

	var sizes []vm.IntSize // tracks the width of each live stack value
	var nonZero []bool     // whether each live value is a pushed constant or its negation
	sp := 0                // tracks the stack top so each push can be padded to alignment
	pushRandom := func() {
		size := allSizes[r.Intn(len(allSizes))]
		if pad := sp % size.Bytes(); pad != 0 {
			insts = append(insts, vm.Advance(size.Bytes()-pad))
			sp += size.Bytes() - pad
		}
		v := r.Uint64()
		mask := uint64(1)<<(uint(size.Bytes())*8) - 1 // wraps to all-ones when size is EightByte
		if v&mask == 0 {
			v |= 1 // the low width(size) bits must be non-zero: this value may end up a divisor
		}
		insts = append(insts, vm.Push(vm.Constant{Size: size, Value: v}))
		sizes = append(sizes, size)
		nonZero = append(nonZero, true)
		sp += size.Bytes()
	}

	for i := 0; i < steps; i++ {
		switch {
		case len(sizes) < 2:
			pushRandom()

		case r.Intn(2) == 0:
			// Unary op on the top value.
			top := sizes[len(sizes)-1]
			insts = append(insts, vm.UnOpInst(vm.NegateSigned, top))

		case sizes[len(sizes)-1] == sizes[len(sizes)-2]:
			// Binary op consuming the top two same-width values.
			size := sizes[len(sizes)-1]
			op := allBinOps[r.Intn(len(allBinOps))]
			if !nonZero[len(nonZero)-1] {
				op = allBinOps[r.Intn(len(allBinOps)-2)] // computed divisor may be zero: no division
			}
			insts = append(insts, vm.BinOpInst(op, size))
			sizes = append(sizes[:len(sizes)-2], size)
			nonZero = append(nonZero[:len(nonZero)-2], false)
			sp -= size.Bytes()

		default:
			pushRandom()
		}
	}
	insts = append(insts, vm.ExitInst())
	return insts
}
