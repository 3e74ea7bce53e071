package asm

import (
	"fmt"
	"strings"

	"github.com/psilLang/stackvm/vm"
)

var binOpNames = map[vm.IntegerBinaryOperation]string{
	vm.UnsignedAddition:       "uadd",
	vm.SignedAddition:         "iadd",
	vm.UnsignedSubtraction:    "usub",
	vm.SignedSubtraction:      "isub",
	vm.UnsignedMultiplication: "umul",
	vm.SignedMultiplication:   "imul",
	vm.UnsignedDivision:       "udiv",
	vm.SignedDivision:         "idiv",
}

// Disassemble renders insts back into the textual syntax Assemble
// accepts (modulo label names, which are not recoverable from a flat
// instruction slice — Call targets are printed as numeric indices).
// Each instruction's index follows it as a ";" comment.
func Disassemble(insts []vm.Instruction) string {
	var sb strings.Builder
	for i, inst := range insts {
		fmt.Fprintf(&sb, "%s ; %04d\n", formatInstruction(inst), i)
	}
	return sb.String()
}

func formatInstruction(inst vm.Instruction) string {
	switch inst.Op {
	case vm.OpIntegerBinaryOperation:
		return fmt.Sprintf("%s.%s", binOpNames[inst.BinOp], inst.Size)
	case vm.OpUnaryOperation:
		return fmt.Sprintf("neg.%s", inst.Size)
	case vm.OpAdvanceStackPtr:
		return fmt.Sprintf("advance %d", inst.Bytes)
	case vm.OpRetractStackPtr:
		return fmt.Sprintf("retract %d", inst.Bytes)
	case vm.OpRetractMoving:
		return fmt.Sprintf("retract.moving %d %s", inst.Bytes, inst.Size)
	case vm.OpDuplicate:
		return fmt.Sprintf("dup.%s", inst.Size)
	case vm.OpPushConstant:
		return fmt.Sprintf("push.%s %d", inst.Literal.Size, inst.Literal.Value)
	case vm.OpDebugPrintUnsigned:
		return fmt.Sprintf("debug.%s", inst.Size)
	case vm.OpReadBase:
		return fmt.Sprintf("read.base %d %s", inst.Offset, inst.Size)
	case vm.OpWriteBase:
		return fmt.Sprintf("write.base %d %s", inst.Offset, inst.Size)
	case vm.OpCall:
		return fmt.Sprintf("call %d", inst.Target)
	case vm.OpReturn:
		return "ret"
	case vm.OpExit:
		return "exit"
	default:
		return fmt.Sprintf("?op(%d)", inst.Op)
	}
}
