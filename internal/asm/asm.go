// Package asm provides a textual assembly syntax for the vm package's
// instruction set, plus a disassembler. It is an external collaborator
// per spec.md §1/§6: the core VM neither imports nor depends on it; it
// only produces the in-memory []vm.Instruction sequence the VM
// consumes.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/psilLang/stackvm/vm"
)

// Assembler converts assembly text into a vm.Instruction sequence,
// resolving Call targets given as labels via a two-pass fixup table —
// the same tokenize/assembleTokens/fixup shape as the teacher's own
// text assembler, generalized from its byte-oriented encoding to this
// spec's flat Instruction slice.
type Assembler struct {
	insts  []vm.Instruction
	labels map[string]int
	fixups []fixup
}

type fixup struct {
	instIndex int
	label     string
}

// NewAssembler creates a new Assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

var sizeNames = map[string]vm.IntSize{
	"u8":  vm.OneByte,
	"u16": vm.TwoByte,
	"u32": vm.FourByte,
	"u64": vm.EightByte,
}

var binOps = map[string]vm.IntegerBinaryOperation{
	"uadd": vm.UnsignedAddition,
	"iadd": vm.SignedAddition,
	"usub": vm.UnsignedSubtraction,
	"isub": vm.SignedSubtraction,
	"umul": vm.UnsignedMultiplication,
	"imul": vm.SignedMultiplication,
	"udiv": vm.UnsignedDivision,
	"idiv": vm.SignedDivision,
}

// Assemble parses source and returns the assembled instruction
// sequence. Each non-empty, non-comment line is one instruction:
//
//	push.u32 42          ; PushConstant
//	uadd.u32              ; IntegerBinaryOperation
//	neg.u32                ; UnaryOperation
//	advance 8              ; AdvanceStackPtr
//	retract 8              ; RetractStackPtr
//	retract.moving 8 u64    ; RetractMoving
//	dup.u32                  ; Duplicate
//	debug.u32                 ; DebugPrintUnsigned
//	read.base -8 u32           ; ReadBase
//	write.base -8 u32            ; WriteBase
//	call fn                        ; Call (label or numeric index)
//	fn:                              ; label definition
//	ret                               ; Return
//	exit                               ; Exit
func (a *Assembler) Assemble(source string) ([]vm.Instruction, error) {
	a.insts = nil
	a.labels = make(map[string]int)
	a.fixups = nil

	for lineNum, rawLine := range strings.Split(source, "\n") {
		line := strings.TrimSpace(rawLine)
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			a.labels[strings.TrimSuffix(line, ":")] = len(a.insts)
			continue
		}
		if err := a.assembleLine(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
		}
	}

	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label: %s", f.label)
		}
		a.insts[f.instIndex].Target = target
	}

	return a.insts, nil
}

func (a *Assembler) assembleLine(line string) error {
	fields := strings.Fields(line)
	op := fields[0]
	args := fields[1:]

	switch {
	case strings.HasPrefix(op, "push."):
		size, err := parseSize(op[len("push."):])
		if err != nil {
			return err
		}
		if len(args) != 1 {
			return fmt.Errorf("push requires one immediate argument")
		}
		n, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid immediate %q: %w", args[0], err)
		}
		a.emit(vm.Push(vm.Constant{Size: size, Value: n}))

	case hasBinOpPrefix(op):
		name, sizeStr, _ := strings.Cut(op, ".")
		binOp, ok := binOps[name]
		if !ok {
			return fmt.Errorf("unknown binary operation: %s", name)
		}
		size, err := parseSize(sizeStr)
		if err != nil {
			return err
		}
		a.emit(vm.BinOpInst(binOp, size))

	case strings.HasPrefix(op, "neg."):
		size, err := parseSize(op[len("neg."):])
		if err != nil {
			return err
		}
		a.emit(vm.UnOpInst(vm.NegateSigned, size))

	case op == "advance":
		n, err := requireInt(args, "advance")
		if err != nil {
			return err
		}
		a.emit(vm.Advance(n))

	case op == "retract":
		n, err := requireInt(args, "retract")
		if err != nil {
			return err
		}
		a.emit(vm.Retract(n))

	case op == "retract.moving":
		if len(args) != 2 {
			return fmt.Errorf("retract.moving requires <bytes> <size>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid byte count %q: %w", args[0], err)
		}
		size, err := parseSize(args[1])
		if err != nil {
			return err
		}
		a.emit(vm.RetractMovingInst(n, size))

	case strings.HasPrefix(op, "dup."):
		size, err := parseSize(op[len("dup."):])
		if err != nil {
			return err
		}
		a.emit(vm.Dup(size))

	case strings.HasPrefix(op, "debug."):
		size, err := parseSize(op[len("debug."):])
		if err != nil {
			return err
		}
		a.emit(vm.DebugPrint(size))

	case op == "read.base":
		offset, size, err := parseOffsetSize(args)
		if err != nil {
			return err
		}
		a.emit(vm.ReadBaseInst(offset, size))

	case op == "write.base":
		offset, size, err := parseOffsetSize(args)
		if err != nil {
			return err
		}
		a.emit(vm.WriteBaseInst(offset, size))

	case op == "call":
		if len(args) != 1 {
			return fmt.Errorf("call requires one target")
		}
		if n, err := strconv.Atoi(args[0]); err == nil {
			a.emit(vm.CallInst(n))
		} else {
			a.emit(vm.CallInst(0))
			a.fixups = append(a.fixups, fixup{instIndex: len(a.insts) - 1, label: args[0]})
		}

	case op == "ret":
		a.emit(vm.ReturnInst())

	case op == "exit":
		a.emit(vm.ExitInst())

	default:
		return fmt.Errorf("unknown instruction: %s", op)
	}
	return nil
}

func (a *Assembler) emit(inst vm.Instruction) {
	a.insts = append(a.insts, inst)
}

func hasBinOpPrefix(op string) bool {
	name, _, found := strings.Cut(op, ".")
	if !found {
		return false
	}
	_, ok := binOps[name]
	return ok
}

func parseSize(s string) (vm.IntSize, error) {
	size, ok := sizeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown size: %s", s)
	}
	return size, nil
}

func requireInt(args []string, op string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires one argument", op)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid argument %q: %w", args[0], err)
	}
	return n, nil
}

func parseOffsetSize(args []string) (int, vm.IntSize, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("requires <offset> <size>")
	}
	offset, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid offset %q: %w", args[0], err)
	}
	size, err := parseSize(args[1])
	if err != nil {
		return 0, 0, err
	}
	return offset, size, nil
}
