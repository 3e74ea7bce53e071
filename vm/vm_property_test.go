package vm_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/psilLang/stackvm/internal/asm"
	"github.com/psilLang/stackvm/vm"
)

// netEffect returns the net byte change an instruction makes to sp,
// mirroring spec.md §8 property 1's "push - pop - retract + advance"
// accounting. Call/Return/Exit have no *net user-level* stack effect by
// construction in a balanced program and are excluded from the sum.
func netEffect(inst vm.Instruction) int {
	switch inst.Op {
	case vm.OpPushConstant:
		return inst.Literal.Size.Bytes()
	case vm.OpIntegerBinaryOperation:
		return -inst.Size.Bytes() // pops 2, pushes 1: net -w
	case vm.OpUnaryOperation:
		return 0 // pops 1, pushes 1
	case vm.OpAdvanceStackPtr:
		return inst.Bytes
	case vm.OpRetractStackPtr:
		return -inst.Bytes
	case vm.OpRetractMoving:
		return -inst.Bytes
	case vm.OpDuplicate:
		return inst.Size.Bytes()
	case vm.OpReadBase:
		return inst.Size.Bytes()
	case vm.OpWriteBase:
		return -inst.Size.Bytes()
	default:
		return 0
	}
}

// Property 1: stack balance for every generated program, which by
// construction ends in Exit and never traps.
func FuzzStackBalance(f *testing.F) {
	f.Add(int64(1), 20)
	f.Add(int64(2), 200)
	f.Fuzz(func(t *testing.T, seed int64, rawSteps int) {
		steps := rawSteps % 256
		if steps < 0 {
			steps = -steps
		}
		insts := asm.GenerateBalancedProgram(seed, steps)

		want := 0
		for _, inst := range insts {
			want += netEffect(inst)
		}

		m := vm.New(insts)
		if err := m.Run(); err != nil {
			t.Fatalf("generated program faulted: %v", err)
		}
		if m.SP() != want {
			t.Fatalf("sp = %d, want %d (net declared effect of %d instructions)", m.SP(), want, len(insts))
		}
	})
}

// runBinOp assembles push(a); push(b); op; debug-print; exit and
// returns the printed unsigned decimal result — the only public way to
// observe a computed value is via the DebugPrintUnsigned/RunDebug
// surface, matching spec.md §6's exposed entry points.
func runBinOp(t *testing.T, op vm.IntegerBinaryOperation, size vm.IntSize, a, b uint64) uint64 {
	t.Helper()
	insts := []vm.Instruction{
		vm.Push(vm.Constant{Size: size, Value: a}),
		vm.Push(vm.Constant{Size: size, Value: b}),
		vm.BinOpInst(op, size),
		vm.DebugPrint(size),
		vm.ExitInst(),
	}
	m := vm.New(insts)
	var out bytes.Buffer
	if err := m.RunDebug(&out); err != nil {
		t.Fatalf("runBinOp(%v,%v,%d,%d) faulted: %v", op, size, a, b, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(out.String()), 10, 64)
	if err != nil {
		t.Fatalf("unparseable debug output %q: %v", out.String(), err)
	}
	return n
}

// Property 3: signed/unsigned duality, for Addition/Subtraction/
// Multiplication across all four widths (the wrapped values themselves
// are checked in FuzzUnsignedOverflowWraps). Division
// is intentionally excluded: spec.md §8 property 3 notes signed
// division truncates toward zero and is not bit-for-bit equivalent to
// unsigned division.
func FuzzSignedUnsignedDuality(f *testing.F) {
	f.Add(uint64(0), uint64(0))
	f.Add(uint64(1), uint64(0xFFFFFFFFFFFFFFFF))
	f.Add(uint64(0x7FFFFFFFFFFFFFFF), uint64(1))
	f.Fuzz(func(t *testing.T, a, b uint64) {
		sizes := []vm.IntSize{vm.OneByte, vm.TwoByte, vm.FourByte, vm.EightByte}
		pairs := []struct {
			unsigned vm.IntegerBinaryOperation
			signed   vm.IntegerBinaryOperation
			name     string
		}{
			{vm.UnsignedAddition, vm.SignedAddition, "add"},
			{vm.UnsignedSubtraction, vm.SignedSubtraction, "sub"},
			{vm.UnsignedMultiplication, vm.SignedMultiplication, "mul"},
		}

		for _, size := range sizes {
			w := uint(size.Bytes()) * 8
			mask := uint64(1)<<w - 1
			for _, p := range pairs {
				uResult := runBinOp(t, p.unsigned, size, a&mask, b&mask)
				sResult := runBinOp(t, p.signed, size, a&mask, b&mask)
				if uResult != sResult {
					t.Fatalf("%s.%s: unsigned(%d,%d)=%d != signed(%d,%d)=%d",
						p.name, size, a&mask, b&mask, uResult, a&mask, b&mask, sResult)
				}
			}
		}
	})
}

// Property 4: overflow wraps modulo 2^(8w) for unsigned arithmetic.
func FuzzUnsignedOverflowWraps(f *testing.F) {
	f.Add(uint64(1), uint64(2))
	f.Fuzz(func(t *testing.T, a, b uint64) {
		sizes := []vm.IntSize{vm.OneByte, vm.TwoByte, vm.FourByte, vm.EightByte}
		for _, size := range sizes {
			w := uint(size.Bytes()) * 8
			mask := uint64(1)<<w - 1
			av, bv := a&mask, b&mask

			got := runBinOp(t, vm.UnsignedAddition, size, av, bv)
			want := (av + bv) & mask
			if got != want {
				t.Fatalf("uadd.%s: %d+%d = %d, want %d (mod 2^%d)", size, av, bv, got, want, w)
			}

			got = runBinOp(t, vm.UnsignedMultiplication, size, av, bv)
			want = (av * bv) & mask
			if got != want {
				t.Fatalf("umul.%s: %d*%d = %d, want %d (mod 2^%d)", size, av, bv, got, want, w)
			}
		}
	})
}

// Property 5: Duplicate then RetractMoving leaves the top cell
// unchanged and sp unchanged.
func FuzzDuplicateIdempotence(f *testing.F) {
	f.Add(uint64(42))
	f.Fuzz(func(t *testing.T, v uint64) {
		for _, size := range []vm.IntSize{vm.OneByte, vm.TwoByte, vm.FourByte, vm.EightByte} {
			w := uint(size.Bytes()) * 8
			val := v & (uint64(1)<<w - 1)
			insts := []vm.Instruction{
				vm.Push(vm.Constant{Size: size, Value: val}),
				vm.Dup(size),
				vm.RetractMovingInst(size.Bytes(), size),
				vm.DebugPrint(size),
				vm.ExitInst(),
			}
			m := vm.New(insts)
			var out bytes.Buffer
			if err := m.RunDebug(&out); err != nil {
				t.Fatalf("dup/retract-moving faulted: %v", err)
			}
			got, err := strconv.ParseUint(strings.TrimSpace(out.String()), 10, 64)
			if err != nil {
				t.Fatalf("unparseable output: %v", err)
			}
			if got != val {
				t.Fatalf("dup+retract.moving.%s(%d) = %d, want %d", size, val, got, val)
			}
			if m.SP() != size.Bytes() {
				t.Fatalf("sp = %d, want %d after dup+retract.moving", m.SP(), size.Bytes())
			}
		}
	})
}

// Property 6: PushConstant; WriteBase(o); ReadBase(o) round-trips v.
func FuzzReadWriteBaseRoundTrip(f *testing.F) {
	f.Add(uint64(0xDEADBEEF))
	f.Fuzz(func(t *testing.T, v uint64) {
		for _, size := range []vm.IntSize{vm.OneByte, vm.TwoByte, vm.FourByte, vm.EightByte} {
			w := uint(size.Bytes()) * 8
			val := v & (uint64(1)<<w - 1)
			insts := []vm.Instruction{
				vm.Advance(size.Bytes()),
				vm.Push(vm.Constant{Size: size, Value: val}),
				vm.WriteBaseInst(0, size),
				vm.ReadBaseInst(0, size),
				vm.DebugPrint(size),
				vm.ExitInst(),
			}
			m := vm.New(insts)
			var out bytes.Buffer
			if err := m.RunDebug(&out); err != nil {
				t.Fatalf("round-trip faulted: %v", err)
			}
			got, err := strconv.ParseUint(strings.TrimSpace(out.String()), 10, 64)
			if err != nil {
				t.Fatalf("unparseable output: %v", err)
			}
			if got != val {
				t.Fatalf("read.base/write.base.%s round-trip(%d) = %d", size, val, got)
			}
		}
	})
}

// Property 7: a Call to a block ending in Return, with no net
// user-level stack change inside, restores bp, ip, and sp exactly.
func FuzzCallReturnBalance(f *testing.F) {
	f.Add(int64(3))
	f.Fuzz(func(t *testing.T, localBytes int64) {
		n := int(localBytes % 64)
		if n < 0 {
			n = -n
		}
		// callee: reserve n bytes of locals, then give them back, then return.
		insts := []vm.Instruction{
			vm.CallInst(2),
			vm.ExitInst(),
			vm.Advance(n),
			vm.Retract(n),
			vm.ReturnInst(),
		}
		m := vm.New(insts)
		if err := m.Run(); err != nil {
			t.Fatalf("call/return(%d) faulted: %v", n, err)
		}
		if m.SP() != 0 {
			t.Fatalf("sp = %d, want 0", m.SP())
		}
		if m.BP() != 0 {
			t.Fatalf("bp = %d, want 0", m.BP())
		}
		if m.IP() != 2 {
			t.Fatalf("ip = %d, want 2 (halted at Exit)", m.IP())
		}
	})
}

func TestNetEffectTableCoversAllOpcodes(t *testing.T) {
	// Checks that this test's opcode table names every opcode from
	// OpIntegerBinaryOperation through OpExit. It does not call
	// netEffect, so a wrong net effect there goes undetected here.
	known := map[vm.Opcode]bool{
		vm.OpIntegerBinaryOperation: true,
		vm.OpUnaryOperation:         true,
		vm.OpAdvanceStackPtr:        true,
		vm.OpRetractStackPtr:        true,
		vm.OpRetractMoving:          true,
		vm.OpDuplicate:              true,
		vm.OpPushConstant:           true,
		vm.OpDebugPrintUnsigned:     true,
		vm.OpReadBase:               true,
		vm.OpWriteBase:              true,
		vm.OpCall:                   true,
		vm.OpReturn:                 true,
		vm.OpExit:                   true,
	}
	for op := vm.OpIntegerBinaryOperation; op <= vm.OpExit; op++ {
		if !known[op] {
			t.Fatalf("opcode %v not accounted for in this test's opcode table", op)
		}
	}
}
