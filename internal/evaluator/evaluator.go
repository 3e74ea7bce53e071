// Package evaluator is a tree-walking evaluator over internal/ast,
// grounded on the original Rust Interpretter (original_source/src/interpret.rs):
// it runs only the declaration literally named "main", reports any other
// function as not yet implemented, and evaluates a block's statements
// only by counting them ("NotYetImplemented") before evaluating its
// trailing expression. This collaborator sits outside the VM core
// spec.md defines; nothing in package vm imports it.
package evaluator

import (
	"fmt"
	"io"

	"github.com/psilLang/stackvm/internal/ast"
)

// InterpretError reports a failure to evaluate a program: an unknown
// variable, a shadowed local, or a block with no trailing expression.
type InterpretError struct {
	Msg string
}

func (e *InterpretError) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &InterpretError{Msg: fmt.Sprintf(format, args...)}
}

// scope is one entry in a flat arena of lexical scopes, addressed by
// index rather than by a reference-counted pointer: the original's
// Rc<RefCell<Scope>> parent chain becomes a parent index into the same
// arena, since nothing here needs to outlive a single Run call.
type scope struct {
	parent int // -1 for no parent (the global scope)
	vars   map[string]int64
}

// Evaluator holds the scope arena for one Run. Scope 0 is always the
// global scope.
type Evaluator struct {
	scopes []scope
	out    io.Writer
}

// New returns an Evaluator that writes its narration (the same
// "NotYetImplemented"/"Main evaluated to N" lines the original prints)
// to out.
func New(out io.Writer) *Evaluator {
	return &Evaluator{
		scopes: []scope{{parent: -1, vars: map[string]int64{}}},
		out:    out,
	}
}

func (e *Evaluator) newSubscope(parent int) int {
	e.scopes = append(e.scopes, scope{parent: parent, vars: map[string]int64{}})
	return len(e.scopes) - 1
}

func (e *Evaluator) lookup(idx int, name string) (int64, error) {
	for idx != -1 {
		s := &e.scopes[idx]
		if v, ok := s.vars[name]; ok {
			return v, nil
		}
		idx = s.parent
	}
	return 0, errf("could not find variable: %s", name)
}

func (e *Evaluator) set(idx int, name string, val int64) error {
	for idx != -1 {
		s := &e.scopes[idx]
		if _, ok := s.vars[name]; ok {
			s.vars[name] = val
			return nil
		}
		idx = s.parent
	}
	return errf("could not find variable: %s", name)
}

func (e *Evaluator) add(idx int, name string, val int64) error {
	s := &e.scopes[idx]
	if _, ok := s.vars[name]; ok {
		return errf("cannot shadow local variable %s", name)
	}
	s.vars[name] = val
	return nil
}

// Run evaluates every Function declaration named "main" in prog and
// reports (via e.out) any other function as not yet supported, exactly
// matching the original's per-declaration behavior.
func (e *Evaluator) Run(prog *ast.Program) error {
	for _, decl := range prog.Declarations {
		fn := decl.Function
		if fn == nil {
			continue
		}
		if fn.Name != "main" {
			fmt.Fprintf(e.out, "NotYetImplemented: running code in functions other than main()\n")
			continue
		}
		value, err := e.evalBlock(fn.Body, e.newSubscope(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Main evaluated to %d\n", value)
	}
	return nil
}

func (e *Evaluator) evalBlock(b *ast.Block, parent int) (int64, error) {
	child := e.newSubscope(parent)
	if len(b.Statements) > 0 {
		fmt.Fprintf(e.out, "NotYetImplemented: %d statement(s) parsed but not run.\n", len(b.Statements))
	}
	if b.Trailing == nil {
		return 0, errf("not yet implemented: block without final expression")
	}
	return e.evalExpr(b.Trailing, child)
}

func (e *Evaluator) evalExpr(expr *ast.Expression, s int) (int64, error) {
	acc, err := e.evalTerm(expr.Left, s)
	if err != nil {
		return 0, err
	}
	for _, ot := range expr.Rest {
		rhs, err := e.evalTerm(ot.Term, s)
		if err != nil {
			return 0, err
		}
		switch ot.Op {
		case "+":
			acc += rhs
		case "-":
			acc -= rhs
		}
	}
	return acc, nil
}

func (e *Evaluator) evalTerm(t *ast.Term, s int) (int64, error) {
	acc, err := e.evalFactor(t.Left, s)
	if err != nil {
		return 0, err
	}
	for _, of := range t.Rest {
		rhs, err := e.evalFactor(of.Factor, s)
		if err != nil {
			return 0, err
		}
		switch of.Op {
		case "*":
			acc *= rhs
		case "/":
			if rhs == 0 {
				return 0, errf("division by zero")
			}
			acc /= rhs
		}
	}
	return acc, nil
}

func (e *Evaluator) evalFactor(f *ast.Factor, s int) (int64, error) {
	switch {
	case f.Literal != nil:
		return *f.Literal, nil
	case f.Block != nil:
		return e.evalBlock(f.Block, s)
	case f.Subexpr != nil:
		return e.evalExpr(f.Subexpr, s)
	case f.Variable != nil:
		return e.lookup(s, *f.Variable)
	default:
		return 0, errf("empty factor in AST")
	}
}
