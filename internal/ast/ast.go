// Package ast defines the typed syntax tree spec.md §6 describes as
// the out-of-scope AST/lowering pipeline's contract with the VM core:
// a Program of Declarations, where the only Declaration variant today
// is Function, and Expression variants
// Add|Subtract|Multiply|Divide|Literal|Block|Variable. Nothing in the
// vm package imports this package; it exists only to feed
// internal/evaluator and, eventually, a lowering pass that would emit
// vm.Instruction sequences.
//
// Grammar is defined as Go structs with participle tags, the same way
// the teacher's pkg/parser/parser.go builds its PSIL grammar.
package ast

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Program is the top-level AST node: a sequence of declarations.
type Program struct {
	Declarations []*Declaration `@@*`
}

// Declaration currently has one variant, Function, per spec.md §6.
type Declaration struct {
	Function *Function `@@`
}

// Function carries a name, a parameter list (out of scope for the VM
// per spec.md §6), and a block expression.
type Function struct {
	Name   string   `"fn" @Ident`
	Params []string `"(" (@Ident ("," @Ident)*)? ")"`
	Body   *Block   `@@`
}

// Statement is an expression evaluated for its side effects; only a
// block's final expression (with no trailing ";") contributes a value.
type Statement struct {
	Expr *Expression `@@ ";"`
}

// Block is a sequence of statements plus an optional trailing
// expression that determines the block's value.
type Block struct {
	Statements []*Statement `"{" @@*`
	Trailing   *Expression  `(@@)? "}"`
}

// Expression is the additive precedence level: Add | Subtract over Term.
type Expression struct {
	Left *Term     `@@`
	Rest []*OpTerm `@@*`
}

// OpTerm pairs an additive operator with its right-hand Term.
type OpTerm struct {
	Op   string `@("+" | "-")`
	Term *Term  `@@`
}

// Term is the multiplicative precedence level: Multiply | Divide over Factor.
type Term struct {
	Left *Factor     `@@`
	Rest []*OpFactor `@@*`
}

// OpFactor pairs a multiplicative operator with its right-hand Factor.
type OpFactor struct {
	Op     string  `@("*" | "/")`
	Factor *Factor `@@`
}

// Factor is a single terminal of the expression grammar: a literal, a
// variable reference, a parenthesized expression, or a block.
type Factor struct {
	Literal  *int64      `  @Int`
	Block    *Block      `| @@`
	Subexpr  *Expression `| "(" @@ ")"`
	Variable *string     `| @Ident`
}

var astLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[{}()[\],;+\-*/]`},
})

// Parser is the grammar-driven parser that produces a Program from
// source text, built with participle exactly as the teacher's
// pkg/parser/parser.go builds its own grammar.
var Parser = participle.MustBuild[Program](
	participle.Lexer(astLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse parses source into a Program AST.
func Parse(source string) (*Program, error) {
	return Parser.ParseString("", source)
}
